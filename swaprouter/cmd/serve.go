package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/config"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/localnet"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/rpc"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/settlement"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/storage"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/storage/memory"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/storage/migrations"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/storage/postgres"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	var (
		configPath  string
		networkPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the swap router RPC server against a local network",
		Long: `Run the swap router RPC server. The service config is read from --config,
or from SWAPROUTER_* environment variables (and a .env file) when --config is empty.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var path *string
			if configPath != "" {
				path = &configPath
			}
			rpcConfig, err := config.LoadRPCConfig(path)
			if err != nil {
				return fmt.Errorf("failed to load rpc config: %w", err)
			}
			if networkPath != "" {
				rpcConfig.NetworkConfig = networkPath
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, rpcConfig)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "rpc config file (toml), env vars are used when empty")
	cmd.Flags().StringVar(&networkPath, "network", "", "network config path or go-getter URL, overrides network_config")

	return cmd
}

func serve(ctx context.Context, rpcConfig *config.RPCConfig) error {
	log.Info().
		Str("network_config", rpcConfig.NetworkConfig).
		Bool("postgres", rpcConfig.DatabaseURL != "").
		Msg("Starting swap router")

	netConfig, err := config.NewNetworkConfigLoader().Load(ctx, rpcConfig.NetworkConfig)
	if err != nil {
		return err
	}
	network, err := localnet.New(netConfig)
	if err != nil {
		return fmt.Errorf("failed to start local network: %w", err)
	}
	log.Info().
		Str("network", netConfig.Name).
		Int("pools", len(netConfig.Pools)).
		Int("accounts", len(netConfig.Accounts)).
		Msg("Local network ready")

	store, closeStore, err := openStore(ctx, rpcConfig.DatabaseURL)
	if err != nil {
		return err
	}
	defer closeStore()

	hub := settlement.NewHub(settlement.DefaultSubscriberBuffer)
	svc, err := rpc.NewRouterService(network, settlement.NewIndexer(store, hub))
	if err != nil {
		return fmt.Errorf("failed to create router service: %w", err)
	}

	server, err := rpc.NewServer(ctx, rpc.ServerConfigFromRPC(rpcConfig), svc, hub)
	if err != nil {
		return fmt.Errorf("failed to create RPC server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore picks postgres when a database url is configured, memory otherwise.
func openStore(ctx context.Context, databaseURL string) (storage.SettlementStore, func(), error) {
	if databaseURL == "" {
		log.Warn().Msg("No database_url configured, settlements are kept in memory")
		return memory.NewSettlementStore(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return postgres.NewSettlementStore(pool), pool.Close, nil
}
