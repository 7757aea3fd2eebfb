package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/localnet"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/rpc"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/settlement"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Logger()
}

func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "swaprouter",
		Short:         "Compile, simulate and serve atomic multi-hop swap groups",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
			zerolog.SetGlobalLevel(level)

			// share the logger with the packages
			rpc.SetLogger(log.With().Str("component", "rpc").Logger())
			localnet.SetLogger(log)
			settlement.SetLogger(log.With().Str("component", "settlement").Logger())
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		serveCmd(),
		swapCmd("compile", "Compile a swap request into an unsigned group", rpc.CompileSwapProcedure),
		swapCmd("quote", "Quote a swap route", rpc.QuoteSwapProcedure),
		swapCmd("simulate", "Compile and dry-run a swap request", rpc.SimulateSwapProcedure),
	)

	return rootCmd
}
