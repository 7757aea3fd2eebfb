package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"connectrpc.com/connect"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/config"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/localnet"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/rpc"
	"github.com/spf13/cobra"
)

// swapCmd runs one swap procedure in-process against a fresh local network and
// prints the JSON response.
func swapCmd(use, short, procedure string) *cobra.Command {
	var (
		networkPath string
		requestPath string
	)

	cmd := &cobra.Command{
		Use:   use + " [request.json]",
		Short: short,
		Long: short + `. The request is a JSON swap request read from the argument
path, or from stdin when the path is "-" or omitted. Without --network the
built-in development network is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 1 {
				requestPath = args[0]
			}

			req, err := readSwapRequest(cmd.InOrStdin(), requestPath)
			if err != nil {
				return err
			}

			netConfig := localnet.DefaultConfig()
			if networkPath != "" {
				if netConfig, err = config.NewNetworkConfigLoader().Load(ctx, networkPath); err != nil {
					return err
				}
			}
			network, err := localnet.New(netConfig)
			if err != nil {
				return fmt.Errorf("failed to start local network: %w", err)
			}
			svc, err := rpc.NewRouterService(network, nil)
			if err != nil {
				return err
			}

			var resp any
			msg := connect.NewRequest(req)
			switch procedure {
			case rpc.QuoteSwapProcedure:
				resp, err = unwrap(svc.QuoteSwap(ctx, msg))
			case rpc.SimulateSwapProcedure:
				resp, err = unwrap(svc.SimulateSwap(ctx, msg))
			default:
				resp, err = unwrap(svc.CompileSwap(ctx, msg))
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringVar(&networkPath, "network", "", "network config path or go-getter URL")

	return cmd
}

func unwrap[Res any](resp *connect.Response[Res], err error) (*Res, error) {
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func readSwapRequest(stdin io.Reader, path string) (*models.SwapRequest, error) {
	in := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open request: %w", err)
		}
		defer f.Close()
		in = f
	}

	var req models.SwapRequest
	dec := json.NewDecoder(in)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("failed to decode swap request: %w", err)
	}
	return &req, nil
}
