package router

import (
	"context"
	"fmt"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
)

// Quoter prices single hops. In fixed-input mode it returns the output for
// amount, in fixed-output mode the input needed to receive amount.
type Quoter interface {
	QuoteHop(ctx context.Context, hop protocol.Hop, mode protocol.Mode, amount uint64) (uint64, error)
}

// Quote is the expected outcome of a route.
type Quote struct {
	Mode      protocol.Mode `json:"mode"`
	AmountIn  uint64        `json:"amount_in"`
	AmountOut uint64        `json:"amount_out"`
	// Amounts[i] is the amount entering hop i; the last entry is the output.
	Amounts []uint64 `json:"amounts"`
}

// QuoteRoute walks the route forward in fixed-input mode and backward in
// fixed-output mode, like the router does on chain.
func QuoteRoute(ctx context.Context, q Quoter, hops []protocol.Hop, mode protocol.Mode, amount uint64) (Quote, error) {
	quote := Quote{Mode: mode, Amounts: make([]uint64, len(hops)+1)}
	if len(hops) == 0 {
		return quote, fmt.Errorf("%w: no hops", protocol.ErrInvalidRoute)
	}

	if mode == protocol.FixedOutput {
		quote.Amounts[len(hops)] = amount
		for i := len(hops) - 1; i >= 0; i-- {
			need, err := q.QuoteHop(ctx, hops[i], mode, quote.Amounts[i+1])
			if err != nil {
				return quote, fmt.Errorf("failed to quote hop %d: %w", i, err)
			}
			quote.Amounts[i] = need
		}
	} else {
		quote.Amounts[0] = amount
		for i, hop := range hops {
			out, err := q.QuoteHop(ctx, hop, mode, quote.Amounts[i])
			if err != nil {
				return quote, fmt.Errorf("failed to quote hop %d: %w", i, err)
			}
			if out == 0 {
				return quote, fmt.Errorf("%w: hop %d returns nothing for %d", protocol.ErrSlippageExceeded, i, quote.Amounts[i])
			}
			quote.Amounts[i+1] = out
		}
	}
	quote.AmountIn = quote.Amounts[0]
	quote.AmountOut = quote.Amounts[len(hops)]
	return quote, nil
}

// Plan quotes a request and fills in its bound from the slippage tolerance: the
// minimum output in fixed-input mode, the maximum input in fixed-output mode.
func (c *Compiler) Plan(ctx context.Context, q Quoter, req protocol.SwapRequest, slippageBps uint32) (protocol.SwapRequest, Quote, error) {
	hops, err := protocol.ResolveHops(req.Route, req.Pools, c.deployment.WrappedAppAddress())
	if err != nil {
		return req, Quote{}, err
	}

	if req.Mode == protocol.FixedOutput {
		if !c.deployment.FixedOutput {
			return req, Quote{}, fmt.Errorf("%w: deployment has no quote capability for fixed-output swaps", protocol.ErrCapabilityUnavailable)
		}
		if err := protocol.RequireDistinctPools(hops); err != nil {
			return req, Quote{}, err
		}
		quote, err := QuoteRoute(ctx, q, hops, req.Mode, req.OutputAmount)
		if err != nil {
			return req, quote, err
		}
		if req.InputAmount, err = MaximumInput(quote.AmountIn, slippageBps); err != nil {
			return req, quote, err
		}
		return req, quote, nil
	}

	quote, err := QuoteRoute(ctx, q, hops, req.Mode, req.InputAmount)
	if err != nil {
		return req, quote, err
	}
	if req.MinimumOutput, err = MinimumOutput(quote.AmountOut, slippageBps); err != nil {
		return req, quote, err
	}
	return req, quote, nil
}
