package amm

import (
	"fmt"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/holiman/uint256"
)

const (
	// DefaultFeeBps is the total fee share of a pool, in basis points.
	DefaultFeeBps = 30

	bpsDenominator = 10_000
)

// QuoteFixedInput returns the output of swapping amountIn into a pool holding
// inReserves/outReserves. The fee is taken from the input and every division floors.
//
//	fee    = amountIn * feeBps / 10000
//	swapIn = amountIn - fee
//	out    = outReserves * swapIn / (inReserves + swapIn)
func QuoteFixedInput(inReserves, outReserves, amountIn, feeBps uint64) (uint64, error) {
	if inReserves == 0 || outReserves == 0 {
		return 0, fmt.Errorf("%w: pool has no liquidity", protocol.ErrUpstreamRejected)
	}
	if feeBps >= bpsDenominator {
		return 0, fmt.Errorf("%w: fee of %d bps", protocol.ErrInvalidConfig, feeBps)
	}

	in := uint256.NewInt(amountIn)
	fee := new(uint256.Int).Mul(in, uint256.NewInt(feeBps))
	fee.Div(fee, uint256.NewInt(bpsDenominator))
	swapIn := new(uint256.Int).Sub(in, fee)

	num := new(uint256.Int).Mul(uint256.NewInt(outReserves), swapIn)
	den := new(uint256.Int).Add(uint256.NewInt(inReserves), swapIn)
	out := num.Div(num, den)
	return out.Uint64(), nil
}

// QuoteFixedOutput returns the input needed to receive exactly amountOut.
//
//	swapIn   = inReserves * amountOut / (outReserves - amountOut) + 1
//	amountIn = swapIn * 10000 / (10000 - feeBps)
func QuoteFixedOutput(inReserves, outReserves, amountOut, feeBps uint64) (uint64, error) {
	if inReserves == 0 || outReserves == 0 {
		return 0, fmt.Errorf("%w: pool has no liquidity", protocol.ErrUpstreamRejected)
	}
	if amountOut >= outReserves {
		return 0, fmt.Errorf("%w: output %d drains reserves of %d", protocol.ErrUpstreamRejected, amountOut, outReserves)
	}
	if feeBps >= bpsDenominator {
		return 0, fmt.Errorf("%w: fee of %d bps", protocol.ErrInvalidConfig, feeBps)
	}

	num := new(uint256.Int).Mul(uint256.NewInt(inReserves), uint256.NewInt(amountOut))
	swapIn := num.Div(num, uint256.NewInt(outReserves-amountOut))
	swapIn.AddUint64(swapIn, 1)

	in := new(uint256.Int).Mul(swapIn, uint256.NewInt(bpsDenominator))
	in.Div(in, uint256.NewInt(bpsDenominator-feeBps))
	if !in.IsUint64() {
		return 0, fmt.Errorf("%w: required input overflows", protocol.ErrUpstreamRejected)
	}
	return in.Uint64(), nil
}

// ScaleFloor returns amount * num / den rounded down.
func ScaleFloor(amount, num, den uint64) (uint64, error) {
	if den == 0 {
		return 0, fmt.Errorf("%w: zero denominator", protocol.ErrInvalidConfig)
	}
	v := new(uint256.Int).Mul(uint256.NewInt(amount), uint256.NewInt(num))
	v.Div(v, uint256.NewInt(den))
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: %d * %d / %d overflows", protocol.ErrUpstreamRejected, amount, num, den)
	}
	return v.Uint64(), nil
}

// ScaleCeil returns amount * num / den rounded up.
func ScaleCeil(amount, num, den uint64) (uint64, error) {
	if den == 0 {
		return 0, fmt.Errorf("%w: zero denominator", protocol.ErrInvalidConfig)
	}
	v := new(uint256.Int).Mul(uint256.NewInt(amount), uint256.NewInt(num))
	v.AddUint64(v, den-1)
	v.Div(v, uint256.NewInt(den))
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: %d * %d / %d overflows", protocol.ErrUpstreamRejected, amount, num, den)
	}
	return v.Uint64(), nil
}
