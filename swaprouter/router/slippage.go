package router

import (
	"fmt"
	"math/big"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/shopspring/decimal"
)

// MaxSlippageBps caps the tolerance a caller may ask for.
const MaxSlippageBps = 10_000

var bpsDenominator = decimal.NewFromInt(10_000)

func uint64Big(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

func fromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(uint64Big(v), 0)
}

func toUint64(d decimal.Decimal) (uint64, error) {
	i := d.BigInt()
	if i.Sign() < 0 || !i.IsUint64() {
		return 0, fmt.Errorf("%w: %s does not fit an amount", protocol.ErrInvalidRoute, d.String())
	}
	return i.Uint64(), nil
}

// MinimumOutput applies a slippage tolerance to an expected output:
// expected * (10000 - slippageBps) / 10000, rounded down.
func MinimumOutput(expected uint64, slippageBps uint32) (uint64, error) {
	if slippageBps > MaxSlippageBps {
		return 0, fmt.Errorf("%w: slippage of %d bps", protocol.ErrInvalidRoute, slippageBps)
	}
	keep := decimal.NewFromInt(int64(MaxSlippageBps - slippageBps))
	return toUint64(fromUint64(expected).Mul(keep).Div(bpsDenominator).Floor())
}

// MaximumInput is the fixed-output counterpart: expected * (10000 + slippageBps)
// / 10000, rounded up.
func MaximumInput(expected uint64, slippageBps uint32) (uint64, error) {
	if slippageBps > MaxSlippageBps {
		return 0, fmt.Errorf("%w: slippage of %d bps", protocol.ErrInvalidRoute, slippageBps)
	}
	grow := decimal.NewFromInt(int64(MaxSlippageBps + slippageBps))
	return toUint64(fromUint64(expected).Mul(grow).Div(bpsDenominator).Ceil())
}

// PriceImpact compares the executed price out/in against the spot price of the
// route, as a fraction (0.01 = 1%). A zero spot price yields zero.
func PriceImpact(spotPrice decimal.Decimal, amountIn, amountOut uint64) decimal.Decimal {
	if spotPrice.IsZero() || amountIn == 0 {
		return decimal.Zero
	}
	executed := fromUint64(amountOut).Div(fromUint64(amountIn))
	return decimal.NewFromInt(1).Sub(executed.Div(spotPrice))
}
