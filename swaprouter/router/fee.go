package router

import (
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/shopspring/decimal"
)

// FeeBudget is the fee reservation of a compiled group, in minimum-fee units.
// The primary call pays Base + Additional units, every other txn pays nothing.
type FeeBudget struct {
	MinFee uint64 `json:"min_fee"`
	// Base is one unit per outer txn of the group.
	Base uint64 `json:"base"`
	// Additional covers the inner txns the router issues.
	Additional uint64 `json:"additional"`
}

// ComputeFeeBudget reserves InnerCallsPerHop units per hop, one for the output
// transfer, one per opt-in asset and, in fixed-output mode, one for the change
// refund.
func ComputeFeeBudget(outerTxns, swaps, optIns int, mode protocol.Mode, minFee uint64, sched FeeSchedule) FeeBudget {
	additional := sched.InnerCallsPerHop*uint64(swaps) + 1 + uint64(optIns)
	if mode == protocol.FixedOutput {
		additional++
	}
	return FeeBudget{
		MinFee:     minFee,
		Base:       uint64(outerTxns),
		Additional: additional,
	}
}

// Units is the number of minimum fees the group pays.
func (b FeeBudget) Units() uint64 {
	return b.Base + b.Additional
}

// Total is the fee set on the primary call.
func (b FeeBudget) Total() uint64 {
	return b.Units() * b.MinFee
}

// Display renders the total in whole native units for the given decimals.
func (b FeeBudget) Display(decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(uint64Big(b.Total()), -decimals)
}
