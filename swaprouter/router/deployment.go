// Package router compiles swap requests into budget-legal transaction groups for
// the on-chain router: reference frames for every hop, the funding transfer, the
// chained calls and an exact pooled fee reservation.
package router

import (
	"fmt"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
)

// Per-call reference capacity of the target network.
const (
	MaxAccountRefs = 4
	MaxTotalRefs   = 8
	MaxGroupSize   = 16
)

// DefaultInnerCallsPerHop is the number of inner txns one hop costs: the transfer
// into the pool, the AMM call and the AMM paying back.
const DefaultInnerCallsPerHop = 3

// FeeSchedule holds the nested-call multiplier of the fee budget.
type FeeSchedule struct {
	InnerCallsPerHop uint64 `toml:"inner_calls_per_hop" json:"inner_calls_per_hop"`
}

func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{InnerCallsPerHop: DefaultInnerCallsPerHop}
}

// Deployment is everything the compiler needs to know about one router
// installation and its collaborators.
type Deployment struct {
	RouterAppID       uint64
	AMMAppID          uint64
	WrappedAppID      uint64
	WrappedAssetID    uint64
	WrappedReferences []protocol.Address
	MinFee            uint64
	Fees              FeeSchedule
	// FixedOutput is set when the AMM offers the read-only quote capability that
	// fixed-output swaps depend on.
	FixedOutput bool
}

// RouterAddress is the account the funding transfer pays into.
func (d Deployment) RouterAddress() protocol.Address {
	return protocol.AppAddress(d.RouterAppID)
}

// WrappedAppAddress is the zero address when no wrapped app is deployed.
func (d Deployment) WrappedAppAddress() protocol.Address {
	if d.WrappedAppID == 0 {
		return protocol.ZeroAddress
	}
	return protocol.AppAddress(d.WrappedAppID)
}

func (d Deployment) Validate() error {
	if d.RouterAppID == 0 || d.AMMAppID == 0 {
		return fmt.Errorf("%w: router and amm app ids are required", protocol.ErrInvalidConfig)
	}
	if d.MinFee == 0 {
		return fmt.Errorf("%w: min fee must be positive", protocol.ErrInvalidConfig)
	}
	if d.Fees.InnerCallsPerHop == 0 {
		return fmt.Errorf("%w: inner calls per hop must be positive", protocol.ErrInvalidConfig)
	}
	if (d.WrappedAppID == 0) != (d.WrappedAssetID == 0) {
		return fmt.Errorf("%w: wrapped app and wrapped asset go together", protocol.ErrInvalidConfig)
	}
	return nil
}
