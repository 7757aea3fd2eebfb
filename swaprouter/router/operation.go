package router

import (
	"fmt"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
)

// OpKind says whether an operation moves value or calls an application.
type OpKind uint8

const (
	OpTransfer OpKind = iota
	OpCall
)

func (k OpKind) String() string {
	if k == OpCall {
		return "call"
	}
	return "transfer"
}

// Role is the part an operation plays in a swap group.
type Role uint8

const (
	RoleOptIn Role = iota
	RoleFunding
	RolePrimary
	RoleContinuation
	RoleWrapped
	RoleGovernance
)

func (r Role) String() string {
	switch r {
	case RoleOptIn:
		return "opt-in"
	case RoleFunding:
		return "funding"
	case RolePrimary:
		return "primary"
	case RoleContinuation:
		return "continuation"
	case RoleWrapped:
		return "wrapped"
	case RoleGovernance:
		return "governance"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (k OpKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Operation is one abstract, unsigned txn of a compiled group.
type Operation struct {
	Kind   OpKind           `json:"kind"`
	Role   Role             `json:"role"`
	Sender protocol.Address `json:"sender"`
	Fee    uint64           `json:"fee"`

	Receiver protocol.Address `json:"receiver,omitzero"`
	AssetID  uint64           `json:"asset_id,omitempty"`
	Amount   uint64           `json:"amount,omitempty"`

	AppID    uint64             `json:"app_id,omitempty"`
	Args     [][]byte           `json:"args,omitempty"`
	Accounts []protocol.Address `json:"accounts,omitempty"`
	Assets   []uint64           `json:"assets,omitempty"`
	Apps     []uint64           `json:"apps,omitempty"`
}

// CompiledGroup is the output of the compiler, ready to be signed and submitted.
type CompiledGroup struct {
	Request    protocol.SwapRequest `json:"-"`
	Operations []Operation          `json:"operations"`
	Frames     []Frame              `json:"frames"`
	Hops       []protocol.Hop       `json:"hops"`
	Budget     FeeBudget            `json:"budget"`
}

// Primary returns the index of the swap call.
func (g *CompiledGroup) Primary() int {
	for i, op := range g.Operations {
		if op.Role == RolePrimary {
			return i
		}
	}
	return -1
}

// TotalFee sums the fees of all operations.
func (g *CompiledGroup) TotalFee() uint64 {
	var total uint64
	for _, op := range g.Operations {
		total += op.Fee
	}
	return total
}

// Calls counts the application calls of the group.
func (g *CompiledGroup) Calls() int {
	n := 0
	for _, op := range g.Operations {
		if op.Kind == OpCall {
			n++
		}
	}
	return n
}
