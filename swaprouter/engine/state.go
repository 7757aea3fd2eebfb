package engine

import "fmt"

// State is the phase of a router call. Failures are reported with the state they
// happened in, the ledger discards the whole group either way.
type State uint8

const (
	Idle State = iota
	OptingIn
	ReceivingFunds
	ExecutingHop
	Settling
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case OptingIn:
		return "opting-in"
	case ReceivingFunds:
		return "receiving-funds"
	case ExecutingHop:
		return "executing-hop"
	case Settling:
		return "settling"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// StateError tags an error with the state machine position it came from.
type StateError struct {
	State State
	// Hop is the failing hop index while executing hops, -1 otherwise.
	Hop int
	Err error
}

func (e *StateError) Error() string {
	if e.State == ExecutingHop {
		return fmt.Sprintf("%s %d: %v", e.State, e.Hop, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error { return e.Err }

func fail(state State, err error) error {
	return &StateError{State: state, Hop: -1, Err: err}
}

func failHop(hop int, err error) error {
	return &StateError{State: ExecutingHop, Hop: hop, Err: err}
}
