package protocol

import "fmt"

// SwapRequest is what a user asks the compiler for.
type SwapRequest struct {
	Sender      Address
	InputAmount uint64
	// MinimumOutput is the slippage floor in fixed-input mode.
	MinimumOutput uint64
	// OutputAmount is the exact output in fixed-output mode; InputAmount is then the
	// maximum the user is willing to spend.
	OutputAmount uint64
	Mode         Mode
	Route        Route
	Pools        PoolList
	// OptIn lists route assets the router does not hold yet.
	OptIn []uint64
}

// Limit is the second amount of the swap instruction.
func (r SwapRequest) Limit() uint64 {
	if r.Mode == FixedOutput {
		return r.OutputAmount
	}
	return r.MinimumOutput
}

// Instruction converts the request into the on-chain argument record.
func (r SwapRequest) Instruction() SwapInstruction {
	return SwapInstruction{
		InputAmount: r.InputAmount,
		Limit:       r.Limit(),
		Mode:        r.Mode,
		Route:       r.Route,
		Pools:       r.Pools,
	}
}

// Validate checks amounts and the route shape.
func (r SwapRequest) Validate() error {
	if r.InputAmount == 0 {
		return fmt.Errorf("%w: input amount must be positive", ErrInvalidRoute)
	}
	if r.Mode == FixedOutput && r.OutputAmount == 0 {
		return fmt.Errorf("%w: output amount must be positive in fixed-output mode", ErrInvalidRoute)
	}
	return ValidateShape(r.Route, r.Pools)
}
