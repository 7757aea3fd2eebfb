package protocol

import (
	"encoding/binary"
	"fmt"
)

// Router method names, sent as the first call argument.
const (
	MethodCreate            = "create"
	MethodAssetOptIn        = "asset_opt_in"
	MethodSwap              = "swap"
	MethodNoop              = "noop"
	MethodClaimExtra        = "claim_extra"
	MethodProposeManager    = "propose_manager"
	MethodAcceptManager     = "accept_manager"
	MethodSetExtraCollector = "set_extra_collector"
)

const (
	// ArrayWidth is the fixed element count of route, pool and opt-in arrays.
	ArrayWidth = 8

	uint64Size = 8
)

// EncodeUint64 encodes an amount or id as 8 big-endian bytes.
func EncodeUint64(v uint64) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, uint64Size), v)
}

// DecodeUint64 is the inverse of EncodeUint64.
func DecodeUint64(b []byte) (uint64, error) {
	if len(b) != uint64Size {
		return 0, fmt.Errorf("%w: integer must be %d bytes, got %d", ErrMalformedArgs, uint64Size, len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// EncodeUint64Array packs up to ArrayWidth values into ArrayWidth*8 bytes, zero padded.
func EncodeUint64Array(values []uint64) ([]byte, error) {
	if len(values) > ArrayWidth {
		return nil, fmt.Errorf("%w: %d values exceed array width %d", ErrInvalidRoute, len(values), ArrayWidth)
	}
	out := make([]byte, 0, ArrayWidth*uint64Size)
	for i := 0; i < ArrayWidth; i++ {
		var v uint64
		if i < len(values) {
			v = values[i]
		}
		out = binary.BigEndian.AppendUint64(out, v)
	}
	return out, nil
}

// DecodeUint64Array returns all ArrayWidth slots, padding included.
func DecodeUint64Array(b []byte) ([ArrayWidth]uint64, error) {
	var out [ArrayWidth]uint64
	if len(b) != ArrayWidth*uint64Size {
		return out, fmt.Errorf("%w: array must be %d bytes, got %d", ErrMalformedArgs, ArrayWidth*uint64Size, len(b))
	}
	for i := range out {
		out[i] = binary.BigEndian.Uint64(b[i*uint64Size:])
	}
	return out, nil
}

// EncodeRoute is the route argument of the swap call.
func EncodeRoute(route Route) ([]byte, error) {
	return EncodeUint64Array(route)
}

// EncodePools packs up to ArrayWidth addresses, padded with the zero address.
func EncodePools(pools PoolList) ([]byte, error) {
	if len(pools) > ArrayWidth {
		return nil, fmt.Errorf("%w: %d pools exceed array width %d", ErrInvalidRoute, len(pools), ArrayWidth)
	}
	out := make([]byte, 0, ArrayWidth*AddressLength)
	for i := 0; i < ArrayWidth; i++ {
		addr := ZeroAddress
		if i < len(pools) {
			addr = pools[i]
		}
		out = append(out, addr[:]...)
	}
	return out, nil
}

// DecodePools returns all ArrayWidth slots, padding included.
func DecodePools(b []byte) ([ArrayWidth]Address, error) {
	var out [ArrayWidth]Address
	if len(b) != ArrayWidth*AddressLength {
		return out, fmt.Errorf("%w: pool array must be %d bytes, got %d", ErrMalformedArgs, ArrayWidth*AddressLength, len(b))
	}
	for i := range out {
		copy(out[i][:], b[i*AddressLength:(i+1)*AddressLength])
	}
	return out, nil
}

// SwapInstruction is the decoded argument list of a swap call.
type SwapInstruction struct {
	InputAmount uint64
	// Limit is the minimum output in fixed-input mode and the exact output in
	// fixed-output mode.
	Limit uint64
	Mode  Mode
	Route Route
	Pools PoolList
}

// Swaps is the hop count.
func (s SwapInstruction) Swaps() int {
	return len(s.Pools)
}

// Args encodes the instruction, method name first. Routes longer than the route
// array carry their last asset as a trailing argument.
func (s SwapInstruction) Args() ([][]byte, error) {
	if err := ValidateShape(s.Route, s.Pools); err != nil {
		return nil, err
	}
	head := s.Route
	if len(head) > ArrayWidth {
		head = head[:ArrayWidth]
	}
	routeArg, err := EncodeRoute(head)
	if err != nil {
		return nil, err
	}
	poolsArg, err := EncodePools(s.Pools)
	if err != nil {
		return nil, err
	}
	args := [][]byte{
		[]byte(MethodSwap),
		EncodeUint64(s.InputAmount),
		EncodeUint64(s.Limit),
		[]byte(s.Mode.String()),
		routeArg,
		poolsArg,
		EncodeUint64(uint64(len(s.Pools))),
	}
	if len(s.Route) > ArrayWidth {
		args = append(args, EncodeUint64(s.Route[ArrayWidth]))
	}
	return args, nil
}

// DecodeSwapInstruction parses the arguments produced by Args. Padding slots past
// the hop count must be zero.
func DecodeSwapInstruction(args [][]byte) (SwapInstruction, error) {
	var ins SwapInstruction
	if len(args) != 7 && len(args) != 8 {
		return ins, fmt.Errorf("%w: swap takes 7 or 8 arguments, got %d", ErrMalformedArgs, len(args))
	}
	if string(args[0]) != MethodSwap {
		return ins, fmt.Errorf("%w: expected %s, got %q", ErrMalformedArgs, MethodSwap, args[0])
	}
	var err error
	if ins.InputAmount, err = DecodeUint64(args[1]); err != nil {
		return ins, err
	}
	if ins.Limit, err = DecodeUint64(args[2]); err != nil {
		return ins, err
	}
	if ins.Mode, err = ParseMode(string(args[3])); err != nil {
		return ins, err
	}
	routeSlots, err := DecodeUint64Array(args[4])
	if err != nil {
		return ins, err
	}
	poolSlots, err := DecodePools(args[5])
	if err != nil {
		return ins, err
	}
	swaps, err := DecodeUint64(args[6])
	if err != nil {
		return ins, err
	}
	if swaps == 0 || swaps > MaxHops {
		return ins, fmt.Errorf("%w: swaps = %d", ErrInvalidRoute, swaps)
	}

	n := int(swaps)
	ins.Pools = append(PoolList(nil), poolSlots[:n]...)
	for i := n; i < ArrayWidth; i++ {
		if !poolSlots[i].IsZero() {
			return ins, fmt.Errorf("%w: pool slot %d set past %d swaps", ErrInvalidRoute, i, n)
		}
	}

	if n+1 <= ArrayWidth {
		if len(args) == 8 {
			return ins, fmt.Errorf("%w: final asset argument sent for a %d hop route", ErrMalformedArgs, n)
		}
		ins.Route = append(Route(nil), routeSlots[:n+1]...)
		for i := n + 1; i < ArrayWidth; i++ {
			if routeSlots[i] != 0 {
				return ins, fmt.Errorf("%w: route slot %d set past %d assets", ErrInvalidRoute, i, n+1)
			}
		}
	} else {
		if len(args) != 8 {
			return ins, fmt.Errorf("%w: %d hop route needs the final asset argument", ErrMalformedArgs, n)
		}
		last, err := DecodeUint64(args[7])
		if err != nil {
			return ins, err
		}
		ins.Route = append(Route(nil), routeSlots[:]...)
		ins.Route = append(ins.Route, last)
	}

	if err := ValidateShape(ins.Route, ins.Pools); err != nil {
		return ins, err
	}
	return ins, nil
}

// OptInArgs encodes an asset_opt_in call.
func OptInArgs(assets []uint64) ([][]byte, error) {
	arr, err := EncodeUint64Array(assets)
	if err != nil {
		return nil, err
	}
	return [][]byte{[]byte(MethodAssetOptIn), arr}, nil
}

// DecodeOptInAssets returns the non-zero asset ids of an asset_opt_in argument.
func DecodeOptInAssets(arg []byte) ([]uint64, error) {
	slots, err := DecodeUint64Array(arg)
	if err != nil {
		return nil, err
	}
	var assets []uint64
	for _, id := range slots {
		if id != NativeAsset {
			assets = append(assets, id)
		}
	}
	return assets, nil
}
