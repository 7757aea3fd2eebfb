package router

import (
	"fmt"
	"slices"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
)

// HopsPerFrame is how many AMM hops share the references of one call.
const HopsPerFrame = 2

// Frame is the reference set one router call carries.
type Frame struct {
	// Hops are the indexes of the hops whose pools and assets the frame holds.
	Hops     []int              `json:"hops"`
	Accounts []protocol.Address `json:"accounts"`
	Assets   []uint64           `json:"assets"`
	Apps     []uint64           `json:"apps"`
	// Wrapped marks the frame holding the wrapped app's fixed reference set.
	Wrapped bool `json:"wrapped"`
}

// References is the total reference count of the frame.
func (f Frame) References() int {
	return len(f.Accounts) + len(f.Assets) + len(f.Apps)
}

func (f Frame) fits() error {
	if len(f.Accounts) > MaxAccountRefs {
		return fmt.Errorf("%w: frame needs %d accounts, a call holds %d", protocol.ErrReferenceOverflow, len(f.Accounts), MaxAccountRefs)
	}
	if f.References() > MaxTotalRefs {
		return fmt.Errorf("%w: frame needs %d references, a call holds %d", protocol.ErrReferenceOverflow, f.References(), MaxTotalRefs)
	}
	return nil
}

// GroupReferences partitions the AMM hops, in order, into frames of at most two
// hops each. Wrap hops take no AMM frame; if the route has any, one trailing frame
// with the wrapped app's fixed references is appended.
func GroupReferences(hops []protocol.Hop, d Deployment) ([]Frame, error) {
	var frames []Frame
	var current *Frame
	wrapped := false

	for _, hop := range hops {
		if hop.Kind == protocol.WrapHop {
			wrapped = true
			continue
		}
		if current == nil || len(current.Hops) == HopsPerFrame {
			frames = append(frames, Frame{Apps: []uint64{d.AMMAppID}})
			current = &frames[len(frames)-1]
		}
		current.Hops = append(current.Hops, hop.Index)
		if !slices.Contains(current.Accounts, hop.Pool) {
			current.Accounts = append(current.Accounts, hop.Pool)
		}
		for _, asset := range []uint64{hop.AssetIn, hop.AssetOut} {
			if !slices.Contains(current.Assets, asset) {
				current.Assets = append(current.Assets, asset)
			}
		}
		if err := current.fits(); err != nil {
			return nil, fmt.Errorf("hop %d: %w", hop.Index, err)
		}
	}

	if wrapped {
		if d.WrappedAppID == 0 {
			return nil, fmt.Errorf("%w: route wraps but no wrapped app is deployed", protocol.ErrInvalidConfig)
		}
		f := Frame{
			Accounts: slices.Clone(d.WrappedReferences),
			Assets:   []uint64{d.WrappedAssetID},
			Apps:     []uint64{d.WrappedAppID},
			Wrapped:  true,
		}
		for _, hop := range hops {
			if hop.Kind == protocol.WrapHop {
				f.Hops = append(f.Hops, hop.Index)
			}
		}
		if err := f.fits(); err != nil {
			return nil, fmt.Errorf("wrapped references: %w", err)
		}
		frames = append(frames, f)
	}
	return frames, nil
}
