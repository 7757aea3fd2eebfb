package router

import (
	"fmt"
	"slices"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
)

// Compiler turns swap requests into compiled groups for one deployment.
type Compiler struct {
	deployment Deployment
}

func NewCompiler(d Deployment) (*Compiler, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &Compiler{deployment: d}, nil
}

func (c *Compiler) Deployment() Deployment {
	return c.deployment
}

/*
Compile lays a request out as

	[asset_opt_in ...] funding swap [noop ...] [noop wrapped]

The opt-in calls are emitted only when the request lists assets the router does
not hold. The primary swap call carries the first AMM frame and pays the pooled fee
of the whole group; the continuation calls carry the remaining frames.
*/
func (c *Compiler) Compile(req protocol.SwapRequest) (*CompiledGroup, error) {
	d := c.deployment
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Mode == protocol.FixedOutput && !d.FixedOutput {
		return nil, fmt.Errorf("%w: deployment has no quote capability for fixed-output swaps", protocol.ErrCapabilityUnavailable)
	}
	hops, err := protocol.ResolveHops(req.Route, req.Pools, d.WrappedAppAddress())
	if err != nil {
		return nil, err
	}
	if req.Mode == protocol.FixedOutput {
		if err := protocol.RequireDistinctPools(hops); err != nil {
			return nil, err
		}
	}
	frames, err := GroupReferences(hops, d)
	if err != nil {
		return nil, err
	}
	args, err := req.Instruction().Args()
	if err != nil {
		return nil, err
	}

	router := d.RouterAddress()
	optIns := missingOptIns(req.OptIn)
	var ops []Operation

	for chunk := range slices.Chunk(optIns, protocol.ArrayWidth) {
		optArgs, err := protocol.OptInArgs(chunk)
		if err != nil {
			return nil, err
		}
		ops = append(ops, Operation{
			Kind:   OpCall,
			Role:   RoleOptIn,
			Sender: req.Sender,
			AppID:  d.RouterAppID,
			Args:   optArgs,
			Assets: slices.Clone(chunk),
		})
	}

	ops = append(ops, Operation{
		Kind:     OpTransfer,
		Role:     RoleFunding,
		Sender:   req.Sender,
		Receiver: router,
		AssetID:  req.Route.Input(),
		Amount:   req.InputAmount,
	})

	primary := Operation{
		Kind:   OpCall,
		Role:   RolePrimary,
		Sender: req.Sender,
		AppID:  d.RouterAppID,
		Args:   args,
		Apps:   []uint64{d.AMMAppID},
	}
	rest := frames
	if len(frames) > 0 && !frames[0].Wrapped {
		primary.Accounts = frames[0].Accounts
		primary.Assets = frames[0].Assets
		primary.Apps = frames[0].Apps
		rest = frames[1:]
	}
	primaryIndex := len(ops)
	ops = append(ops, primary)

	for _, f := range rest {
		role := RoleContinuation
		if f.Wrapped {
			role = RoleWrapped
		}
		ops = append(ops, Operation{
			Kind:     OpCall,
			Role:     role,
			Sender:   req.Sender,
			AppID:    d.RouterAppID,
			Args:     [][]byte{[]byte(protocol.MethodNoop)},
			Accounts: f.Accounts,
			Assets:   f.Assets,
			Apps:     f.Apps,
		})
	}

	if len(ops) > MaxGroupSize {
		return nil, fmt.Errorf("%w: group of %d txns exceeds %d", protocol.ErrMalformedGroup, len(ops), MaxGroupSize)
	}

	budget := ComputeFeeBudget(len(ops), len(hops), len(optIns), req.Mode, d.MinFee, d.Fees)
	ops[primaryIndex].Fee = budget.Total()

	return &CompiledGroup{
		Request:    req,
		Operations: ops,
		Frames:     frames,
		Hops:       hops,
		Budget:     budget,
	}, nil
}

// missingOptIns drops the native asset and duplicates, keeping the order.
func missingOptIns(assets []uint64) []uint64 {
	var out []uint64
	for _, asset := range assets {
		if asset == protocol.NativeAsset || slices.Contains(out, asset) {
			continue
		}
		out = append(out, asset)
	}
	return out
}
