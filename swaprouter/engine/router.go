// Package engine is the router application: the state machine that executes a
// compiled swap group hop by hop, and the governance methods sharing its
// configuration.
package engine

import (
	"fmt"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/chain"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
)

// Router implements chain.Application.
type Router struct{}

func New() *Router {
	return &Router{}
}

// Call dispatches on the method name in the first argument.
func (r *Router) Call(ctx *chain.CallContext) error {
	method := ctx.Txn.Method()
	if method == protocol.MethodCreate {
		return r.create(ctx)
	}

	cfg, err := LoadConfig(ctx.View(), ctx.AppID())
	if err != nil {
		return fail(Idle, err)
	}

	switch method {
	case protocol.MethodAssetOptIn:
		return r.assetOptIn(ctx)
	case protocol.MethodSwap:
		return r.swap(ctx, cfg)
	case protocol.MethodNoop:
		return r.noop(ctx)
	case protocol.MethodClaimExtra:
		return r.claimExtra(ctx, cfg)
	case protocol.MethodProposeManager:
		return r.proposeManager(ctx, cfg)
	case protocol.MethodAcceptManager:
		return r.acceptManager(ctx, cfg)
	case protocol.MethodSetExtraCollector:
		return r.setExtraCollector(ctx, cfg)
	default:
		return fail(Idle, fmt.Errorf("%w: router has no method %q", protocol.ErrUnknownMethod, method))
	}
}

// create stores the collaborator ids; the creator becomes manager and extra collector.
func (r *Router) create(ctx *chain.CallContext) error {
	if _, ok := ctx.Global(protocol.KeyManager); ok {
		return fail(Idle, protocol.ErrAlreadyCreated)
	}
	args := ctx.Args()
	if len(args) != 4 {
		return fail(Idle, fmt.Errorf("%w: create takes 3 arguments, got %d", protocol.ErrMalformedArgs, len(args)-1))
	}
	var ids [3]uint64
	for i := range ids {
		v, err := protocol.DecodeUint64(args[i+1])
		if err != nil {
			return fail(Idle, err)
		}
		ids[i] = v
	}
	ammID, wrappedID, wrappedAsset := ids[0], ids[1], ids[2]
	if ammID == 0 {
		return fail(Idle, fmt.Errorf("%w: amm app id is required", protocol.ErrInvalidConfig))
	}
	if (wrappedID == 0) != (wrappedAsset == 0) {
		return fail(Idle, fmt.Errorf("%w: wrapped app and wrapped asset go together", protocol.ErrInvalidConfig))
	}

	var wrappedAddr protocol.Address
	if wrappedID != 0 {
		wrappedAddr = protocol.AppAddress(wrappedID)
	}
	ctx.PutGlobal(protocol.KeyAMMAppID, chain.Uint(ammID))
	ctx.PutGlobal(protocol.KeyWrappedAppID, chain.Uint(wrappedID))
	ctx.PutGlobal(protocol.KeyWrappedAssetID, chain.Uint(wrappedAsset))
	ctx.PutGlobal(protocol.KeyWrappedAppAddress, chain.AddressValue(wrappedAddr))
	ctx.PutGlobal(protocol.KeyManager, chain.AddressValue(ctx.Sender()))
	ctx.PutGlobal(protocol.KeyPendingManager, chain.AddressValue(protocol.ZeroAddress))
	ctx.PutGlobal(protocol.KeyExtraCollector, chain.AddressValue(ctx.Sender()))
	return nil
}

// LoadConfig reads the router configuration from global state.
func LoadConfig(view chain.View, appID uint64) (protocol.RouterConfig, error) {
	var cfg protocol.RouterConfig
	manager, ok := view.Global(appID, protocol.KeyManager)
	if !ok {
		return cfg, fmt.Errorf("%w: router app %d", protocol.ErrNotCreated, appID)
	}
	get := func(key string) chain.Value {
		v, _ := view.Global(appID, key)
		return v
	}
	cfg.Manager = manager.Address()
	cfg.AMMAppID = get(protocol.KeyAMMAppID).Uint
	cfg.WrappedAppID = get(protocol.KeyWrappedAppID).Uint
	cfg.WrappedAssetID = get(protocol.KeyWrappedAssetID).Uint
	cfg.WrappedAppAddress = get(protocol.KeyWrappedAppAddress).Address()
	cfg.PendingManager = get(protocol.KeyPendingManager).Address()
	cfg.ExtraCollector = get(protocol.KeyExtraCollector).Address()
	return cfg, nil
}

// CreateArgs builds the argument list of the create call.
func CreateArgs(ammAppID, wrappedAppID, wrappedAssetID uint64) [][]byte {
	return [][]byte{
		[]byte(protocol.MethodCreate),
		protocol.EncodeUint64(ammAppID),
		protocol.EncodeUint64(wrappedAppID),
		protocol.EncodeUint64(wrappedAssetID),
	}
}

// assetOptIn opts the router into every listed asset it does not hold yet, one
// zero-amount inner transfer each. It has to come before the swap of its group.
func (r *Router) assetOptIn(ctx *chain.CallContext) error {
	if swapBefore(ctx) {
		return fail(OptingIn, fmt.Errorf("%w: opt-in after a swap call", protocol.ErrMalformedGroup))
	}
	args := ctx.Args()
	if len(args) != 2 {
		return fail(OptingIn, fmt.Errorf("%w: asset_opt_in takes 1 argument, got %d", protocol.ErrMalformedArgs, len(args)-1))
	}
	assets, err := protocol.DecodeOptInAssets(args[1])
	if err != nil {
		return fail(OptingIn, err)
	}
	self := ctx.Address()
	view := ctx.View()
	for _, asset := range assets {
		if view.OptedIn(self, asset) {
			continue
		}
		if _, err := ctx.Submit(chain.Transfer(self, self, asset, 0)); err != nil {
			return fail(OptingIn, err)
		}
	}
	return nil
}

// noop carries extra references for the swap; it is only valid after one.
func (r *Router) noop(ctx *chain.CallContext) error {
	if !swapBefore(ctx) {
		return fail(Idle, fmt.Errorf("%w: noop without a preceding swap call", protocol.ErrMalformedGroup))
	}
	return nil
}

// swapBefore reports whether an earlier txn of the group is a swap call to this router.
func swapBefore(ctx *chain.CallContext) bool {
	for i := 0; i < ctx.Index(); i++ {
		txn, _ := ctx.GroupTxn(i)
		if txn.Type == chain.AppCall && txn.AppID == ctx.AppID() && txn.Method() == protocol.MethodSwap {
			return true
		}
	}
	return false
}
