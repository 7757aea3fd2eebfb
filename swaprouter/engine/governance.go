package engine

import (
	"fmt"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/chain"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
)

func addressArg(ctx *chain.CallContext) (protocol.Address, error) {
	args := ctx.Args()
	if len(args) != 2 {
		return protocol.ZeroAddress, fmt.Errorf("%w: %s takes 1 argument, got %d", protocol.ErrMalformedArgs, args[0], len(args)-1)
	}
	addr, err := protocol.AddressFromBytes(args[1])
	if err != nil {
		return protocol.ZeroAddress, err
	}
	if addr.IsZero() {
		return protocol.ZeroAddress, fmt.Errorf("%w: zero address", protocol.ErrInvalidConfig)
	}
	return addr, nil
}

// proposeManager starts a manager hand-off. Proposing the pending address again
// changes nothing.
func (r *Router) proposeManager(ctx *chain.CallContext, cfg protocol.RouterConfig) error {
	if ctx.Sender() != cfg.Manager {
		return fail(Idle, fmt.Errorf("%w: only the manager can propose a new manager", protocol.ErrUnauthorized))
	}
	next, err := addressArg(ctx)
	if err != nil {
		return fail(Idle, err)
	}
	if next == cfg.PendingManager {
		return nil
	}
	ctx.PutGlobal(protocol.KeyPendingManager, chain.AddressValue(next))
	return nil
}

// acceptManager completes the hand-off; only the pending manager may call it.
func (r *Router) acceptManager(ctx *chain.CallContext, cfg protocol.RouterConfig) error {
	if !cfg.HasPendingManager() {
		return fail(Idle, fmt.Errorf("%w: no manager proposal pending", protocol.ErrUnauthorized))
	}
	if ctx.Sender() != cfg.PendingManager {
		return fail(Idle, fmt.Errorf("%w: %s is not the pending manager", protocol.ErrUnauthorized, ctx.Sender()))
	}
	ctx.PutGlobal(protocol.KeyManager, chain.AddressValue(cfg.PendingManager))
	ctx.PutGlobal(protocol.KeyPendingManager, chain.AddressValue(protocol.ZeroAddress))
	return nil
}

func (r *Router) setExtraCollector(ctx *chain.CallContext, cfg protocol.RouterConfig) error {
	if ctx.Sender() != cfg.Manager {
		return fail(Idle, fmt.Errorf("%w: only the manager can set the extra collector", protocol.ErrUnauthorized))
	}
	collector, err := addressArg(ctx)
	if err != nil {
		return fail(Idle, err)
	}
	if collector == cfg.ExtraCollector {
		return nil
	}
	ctx.PutGlobal(protocol.KeyExtraCollector, chain.AddressValue(collector))
	return nil
}

// claimExtra sends the router's residual balance of one asset to the extra
// collector. The native asset keeps the minimum balance. Nothing moves when
// there is nothing to claim, including assets the router never opted into.
func (r *Router) claimExtra(ctx *chain.CallContext, cfg protocol.RouterConfig) error {
	args := ctx.Args()
	if len(args) != 2 {
		return fail(Idle, fmt.Errorf("%w: claim_extra takes 1 argument, got %d", protocol.ErrMalformedArgs, len(args)-1))
	}
	asset, err := protocol.DecodeUint64(args[1])
	if err != nil {
		return fail(Idle, err)
	}

	self := ctx.Address()
	view := ctx.View()
	balance, ok := view.Balance(self, asset)
	if !ok {
		return nil
	}
	if asset == protocol.NativeAsset {
		floor := view.MinBalance(self)
		if balance <= floor {
			return nil
		}
		balance -= floor
	}
	if balance == 0 {
		return nil
	}
	if _, err := ctx.Submit(chain.Transfer(self, cfg.ExtraCollector, asset, balance)); err != nil {
		return fail(Settling, err)
	}
	return nil
}
