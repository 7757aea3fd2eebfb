package engine

import (
	"fmt"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/amm"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/chain"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
)

// swapRun carries one swap call through its states.
type swapRun struct {
	ctx   *chain.CallContext
	cfg   protocol.RouterConfig
	ins   protocol.SwapInstruction
	hops  []protocol.Hop
	self  protocol.Address
	state State
}

func (r *Router) swap(ctx *chain.CallContext, cfg protocol.RouterConfig) error {
	ins, err := protocol.DecodeSwapInstruction(ctx.Args())
	if err != nil {
		return fail(Idle, err)
	}
	if ins.InputAmount == 0 {
		return fail(Idle, fmt.Errorf("%w: input amount must be positive", protocol.ErrInvalidRoute))
	}
	if ins.Mode == protocol.FixedOutput && ins.Limit == 0 {
		return fail(Idle, fmt.Errorf("%w: output amount must be positive", protocol.ErrInvalidRoute))
	}
	hops, err := protocol.ResolveHops(ins.Route, ins.Pools, cfg.WrappedAppAddress)
	if err != nil {
		return fail(Idle, err)
	}
	if ins.Mode == protocol.FixedOutput {
		if err := protocol.RequireDistinctPools(hops); err != nil {
			return fail(Idle, err)
		}
	}

	run := &swapRun{ctx: ctx, cfg: cfg, ins: ins, hops: hops, self: ctx.Address(), state: Idle}
	return run.execute()
}

func (s *swapRun) execute() error {
	s.state = ReceivingFunds
	if err := s.receiveFunds(); err != nil {
		return fail(s.state, err)
	}

	spend := s.ins.InputAmount
	var targets []uint64
	if s.ins.Mode == protocol.FixedOutput {
		var err error
		if targets, err = s.planBackward(); err != nil {
			return err
		}
		if targets[0] > s.ins.InputAmount {
			return fail(s.state, fmt.Errorf("%w: route needs %d input, at most %d supplied",
				protocol.ErrSlippageExceeded, targets[0], s.ins.InputAmount))
		}
		spend = targets[0]
	}

	s.state = ExecutingHop
	running := spend
	for i, hop := range s.hops {
		amountIn, target := running, uint64(1)
		if targets != nil {
			amountIn, target = targets[i], targets[i+1]
		}
		out, err := s.executeHop(hop, amountIn, target)
		if err != nil {
			return failHop(i, err)
		}
		running = out
	}

	s.state = Settling
	if err := s.settle(spend, running); err != nil {
		return fail(s.state, err)
	}
	s.state = Done
	return nil
}

// receiveFunds checks that the txn right before this call pays the input into the router.
func (s *swapRun) receiveFunds() error {
	funding, ok := s.ctx.GroupTxn(s.ctx.Index() - 1)
	if !ok || !funding.IsTransfer() {
		return fmt.Errorf("%w: swap must follow the funding transfer", protocol.ErrBadFunding)
	}
	switch {
	case funding.Receiver != s.self:
		return fmt.Errorf("%w: funding goes to %s, not the router", protocol.ErrBadFunding, funding.Receiver)
	case funding.Sender != s.ctx.Sender():
		return fmt.Errorf("%w: funding sent by %s, swap called by %s", protocol.ErrBadFunding, funding.Sender, s.ctx.Sender())
	case funding.Asset() != s.ins.Route.Input():
		return fmt.Errorf("%w: funding asset %d, route starts with %d", protocol.ErrBadFunding, funding.Asset(), s.ins.Route.Input())
	case funding.Amount != s.ins.InputAmount:
		return fmt.Errorf("%w: funding amount %d, instruction says %d", protocol.ErrBadFunding, funding.Amount, s.ins.InputAmount)
	}
	return nil
}

// planBackward asks the collaborators, last hop first, for the input each hop
// needs. targets[i] is what hop i consumes and targets[len(hops)] the output.
func (s *swapRun) planBackward() ([]uint64, error) {
	targets := make([]uint64, len(s.hops)+1)
	targets[len(s.hops)] = s.ins.Limit
	for i := len(s.hops) - 1; i >= 0; i-- {
		need, err := s.quoteInput(s.hops[i], targets[i+1])
		if err != nil {
			return nil, failHop(i, err)
		}
		if need == 0 {
			return nil, failHop(i, fmt.Errorf("%w: zero input quoted", protocol.ErrUpstreamRejected))
		}
		targets[i] = need
	}
	return targets, nil
}

func (s *swapRun) quoteInput(hop protocol.Hop, amountOut uint64) (uint64, error) {
	var res []byte
	var err error
	if hop.Kind == protocol.WrapHop {
		res, err = s.ctx.Query(s.cfg.WrappedAppID, amm.WrappedQuoteArgs(protocol.FixedOutput, amountOut, hop.AssetIn, hop.AssetOut)...)
	} else {
		res, err = s.ctx.Query(s.cfg.AMMAppID, amm.QuoteArgs(protocol.FixedOutput, amountOut, hop.Pool, hop.AssetIn, hop.AssetOut)...)
	}
	if err != nil {
		return 0, err
	}
	return protocol.DecodeUint64(res)
}

// executeHop pays amountIn into the hop's collaborator and returns what came
// back to the router. target is the minimum output in fixed-input mode and the
// exact output in fixed-output mode.
func (s *swapRun) executeHop(hop protocol.Hop, amountIn, target uint64) (uint64, error) {
	var group []chain.Txn
	if hop.Kind == protocol.WrapHop {
		wrapped, err := amm.LoadWrapped(s.ctx.View(), s.cfg.WrappedAppID)
		if err != nil {
			return 0, err
		}
		method := amm.MethodUnwrap
		if hop.Wraps() {
			method = amm.MethodWrap
		}
		group = []chain.Txn{
			chain.Transfer(s.self, s.cfg.WrappedAppAddress, hop.AssetIn, amountIn),
			{
				Type:     chain.AppCall,
				Sender:   s.self,
				AppID:    s.cfg.WrappedAppID,
				Args:     [][]byte{[]byte(method)},
				Accounts: wrapped.References[:],
				Assets:   []uint64{wrapped.AssetID},
			},
		}
	} else {
		group = []chain.Txn{
			chain.Transfer(s.self, hop.Pool, hop.AssetIn, amountIn),
			{
				Type:     chain.AppCall,
				Sender:   s.self,
				AppID:    s.cfg.AMMAppID,
				Args:     amm.SwapArgs(s.ins.Mode, target),
				Accounts: []protocol.Address{hop.Pool},
				Assets:   []uint64{hop.AssetIn, hop.AssetOut},
			},
		}
	}

	results, err := s.ctx.SubmitGroup(group)
	if err != nil {
		return 0, err
	}
	out := received(results[1], s.self, hop.AssetOut)
	if out < target {
		return 0, fmt.Errorf("%w: hop returned %d, expected at least %d", protocol.ErrSlippageExceeded, out, target)
	}
	return out, nil
}

// received sums the transfers of asset into addr issued by a call's inner txns.
func received(call *chain.TxnResult, addr protocol.Address, asset uint64) uint64 {
	var total uint64
	call.Walk(func(res *chain.TxnResult) {
		txn := res.Txn
		if txn.IsTransfer() && txn.Receiver == addr && txn.Sender != addr && txn.Asset() == asset {
			total += txn.Amount
		}
	})
	return total
}

// settle enforces the output bound, refunds change, pays out and logs the event.
func (s *swapRun) settle(spent, running uint64) error {
	caller := s.ctx.Sender()
	event := protocol.SettlementEvent{
		InputAssetID:  s.ins.Route.Input(),
		OutputAssetID: s.ins.Route.Output(),
		InputAmount:   spent,
		OutputAmount:  running,
	}

	if running < s.ins.Limit {
		return fmt.Errorf("%w: route returned %d, minimum %d", protocol.ErrSlippageExceeded, running, s.ins.Limit)
	}
	if s.ins.Mode == protocol.FixedOutput {
		if change := s.ins.InputAmount - spent; change > 0 {
			if _, err := s.ctx.Submit(chain.Transfer(s.self, caller, event.InputAssetID, change)); err != nil {
				return err
			}
		}
		event.OutputAmount = s.ins.Limit
	}

	if _, err := s.ctx.Submit(chain.Transfer(s.self, caller, event.OutputAssetID, event.OutputAmount)); err != nil {
		return err
	}
	s.ctx.Log(event.Encode())
	return nil
}
