package router

import (
	"slices"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
)

// One-call groups for the router's governance methods. Each pays its own fee plus
// one unit per inner txn it may issue.

func (c *Compiler) governanceCall(sender protocol.Address, inner uint64, args [][]byte) Operation {
	return Operation{
		Kind:   OpCall,
		Role:   RoleGovernance,
		Sender: sender,
		Fee:    (1 + inner) * c.deployment.MinFee,
		AppID:  c.deployment.RouterAppID,
		Args:   args,
	}
}

// ProposeManager starts the manager hand-off to next.
func (c *Compiler) ProposeManager(manager, next protocol.Address) []Operation {
	return []Operation{c.governanceCall(manager, 0, [][]byte{[]byte(protocol.MethodProposeManager), slices.Clone(next[:])})}
}

// AcceptManager completes the hand-off, sent by the proposed manager.
func (c *Compiler) AcceptManager(pending protocol.Address) []Operation {
	return []Operation{c.governanceCall(pending, 0, [][]byte{[]byte(protocol.MethodAcceptManager)})}
}

// SetExtraCollector changes where claimed residuals go.
func (c *Compiler) SetExtraCollector(manager, collector protocol.Address) []Operation {
	return []Operation{c.governanceCall(manager, 0, [][]byte{[]byte(protocol.MethodSetExtraCollector), slices.Clone(collector[:])})}
}

// ClaimExtra sends the router's residual balance of asset to collector. Anyone
// may send it.
func (c *Compiler) ClaimExtra(sender, collector protocol.Address, asset uint64) []Operation {
	op := c.governanceCall(sender, 1, [][]byte{[]byte(protocol.MethodClaimExtra), protocol.EncodeUint64(asset)})
	op.Accounts = []protocol.Address{collector}
	op.Assets = []uint64{asset}
	return []Operation{op}
}

// OptIn opts the router into assets without swapping, one call per eight assets.
func (c *Compiler) OptIn(sender protocol.Address, assets []uint64) ([]Operation, error) {
	var ops []Operation
	for chunk := range slices.Chunk(missingOptIns(assets), protocol.ArrayWidth) {
		args, err := protocol.OptInArgs(chunk)
		if err != nil {
			return nil, err
		}
		op := c.governanceCall(sender, uint64(len(chunk)), args)
		op.Role = RoleOptIn
		op.Assets = slices.Clone(chunk)
		ops = append(ops, op)
	}
	return ops, nil
}
