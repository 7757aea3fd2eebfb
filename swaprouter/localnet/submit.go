package localnet

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/amm"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/chain"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
)

// Transfer is one value movement of an executed group.
type Transfer struct {
	Sender   protocol.Address `json:"sender"`
	Receiver protocol.Address `json:"receiver"`
	AssetID  uint64           `json:"asset_id"`
	Amount   uint64           `json:"amount"`
	Inner    bool             `json:"inner"`
}

// Receipt summarizes an executed group.
type Receipt struct {
	GroupID   string                    `json:"group_id"`
	Round     uint64                    `json:"round"`
	Committed bool                      `json:"committed"`
	InnerTxns int                       `json:"inner_txns"`
	Event     *protocol.SettlementEvent `json:"event,omitempty"`
	Transfers []Transfer                `json:"transfers"`
}

// Txns converts compiled operations into ledger txns.
func Txns(ops []router.Operation) []chain.Txn {
	txns := make([]chain.Txn, len(ops))
	for i, op := range ops {
		if op.Kind == router.OpTransfer {
			txn := chain.Transfer(op.Sender, op.Receiver, op.AssetID, op.Amount)
			txn.Fee = op.Fee
			txns[i] = txn
			continue
		}
		txns[i] = chain.Txn{
			Type:     chain.AppCall,
			Sender:   op.Sender,
			Fee:      op.Fee,
			AppID:    op.AppID,
			Args:     op.Args,
			Accounts: op.Accounts,
			Assets:   op.Assets,
			Apps:     op.Apps,
		}
	}
	return txns
}

// Submit executes ops as one atomic group and commits it.
func (n *Network) Submit(ctx context.Context, ops []router.Operation) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := n.ledger.Execute(Txns(ops))
	if err != nil {
		log.Debug().Err(err).Int("txns", len(ops)).Msg("group rejected")
		return nil, err
	}
	receipt, err := newReceipt(res, true)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("group", receipt.GroupID).Uint64("round", receipt.Round).Int("inner", receipt.InnerTxns).Msg("group committed")
	return receipt, nil
}

// Simulate executes ops against a copy of the ledger without committing.
func (n *Network) Simulate(ctx context.Context, ops []router.Operation) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := n.ledger.Simulate(Txns(ops))
	if err != nil {
		return nil, err
	}
	return newReceipt(res, false)
}

func newReceipt(res *chain.Receipt, committed bool) (*Receipt, error) {
	r := &Receipt{
		GroupID:   hex.EncodeToString(res.GroupID[:]),
		Round:     res.Round,
		Committed: committed,
		InnerTxns: res.InnerCount(),
	}
	for _, outer := range res.Txns {
		var err error
		outer.Walk(func(tr *chain.TxnResult) {
			if tr.Txn.IsTransfer() && !(tr.Txn.Amount == 0 && tr.Txn.Sender == tr.Txn.Receiver) {
				r.Transfers = append(r.Transfers, Transfer{
					Sender:   tr.Txn.Sender,
					Receiver: tr.Txn.Receiver,
					AssetID:  tr.Txn.Asset(),
					Amount:   tr.Txn.Amount,
					Inner:    tr != outer,
				})
			}
			for _, entry := range tr.Logs {
				if !protocol.IsSettlementLog(entry) || err != nil {
					continue
				}
				ev, derr := protocol.DecodeSettlementEvent(entry)
				if derr != nil {
					err = derr
					continue
				}
				r.Event = &ev
			}
		})
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// PoolAddress returns the AMM pool account for an asset pair.
func (n *Network) PoolAddress(assetA, assetB uint64) protocol.Address {
	return amm.PoolAddress(n.deployment.AMMAppID, assetA, assetB)
}

// QuoteHop prices one hop through the collaborator's read-only quote.
func (n *Network) QuoteHop(ctx context.Context, hop protocol.Hop, mode protocol.Mode, amount uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var res []byte
	var err error
	if hop.Kind == protocol.WrapHop {
		if n.deployment.WrappedAppID == 0 {
			return 0, fmt.Errorf("%w: no wrapped app deployed", protocol.ErrCapabilityUnavailable)
		}
		res, err = n.ledger.Query(n.deployment.WrappedAppID, amm.WrappedQuoteArgs(mode, amount, hop.AssetIn, hop.AssetOut)...)
	} else {
		res, err = n.ledger.Query(n.deployment.AMMAppID, amm.QuoteArgs(mode, amount, hop.Pool, hop.AssetIn, hop.AssetOut)...)
	}
	if err != nil {
		return 0, err
	}
	return protocol.DecodeUint64(res)
}

var _ router.Quoter = (*Network)(nil)
