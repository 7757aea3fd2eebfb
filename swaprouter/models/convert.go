package models

import (
	"encoding/base64"
	"strconv"
	"time"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/localnet"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/storage"
	"github.com/shopspring/decimal"
)

// NativeDecimals is the number of decimals of the native asset.
const NativeDecimals = 6

func amount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func addressOrEmpty(a protocol.Address) string {
	if a.IsZero() {
		return ""
	}
	return a.String()
}

func addresses(in []protocol.Address) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, a := range in {
		out[i] = a.String()
	}
	return out
}

// FromOperations converts compiled operations for the API.
func FromOperations(ops []router.Operation) []Operation {
	out := make([]Operation, len(ops))
	for i, op := range ops {
		o := Operation{
			Kind:     op.Kind.String(),
			Role:     op.Role.String(),
			Sender:   op.Sender.String(),
			Fee:      amount(op.Fee),
			AppID:    op.AppID,
			Accounts: addresses(op.Accounts),
			Assets:   op.Assets,
			Apps:     op.Apps,
		}
		if op.Kind == router.OpTransfer {
			o.Receiver = op.Receiver.String()
			o.AssetID = op.AssetID
			o.Amount = amount(op.Amount)
		}
		for _, arg := range op.Args {
			o.Args = append(o.Args, base64.StdEncoding.EncodeToString(arg))
		}
		out[i] = o
	}
	return out
}

func FromHops(hops []protocol.Hop) []Hop {
	out := make([]Hop, len(hops))
	for i, h := range hops {
		out[i] = Hop{Kind: h.Kind.String(), Pool: h.Pool.String(), AssetIn: h.AssetIn, AssetOut: h.AssetOut}
	}
	return out
}

func FromFeeBudget(b router.FeeBudget) FeeBudget {
	return FeeBudget{
		MinFee:     amount(b.MinFee),
		Base:       b.Base,
		Additional: b.Additional,
		Total:      amount(b.Total()),
		Display:    b.Display(NativeDecimals).String(),
	}
}

// FromQuote converts a route quote. bound is the slippage-derived limit the
// request was planned with, zero when none.
func FromQuote(q router.Quote, bound uint64, spot decimal.Decimal) *Quote {
	out := &Quote{
		Mode:        q.Mode.String(),
		AmountIn:    amount(q.AmountIn),
		AmountOut:   amount(q.AmountOut),
		SpotPrice:   spot.String(),
		PriceImpact: router.PriceImpact(spot, q.AmountIn, q.AmountOut).StringFixed(6),
	}
	for _, a := range q.Amounts {
		out.Amounts = append(out.Amounts, amount(a))
	}
	if bound != 0 {
		if q.Mode == protocol.FixedOutput {
			out.MaximumInput = amount(bound)
		} else {
			out.MinimumOutput = amount(bound)
		}
	}
	return out
}

// FromCompiledGroup builds the compile response.
func FromCompiledGroup(g *router.CompiledGroup) *CompileSwapResponse {
	return &CompileSwapResponse{
		Operations: FromOperations(g.Operations),
		Hops:       FromHops(g.Hops),
		Frames:     len(g.Frames),
		Fee:        FromFeeBudget(g.Budget),
	}
}

// FromReceipt builds a successful execution response.
func FromReceipt(r *localnet.Receipt) *ExecutionResponse {
	resp := &ExecutionResponse{
		Success:   true,
		Committed: r.Committed,
		GroupID:   r.GroupID,
		Round:     r.Round,
		InnerTxns: r.InnerTxns,
	}
	if r.Event != nil {
		resp.Settlement = &Settlement{
			GroupID:       r.GroupID,
			Round:         r.Round,
			InputAssetID:  r.Event.InputAssetID,
			OutputAssetID: r.Event.OutputAssetID,
			InputAmount:   amount(r.Event.InputAmount),
			OutputAmount:  amount(r.Event.OutputAmount),
			InnerTxns:     r.InnerTxns,
		}
	}
	for _, t := range r.Transfers {
		resp.Transfers = append(resp.Transfers, Transfer{
			Sender:   t.Sender.String(),
			Receiver: t.Receiver.String(),
			AssetID:  t.AssetID,
			Amount:   amount(t.Amount),
			Inner:    t.Inner,
		})
	}
	return resp
}

func FromSettlement(st *storage.Settlement) Settlement {
	out := Settlement{
		GroupID:       st.GroupID,
		Round:         st.Round,
		Sender:        st.Sender.String(),
		Mode:          st.Mode.String(),
		InputAssetID:  st.InputAssetID,
		OutputAssetID: st.OutputAssetID,
		InputAmount:   amount(st.InputAmount),
		OutputAmount:  amount(st.OutputAmount),
		Hops:          st.Hops,
		InnerTxns:     st.InnerTxns,
	}
	if !st.CreatedAt.IsZero() {
		out.CreatedAt = st.CreatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func FromSettlements(in []*storage.Settlement) []Settlement {
	out := make([]Settlement, 0, len(in))
	for _, st := range in {
		out = append(out, FromSettlement(st))
	}
	return out
}

// FromRouterConfig merges the persisted router state with the deployment.
func FromRouterConfig(cfg protocol.RouterConfig, d router.Deployment, optedIn []uint64) *RouterConfig {
	return &RouterConfig{
		RouterAppID:       d.RouterAppID,
		RouterAddress:     d.RouterAddress().String(),
		AMMAppID:          cfg.AMMAppID,
		WrappedAppID:      cfg.WrappedAppID,
		WrappedAssetID:    cfg.WrappedAssetID,
		WrappedAppAddress: addressOrEmpty(cfg.WrappedAppAddress),
		Manager:           cfg.Manager.String(),
		PendingManager:    addressOrEmpty(cfg.PendingManager),
		ExtraCollector:    cfg.ExtraCollector.String(),
		FixedOutput:       d.FixedOutput,
		InnerCallsPerHop:  d.Fees.InnerCallsPerHop,
		MinFee:            amount(d.MinFee),
		OptedIn:           optedIn,
	}
}
