package localnet

import (
	"context"
	"fmt"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/amm"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/chain"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/shopspring/decimal"
)

// SpotPrice is the marginal output per unit of input along hops, before fees:
// the product of the reserve ratios and wrap rates.
func (n *Network) SpotPrice(ctx context.Context, hops []protocol.Hop) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	price := decimal.NewFromInt(1)
	err := n.ledger.Read(func(v chain.View) error {
		for i, hop := range hops {
			num, den, err := n.hopRatio(v, hop)
			if err != nil {
				return fmt.Errorf("failed to price hop %d: %w", i, err)
			}
			if den == 0 {
				price = decimal.Zero
				return nil
			}
			price = price.Mul(decimal.NewFromUint64(num)).Div(decimal.NewFromUint64(den))
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return price, nil
}

func (n *Network) hopRatio(v chain.View, hop protocol.Hop) (num, den uint64, err error) {
	if hop.Kind == protocol.WrapHop {
		w, err := amm.LoadWrapped(v, n.deployment.WrappedAppID)
		if err != nil {
			return 0, 0, err
		}
		if hop.AssetIn == protocol.NativeAsset {
			return w.RateNumerator, w.RateDenominator, nil
		}
		return w.RateDenominator, w.RateNumerator, nil
	}
	p, err := amm.LoadPool(v, n.deployment.AMMAppID, hop.Pool)
	if err != nil {
		return 0, 0, err
	}
	in, out, err := p.Reserves(hop.AssetIn, hop.AssetOut)
	if err != nil {
		return 0, 0, err
	}
	return out, in, nil
}
