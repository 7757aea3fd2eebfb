// Package amm provides the collaborators the router swaps through: a
// constant-product AMM application whose pools live in their own accounts, and
// the wrapped-asset application converting the native asset 1:1 (or at a
// configured rate) into its wrapped twin.
package amm

import (
	"encoding/binary"
	"fmt"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/chain"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/zeebo/blake3"
)

// Local state keys of a pool account under the AMM application.
const (
	KeyAsset1ID       = "asset_1_id"
	KeyAsset2ID       = "asset_2_id"
	KeyAsset1Reserves = "asset_1_reserves"
	KeyAsset2Reserves = "asset_2_reserves"
	KeyTotalFeeShare  = "total_fee_share"
)

// PoolAddress derives the account of the pool for an asset pair. The pair is
// ordered so both directions resolve to the same pool.
func PoolAddress(ammAppID, assetA, assetB uint64) protocol.Address {
	asset1, asset2 := orderPair(assetA, assetB)
	buf := []byte("pool")
	buf = binary.BigEndian.AppendUint64(buf, ammAppID)
	buf = binary.BigEndian.AppendUint64(buf, asset1)
	buf = binary.BigEndian.AppendUint64(buf, asset2)
	return protocol.Address(blake3.Sum256(buf))
}

// orderPair puts the larger asset id first, the native asset is always asset 2.
func orderPair(a, b uint64) (uint64, uint64) {
	if a < b {
		return b, a
	}
	return a, b
}

// Pool is the state of one pool as read from its local state.
type Pool struct {
	Address        protocol.Address
	Asset1ID       uint64
	Asset2ID       uint64
	Asset1Reserves uint64
	Asset2Reserves uint64
	FeeBps         uint64
}

// Has reports whether the pool trades asset.
func (p Pool) Has(asset uint64) bool {
	return asset == p.Asset1ID || asset == p.Asset2ID
}

// Reserves returns the reserves facing a swap from assetIn to assetOut.
func (p Pool) Reserves(assetIn, assetOut uint64) (in, out uint64, err error) {
	switch {
	case assetIn == p.Asset1ID && assetOut == p.Asset2ID:
		return p.Asset1Reserves, p.Asset2Reserves, nil
	case assetIn == p.Asset2ID && assetOut == p.Asset1ID:
		return p.Asset2Reserves, p.Asset1Reserves, nil
	}
	return 0, 0, fmt.Errorf("%w: pool %s does not trade %d -> %d", protocol.ErrInvalidRoute, p.Address, assetIn, assetOut)
}

// QuoteFixedInput is the output of swapping amountIn of assetIn.
func (p Pool) QuoteFixedInput(assetIn, assetOut, amountIn uint64) (uint64, error) {
	in, out, err := p.Reserves(assetIn, assetOut)
	if err != nil {
		return 0, err
	}
	return QuoteFixedInput(in, out, amountIn, p.FeeBps)
}

// QuoteFixedOutput is the input needed to receive amountOut of assetOut.
func (p Pool) QuoteFixedOutput(assetIn, assetOut, amountOut uint64) (uint64, error) {
	in, out, err := p.Reserves(assetIn, assetOut)
	if err != nil {
		return 0, err
	}
	return QuoteFixedOutput(in, out, amountOut, p.FeeBps)
}

// apply moves reserves after a swap.
func (p *Pool) apply(assetIn uint64, amountIn, amountOut uint64) {
	if assetIn == p.Asset1ID {
		p.Asset1Reserves += amountIn
		p.Asset2Reserves -= amountOut
		return
	}
	p.Asset2Reserves += amountIn
	p.Asset1Reserves -= amountOut
}

// LoadPool reads a pool from the AMM application's local state.
func LoadPool(view chain.View, ammAppID uint64, addr protocol.Address) (Pool, error) {
	asset1, ok := view.Local(ammAppID, addr, KeyAsset1ID)
	if !ok {
		return Pool{}, fmt.Errorf("%w: %s is not a pool of app %d", protocol.ErrInvalidRoute, addr, ammAppID)
	}
	p := Pool{Address: addr, Asset1ID: asset1.Uint, FeeBps: DefaultFeeBps}
	if v, ok := view.Local(ammAppID, addr, KeyAsset2ID); ok {
		p.Asset2ID = v.Uint
	}
	if v, ok := view.Local(ammAppID, addr, KeyAsset1Reserves); ok {
		p.Asset1Reserves = v.Uint
	}
	if v, ok := view.Local(ammAppID, addr, KeyAsset2Reserves); ok {
		p.Asset2Reserves = v.Uint
	}
	if v, ok := view.Local(ammAppID, addr, KeyTotalFeeShare); ok {
		p.FeeBps = v.Uint
	}
	return p, nil
}

// PoolSpec describes a pool to bootstrap on a ledger.
type PoolSpec struct {
	AssetA   uint64
	AssetB   uint64
	ReserveA uint64
	ReserveB uint64
	FeeBps   uint64
}

// CreatePool funds a pool account with its reserves and minimum balance, hands
// its spending authority to the AMM application and writes its local state.
func CreatePool(l *chain.Ledger, ammAppID uint64, spec PoolSpec) (Pool, error) {
	if spec.AssetA == spec.AssetB {
		return Pool{}, fmt.Errorf("%w: pool needs two distinct assets", protocol.ErrInvalidConfig)
	}
	if spec.FeeBps == 0 {
		spec.FeeBps = DefaultFeeBps
	}
	addr := PoolAddress(ammAppID, spec.AssetA, spec.AssetB)

	p := Pool{Address: addr, FeeBps: spec.FeeBps}
	p.Asset1ID, p.Asset2ID = orderPair(spec.AssetA, spec.AssetB)
	if p.Asset1ID == spec.AssetA {
		p.Asset1Reserves, p.Asset2Reserves = spec.ReserveA, spec.ReserveB
	} else {
		p.Asset1Reserves, p.Asset2Reserves = spec.ReserveB, spec.ReserveA
	}

	params := l.Params()
	floor := params.MinBalance
	for _, asset := range []uint64{p.Asset1ID, p.Asset2ID} {
		if asset == protocol.NativeAsset {
			continue
		}
		if err := l.OptIn(addr, asset); err != nil {
			return Pool{}, fmt.Errorf("failed to opt pool into asset %d: %w", asset, err)
		}
		floor += params.MinBalance
	}
	if err := l.Fund(addr, protocol.NativeAsset, floor); err != nil {
		return Pool{}, err
	}
	if err := l.Fund(addr, p.Asset1ID, p.Asset1Reserves); err != nil {
		return Pool{}, err
	}
	if err := l.Fund(addr, p.Asset2ID, p.Asset2Reserves); err != nil {
		return Pool{}, err
	}
	l.Authorize(addr, ammAppID)
	l.PutLocal(ammAppID, addr, KeyAsset1ID, chain.Uint(p.Asset1ID))
	l.PutLocal(ammAppID, addr, KeyAsset2ID, chain.Uint(p.Asset2ID))
	l.PutLocal(ammAppID, addr, KeyAsset1Reserves, chain.Uint(p.Asset1Reserves))
	l.PutLocal(ammAppID, addr, KeyAsset2Reserves, chain.Uint(p.Asset2Reserves))
	l.PutLocal(ammAppID, addr, KeyTotalFeeShare, chain.Uint(p.FeeBps))
	return p, nil
}
