package amm_test

import (
	"errors"
	"testing"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/amm"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/chain"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/zeebo/assert"
)

const (
	ammAppID     = 100
	wrappedAppID = 200
	wrappedAsset = 300
)

func user() protocol.Address {
	var a protocol.Address
	a[0] = 0xaa
	return a
}

func TestQuoteFixedInput(t *testing.T) {
	tests := []struct {
		name             string
		inRes, outRes    uint64
		amountIn, expect uint64
	}{
		{"first hop", 1_000_000, 2_000_000, 1000, 1992},
		{"second hop", 1_000_000, 5_000_000, 1992, 9915},
		{"fee swallows dust", 1_000_000, 1_000_000, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := amm.QuoteFixedInput(tt.inRes, tt.outRes, tt.amountIn, amm.DefaultFeeBps)
			assert.NoError(t, err)
			assert.Equal(t, out, tt.expect)
		})
	}
}

func TestQuoteFixedOutputWalksBack(t *testing.T) {
	in, err := amm.QuoteFixedOutput(1_000_000, 5_000_000, 9915, amm.DefaultFeeBps)
	assert.NoError(t, err)
	assert.Equal(t, in, uint64(1992))

	in, err = amm.QuoteFixedOutput(1_000_000, 2_000_000, 1992, amm.DefaultFeeBps)
	assert.NoError(t, err)
	assert.Equal(t, in, uint64(1000))

	_, err = amm.QuoteFixedOutput(1_000_000, 2_000_000, 2_000_000, amm.DefaultFeeBps)
	assert.True(t, errors.Is(err, protocol.ErrUpstreamRejected))
}

func TestScaleRounding(t *testing.T) {
	floor, err := amm.ScaleFloor(10, 1, 3)
	assert.NoError(t, err)
	assert.Equal(t, floor, uint64(3))

	ceil, err := amm.ScaleCeil(10, 1, 3)
	assert.NoError(t, err)
	assert.Equal(t, ceil, uint64(4))

	_, err = amm.ScaleFloor(1, 1, 0)
	assert.Error(t, err)
}

func TestPoolAddressIsOrderIndependent(t *testing.T) {
	assert.Equal(t, amm.PoolAddress(ammAppID, 10, 7), amm.PoolAddress(ammAppID, 7, 10))
	assert.True(t, amm.PoolAddress(ammAppID, 10, 7) != amm.PoolAddress(ammAppID+1, 10, 7))
}

func setup(t *testing.T) (*chain.Ledger, amm.Pool) {
	t.Helper()
	l := chain.NewLedger(chain.DefaultParams())
	assert.NoError(t, l.Install(ammAppID, amm.NewApp(ammAppID)))
	assert.NoError(t, l.CreateAsset(10))
	assert.NoError(t, l.CreateAsset(7))
	pool, err := amm.CreatePool(l, ammAppID, amm.PoolSpec{AssetA: 10, AssetB: 7, ReserveA: 1_000_000, ReserveB: 2_000_000})
	assert.NoError(t, err)
	assert.NoError(t, l.Fund(user(), protocol.NativeAsset, 10_000_000))
	assert.NoError(t, l.Fund(user(), 10, 50_000))
	assert.NoError(t, l.OptIn(user(), 7))
	return l, pool
}

func swapGroup(pool protocol.Address, amount uint64, mode protocol.Mode, limit uint64, fee uint64) []chain.Txn {
	return []chain.Txn{
		chain.Transfer(user(), pool, 10, amount),
		{
			Type:     chain.AppCall,
			Sender:   user(),
			AppID:    ammAppID,
			Args:     amm.SwapArgs(mode, limit),
			Accounts: []protocol.Address{pool},
			Assets:   []uint64{10, 7},
			Fee:      fee,
		},
	}
}

func TestAppSwapFixedInput(t *testing.T) {
	l, pool := setup(t)
	receipt, err := l.Execute(swapGroup(pool.Address, 1000, protocol.FixedInput, 1, 3000))
	assert.NoError(t, err)
	assert.Equal(t, receipt.InnerCount(), 1)
	assert.Equal(t, l.Balance(user(), 7), uint64(1992))

	assert.NoError(t, l.Read(func(v chain.View) error {
		p, err := amm.LoadPool(v, ammAppID, pool.Address)
		assert.NoError(t, err)
		assert.Equal(t, p.Asset1Reserves, uint64(1_001_000))
		assert.Equal(t, p.Asset2Reserves, uint64(2_000_000-1992))
		return nil
	}))
}

func TestAppSwapSlippage(t *testing.T) {
	l, pool := setup(t)
	_, err := l.Execute(swapGroup(pool.Address, 1000, protocol.FixedInput, 1993, 3000))
	assert.True(t, errors.Is(err, protocol.ErrSlippageExceeded))
	assert.Equal(t, l.Balance(user(), 10), uint64(50_000))
}

func TestAppSwapFixedOutputReturnsChange(t *testing.T) {
	l, pool := setup(t)
	receipt, err := l.Execute(swapGroup(pool.Address, 1020, protocol.FixedOutput, 1992, 4000))
	assert.NoError(t, err)
	assert.Equal(t, receipt.InnerCount(), 2)
	assert.Equal(t, l.Balance(user(), 7), uint64(1992))
	assert.Equal(t, l.Balance(user(), 10), uint64(50_000-1000))
}

func TestAppQuote(t *testing.T) {
	l, pool := setup(t)
	res, err := l.Query(ammAppID, amm.QuoteArgs(protocol.FixedOutput, 1992, pool.Address, 10, 7)...)
	assert.NoError(t, err)
	need, err := protocol.DecodeUint64(res)
	assert.NoError(t, err)
	assert.Equal(t, need, uint64(1000))

	_, err = l.Query(ammAppID, amm.QuoteArgs(protocol.FixedInput, 1, pool.Address, 10, 5)...)
	assert.True(t, errors.Is(err, protocol.ErrInvalidRoute))
}

func TestWrappedApp(t *testing.T) {
	l := chain.NewLedger(chain.DefaultParams())
	assert.NoError(t, l.Install(wrappedAppID, amm.NewWrappedApp(wrappedAppID)))
	assert.NoError(t, l.CreateAsset(wrappedAsset))
	cfg, err := amm.CreateWrapped(l, wrappedAppID, amm.WrappedSpec{AssetID: wrappedAsset, WrappedReserve: 1_000_000})
	assert.NoError(t, err)
	assert.NoError(t, l.Fund(user(), protocol.NativeAsset, 10_000_000))
	assert.NoError(t, l.OptIn(user(), wrappedAsset))

	call := chain.Txn{
		Type:   chain.AppCall,
		Sender: user(),
		AppID:  wrappedAppID,
		Args:   [][]byte{[]byte(amm.MethodWrap)},
		Assets: []uint64{wrappedAsset},
		Fee:    2000,
	}
	group := []chain.Txn{chain.Transfer(user(), cfg.Address, protocol.NativeAsset, 5000), call}

	// the reference accounts are missing
	_, err = l.Execute(group)
	assert.True(t, errors.Is(err, protocol.ErrReferenceUnavailable))

	group[1].Accounts = cfg.References[:]
	_, err = l.Execute(group)
	assert.NoError(t, err)
	assert.Equal(t, l.Balance(user(), wrappedAsset), uint64(5000))

	res, err := l.Query(wrappedAppID, amm.WrappedQuoteArgs(protocol.FixedOutput, 5000, wrappedAsset, protocol.NativeAsset)...)
	assert.NoError(t, err)
	need, err := protocol.DecodeUint64(res)
	assert.NoError(t, err)
	assert.Equal(t, need, uint64(5000))
}
