package localnet_test

import (
	"context"
	"testing"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/localnet"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
	"github.com/zeebo/assert"
)

func newNetwork(t *testing.T) *localnet.Network {
	t.Helper()
	n, err := localnet.New(localnet.DefaultConfig())
	assert.NoError(t, err)
	return n
}

func TestNewCreatesRouter(t *testing.T) {
	n := newNetwork(t)
	deployer, ok := n.Account("deployer")
	assert.True(t, ok)
	assert.Equal(t, deployer, localnet.NamedAddress("deployer"))

	cfg, err := n.RouterConfig()
	assert.NoError(t, err)
	assert.Equal(t, cfg.Manager, deployer)
	assert.Equal(t, cfg.ExtraCollector, deployer)
	assert.False(t, cfg.HasPendingManager())
	assert.Equal(t, cfg.AMMAppID, uint64(100))
	assert.Equal(t, cfg.WrappedAppID, uint64(200))
	assert.Equal(t, cfg.WrappedAppAddress, protocol.AppAddress(200))

	d := n.Deployment()
	assert.NoError(t, d.Validate())
	assert.True(t, d.FixedOutput)
	assert.Equal(t, len(d.WrappedReferences), 4)

	// router holds every configured asset
	assert.Equal(t, len(n.MissingOptIns(protocol.Route{0, 10, 7, 5, 300})), 0)
}

func TestMissingOptIns(t *testing.T) {
	cfg := localnet.DefaultConfig()
	cfg.Router.OptIn = []uint64{localnet.AssetUSDC}
	n, err := localnet.New(cfg)
	assert.NoError(t, err)
	assert.DeepEqual(t, n.MissingOptIns(protocol.Route{10, 7, 5}), []uint64{7, 5})
}

func TestQuoteHop(t *testing.T) {
	n := newNetwork(t)
	hop := protocol.Hop{Kind: protocol.AmmHop, Pool: n.PoolAddress(10, 7), AssetIn: 10, AssetOut: 7}

	out, err := n.QuoteHop(context.Background(), hop, protocol.FixedInput, 1000)
	assert.NoError(t, err)
	assert.Equal(t, out, uint64(1992))

	in, err := n.QuoteHop(context.Background(), hop, protocol.FixedOutput, 1992)
	assert.NoError(t, err)
	assert.Equal(t, in, uint64(1000))
}

func TestSubmitAndSimulate(t *testing.T) {
	n := newNetwork(t)
	alice, _ := n.Account("alice")
	compiler, err := router.NewCompiler(n.Deployment())
	assert.NoError(t, err)

	group, err := compiler.Compile(protocol.SwapRequest{
		Sender:        alice,
		InputAmount:   1000,
		MinimumOutput: 1,
		Mode:          protocol.FixedInput,
		Route:         protocol.Route{10, 7, 5},
		Pools:         protocol.PoolList{n.PoolAddress(10, 7), n.PoolAddress(7, 5)},
	})
	assert.NoError(t, err)

	sim, err := n.Simulate(context.Background(), group.Operations)
	assert.NoError(t, err)
	assert.False(t, sim.Committed)
	assert.NotNil(t, sim.Event)
	assert.Equal(t, n.Balance(alice, 5), uint64(0))

	receipt, err := n.Submit(context.Background(), group.Operations)
	assert.NoError(t, err)
	assert.True(t, receipt.Committed)
	assert.Equal(t, receipt.Round, sim.Round)
	assert.Equal(t, receipt.GroupID, sim.GroupID)
	assert.Equal(t, *receipt.Event, protocol.SettlementEvent{
		InputAssetID:  10,
		OutputAssetID: 5,
		InputAmount:   1000,
		OutputAmount:  9915,
	})
	assert.Equal(t, receipt.InnerTxns, 7)
	assert.Equal(t, n.Balance(alice, 5), uint64(9915))
	assert.Equal(t, n.Balance(alice, 10), uint64(100_000-1000))
}

func TestSubmitCancelled(t *testing.T) {
	n := newNetwork(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := n.Submit(ctx, nil)
	assert.Error(t, err)
}

func TestSpotPrice(t *testing.T) {
	n := newNetwork(t)
	hops, err := protocol.ResolveHops(protocol.Route{10, 7, 5}, protocol.PoolList{n.PoolAddress(10, 7), n.PoolAddress(7, 5)}, n.Deployment().WrappedAppAddress())
	assert.NoError(t, err)

	price, err := n.SpotPrice(context.Background(), hops)
	assert.NoError(t, err)
	assert.Equal(t, price.String(), "10")

	// wrapping is 1:1
	wrap, err := protocol.ResolveHops(protocol.Route{0, 300}, protocol.PoolList{protocol.AppAddress(200)}, n.Deployment().WrappedAppAddress())
	assert.NoError(t, err)
	price, err = n.SpotPrice(context.Background(), wrap)
	assert.NoError(t, err)
	assert.Equal(t, price.String(), "1")
}
