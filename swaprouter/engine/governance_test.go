package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/chain"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/engine"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/localnet"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
	"github.com/zeebo/assert"
)

func TestManagerHandOff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// only the manager proposes
	_, err := f.net.Submit(ctx, f.compiler.ProposeManager(f.alice, f.alice))
	assert.True(t, errors.Is(err, protocol.ErrUnauthorized))

	// nothing pending yet
	_, err = f.net.Submit(ctx, f.compiler.AcceptManager(f.alice))
	assert.True(t, errors.Is(err, protocol.ErrUnauthorized))

	_, err = f.net.Submit(ctx, f.compiler.ProposeManager(f.deployer, f.alice))
	assert.NoError(t, err)
	cfg, err := f.net.RouterConfig()
	assert.NoError(t, err)
	assert.Equal(t, cfg.Manager, f.deployer)
	assert.Equal(t, cfg.PendingManager, f.alice)

	// proposing the same address again is a no-op
	_, err = f.net.Submit(ctx, f.compiler.ProposeManager(f.deployer, f.alice))
	assert.NoError(t, err)

	// the manager cannot accept on the pending manager's behalf
	_, err = f.net.Submit(ctx, f.compiler.AcceptManager(f.deployer))
	assert.True(t, errors.Is(err, protocol.ErrUnauthorized))

	_, err = f.net.Submit(ctx, f.compiler.AcceptManager(f.alice))
	assert.NoError(t, err)
	cfg, err = f.net.RouterConfig()
	assert.NoError(t, err)
	assert.Equal(t, cfg.Manager, f.alice)
	assert.False(t, cfg.HasPendingManager())

	// the old manager lost its rights
	_, err = f.net.Submit(ctx, f.compiler.SetExtraCollector(f.deployer, f.deployer))
	assert.True(t, errors.Is(err, protocol.ErrUnauthorized))
}

func TestProposeZeroManager(t *testing.T) {
	f := newFixture(t)
	_, err := f.net.Submit(context.Background(), f.compiler.ProposeManager(f.deployer, protocol.ZeroAddress))
	assert.True(t, errors.Is(err, protocol.ErrInvalidConfig))
}

func TestClaimExtra(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	collector := localnet.NamedAddress("collector")
	assert.NoError(t, f.net.Ledger().Fund(collector, protocol.NativeAsset, 1_000_000))
	assert.NoError(t, f.net.Ledger().OptIn(collector, 10))

	_, err := f.net.Submit(ctx, f.compiler.SetExtraCollector(f.deployer, collector))
	assert.NoError(t, err)
	cfg, err := f.net.RouterConfig()
	assert.NoError(t, err)
	assert.Equal(t, cfg.ExtraCollector, collector)

	// residual left in the router by a plain transfer
	routerAddr := f.net.Deployment().RouterAddress()
	_, err = f.net.Ledger().Execute([]chain.Txn{func() chain.Txn {
		txn := chain.Transfer(f.alice, routerAddr, 10, 250)
		txn.Fee = 1000
		return txn
	}()})
	assert.NoError(t, err)

	// anyone may trigger the claim, funds go to the collector
	_, err = f.net.Submit(ctx, f.compiler.ClaimExtra(f.alice, collector, 10))
	assert.NoError(t, err)
	assert.Equal(t, f.net.Balance(collector, 10), uint64(250))
	assert.Equal(t, f.net.Balance(routerAddr, 10), uint64(0))

	// nothing left, nothing moves
	_, err = f.net.Submit(ctx, f.compiler.ClaimExtra(f.alice, collector, 10))
	assert.NoError(t, err)
	assert.Equal(t, f.net.Balance(collector, 10), uint64(250))
}

func TestClaimExtraNativeKeepsMinBalance(t *testing.T) {
	f := newFixture(t)
	routerAddr := f.net.Deployment().RouterAddress()
	before := f.net.Balance(f.deployer, protocol.NativeAsset)
	held := f.net.Balance(routerAddr, protocol.NativeAsset)

	ops := f.compiler.ClaimExtra(f.deployer, f.deployer, protocol.NativeAsset)
	_, err := f.net.Submit(context.Background(), ops)
	assert.NoError(t, err)

	var floor uint64
	assert.NoError(t, f.net.Ledger().Read(func(v chain.View) error {
		floor = v.MinBalance(routerAddr)
		return nil
	}))
	assert.Equal(t, f.net.Balance(routerAddr, protocol.NativeAsset), floor)
	assert.Equal(t, f.net.Balance(f.deployer, protocol.NativeAsset), before+(held-floor)-ops[0].Fee)
}

func TestClaimExtraNotOptedInMovesNothing(t *testing.T) {
	cfg := localnet.DefaultConfig()
	cfg.Router.OptIn = nil
	n, err := localnet.New(cfg)
	assert.NoError(t, err)
	c, err := router.NewCompiler(n.Deployment())
	assert.NoError(t, err)

	deployer, _ := n.Account("deployer")
	receipt, err := n.Submit(context.Background(), c.ClaimExtra(deployer, deployer, 10))
	assert.NoError(t, err)
	assert.True(t, receipt.Committed)
	assert.Equal(t, receipt.InnerTxns, 0)
	assert.Equal(t, len(receipt.Transfers), 0)
	assert.Equal(t, len(n.MissingOptIns(protocol.Route{10})), 1)
}

func TestCreateTwice(t *testing.T) {
	f := newFixture(t)
	d := f.net.Deployment()
	_, err := f.net.Ledger().Execute([]chain.Txn{{
		Type:   chain.AppCall,
		Sender: f.deployer,
		Fee:    d.MinFee,
		AppID:  d.RouterAppID,
		Args:   engine.CreateArgs(d.AMMAppID, 0, 0),
	}})
	assert.True(t, errors.Is(err, protocol.ErrAlreadyCreated))
}

func TestCreateValidatesCollaborators(t *testing.T) {
	l := chain.NewLedger(chain.DefaultParams())
	assert.NoError(t, l.Install(9, engine.New()))
	sender := localnet.NamedAddress("creator")
	assert.NoError(t, l.Fund(sender, protocol.NativeAsset, 1_000_000))

	create := func(args [][]byte) error {
		_, err := l.Execute([]chain.Txn{{Type: chain.AppCall, Sender: sender, Fee: 1000, AppID: 9, Args: args}})
		return err
	}
	assert.True(t, errors.Is(create(engine.CreateArgs(0, 0, 0)), protocol.ErrInvalidConfig))
	assert.True(t, errors.Is(create(engine.CreateArgs(100, 200, 0)), protocol.ErrInvalidConfig))
	assert.NoError(t, create(engine.CreateArgs(100, 0, 0)))

	var cfg protocol.RouterConfig
	assert.NoError(t, l.Read(func(v chain.View) error {
		var err error
		cfg, err = engine.LoadConfig(v, 9)
		return err
	}))
	assert.Equal(t, cfg.Manager, sender)
	assert.False(t, cfg.HasWrappedApp())
}
