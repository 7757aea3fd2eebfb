// Package localnet boots an in-process ledger from a network description: the
// router, the AMM and wrapped-asset applications, their pools and funded
// accounts. The service compiles against its deployment and submits to it.
package localnet

import (
	"fmt"
	"os"
	"time"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/amm"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/chain"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/config"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/engine"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "localnet").Logger()
}

// SetLogger allows the caller to set the logger
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "localnet").Logger()
}

// NamedAddress derives the address of a configured account from its name.
func NamedAddress(name string) protocol.Address {
	return protocol.Address(blake3.Sum256(append([]byte("account"), name...)))
}

// Network is a running local ledger with one router deployment.
type Network struct {
	cfg        *config.NetworkConfig
	ledger     *chain.Ledger
	deployment router.Deployment
	accounts   map[string]protocol.Address
}

// New installs every application of cfg, creates its assets and pools, funds
// the accounts and creates the router from the manager account.
func New(cfg *config.NetworkConfig) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid network config: %w", err)
	}
	params := chain.DefaultParams()
	if cfg.Params.MinFee != 0 {
		params.MinFee = cfg.Params.MinFee
	}
	if cfg.Params.MinBalance != 0 {
		params.MinBalance = cfg.Params.MinBalance
	}
	if cfg.Params.MaxGroupSize != 0 {
		params.MaxGroupSize = cfg.Params.MaxGroupSize
	}

	n := &Network{
		cfg:      cfg,
		ledger:   chain.NewLedger(params),
		accounts: make(map[string]protocol.Address, len(cfg.Accounts)),
	}
	fees := router.DefaultFeeSchedule()
	if cfg.FeeSchedule != nil {
		fees = *cfg.FeeSchedule
	}
	n.deployment = router.Deployment{
		RouterAppID: cfg.Router.AppID,
		AMMAppID:    cfg.AMM.AppID,
		MinFee:      params.MinFee,
		Fees:        fees,
		FixedOutput: cfg.AMM.Quotes,
	}

	if err := n.installApps(); err != nil {
		return nil, err
	}
	for _, a := range cfg.Assets {
		if err := n.ledger.CreateAsset(a.ID); err != nil {
			return nil, fmt.Errorf("failed to create asset %d: %w", a.ID, err)
		}
	}
	for _, p := range cfg.Pools {
		pool, err := amm.CreatePool(n.ledger, cfg.AMM.AppID, amm.PoolSpec{
			AssetA:   p.AssetA,
			AssetB:   p.AssetB,
			ReserveA: p.ReserveA,
			ReserveB: p.ReserveB,
			FeeBps:   p.FeeBps,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create pool %d/%d: %w", p.AssetA, p.AssetB, err)
		}
		log.Debug().Str("pool", pool.Address.String()).Uint64("asset_1", pool.Asset1ID).Uint64("asset_2", pool.Asset2ID).Msg("pool created")
	}
	if w := cfg.Wrapped; w != nil {
		wrapped, err := amm.CreateWrapped(n.ledger, w.AppID, amm.WrappedSpec{
			AssetID:         w.AssetID,
			RateNumerator:   w.RateNumerator,
			RateDenominator: w.RateDenominator,
			NativeReserve:   w.NativeReserve,
			WrappedReserve:  w.WrappedReserve,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create wrapped app: %w", err)
		}
		n.deployment.WrappedAppID = wrapped.AppID
		n.deployment.WrappedAssetID = wrapped.AssetID
		n.deployment.WrappedReferences = wrapped.References[:]
	}
	for _, a := range cfg.Accounts {
		addr := NamedAddress(a.Name)
		n.accounts[a.Name] = addr
		for _, b := range a.Balances {
			if err := n.ledger.Fund(addr, b.Asset, b.Amount); err != nil {
				return nil, fmt.Errorf("failed to fund account %s: %w", a.Name, err)
			}
		}
	}
	if err := n.createRouter(); err != nil {
		return nil, err
	}

	log.Info().
		Str("network", cfg.Name).
		Uint64("router", cfg.Router.AppID).
		Str("router_address", n.deployment.RouterAddress().String()).
		Int("pools", len(cfg.Pools)).
		Int("accounts", len(cfg.Accounts)).
		Msg("local network ready")
	return n, nil
}

func (n *Network) installApps() error {
	apps := map[uint64]chain.Application{
		n.cfg.Router.AppID: engine.New(),
		n.cfg.AMM.AppID:    amm.NewApp(n.cfg.AMM.AppID),
	}
	if w := n.cfg.Wrapped; w != nil {
		apps[w.AppID] = amm.NewWrappedApp(w.AppID)
	}
	for id, app := range apps {
		if err := n.ledger.Install(id, app); err != nil {
			return fmt.Errorf("failed to install app %d: %w", id, err)
		}
	}
	return nil
}

// createRouter funds the router account, runs the create call from the manager
// and opts the router into the configured assets.
func (n *Network) createRouter() error {
	d := n.deployment
	manager := n.accounts[n.cfg.Router.Manager]
	floor := n.ledger.Params().MinBalance
	if err := n.ledger.Fund(d.RouterAddress(), protocol.NativeAsset, floor+n.cfg.Router.Funding); err != nil {
		return fmt.Errorf("failed to fund router: %w", err)
	}

	create := chain.Txn{
		Type:   chain.AppCall,
		Sender: manager,
		Fee:    d.MinFee,
		AppID:  d.RouterAppID,
		Args:   engine.CreateArgs(d.AMMAppID, d.WrappedAppID, d.WrappedAssetID),
	}
	if _, err := n.ledger.Execute([]chain.Txn{create}); err != nil {
		return fmt.Errorf("failed to create router: %w", err)
	}

	if len(n.cfg.Router.OptIn) == 0 {
		return nil
	}
	compiler, err := router.NewCompiler(d)
	if err != nil {
		return err
	}
	ops, err := compiler.OptIn(manager, n.cfg.Router.OptIn)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}
	if _, err := n.ledger.Execute(Txns(ops)); err != nil {
		return fmt.Errorf("failed to opt router in: %w", err)
	}
	return nil
}

func (n *Network) Ledger() *chain.Ledger {
	return n.ledger
}

func (n *Network) Config() *config.NetworkConfig {
	return n.cfg
}

// Deployment is what the compiler needs to target this network.
func (n *Network) Deployment() router.Deployment {
	return n.deployment
}

// Account resolves a configured account name.
func (n *Network) Account(name string) (protocol.Address, bool) {
	addr, ok := n.accounts[name]
	return addr, ok
}

// RouterConfig reads the router's persisted configuration.
func (n *Network) RouterConfig() (protocol.RouterConfig, error) {
	var cfg protocol.RouterConfig
	err := n.ledger.Read(func(v chain.View) error {
		var err error
		cfg, err = engine.LoadConfig(v, n.deployment.RouterAppID)
		return err
	})
	return cfg, err
}

// MissingOptIns lists the route assets the router does not hold yet.
func (n *Network) MissingOptIns(route protocol.Route) []uint64 {
	addr := n.deployment.RouterAddress()
	var missing []uint64
	_ = n.ledger.Read(func(v chain.View) error {
		for _, asset := range route {
			if asset == protocol.NativeAsset || v.OptedIn(addr, asset) {
				continue
			}
			missing = append(missing, asset)
		}
		return nil
	})
	return missing
}

// Balance reads a committed balance.
func (n *Network) Balance(addr protocol.Address, asset uint64) uint64 {
	return n.ledger.Balance(addr, asset)
}

// RouterAssets lists the configured assets the router is opted into.
func (n *Network) RouterAssets() []uint64 {
	addr := n.deployment.RouterAddress()
	var held []uint64
	_ = n.ledger.Read(func(v chain.View) error {
		for _, asset := range n.cfg.Assets {
			if v.OptedIn(addr, asset.ID) {
				held = append(held, asset.ID)
			}
		}
		return nil
	})
	return held
}
