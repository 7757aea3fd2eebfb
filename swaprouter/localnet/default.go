package localnet

import (
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/config"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
)

// Asset ids of the default network.
const (
	AssetUSDC    uint64 = 10
	AssetGold    uint64 = 7
	AssetSilver  uint64 = 5
	AssetWrapped uint64 = 300
)

// DefaultConfig is the development network: a router on app 500, an AMM on app
// 100 with pools USDC/GOLD (1:2) and GOLD/SILVER (1:5), a wrapped-native app on
// app 200 and two accounts, "deployer" managing the router and "alice" trading.
func DefaultConfig() *config.NetworkConfig {
	sched := router.DefaultFeeSchedule()
	return &config.NetworkConfig{
		Name:   "localnet",
		Params: config.ParamsConfig{MinFee: 1000, MinBalance: 100_000},
		Router: config.RouterAppConfig{
			AppID:   500,
			Manager: "deployer",
			Funding: 1_000_000,
			OptIn:   []uint64{AssetUSDC, AssetGold, AssetSilver, AssetWrapped},
		},
		AMM: config.AMMAppConfig{AppID: 100, Quotes: true},
		Wrapped: &config.WrappedAppConfig{
			AppID:          200,
			AssetID:        AssetWrapped,
			NativeReserve:  50_000_000,
			WrappedReserve: 50_000_000,
		},
		FeeSchedule: &sched,
		Assets: []config.AssetConfig{
			{ID: AssetUSDC, Name: "USDC", Decimals: 6},
			{ID: AssetGold, Name: "GOLD", Decimals: 6},
			{ID: AssetSilver, Name: "SILVER", Decimals: 6},
			{ID: AssetWrapped, Name: "WNATIVE", Decimals: 6},
		},
		Pools: []config.PoolConfig{
			{AssetA: AssetUSDC, AssetB: AssetGold, ReserveA: 1_000_000, ReserveB: 2_000_000},
			{AssetA: AssetGold, AssetB: AssetSilver, ReserveA: 1_000_000, ReserveB: 5_000_000},
			{AssetA: AssetWrapped, AssetB: AssetUSDC, ReserveA: 10_000_000, ReserveB: 10_000_000, FeeBps: 30},
		},
		Accounts: []config.AccountConfig{
			{Name: "deployer", Balances: []config.BalanceConfig{{Asset: 0, Amount: 100_000_000}}},
			{Name: "alice", Balances: []config.BalanceConfig{
				{Asset: 0, Amount: 10_000_000},
				{Asset: AssetUSDC, Amount: 100_000},
				{Asset: AssetGold, Amount: 0},
				{Asset: AssetSilver, Amount: 0},
				{Asset: AssetWrapped, Amount: 0},
			}},
		},
	}
}
