package config

import "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"

// RPCConfig configures the swap router service.
type RPCConfig struct {
	// rpc configs
	Port int    `toml:"port" mapstructure:"port"`
	Host string `toml:"host" mapstructure:"host"`

	// CORS configs
	AllowedOrigins []string `toml:"allowed_origins" mapstructure:"allowed_origins"`

	// rate limiting configs
	RatePerMinute         int `toml:"rate_per_minute" mapstructure:"rate_per_minute"`
	MaxConcurrentRequests int `toml:"max_concurrent_requests" mapstructure:"max_concurrent_requests"`
	RequestTimeoutSeconds int `toml:"request_timeout_seconds" mapstructure:"request_timeout_seconds"`

	// OpenTelemetry configs
	ServiceName    string `toml:"service_name" mapstructure:"service_name"`
	ServiceVersion string `toml:"service_version" mapstructure:"service_version"`
	Environment    string `toml:"environment" mapstructure:"environment"` // PROD, DEV, TEST, LOCAL
	EnableTracing  bool   `toml:"enable_tracing" mapstructure:"enable_tracing"`
	UseOTLPTraces  bool   `toml:"use_otlp_traces" mapstructure:"use_otlp_traces"`
	OTLPTracesURL  string `toml:"otlp_traces_url" mapstructure:"otlp_traces_url"`
	EnableMetrics  bool   `toml:"enable_metrics" mapstructure:"enable_metrics"`
	UsePrometheus  bool   `toml:"use_prometheus" mapstructure:"use_prometheus"`
	UseOTLPMetrics bool   `toml:"use_otlp_metrics" mapstructure:"use_otlp_metrics"`
	OTLPMetricsURL string `toml:"otlp_metrics_url" mapstructure:"otlp_metrics_url"`
	EnableLogs     bool   `toml:"enable_logs" mapstructure:"enable_logs"`
	UseOTLPLogs    bool   `toml:"use_otlp_logs" mapstructure:"use_otlp_logs"`
	OTLPLogsURL    string `toml:"otlp_logs_url" mapstructure:"otlp_logs_url"`

	InsecureOTLP bool `toml:"insecure_otlp" mapstructure:"insecure_otlp"`

	// Development mode uses stdout exporters
	DevelopmentMode bool `toml:"development_mode" mapstructure:"development_mode"`

	// NetworkConfig is a path or a go-getter URL of the network description.
	NetworkConfig string `toml:"network_config" mapstructure:"network_config"`
	// DatabaseURL selects the postgres settlement store; empty keeps settlements in memory.
	DatabaseURL string `toml:"database_url" mapstructure:"database_url"`
}

// NetworkConfig describes the local network the service executes against: its
// consensus parameters, the collaborator apps, assets, pools and funded accounts.
type NetworkConfig struct {
	Name        string              `toml:"name"`
	Params      ParamsConfig        `toml:"params"`
	Router      RouterAppConfig     `toml:"router"`
	AMM         AMMAppConfig        `toml:"amm"`
	Wrapped     *WrappedAppConfig   `toml:"wrapped"`
	FeeSchedule *router.FeeSchedule `toml:"fee_schedule"`
	Assets      []AssetConfig       `toml:"assets"`
	Pools       []PoolConfig        `toml:"pools"`
	Accounts    []AccountConfig     `toml:"accounts"`
}

// ParamsConfig overrides the default consensus limits; zero keeps the default.
type ParamsConfig struct {
	MinFee       uint64 `toml:"min_fee"`
	MinBalance   uint64 `toml:"min_balance"`
	MaxGroupSize int    `toml:"max_group_size"`
}

type RouterAppConfig struct {
	AppID uint64 `toml:"app_id"`
	// Manager names the account that creates the router.
	Manager string `toml:"manager"`
	// Funding is the native amount the router account starts with on top of
	// its minimum balance.
	Funding uint64   `toml:"funding"`
	OptIn   []uint64 `toml:"opt_in"`
}

type AMMAppConfig struct {
	AppID uint64 `toml:"app_id"`
	// Quotes advertises the read-only quote capability fixed-output swaps need.
	Quotes bool `toml:"quotes"`
}

type WrappedAppConfig struct {
	AppID           uint64 `toml:"app_id"`
	AssetID         uint64 `toml:"asset_id"`
	RateNumerator   uint64 `toml:"rate_numerator"`
	RateDenominator uint64 `toml:"rate_denominator"`
	NativeReserve   uint64 `toml:"native_reserve"`
	WrappedReserve  uint64 `toml:"wrapped_reserve"`
}

type AssetConfig struct {
	ID       uint64 `toml:"id"`
	Name     string `toml:"name"`
	Decimals int32  `toml:"decimals"`
}

type PoolConfig struct {
	AssetA   uint64 `toml:"asset_a"`
	AssetB   uint64 `toml:"asset_b"`
	ReserveA uint64 `toml:"reserve_a"`
	ReserveB uint64 `toml:"reserve_b"`
	FeeBps   uint64 `toml:"fee_bps"`
}

// AccountConfig funds a named account. Its address is derived from the name.
type AccountConfig struct {
	Name     string          `toml:"name"`
	Balances []BalanceConfig `toml:"balances"`
}

type BalanceConfig struct {
	Asset  uint64 `toml:"asset"`
	Amount uint64 `toml:"amount"`
}
