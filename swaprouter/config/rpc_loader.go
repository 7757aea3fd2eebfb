package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every env var read by LoadRPCConfig.
const EnvPrefix = "SWAPROUTER"

// rpcKeys are the RPCConfig keys. In env mode viper only unmarshals keys it
// has been told about.
var rpcKeys = []string{
	"port", "host", "allowed_origins",
	"rate_per_minute", "max_concurrent_requests", "request_timeout_seconds",
	"service_name", "service_version", "environment",
	"enable_tracing", "use_otlp_traces", "otlp_traces_url",
	"enable_metrics", "use_prometheus", "use_otlp_metrics", "otlp_metrics_url",
	"enable_logs", "use_otlp_logs", "otlp_logs_url",
	"insecure_otlp", "development_mode", "network_config", "database_url",
}

var rpcDefaults = map[string]any{
	"rate_per_minute":         300,
	"max_concurrent_requests": 100,
	"request_timeout_seconds": 30,
	"service_name":            "swaprouter",
	"environment":             "LOCAL",
}

// LoadRPCConfig reads the service config from a toml file, or from
// SWAPROUTER_* env vars (and a .env file, when present) if configPath is nil.
func LoadRPCConfig(configPath *string) (*RPCConfig, error) {
	v := viper.New()
	for k, val := range rpcDefaults {
		v.SetDefault(k, val)
	}

	source := "env"
	if configPath == nil {
		// a missing .env is fine, the vars may come from the process environment
		_ = godotenv.Load()
		v.SetEnvPrefix(EnvPrefix)
		v.AutomaticEnv()
		for _, k := range rpcKeys {
			_ = v.BindEnv(k)
		}
	} else {
		source = *configPath
		if !strings.HasSuffix(source, ".toml") {
			return nil, fmt.Errorf("config file %q must be a toml file", source)
		}
		v.SetConfigFile(source)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg RPCConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config from %s: %w", source, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config from %s: %w", source, err)
	}
	return &cfg, nil
}

// Validate reports every problem of the config at once.
func (c *RPCConfig) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Port > 0 && c.Port <= 65535, "port %d out of range", c.Port)
	check(c.Host != "", "host is required")
	check(len(c.AllowedOrigins) > 0, "allowed_origins is required")
	check(c.NetworkConfig != "", "network_config is required")
	check(c.RatePerMinute > 0, "rate_per_minute must be positive")
	check(c.MaxConcurrentRequests > 0, "max_concurrent_requests must be positive")
	check(c.RequestTimeoutSeconds > 0, "request_timeout_seconds must be positive")

	check(!c.UseOTLPTraces || c.OTLPTracesURL != "", "use_otlp_traces needs otlp_traces_url")
	check(!c.UseOTLPMetrics || c.OTLPMetricsURL != "", "use_otlp_metrics needs otlp_metrics_url")
	check(!c.UseOTLPLogs || c.OTLPLogsURL != "", "use_otlp_logs needs otlp_logs_url")

	if c.DatabaseURL != "" {
		u, err := url.Parse(c.DatabaseURL)
		check(err == nil && (u.Scheme == "postgres" || u.Scheme == "postgresql"),
			"database_url must be a postgres:// url")
	}
	return errors.Join(errs...)
}
