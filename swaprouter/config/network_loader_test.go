package config_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/config"
)

func TestNetworkConfigLoader_LoadFromFile(t *testing.T) {
	cfg, err := config.NewNetworkConfigLoader().LoadFromFile("testdata/network.toml")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Router.AppID != 500 || cfg.AMM.AppID != 100 {
		t.Errorf("unexpected app ids: %+v %+v", cfg.Router, cfg.AMM)
	}
	if cfg.Wrapped == nil || cfg.Wrapped.AssetID != 300 {
		t.Fatalf("expected wrapped app with asset 300, got %+v", cfg.Wrapped)
	}
	if len(cfg.Pools) != 3 || len(cfg.Accounts) != 2 {
		t.Errorf("unexpected pools/accounts: %d %d", len(cfg.Pools), len(cfg.Accounts))
	}
	if cfg.FeeSchedule.InnerCallsPerHop != 3 {
		t.Errorf("unexpected fee schedule: %+v", cfg.FeeSchedule)
	}
	if a, ok := cfg.Asset(10); !ok || a.Name != "USDC" {
		t.Errorf("asset 10 lookup failed: %+v", a)
	}
}

func TestNetworkConfigLoader_LoadThroughGetter(t *testing.T) {
	abs, err := filepath.Abs("testdata/network.toml")
	if err != nil {
		t.Fatalf("failed to resolve testdata: %v", err)
	}
	cfg, err := config.NewNetworkConfigLoader().Load(context.Background(), "file::"+abs)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Name != "localnet" {
		t.Errorf("unexpected name %q", cfg.Name)
	}
}

func TestParseNetworkConfig_Invalid(t *testing.T) {
	base, err := os.ReadFile("testdata/network.toml")
	if err != nil {
		t.Fatalf("failed to read testdata: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "unknown key",
			mutate:  func(s string) string { return strings.Replace(s, "quotes = true", "quotes = true\nprices = true", 1) },
			wantErr: "failed to parse",
		},
		{
			name:    "unknown manager",
			mutate:  func(s string) string { return strings.Replace(s, `manager = "deployer"`, `manager = "mallory"`, 1) },
			wantErr: "router.manager",
		},
		{
			name:    "pool with undeclared asset",
			mutate:  func(s string) string { return strings.Replace(s, "asset_b = 5", "asset_b = 55", 1) },
			wantErr: "undeclared asset",
		},
		{
			name:    "zero multiplier",
			mutate:  func(s string) string { return strings.Replace(s, "inner_calls_per_hop = 3", "inner_calls_per_hop = 0", 1) },
			wantErr: "inner_calls_per_hop",
		},
		{
			name:    "app id collision",
			mutate:  func(s string) string { return strings.Replace(s, "app_id = 200", "app_id = 100", 1) },
			wantErr: "collides",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.ParseNetworkConfig([]byte(tt.mutate(string(base))))
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseNetworkConfig_DefaultFeeSchedule(t *testing.T) {
	data := `
[router]
app_id = 1
manager = "m"

[amm]
app_id = 2

[[accounts]]
name = "m"
`
	cfg, err := config.ParseNetworkConfig([]byte(data))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.FeeSchedule == nil || cfg.FeeSchedule.InnerCallsPerHop != 3 {
		t.Errorf("expected default fee schedule, got %+v", cfg.FeeSchedule)
	}
}
