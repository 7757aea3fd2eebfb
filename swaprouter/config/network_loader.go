package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
	"github.com/hashicorp/go-getter"
	"github.com/pelletier/go-toml/v2"
)

// NetworkConfigLoader reads network descriptions from local files or from any
// source go-getter understands (https, git, s3 ...).
type NetworkConfigLoader struct {
	// FetchTimeout bounds remote downloads.
	FetchTimeout time.Duration
}

func NewNetworkConfigLoader() *NetworkConfigLoader {
	return &NetworkConfigLoader{FetchTimeout: 120 * time.Second}
}

// Load reads src: a local path when the file exists, otherwise a go-getter URL.
func (l *NetworkConfigLoader) Load(ctx context.Context, src string) (*NetworkConfig, error) {
	if _, err := os.Stat(src); err == nil {
		return l.LoadFromFile(src)
	}

	dir, err := os.MkdirTemp("", "swaprouter-network-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}
	defer os.RemoveAll(dir)

	dst := filepath.Join(dir, "network.toml")
	if err := l.fetch(ctx, src, dst); err != nil {
		return nil, err
	}
	return l.LoadFromFile(dst)
}

func (l *NetworkConfigLoader) fetch(ctx context.Context, src, dst string) error {
	ctx, cancel := context.WithTimeout(ctx, l.FetchTimeout)
	defer cancel()

	pwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	client := getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Pwd:  pwd,
		Mode: getter.ClientModeFile,
	}
	if err := client.Get(); err != nil {
		return fmt.Errorf("failed to download network config from %s: %w", src, err)
	}
	return nil
}

// LoadFromFile decodes a TOML network description. Unknown keys are rejected.
func (l *NetworkConfigLoader) LoadFromFile(filePath string) (*NetworkConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read network config file: %w", err)
	}
	return ParseNetworkConfig(data)
}

// ParseNetworkConfig decodes and validates a TOML network description.
func ParseNetworkConfig(data []byte) (*NetworkConfig, error) {
	var cfg NetworkConfig
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	if cfg.FeeSchedule == nil {
		sched := router.DefaultFeeSchedule()
		cfg.FeeSchedule = &sched
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid network config: %w", err)
	}
	return &cfg, nil
}

// Validate checks ids and references between sections.
func (c *NetworkConfig) Validate() error {
	if c.Router.AppID == 0 || c.AMM.AppID == 0 {
		return fmt.Errorf("router.app_id and amm.app_id are required")
	}
	if c.Router.Manager == "" {
		return fmt.Errorf("router.manager is required")
	}
	if c.FeeSchedule != nil && c.FeeSchedule.InnerCallsPerHop == 0 {
		return fmt.Errorf("fee_schedule.inner_calls_per_hop must be positive")
	}

	apps := map[uint64]string{c.Router.AppID: "router"}
	if prev, ok := apps[c.AMM.AppID]; ok {
		return fmt.Errorf("amm.app_id %d collides with %s", c.AMM.AppID, prev)
	}
	apps[c.AMM.AppID] = "amm"

	assets := make(map[uint64]bool, len(c.Assets))
	for _, a := range c.Assets {
		if a.ID == 0 {
			return fmt.Errorf("asset %q uses the native asset id 0", a.Name)
		}
		if assets[a.ID] {
			return fmt.Errorf("asset %d declared twice", a.ID)
		}
		assets[a.ID] = true
	}
	known := func(id uint64) bool { return id == 0 || assets[id] }

	if w := c.Wrapped; w != nil {
		if w.AppID == 0 || w.AssetID == 0 {
			return fmt.Errorf("wrapped.app_id and wrapped.asset_id are required")
		}
		if prev, ok := apps[w.AppID]; ok {
			return fmt.Errorf("wrapped.app_id %d collides with %s", w.AppID, prev)
		}
		if !known(w.AssetID) {
			return fmt.Errorf("wrapped.asset_id %d is not declared in assets", w.AssetID)
		}
	}

	for i, p := range c.Pools {
		if !known(p.AssetA) || !known(p.AssetB) {
			return fmt.Errorf("pool %d trades an undeclared asset", i)
		}
		if p.AssetA == p.AssetB {
			return fmt.Errorf("pool %d trades asset %d with itself", i, p.AssetA)
		}
		if p.ReserveA == 0 || p.ReserveB == 0 {
			return fmt.Errorf("pool %d needs reserves on both sides", i)
		}
	}

	names := make(map[string]bool, len(c.Accounts))
	for _, a := range c.Accounts {
		if a.Name == "" || names[a.Name] {
			return fmt.Errorf("account names must be unique and non-empty, got %q", a.Name)
		}
		names[a.Name] = true
		for _, b := range a.Balances {
			if !known(b.Asset) {
				return fmt.Errorf("account %s holds undeclared asset %d", a.Name, b.Asset)
			}
		}
	}
	if !names[c.Router.Manager] {
		return fmt.Errorf("router.manager %q is not a declared account", c.Router.Manager)
	}
	for _, id := range c.Router.OptIn {
		if !known(id) {
			return fmt.Errorf("router.opt_in lists undeclared asset %d", id)
		}
	}
	return nil
}

// Asset returns a declared asset by id.
func (c *NetworkConfig) Asset(id uint64) (AssetConfig, bool) {
	for _, a := range c.Assets {
		if a.ID == id {
			return a, true
		}
	}
	return AssetConfig{}, false
}
