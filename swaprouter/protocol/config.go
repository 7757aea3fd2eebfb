package protocol

// Global state keys of the router application. External tooling reads the
// configuration by these names.
const (
	KeyAMMAppID          = "amm_app_id"
	KeyWrappedAppID      = "wrapped_app_id"
	KeyWrappedAssetID    = "wrapped_asset_id"
	KeyWrappedAppAddress = "wrapped_app_address"
	KeyManager           = "manager"
	KeyPendingManager    = "pending_manager"
	KeyExtraCollector    = "extra_collector"
)

// RouterConfig is the persisted configuration of one router deployment.
type RouterConfig struct {
	AMMAppID          uint64  `json:"amm_app_id"`
	WrappedAppID      uint64  `json:"wrapped_app_id"`
	WrappedAssetID    uint64  `json:"wrapped_asset_id"`
	WrappedAppAddress Address `json:"wrapped_app_address"`
	Manager           Address `json:"manager"`
	// PendingManager is the zero address when no hand-off is in progress.
	PendingManager Address `json:"pending_manager"`
	ExtraCollector Address `json:"extra_collector"`
}

func (c RouterConfig) HasPendingManager() bool {
	return !c.PendingManager.IsZero()
}

// HasWrappedApp reports whether wrap hops are possible for this deployment.
func (c RouterConfig) HasWrappedApp() bool {
	return c.WrappedAppID != 0
}
