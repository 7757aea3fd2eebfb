package models

// SwapRequest - API body shared by compile, quote, simulate and submit
type SwapRequest struct {
	Sender        string   `json:"sender"`                  // base32 address or a localnet account name
	Mode          string   `json:"mode"`                    // "fixed-input" | "fixed-output"
	InputAmount   string   `json:"inputAmount"`             // exact input, or the most to spend in fixed-output mode
	MinimumOutput string   `json:"minimumOutput,omitempty"` // fixed-input floor
	OutputAmount  string   `json:"outputAmount,omitempty"`  // fixed-output target
	Route         []uint64 `json:"route"`                   // asset ids, 0 is the native asset
	Pools         []string `json:"pools"`                   // pool or wrapped app address per hop
	SlippageBps   *uint32  `json:"slippageBps,omitempty"`   // derive the bound from a quote instead
	AutoOptIn     bool     `json:"autoOptIn"`               // add router opt-ins for missing route assets
}

// Operation is one unsigned txn of a compiled group
type Operation struct {
	Kind     string   `json:"kind"` // "transfer" | "call"
	Role     string   `json:"role"`
	Sender   string   `json:"sender"`
	Fee      string   `json:"fee"`
	Receiver string   `json:"receiver,omitempty"`
	AssetID  uint64   `json:"assetId,omitempty"`
	Amount   string   `json:"amount,omitempty"`
	AppID    uint64   `json:"appId,omitempty"`
	Args     []string `json:"args,omitempty"` // base64
	Accounts []string `json:"accounts,omitempty"`
	Assets   []uint64 `json:"assets,omitempty"`
	Apps     []uint64 `json:"apps,omitempty"`
}

// Hop is one resolved step of the route
type Hop struct {
	Kind     string `json:"kind"` // "amm" | "wrap"
	Pool     string `json:"pool"`
	AssetIn  uint64 `json:"assetIn"`
	AssetOut uint64 `json:"assetOut"`
}

// FeeBudget is the pooled fee the primary call pays
type FeeBudget struct {
	MinFee     string `json:"minFee"`
	Base       uint64 `json:"base"`       // one unit per outer txn
	Additional uint64 `json:"additional"` // inner txns
	Total      string `json:"total"`      // base units
	Display    string `json:"display"`    // whole native units
}

// Quote is the expected outcome of a route
type Quote struct {
	Mode          string   `json:"mode"`
	AmountIn      string   `json:"amountIn"`
	AmountOut     string   `json:"amountOut"`
	Amounts       []string `json:"amounts"`                 // amount entering each hop, last is the output
	MinimumOutput string   `json:"minimumOutput,omitempty"` // fixed-input bound at the requested slippage
	MaximumInput  string   `json:"maximumInput,omitempty"`  // fixed-output bound at the requested slippage
	SpotPrice     string   `json:"spotPrice"`
	PriceImpact   string   `json:"priceImpact"` // e.g. "0.02" for 2%
}

// CompileSwapResponse - the group to sign and submit
type CompileSwapResponse struct {
	Operations []Operation `json:"operations"`
	Hops       []Hop       `json:"hops"`
	Frames     int         `json:"frames"`
	Fee        FeeBudget   `json:"fee"`
	Quote      *Quote      `json:"quote,omitempty"` // set when slippageBps was given
}

// Transfer is one value movement of an executed group
type Transfer struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	AssetID  uint64 `json:"assetId"`
	Amount   string `json:"amount"`
	Inner    bool   `json:"inner"`
}

// Settlement is the event a successful swap group logs
type Settlement struct {
	GroupID       string `json:"groupId"`
	Round         uint64 `json:"round"`
	Sender        string `json:"sender,omitempty"`
	Mode          string `json:"mode,omitempty"`
	InputAssetID  uint64 `json:"inputAssetId"`
	OutputAssetID uint64 `json:"outputAssetId"`
	InputAmount   string `json:"inputAmount"`
	OutputAmount  string `json:"outputAmount"`
	Hops          int    `json:"hops,omitempty"`
	InnerTxns     int    `json:"innerTxns"`
	CreatedAt     string `json:"createdAt,omitempty"` // RFC3339
}

// ExecutionResponse - result of simulating or submitting a group
type ExecutionResponse struct {
	Success      bool        `json:"success"`
	ErrorKind    string      `json:"errorKind,omitempty"` // e.g. "SlippageExceeded"
	ErrorMessage string      `json:"errorMessage,omitempty"`
	FailedTxn    *int        `json:"failedTxn,omitempty"` // group index of the rejected txn
	Committed    bool        `json:"committed"`
	GroupID      string      `json:"groupId,omitempty"`
	Round        uint64      `json:"round,omitempty"`
	InnerTxns    int         `json:"innerTxns,omitempty"`
	Settlement   *Settlement `json:"settlement,omitempty"`
	Transfers    []Transfer  `json:"transfers,omitempty"`
	Fee          *FeeBudget  `json:"fee,omitempty"`
}

// ListSettlementsRequest - filter by sender, newest first
type ListSettlementsRequest struct {
	Sender string `json:"sender,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type ListSettlementsResponse struct {
	Settlements []Settlement `json:"settlements"`
}

// GetRouterConfigRequest is empty, the service runs one router
type GetRouterConfigRequest struct{}

// RouterConfig - persisted configuration read by its global state keys
type RouterConfig struct {
	RouterAppID       uint64   `json:"routerAppId"`
	RouterAddress     string   `json:"routerAddress"`
	AMMAppID          uint64   `json:"ammAppId"`
	WrappedAppID      uint64   `json:"wrappedAppId"`
	WrappedAssetID    uint64   `json:"wrappedAssetId"`
	WrappedAppAddress string   `json:"wrappedAppAddress"`
	Manager           string   `json:"manager"`
	PendingManager    string   `json:"pendingManager,omitempty"`
	ExtraCollector    string   `json:"extraCollector"`
	FixedOutput       bool     `json:"fixedOutput"` // AMM quote capability
	InnerCallsPerHop  uint64   `json:"innerCallsPerHop"`
	MinFee            string   `json:"minFee"`
	OptedIn           []uint64 `json:"optedIn"`
}
