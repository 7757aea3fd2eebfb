package amm

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/chain"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/zeebo/blake3"
)

// Global state keys of the wrapped-asset application.
const (
	KeyWrappedAssetID  = "wrapped_asset_id"
	KeyRateNumerator   = "rate_numerator"
	KeyRateDenominator = "rate_denominator"

	keyReferencePrefix = "reference_account_"
)

// WrappedReferenceCount is the number of accounts every wrap or unwrap call
// needs available.
const WrappedReferenceCount = 4

// WrappedConfig is the state of a wrapped-asset application.
type WrappedConfig struct {
	AppID           uint64
	Address         protocol.Address
	AssetID         uint64
	RateNumerator   uint64
	RateDenominator uint64
	References      [WrappedReferenceCount]protocol.Address
}

// DefaultWrappedReferences derives the reference accounts of a wrapped app that
// was created without explicit ones.
func DefaultWrappedReferences(appID uint64) [WrappedReferenceCount]protocol.Address {
	var refs [WrappedReferenceCount]protocol.Address
	for i := range refs {
		buf := []byte("wrapped")
		buf = binary.BigEndian.AppendUint64(buf, appID)
		buf = append(buf, byte(i))
		refs[i] = protocol.Address(blake3.Sum256(buf))
	}
	return refs
}

// Quote converts amount through the wrapper. wraps selects native -> wrapped.
// Fixed-input rounds the output down, fixed-output rounds the needed input up.
func (w WrappedConfig) Quote(mode protocol.Mode, wraps bool, amount uint64) (uint64, error) {
	num, den := w.RateNumerator, w.RateDenominator
	if !wraps {
		num, den = den, num
	}
	if mode == protocol.FixedOutput {
		return ScaleCeil(amount, den, num)
	}
	return ScaleFloor(amount, num, den)
}

func (w WrappedConfig) direction(assetIn, assetOut uint64) (bool, error) {
	switch {
	case assetIn == protocol.NativeAsset && assetOut == w.AssetID:
		return true, nil
	case assetIn == w.AssetID && assetOut == protocol.NativeAsset:
		return false, nil
	}
	return false, fmt.Errorf("%w: wrapped app %d converts only %d <-> %d", protocol.ErrInvalidRoute, w.AppID, protocol.NativeAsset, w.AssetID)
}

// LoadWrapped reads the wrapped app configuration from global state.
func LoadWrapped(view chain.View, appID uint64) (WrappedConfig, error) {
	asset, ok := view.Global(appID, KeyWrappedAssetID)
	if !ok {
		return WrappedConfig{}, fmt.Errorf("%w: wrapped app %d", protocol.ErrNotCreated, appID)
	}
	w := WrappedConfig{
		AppID:           appID,
		Address:         protocol.AppAddress(appID),
		AssetID:         asset.Uint,
		RateNumerator:   1,
		RateDenominator: 1,
	}
	if v, ok := view.Global(appID, KeyRateNumerator); ok && v.Uint != 0 {
		w.RateNumerator = v.Uint
	}
	if v, ok := view.Global(appID, KeyRateDenominator); ok && v.Uint != 0 {
		w.RateDenominator = v.Uint
	}
	for i := range w.References {
		v, _ := view.Global(appID, keyReferencePrefix+strconv.Itoa(i))
		w.References[i] = v.Address()
	}
	return w, nil
}

// WrappedSpec describes a wrapped app to bootstrap on a ledger.
type WrappedSpec struct {
	AssetID         uint64
	RateNumerator   uint64
	RateDenominator uint64
	// NativeReserve and WrappedReserve back unwrap and wrap calls.
	NativeReserve  uint64
	WrappedReserve uint64
	References     []protocol.Address
}

// CreateWrapped installs the wrapped app state and funds its account.
func CreateWrapped(l *chain.Ledger, appID uint64, spec WrappedSpec) (WrappedConfig, error) {
	if spec.AssetID == protocol.NativeAsset {
		return WrappedConfig{}, fmt.Errorf("%w: wrapped asset cannot be the native asset", protocol.ErrInvalidConfig)
	}
	if spec.RateNumerator == 0 {
		spec.RateNumerator = 1
	}
	if spec.RateDenominator == 0 {
		spec.RateDenominator = 1
	}
	refs := DefaultWrappedReferences(appID)
	if len(spec.References) > 0 {
		if len(spec.References) != WrappedReferenceCount {
			return WrappedConfig{}, fmt.Errorf("%w: wrapped app needs %d reference accounts, got %d",
				protocol.ErrInvalidConfig, WrappedReferenceCount, len(spec.References))
		}
		copy(refs[:], spec.References)
	}

	addr := protocol.AppAddress(appID)
	if err := l.OptIn(addr, spec.AssetID); err != nil {
		return WrappedConfig{}, fmt.Errorf("failed to opt wrapped app into asset %d: %w", spec.AssetID, err)
	}
	if err := l.Fund(addr, protocol.NativeAsset, 2*l.Params().MinBalance+spec.NativeReserve); err != nil {
		return WrappedConfig{}, err
	}
	if err := l.Fund(addr, spec.AssetID, spec.WrappedReserve); err != nil {
		return WrappedConfig{}, err
	}

	l.PutGlobal(appID, KeyWrappedAssetID, chain.Uint(spec.AssetID))
	l.PutGlobal(appID, KeyRateNumerator, chain.Uint(spec.RateNumerator))
	l.PutGlobal(appID, KeyRateDenominator, chain.Uint(spec.RateDenominator))
	for i, ref := range refs {
		l.PutGlobal(appID, keyReferencePrefix+strconv.Itoa(i), chain.AddressValue(ref))
	}
	return WrappedConfig{
		AppID:           appID,
		Address:         addr,
		AssetID:         spec.AssetID,
		RateNumerator:   spec.RateNumerator,
		RateDenominator: spec.RateDenominator,
		References:      refs,
	}, nil
}

// WrappedApp is the wrapped-asset application.
type WrappedApp struct {
	id uint64
}

func NewWrappedApp(appID uint64) *WrappedApp {
	return &WrappedApp{id: appID}
}

// WrappedQuoteArgs builds the argument list of a read-only wrapper quote.
func WrappedQuoteArgs(mode protocol.Mode, amount, assetIn, assetOut uint64) [][]byte {
	return [][]byte{
		[]byte(MethodQuote),
		[]byte(mode.String()),
		protocol.EncodeUint64(amount),
		protocol.EncodeUint64(assetIn),
		protocol.EncodeUint64(assetOut),
	}
}

// Call handles wrap and unwrap. Both expect the previous txn of the group to pay
// the input into the app account and send the converted amount back to the caller.
func (w *WrappedApp) Call(ctx *chain.CallContext) error {
	method := ctx.Txn.Method()
	if method != MethodWrap && method != MethodUnwrap {
		return fmt.Errorf("%w: wrapped app has no method %q", protocol.ErrUnknownMethod, method)
	}
	cfg, err := LoadWrapped(ctx.View(), w.id)
	if err != nil {
		return err
	}
	if err := ctx.RequireAccounts(cfg.References[:]...); err != nil {
		return err
	}

	wraps := method == MethodWrap
	assetIn, assetOut := cfg.AssetID, protocol.NativeAsset
	if wraps {
		assetIn, assetOut = protocol.NativeAsset, cfg.AssetID
	}
	payment, ok := ctx.GroupTxn(ctx.Index() - 1)
	if !ok || !payment.IsTransfer() || payment.Receiver != cfg.Address || payment.Asset() != assetIn {
		return fmt.Errorf("%w: %s must follow a transfer of asset %d into %s", protocol.ErrBadFunding, method, assetIn, cfg.Address)
	}

	out, err := cfg.Quote(protocol.FixedInput, wraps, payment.Amount)
	if err != nil {
		return err
	}
	if out == 0 {
		return fmt.Errorf("%w: %s of %d yields nothing", protocol.ErrUpstreamRejected, method, payment.Amount)
	}
	_, err = ctx.Submit(chain.Transfer(cfg.Address, ctx.Sender(), assetOut, out))
	return err
}

// Query answers read-only quotes, see WrappedQuoteArgs.
func (w *WrappedApp) Query(view chain.View, args [][]byte) ([]byte, error) {
	if len(args) != 5 || string(args[0]) != MethodQuote {
		return nil, fmt.Errorf("%w: malformed wrapper quote", protocol.ErrMalformedArgs)
	}
	mode, err := protocol.ParseMode(string(args[1]))
	if err != nil {
		return nil, err
	}
	amount, err := protocol.DecodeUint64(args[2])
	if err != nil {
		return nil, err
	}
	assetIn, err := protocol.DecodeUint64(args[3])
	if err != nil {
		return nil, err
	}
	assetOut, err := protocol.DecodeUint64(args[4])
	if err != nil {
		return nil, err
	}
	cfg, err := LoadWrapped(view, w.id)
	if err != nil {
		return nil, err
	}
	wraps, err := cfg.direction(assetIn, assetOut)
	if err != nil {
		return nil, err
	}
	v, err := cfg.Quote(mode, wraps, amount)
	if err != nil {
		return nil, err
	}
	return protocol.EncodeUint64(v), nil
}
