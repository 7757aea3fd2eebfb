package chain

import (
	"errors"
	"fmt"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
)

// executor applies one group against a private copy of the state.
type executor struct {
	params Params
	apps   map[uint64]Application
	st     *state
	group  []Txn

	// credit is the pooled fee left for inner txns.
	credit uint64
	inner  int

	accounts map[protocol.Address]bool
	assets   map[uint64]bool
	appRefs  map[uint64]bool
}

// prepare checks the pooled fee and per-call reference limits, then collects the
// references available to inner txns of the whole group.
func (ex *executor) prepare() error {
	var total uint64
	for _, txn := range ex.group {
		total += txn.Fee
	}
	need := ex.params.MinFee * uint64(len(ex.group))
	if total < need {
		return &TxnError{
			Path: []int{0},
			Err:  fmt.Errorf("%w: group pays %d, needs at least %d", protocol.ErrInsufficientFee, total, need),
		}
	}
	ex.credit = total - need

	ex.accounts = make(map[protocol.Address]bool)
	ex.assets = map[uint64]bool{protocol.NativeAsset: true}
	ex.appRefs = make(map[uint64]bool)

	for i, txn := range ex.group {
		ex.accounts[txn.Sender] = true
		switch txn.Type {
		case Payment, AssetTransfer:
			ex.accounts[txn.Receiver] = true
			ex.assets[txn.Asset()] = true
		case AppCall:
			if err := ex.checkCallRefs(txn); err != nil {
				return &TxnError{Path: []int{i}, Err: err}
			}
			ex.appRefs[txn.AppID] = true
			for _, app := range txn.Apps {
				ex.appRefs[app] = true
			}
			for _, acct := range txn.Accounts {
				ex.accounts[acct] = true
			}
			for _, asset := range txn.Assets {
				ex.assets[asset] = true
			}
		default:
			return &TxnError{Path: []int{i}, Err: fmt.Errorf("%w: unknown txn type %s", protocol.ErrMalformedGroup, txn.Type)}
		}
	}
	for app := range ex.appRefs {
		ex.accounts[protocol.AppAddress(app)] = true
	}
	return nil
}

func (ex *executor) checkCallRefs(txn Txn) error {
	if len(txn.Accounts) > ex.params.MaxAccountRefs {
		return fmt.Errorf("%w: %d accounts, limit %d", protocol.ErrReferenceOverflow, len(txn.Accounts), ex.params.MaxAccountRefs)
	}
	refs := len(txn.Accounts) + len(txn.Assets) + len(txn.Apps)
	if refs > ex.params.MaxTotalRefs {
		return fmt.Errorf("%w: %d references, limit %d", protocol.ErrReferenceOverflow, refs, ex.params.MaxTotalRefs)
	}
	return nil
}

func (ex *executor) view() stateView {
	return stateView{st: ex.st, params: ex.params}
}

func (ex *executor) applyOuter(i int, txn Txn) (*TxnResult, error) {
	sender := ex.st.account(txn.Sender)
	if sender.balances[protocol.NativeAsset] < txn.Fee {
		return nil, &TxnError{Path: []int{i}, Err: fmt.Errorf("%w: sender cannot pay fee %d", protocol.ErrInsufficientBalance, txn.Fee)}
	}
	sender.balances[protocol.NativeAsset] -= txn.Fee

	res, err := ex.apply(txn, ex.group, i, []int{i}, 0)
	if err != nil {
		return nil, err
	}
	if bal := sender.balances[protocol.NativeAsset]; bal < ex.view().MinBalance(txn.Sender) {
		return nil, &TxnError{Path: []int{i}, Err: fmt.Errorf("%w: sender left with %d", protocol.ErrBelowMinBalance, bal)}
	}
	return res, nil
}

func (ex *executor) apply(txn Txn, group []Txn, index int, path []int, depth int) (*TxnResult, error) {
	res := &TxnResult{Txn: txn}
	var err error
	switch txn.Type {
	case Payment, AssetTransfer:
		err = ex.transfer(txn)
	case AppCall:
		app, ok := ex.apps[txn.AppID]
		if !ok {
			err = fmt.Errorf("%w: %d", protocol.ErrUnknownApp, txn.AppID)
			break
		}
		ctx := &CallContext{
			ex:     ex,
			Txn:    txn,
			group:  group,
			index:  index,
			path:   path,
			depth:  depth,
			result: res,
		}
		err = app.Call(ctx)
	default:
		err = fmt.Errorf("%w: unknown txn type %s", protocol.ErrMalformedGroup, txn.Type)
	}
	if err != nil {
		if te, ok := err.(*TxnError); ok {
			return nil, te
		}
		// keep the path of a failing inner txn under the caller's context
		var inner *TxnError
		if errors.As(err, &inner) {
			return nil, &TxnError{Path: inner.Path, Err: err}
		}
		return nil, &TxnError{Path: path, Err: err}
	}
	return res, nil
}

func (ex *executor) transfer(txn Txn) error {
	asset := txn.Asset()
	if asset != protocol.NativeAsset && !ex.st.assets[asset] {
		return fmt.Errorf("%w: %d", protocol.ErrUnknownAsset, asset)
	}
	sender := ex.st.account(txn.Sender)

	// zero-amount self transfer opts in
	if txn.Type == AssetTransfer && txn.Amount == 0 && txn.Sender == txn.Receiver {
		if !sender.optedIn(asset) {
			sender.balances[asset] = 0
			if sender.balances[protocol.NativeAsset] < ex.view().MinBalance(txn.Sender) {
				return fmt.Errorf("%w: cannot cover opt-in to %d", protocol.ErrBelowMinBalance, asset)
			}
		}
		return nil
	}

	if !sender.optedIn(asset) {
		return fmt.Errorf("%w: sender %s, asset %d", protocol.ErrNotOptedIn, txn.Sender, asset)
	}
	receiver := ex.st.account(txn.Receiver)
	if !receiver.optedIn(asset) {
		return fmt.Errorf("%w: receiver %s, asset %d", protocol.ErrNotOptedIn, txn.Receiver, asset)
	}
	if sender.balances[asset] < txn.Amount {
		return fmt.Errorf("%w: %s holds %d of asset %d, sends %d",
			protocol.ErrInsufficientBalance, txn.Sender, sender.balances[asset], asset, txn.Amount)
	}
	sender.balances[asset] -= txn.Amount
	receiver.balances[asset] += txn.Amount

	if asset == protocol.NativeAsset && txn.Sender != txn.Receiver {
		if bal := sender.balances[asset]; bal < ex.view().MinBalance(txn.Sender) {
			return fmt.Errorf("%w: %s left with %d", protocol.ErrBelowMinBalance, txn.Sender, bal)
		}
	}
	return nil
}

func (ex *executor) accountAvailable(addr protocol.Address) bool {
	return ex.accounts[addr]
}

func (ex *executor) checkAvailable(txn Txn) error {
	if !ex.accountAvailable(txn.Sender) {
		return fmt.Errorf("%w: sender %s", protocol.ErrReferenceUnavailable, txn.Sender)
	}
	switch txn.Type {
	case Payment, AssetTransfer:
		if !ex.accountAvailable(txn.Receiver) {
			return fmt.Errorf("%w: account %s", protocol.ErrReferenceUnavailable, txn.Receiver)
		}
		if !ex.assets[txn.Asset()] {
			return fmt.Errorf("%w: asset %d", protocol.ErrReferenceUnavailable, txn.Asset())
		}
	case AppCall:
		if !ex.appRefs[txn.AppID] {
			return fmt.Errorf("%w: app %d", protocol.ErrReferenceUnavailable, txn.AppID)
		}
		for _, acct := range txn.Accounts {
			if !ex.accountAvailable(acct) {
				return fmt.Errorf("%w: account %s", protocol.ErrReferenceUnavailable, acct)
			}
		}
		for _, asset := range txn.Assets {
			if !ex.assets[asset] {
				return fmt.Errorf("%w: asset %d", protocol.ErrReferenceUnavailable, asset)
			}
		}
		for _, app := range txn.Apps {
			if !ex.appRefs[app] {
				return fmt.Errorf("%w: app %d", protocol.ErrReferenceUnavailable, app)
			}
		}
		return ex.checkCallRefs(txn)
	}
	return nil
}
