// Package chain is an in-process execution environment with the rules the router
// depends on: atomic groups, pooled fees, per-call reference limits and inner
// transactions issued by applications.
package chain

import (
	"fmt"
	"sync"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
)

// Params are the consensus limits of the environment.
type Params struct {
	MinFee         uint64
	MinBalance     uint64
	MaxGroupSize   int
	MaxInnerTxns   int
	MaxCallDepth   int
	MaxAccountRefs int
	MaxTotalRefs   int
}

// DefaultParams mirrors the limits of the target network.
func DefaultParams() Params {
	return Params{
		MinFee:         1000,
		MinBalance:     100_000,
		MaxGroupSize:   16,
		MaxInnerTxns:   256,
		MaxCallDepth:   8,
		MaxAccountRefs: 4,
		MaxTotalRefs:   8,
	}
}

// Application is the code behind an application id.
type Application interface {
	Call(ctx *CallContext) error
}

// Querier is implemented by applications offering read-only queries.
type Querier interface {
	Query(view View, args [][]byte) ([]byte, error)
}

// Ledger holds committed state and executes groups one at a time.
type Ledger struct {
	mu     sync.Mutex
	params Params
	apps   map[uint64]Application
	st     *state
	round  uint64
}

// NewLedger creates an empty ledger.
func NewLedger(params Params) *Ledger {
	return &Ledger{
		params: params,
		apps:   make(map[uint64]Application),
		st:     newState(),
	}
}

func (l *Ledger) Params() Params {
	return l.params
}

// Round is the number of committed groups.
func (l *Ledger) Round() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.round
}

// Install registers application code under appID.
func (l *Ledger) Install(appID uint64, app Application) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if appID == 0 {
		return fmt.Errorf("%w: app id 0 is reserved", protocol.ErrInvalidConfig)
	}
	if _, ok := l.apps[appID]; ok {
		return fmt.Errorf("%w: app %d already installed", protocol.ErrInvalidConfig, appID)
	}
	l.apps[appID] = app
	return nil
}

// CreateAsset registers an asset id.
func (l *Ledger) CreateAsset(assetID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if assetID == protocol.NativeAsset {
		return fmt.Errorf("%w: asset id 0 is the native asset", protocol.ErrInvalidConfig)
	}
	l.st.assets[assetID] = true
	return nil
}

// Fund credits an account outside of any group, opting it in if needed.
func (l *Ledger) Fund(addr protocol.Address, asset, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if asset != protocol.NativeAsset && !l.st.assets[asset] {
		return fmt.Errorf("%w: %d", protocol.ErrUnknownAsset, asset)
	}
	acct := l.st.account(addr)
	acct.balances[asset] += amount
	return nil
}

// OptIn opts an account into an asset outside of any group.
func (l *Ledger) OptIn(addr protocol.Address, asset uint64) error {
	return l.Fund(addr, asset, 0)
}

// Authorize lets appID issue inner txns from addr.
func (l *Ledger) Authorize(addr protocol.Address, appID uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.st.account(addr).authApp = appID
}

// PutGlobal writes application global state outside of any group.
func (l *Ledger) PutGlobal(appID uint64, key string, v Value) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.st.global[appID] == nil {
		l.st.global[appID] = make(map[string]Value)
	}
	l.st.global[appID][key] = v
}

// PutLocal writes application local state outside of any group.
func (l *Ledger) PutLocal(appID uint64, addr protocol.Address, key string, v Value) {
	l.mu.Lock()
	defer l.mu.Unlock()
	putLocal(l.st, appID, addr, key, v)
}

func putLocal(st *state, appID uint64, addr protocol.Address, key string, v Value) {
	if st.local[appID] == nil {
		st.local[appID] = make(map[protocol.Address]map[string]Value)
	}
	if st.local[appID][addr] == nil {
		st.local[appID][addr] = make(map[string]Value)
	}
	st.local[appID][addr][key] = v
}

// Read runs fn against committed state.
func (l *Ledger) Read(fn func(View) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(stateView{st: l.st, params: l.params})
}

// Balance reads a committed balance.
func (l *Ledger) Balance(addr protocol.Address, asset uint64) uint64 {
	var bal uint64
	_ = l.Read(func(v View) error {
		bal, _ = v.Balance(addr, asset)
		return nil
	})
	return bal
}

// Query runs a read-only application query against committed state.
func (l *Ledger) Query(appID uint64, args ...[]byte) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return query(l.apps, stateView{st: l.st, params: l.params}, appID, args)
}

func query(apps map[uint64]Application, view View, appID uint64, args [][]byte) ([]byte, error) {
	app, ok := apps[appID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", protocol.ErrUnknownApp, appID)
	}
	q, ok := app.(Querier)
	if !ok {
		return nil, fmt.Errorf("%w: app %d has no read-only queries", protocol.ErrCapabilityUnavailable, appID)
	}
	return q.Query(view, args)
}

// Execute applies a group atomically. On error no state changes and the returned
// error is a *TxnError naming the failing txn.
func (l *Ledger) Execute(group []Txn) (*Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, results, err := l.run(group)
	if err != nil {
		return nil, err
	}
	l.st = st
	l.round++
	return &Receipt{
		Round:   l.round,
		GroupID: GroupID(l.round, group),
		Txns:    results,
	}, nil
}

// Simulate applies a group against a copy of the committed state and discards
// the result. The receipt carries the round the group would commit in.
func (l *Ledger) Simulate(group []Txn) (*Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, results, err := l.run(group)
	if err != nil {
		return nil, err
	}
	return &Receipt{
		Round:   l.round + 1,
		GroupID: GroupID(l.round+1, group),
		Txns:    results,
	}, nil
}

func (l *Ledger) run(group []Txn) (*state, []*TxnResult, error) {
	if len(group) == 0 || len(group) > l.params.MaxGroupSize {
		return nil, nil, &TxnError{Path: []int{0}, Err: fmt.Errorf("%w: group size %d", protocol.ErrMalformedGroup, len(group))}
	}

	ex := &executor{
		params: l.params,
		apps:   l.apps,
		st:     l.st.clone(),
		group:  group,
	}
	if err := ex.prepare(); err != nil {
		return nil, nil, err
	}

	results := make([]*TxnResult, len(group))
	for i, txn := range group {
		res, err := ex.applyOuter(i, txn)
		if err != nil {
			return nil, nil, err
		}
		results[i] = res
	}
	return ex.st, results, nil
}
