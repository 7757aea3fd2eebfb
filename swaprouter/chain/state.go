package chain

import (
	"bytes"
	"maps"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
)

// Value is an application state value: an integer or a byte string.
type Value struct {
	Uint    uint64
	Bytes   []byte
	IsBytes bool
}

func Uint(v uint64) Value { return Value{Uint: v} }

func Bytes(b []byte) Value { return Value{Bytes: bytes.Clone(b), IsBytes: true} }

// AddressValue stores an address as a byte string.
func AddressValue(a protocol.Address) Value { return Bytes(a[:]) }

// Address decodes a byte string value; anything else is the zero address.
func (v Value) Address() protocol.Address {
	var a protocol.Address
	if v.IsBytes && len(v.Bytes) == protocol.AddressLength {
		copy(a[:], v.Bytes)
	}
	return a
}

type account struct {
	// balances holds the native balance under asset 0 and one entry per opted-in asset.
	balances map[uint64]uint64
	// authApp may issue inner txns from this account.
	authApp uint64
}

func (a *account) clone() *account {
	return &account{balances: maps.Clone(a.balances), authApp: a.authApp}
}

func (a *account) optedIn(asset uint64) bool {
	if asset == protocol.NativeAsset {
		return true
	}
	_, ok := a.balances[asset]
	return ok
}

func (a *account) optInCount() uint64 {
	return uint64(len(a.balances) - 1)
}

type state struct {
	accounts map[protocol.Address]*account
	assets   map[uint64]bool
	global   map[uint64]map[string]Value
	local    map[uint64]map[protocol.Address]map[string]Value
}

func newState() *state {
	return &state{
		accounts: make(map[protocol.Address]*account),
		assets:   make(map[uint64]bool),
		global:   make(map[uint64]map[string]Value),
		local:    make(map[uint64]map[protocol.Address]map[string]Value),
	}
}

// clone copies everything a group may mutate so a failed group can be dropped.
func (s *state) clone() *state {
	c := newState()
	for addr, acct := range s.accounts {
		c.accounts[addr] = acct.clone()
	}
	c.assets = maps.Clone(s.assets)
	for app, kv := range s.global {
		c.global[app] = maps.Clone(kv)
	}
	for app, byAddr := range s.local {
		m := make(map[protocol.Address]map[string]Value, len(byAddr))
		for addr, kv := range byAddr {
			m[addr] = maps.Clone(kv)
		}
		c.local[app] = m
	}
	return c
}

func (s *state) account(addr protocol.Address) *account {
	acct, ok := s.accounts[addr]
	if !ok {
		acct = &account{balances: map[uint64]uint64{protocol.NativeAsset: 0}}
		s.accounts[addr] = acct
	}
	return acct
}

// View is read access to ledger state.
type View interface {
	Balance(addr protocol.Address, asset uint64) (uint64, bool)
	OptedIn(addr protocol.Address, asset uint64) bool
	MinBalance(addr protocol.Address) uint64
	Global(app uint64, key string) (Value, bool)
	Local(app uint64, addr protocol.Address, key string) (Value, bool)
}

type stateView struct {
	st     *state
	params Params
}

func (v stateView) Balance(addr protocol.Address, asset uint64) (uint64, bool) {
	acct, ok := v.st.accounts[addr]
	if !ok {
		return 0, asset == protocol.NativeAsset
	}
	bal, ok := acct.balances[asset]
	return bal, ok
}

func (v stateView) OptedIn(addr protocol.Address, asset uint64) bool {
	acct, ok := v.st.accounts[addr]
	if !ok {
		return asset == protocol.NativeAsset
	}
	return acct.optedIn(asset)
}

func (v stateView) MinBalance(addr protocol.Address) uint64 {
	acct, ok := v.st.accounts[addr]
	if !ok {
		return v.params.MinBalance
	}
	return v.params.MinBalance * (1 + acct.optInCount())
}

func (v stateView) Global(app uint64, key string) (Value, bool) {
	val, ok := v.st.global[app][key]
	return val, ok
}

func (v stateView) Local(app uint64, addr protocol.Address, key string) (Value, bool) {
	val, ok := v.st.local[app][addr][key]
	return val, ok
}
