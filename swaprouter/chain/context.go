package chain

import (
	"bytes"
	"fmt"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
)

// CallContext is what an Application sees while one of its calls executes.
type CallContext struct {
	ex     *executor
	Txn    Txn
	group  []Txn
	index  int
	path   []int
	depth  int
	result *TxnResult
}

// AppID is the id of the called application.
func (c *CallContext) AppID() uint64 {
	return c.Txn.AppID
}

// Address is the account controlled by the called application.
func (c *CallContext) Address() protocol.Address {
	return protocol.AppAddress(c.Txn.AppID)
}

func (c *CallContext) Sender() protocol.Address {
	return c.Txn.Sender
}

func (c *CallContext) Args() [][]byte {
	return c.Txn.Args
}

// Index is the position of this call inside its group.
func (c *CallContext) Index() int {
	return c.index
}

func (c *CallContext) GroupSize() int {
	return len(c.group)
}

// GroupTxn returns a sibling txn of the group this call belongs to.
func (c *CallContext) GroupTxn(i int) (Txn, bool) {
	if i < 0 || i >= len(c.group) {
		return Txn{}, false
	}
	return c.group[i], true
}

// Inner reports whether the call was issued by another application.
func (c *CallContext) Inner() bool {
	return c.depth > 0
}

func (c *CallContext) View() View {
	return c.ex.view()
}

// Global reads the called application's global state.
func (c *CallContext) Global(key string) (Value, bool) {
	val, ok := c.ex.st.global[c.Txn.AppID][key]
	return val, ok
}

func (c *CallContext) PutGlobal(key string, v Value) {
	if c.ex.st.global[c.Txn.AppID] == nil {
		c.ex.st.global[c.Txn.AppID] = make(map[string]Value)
	}
	c.ex.st.global[c.Txn.AppID][key] = v
}

func (c *CallContext) DeleteGlobal(key string) {
	delete(c.ex.st.global[c.Txn.AppID], key)
}

// Local reads the called application's local state of addr.
func (c *CallContext) Local(addr protocol.Address, key string) (Value, bool) {
	val, ok := c.ex.st.local[c.Txn.AppID][addr][key]
	return val, ok
}

func (c *CallContext) PutLocal(addr protocol.Address, key string, v Value) {
	putLocal(c.ex.st, c.Txn.AppID, addr, key, v)
}

// Log appends an entry to the call's log.
func (c *CallContext) Log(entry []byte) {
	c.result.Logs = append(c.result.Logs, bytes.Clone(entry))
}

// RequireAccounts fails unless every address is available to this group.
func (c *CallContext) RequireAccounts(addrs ...protocol.Address) error {
	for _, addr := range addrs {
		if !c.ex.accountAvailable(addr) {
			return fmt.Errorf("%w: account %s", protocol.ErrReferenceUnavailable, addr)
		}
	}
	return nil
}

// Query runs another application's read-only query against the current state.
func (c *CallContext) Query(appID uint64, args ...[]byte) ([]byte, error) {
	if !c.ex.appRefs[appID] {
		return nil, fmt.Errorf("%w: app %d", protocol.ErrReferenceUnavailable, appID)
	}
	return query(c.ex.apps, c.ex.view(), appID, args)
}

// Submit issues one inner txn.
func (c *CallContext) Submit(txn Txn) (*TxnResult, error) {
	res, err := c.SubmitGroup([]Txn{txn})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

// SubmitGroup issues inner txns as one inner group. Each inner txn consumes one
// minimum fee of the pooled credit and may only touch references available to the
// outer group.
func (c *CallContext) SubmitGroup(txns []Txn) ([]*TxnResult, error) {
	if c.depth+1 > c.ex.params.MaxCallDepth {
		return nil, fmt.Errorf("%w: call depth %d", protocol.ErrMalformedGroup, c.depth+1)
	}
	self := c.Address()
	for i := range txns {
		txn := &txns[i]
		txn.Fee = 0
		if txn.Sender != self && c.ex.st.account(txn.Sender).authApp != c.Txn.AppID {
			return nil, fmt.Errorf("%w: app %d cannot spend from %s", protocol.ErrUnauthorized, c.Txn.AppID, txn.Sender)
		}
		if err := c.ex.checkAvailable(*txn); err != nil {
			return nil, err
		}
	}

	results := make([]*TxnResult, len(txns))
	for i, txn := range txns {
		if c.ex.inner+1 > c.ex.params.MaxInnerTxns {
			return nil, fmt.Errorf("%w: more than %d inner txns", protocol.ErrMalformedGroup, c.ex.params.MaxInnerTxns)
		}
		if c.ex.credit < c.ex.params.MinFee {
			return nil, fmt.Errorf("%w: no pooled fee left for inner txn %d", protocol.ErrInsufficientFee, c.ex.inner+1)
		}
		c.ex.credit -= c.ex.params.MinFee
		c.ex.inner++

		path := append(append([]int(nil), c.path...), len(c.result.Inner))
		res, err := c.ex.apply(txn, txns, i, path, c.depth+1)
		if err != nil {
			return nil, err
		}
		c.result.Inner = append(c.result.Inner, res)
		results[i] = res
	}
	return results, nil
}
