package chain

import (
	"encoding/binary"
	"fmt"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/zeebo/blake3"
)

// TxnType is the kind of a transaction.
type TxnType uint8

const (
	Payment TxnType = iota + 1
	AssetTransfer
	AppCall
)

func (t TxnType) String() string {
	switch t {
	case Payment:
		return "pay"
	case AssetTransfer:
		return "axfer"
	case AppCall:
		return "appl"
	default:
		return fmt.Sprintf("txn(%d)", uint8(t))
	}
}

// Txn is a single outer or inner transaction.
type Txn struct {
	Type   TxnType
	Sender protocol.Address
	Fee    uint64

	// Payment and AssetTransfer
	Receiver protocol.Address
	Amount   uint64
	AssetID  uint64

	// AppCall
	AppID    uint64
	Args     [][]byte
	Accounts []protocol.Address
	Assets   []uint64
	Apps     []uint64
}

// Asset returns the moved asset; payments move the native asset.
func (t Txn) Asset() uint64 {
	if t.Type == Payment {
		return protocol.NativeAsset
	}
	return t.AssetID
}

// IsTransfer reports whether the txn moves value.
func (t Txn) IsTransfer() bool {
	return t.Type == Payment || t.Type == AssetTransfer
}

// Method returns the first application argument as a string.
func (t Txn) Method() string {
	if t.Type != AppCall || len(t.Args) == 0 {
		return ""
	}
	return string(t.Args[0])
}

// Transfer builds a payment for the native asset and an asset transfer otherwise.
func Transfer(sender, receiver protocol.Address, asset, amount uint64) Txn {
	txn := Txn{
		Type:     AssetTransfer,
		Sender:   sender,
		Receiver: receiver,
		Amount:   amount,
		AssetID:  asset,
	}
	if asset == protocol.NativeAsset {
		txn.Type = Payment
		txn.AssetID = 0
	}
	return txn
}

// TxnResult is the applied form of a txn with its inner txns and logs.
type TxnResult struct {
	Txn   Txn
	Inner []*TxnResult
	Logs  [][]byte
}

// Walk visits the result and all inner results depth first.
func (r *TxnResult) Walk(fn func(*TxnResult)) {
	fn(r)
	for _, inner := range r.Inner {
		inner.Walk(fn)
	}
}

// Receipt is returned for a committed group.
type Receipt struct {
	Round   uint64
	GroupID [32]byte
	Txns    []*TxnResult
}

// InnerCount is the number of inner txns executed by the group.
func (r *Receipt) InnerCount() int {
	n := 0
	for _, res := range r.Txns {
		res.Walk(func(*TxnResult) { n++ })
		n--
	}
	return n
}

// TxnError reports which txn of a group failed. Path holds the outer index followed
// by the inner indexes leading to the failing txn.
type TxnError struct {
	Path []int
	Err  error
}

func (e *TxnError) Error() string {
	return fmt.Sprintf("txn %v failed: %v", e.Path, e.Err)
}

func (e *TxnError) Unwrap() error { return e.Err }

// GroupIndex is the outer txn that failed.
func (e *TxnError) GroupIndex() int {
	if len(e.Path) == 0 {
		return -1
	}
	return e.Path[0]
}

// GroupID derives the identifier of a group committed at round.
func GroupID(round uint64, txns []Txn) [32]byte {
	var buf []byte
	buf = binary.BigEndian.AppendUint64(buf, round)
	for _, txn := range txns {
		buf = appendTxn(buf, txn)
	}
	return blake3.Sum256(buf)
}

func appendTxn(buf []byte, txn Txn) []byte {
	buf = append(buf, byte(txn.Type))
	buf = append(buf, txn.Sender[:]...)
	buf = binary.BigEndian.AppendUint64(buf, txn.Fee)
	buf = append(buf, txn.Receiver[:]...)
	buf = binary.BigEndian.AppendUint64(buf, txn.Amount)
	buf = binary.BigEndian.AppendUint64(buf, txn.AssetID)
	buf = binary.BigEndian.AppendUint64(buf, txn.AppID)
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(txn.Args)))
	for _, arg := range txn.Args {
		buf = binary.BigEndian.AppendUint64(buf, uint64(len(arg)))
		buf = append(buf, arg...)
	}
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(txn.Accounts)))
	for _, acct := range txn.Accounts {
		buf = append(buf, acct[:]...)
	}
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(txn.Assets)))
	for _, id := range txn.Assets {
		buf = binary.BigEndian.AppendUint64(buf, id)
	}
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(txn.Apps)))
	for _, id := range txn.Apps {
		buf = binary.BigEndian.AppendUint64(buf, id)
	}
	return buf
}
