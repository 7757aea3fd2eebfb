package protocol

import (
	"bytes"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
)

// SettlementSignature is the method signature the event selector is derived from.
const SettlementSignature = "swap(uint64,uint64,uint64,uint64)"

// SettlementLogLength is the selector plus four 8-byte fields.
const SettlementLogLength = 4 + 4*uint64Size

// SettlementSelector is the first 4 bytes of SHA-512/256(SettlementSignature).
var SettlementSelector = func() [4]byte {
	sum := sha512.Sum512_256([]byte(SettlementSignature))
	var sel [4]byte
	copy(sel[:], sum[:4])
	return sel
}()

// SettlementEvent is logged once per successful swap group.
type SettlementEvent struct {
	InputAssetID  uint64 `json:"input_asset_id"`
	OutputAssetID uint64 `json:"output_asset_id"`
	InputAmount   uint64 `json:"input_amount"`
	OutputAmount  uint64 `json:"output_amount"`
}

// Encode renders the 36-byte log entry.
func (e SettlementEvent) Encode() []byte {
	out := make([]byte, 0, SettlementLogLength)
	out = append(out, SettlementSelector[:]...)
	out = binary.BigEndian.AppendUint64(out, e.InputAssetID)
	out = binary.BigEndian.AppendUint64(out, e.OutputAssetID)
	out = binary.BigEndian.AppendUint64(out, e.InputAmount)
	out = binary.BigEndian.AppendUint64(out, e.OutputAmount)
	return out
}

// IsSettlementLog reports whether a log entry carries the settlement selector.
func IsSettlementLog(b []byte) bool {
	return len(b) == SettlementLogLength && bytes.Equal(b[:4], SettlementSelector[:])
}

// DecodeSettlementEvent parses a log entry written by Encode.
func DecodeSettlementEvent(b []byte) (SettlementEvent, error) {
	var e SettlementEvent
	if !IsSettlementLog(b) {
		return e, fmt.Errorf("%w: not a settlement log (%d bytes)", ErrMalformedArgs, len(b))
	}
	e.InputAssetID = binary.BigEndian.Uint64(b[4:12])
	e.OutputAssetID = binary.BigEndian.Uint64(b[12:20])
	e.InputAmount = binary.BigEndian.Uint64(b[20:28])
	e.OutputAmount = binary.BigEndian.Uint64(b[28:36])
	return e, nil
}
