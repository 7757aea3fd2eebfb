// Package storage records settled swap groups for the query API.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
)

// DefaultListLimit caps list queries that ask for no limit or too much.
const DefaultListLimit = 100

// Settlement is one committed swap group and the event it logged.
type Settlement struct {
	GroupID       string           `json:"group_id"`
	Round         uint64           `json:"round"`
	Sender        protocol.Address `json:"sender"`
	Mode          protocol.Mode    `json:"mode"`
	InputAssetID  uint64           `json:"input_asset_id"`
	OutputAssetID uint64           `json:"output_asset_id"`
	InputAmount   uint64           `json:"input_amount"`
	OutputAmount  uint64           `json:"output_amount"`
	Hops          int              `json:"hops"`
	InnerTxns     int              `json:"inner_txns"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Validate rejects records that cannot come from a settled group.
func (s *Settlement) Validate() error {
	if s == nil || s.GroupID == "" {
		return fmt.Errorf("%w: settlement needs a group id", ErrInvalidInput)
	}
	if s.Sender.IsZero() {
		return fmt.Errorf("%w: settlement needs a sender", ErrInvalidInput)
	}
	if s.Hops <= 0 {
		return fmt.Errorf("%w: settlement without hops", ErrInvalidInput)
	}
	return nil
}

// SettlementStore provides access to settlements storage.
type SettlementStore interface {
	// Insert adds a new settlement. Returns ErrDuplicateKey if group_id exists.
	Insert(ctx context.Context, s *Settlement) error

	// GetByGroupID retrieves a settlement. Returns ErrNotFound if not exists.
	GetByGroupID(ctx context.Context, groupID string) (*Settlement, error)

	// ListBySender retrieves the newest settlements of one sender, round DESC.
	ListBySender(ctx context.Context, sender protocol.Address, limit int) ([]*Settlement, error)

	// ListRecent retrieves the newest settlements, round DESC.
	ListRecent(ctx context.Context, limit int) ([]*Settlement, error)
}

// ClampLimit maps a requested page size into (0, DefaultListLimit].
func ClampLimit(limit int) int {
	if limit <= 0 || limit > DefaultListLimit {
		return DefaultListLimit
	}
	return limit
}
