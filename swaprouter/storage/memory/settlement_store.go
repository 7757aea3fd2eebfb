package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/storage"
)

// SettlementStore is an in-memory implementation of storage.SettlementStore.
type SettlementStore struct {
	mu    sync.RWMutex
	data  map[string]*storage.Settlement // keyed by group id
	order []string                       // insertion order
}

// NewSettlementStore creates a new in-memory settlement store.
func NewSettlementStore() *SettlementStore {
	return &SettlementStore{
		data: make(map[string]*storage.Settlement),
	}
}

var _ storage.SettlementStore = (*SettlementStore)(nil)

// Insert adds a new settlement. Returns ErrDuplicateKey if exists.
func (s *SettlementStore) Insert(_ context.Context, st *storage.Settlement) error {
	if err := st.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[st.GroupID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *st
	s.data[st.GroupID] = &copy
	s.order = append(s.order, st.GroupID)
	return nil
}

// GetByGroupID retrieves a settlement by its group id.
func (s *SettlementStore) GetByGroupID(_ context.Context, groupID string) (*storage.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.data[groupID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *st
	return &copy, nil
}

// ListBySender retrieves the newest settlements of one sender.
func (s *SettlementStore) ListBySender(_ context.Context, sender protocol.Address, limit int) ([]*storage.Settlement, error) {
	return s.list(limit, func(st *storage.Settlement) bool { return st.Sender == sender }), nil
}

// ListRecent retrieves the newest settlements.
func (s *SettlementStore) ListRecent(_ context.Context, limit int) ([]*storage.Settlement, error) {
	return s.list(limit, func(*storage.Settlement) bool { return true }), nil
}

func (s *SettlementStore) list(limit int, keep func(*storage.Settlement) bool) []*storage.Settlement {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type entry struct {
		st  *storage.Settlement
		seq int
	}
	var matched []entry
	for seq, id := range s.order {
		if st := s.data[id]; keep(st) {
			matched = append(matched, entry{st: st, seq: seq})
		}
	}

	// Sort by round DESC, newest insert first within a round
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].st.Round != matched[j].st.Round {
			return matched[i].st.Round > matched[j].st.Round
		}
		return matched[i].seq > matched[j].seq
	})

	limit = storage.ClampLimit(limit)
	if len(matched) > limit {
		matched = matched[:limit]
	}
	result := make([]*storage.Settlement, len(matched))
	for i, e := range matched {
		copy := *e.st
		result[i] = &copy
	}
	return result
}
