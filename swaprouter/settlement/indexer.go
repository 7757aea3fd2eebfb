// Package settlement turns committed swap groups into stored settlements and
// streams them to subscribers.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/localnet"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/storage"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "settlement").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l
}

var (
	// ErrNotCommitted is returned for simulated receipts.
	ErrNotCommitted = errors.New("receipt was not committed")
	// ErrNoEvent is returned for groups that logged no settlement, such as
	// governance calls.
	ErrNoEvent = errors.New("receipt carries no settlement event")
)

// Indexer records settlements and publishes them on a Hub.
type Indexer struct {
	store storage.SettlementStore
	hub   *Hub
	now   func() time.Time
}

func NewIndexer(store storage.SettlementStore, hub *Hub) *Indexer {
	return &Indexer{store: store, hub: hub, now: func() time.Time { return time.Now().UTC() }}
}

// Store exposes the underlying store for queries.
func (i *Indexer) Store() storage.SettlementStore {
	return i.store
}

// Hub exposes the fan-out for stream subscribers.
func (i *Indexer) Hub() *Hub {
	return i.hub
}

// FromReceipt builds the settlement record of a committed swap group.
func FromReceipt(receipt *localnet.Receipt, group *router.CompiledGroup) (*storage.Settlement, error) {
	if receipt == nil || group == nil {
		return nil, fmt.Errorf("%w: receipt and group are required", storage.ErrInvalidInput)
	}
	if !receipt.Committed {
		return nil, ErrNotCommitted
	}
	if receipt.Event == nil {
		return nil, ErrNoEvent
	}
	ev := receipt.Event
	if ev.InputAssetID != group.Request.Route.Input() || ev.OutputAssetID != group.Request.Route.Output() {
		return nil, fmt.Errorf("%w: event assets %d->%d do not match route %d->%d", protocol.ErrMalformedGroup,
			ev.InputAssetID, ev.OutputAssetID, group.Request.Route.Input(), group.Request.Route.Output())
	}
	return &storage.Settlement{
		GroupID:       receipt.GroupID,
		Round:         receipt.Round,
		Sender:        group.Request.Sender,
		Mode:          group.Request.Mode,
		InputAssetID:  ev.InputAssetID,
		OutputAssetID: ev.OutputAssetID,
		InputAmount:   ev.InputAmount,
		OutputAmount:  ev.OutputAmount,
		Hops:          len(group.Hops),
		InnerTxns:     receipt.InnerTxns,
	}, nil
}

// Record stores the settlement of a committed group and publishes it.
func (i *Indexer) Record(ctx context.Context, receipt *localnet.Receipt, group *router.CompiledGroup) (*storage.Settlement, error) {
	st, err := FromReceipt(receipt, group)
	if err != nil {
		return nil, err
	}
	st.CreatedAt = i.now()

	if err := i.store.Insert(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to store settlement %s: %w", st.GroupID, err)
	}
	log.Info().
		Str("group", st.GroupID).
		Uint64("round", st.Round).
		Uint64("input_amount", st.InputAmount).
		Uint64("output_amount", st.OutputAmount).
		Int("hops", st.Hops).
		Msg("settlement recorded")

	if i.hub != nil {
		i.hub.Publish(*st)
	}
	return st, nil
}
