package postgres_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/storage"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/storage/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSettlement(id string, round uint64, sender protocol.Address) *storage.Settlement {
	return &storage.Settlement{
		GroupID:       id,
		Round:         round,
		Sender:        sender,
		Mode:          protocol.FixedOutput,
		InputAssetID:  10,
		OutputAssetID: 5,
		InputAmount:   1000,
		OutputAmount:  9915,
		Hops:          2,
		InnerTxns:     8,
		CreatedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestSettlementStore_InsertAndGetByGroupID(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	store := postgres.NewSettlementStore(pool)

	want := newSettlement("a1b2", 7, protocol.AppAddress(1))
	require.NoError(t, store.Insert(ctx, want))

	got, err := store.GetByGroupID(ctx, "a1b2")
	require.NoError(t, err)

	assert.Equal(t, want.GroupID, got.GroupID)
	assert.Equal(t, want.Round, got.Round)
	assert.Equal(t, want.Sender, got.Sender)
	assert.Equal(t, want.Mode, got.Mode)
	assert.Equal(t, want.InputAssetID, got.InputAssetID)
	assert.Equal(t, want.OutputAssetID, got.OutputAssetID)
	assert.Equal(t, want.InputAmount, got.InputAmount)
	assert.Equal(t, want.OutputAmount, got.OutputAmount)
	assert.Equal(t, want.Hops, got.Hops)
	assert.Equal(t, want.InnerTxns, got.InnerTxns)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
}

func TestSettlementStore_InsertDuplicate(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	store := postgres.NewSettlementStore(pool)

	require.NoError(t, store.Insert(ctx, newSettlement("dup", 1, protocol.AppAddress(1))))
	err := store.Insert(ctx, newSettlement("dup", 2, protocol.AppAddress(2)))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSettlementStore_GetNotFound(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewSettlementStore(pool)

	_, err := store.GetByGroupID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSettlementStore_RejectsOverflow(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewSettlementStore(pool)

	st := newSettlement("big", 1, protocol.AppAddress(1))
	st.OutputAmount = math.MaxInt64 + 1
	err := store.Insert(context.Background(), st)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestSettlementStore_List(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	store := postgres.NewSettlementStore(pool)
	alice := protocol.AppAddress(1)
	bob := protocol.AppAddress(2)

	require.NoError(t, store.Insert(ctx, newSettlement("g0", 5, alice)))
	require.NoError(t, store.Insert(ctx, newSettlement("g1", 2, bob)))
	require.NoError(t, store.Insert(ctx, newSettlement("g2", 9, alice)))
	require.NoError(t, store.Insert(ctx, newSettlement("g3", 5, bob)))

	recent, err := store.ListRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "g2", recent[0].GroupID)
	assert.Equal(t, "g3", recent[1].GroupID)
	assert.Equal(t, "g0", recent[2].GroupID)

	bobs, err := store.ListBySender(ctx, bob, 0)
	require.NoError(t, err)
	require.Len(t, bobs, 2)
	assert.Equal(t, "g3", bobs[0].GroupID)
	assert.Equal(t, "g1", bobs[1].GroupID)
}
