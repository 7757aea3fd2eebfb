package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/storage"
	"github.com/jackc/pgx/v5"
)

// SettlementStore implements storage.SettlementStore using PostgreSQL.
type SettlementStore struct {
	pool *Pool
}

// NewSettlementStore creates a new SettlementStore.
func NewSettlementStore(pool *Pool) *SettlementStore {
	return &SettlementStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SettlementStore = (*SettlementStore)(nil)

const settlementColumns = `group_id, round, sender, mode, input_asset_id, output_asset_id, input_amount, output_amount, hops, inner_txns, created_at`

// Insert adds a new settlement. Returns ErrDuplicateKey if the group id exists.
func (s *SettlementStore) Insert(ctx context.Context, st *storage.Settlement) error {
	if err := st.Validate(); err != nil {
		return err
	}
	args, err := settlementArgs(st)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO settlements (` + settlementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert settlement: %w", err)
	}
	return nil
}

func settlementArgs(st *storage.Settlement) ([]any, error) {
	var ints [5]int64
	fields := []struct {
		name string
		v    uint64
	}{
		{"round", st.Round},
		{"input_asset_id", st.InputAssetID},
		{"output_asset_id", st.OutputAssetID},
		{"input_amount", st.InputAmount},
		{"output_amount", st.OutputAmount},
	}
	for i, f := range fields {
		v, err := toBigint(f.name, f.v)
		if err != nil {
			return nil, err
		}
		ints[i] = v
	}

	created := st.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return []any{
		st.GroupID, ints[0], st.Sender.String(), st.Mode.String(),
		ints[1], ints[2], ints[3], ints[4],
		st.Hops, st.InnerTxns, created,
	}, nil
}

// GetByGroupID retrieves a settlement. Returns ErrNotFound if not exists.
func (s *SettlementStore) GetByGroupID(ctx context.Context, groupID string) (*storage.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE group_id = $1`

	st, err := scanSettlement(s.pool.QueryRow(ctx, query, groupID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get settlement by group id: %w", err)
	}
	return st, nil
}

// ListBySender retrieves the newest settlements of one sender, round DESC.
func (s *SettlementStore) ListBySender(ctx context.Context, sender protocol.Address, limit int) ([]*storage.Settlement, error) {
	query := `
		SELECT ` + settlementColumns + `
		FROM settlements
		WHERE sender = $1
		ORDER BY round DESC, id DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, sender.String(), storage.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list settlements by sender: %w", err)
	}
	defer rows.Close()

	return scanSettlements(rows)
}

// ListRecent retrieves the newest settlements, round DESC.
func (s *SettlementStore) ListRecent(ctx context.Context, limit int) ([]*storage.Settlement, error) {
	query := `
		SELECT ` + settlementColumns + `
		FROM settlements
		ORDER BY round DESC, id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, storage.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent settlements: %w", err)
	}
	defer rows.Close()

	return scanSettlements(rows)
}

func scanSettlement(row pgx.Row) (*storage.Settlement, error) {
	var (
		st                                   storage.Settlement
		round, inAsset, outAsset, inAmt, out int64
		sender, mode                         string
	)
	err := row.Scan(
		&st.GroupID,
		&round,
		&sender,
		&mode,
		&inAsset,
		&outAsset,
		&inAmt,
		&out,
		&st.Hops,
		&st.InnerTxns,
		&st.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if st.Sender, err = protocol.ParseAddress(sender); err != nil {
		return nil, fmt.Errorf("decode sender of %s: %w", st.GroupID, err)
	}
	if st.Mode, err = protocol.ParseMode(mode); err != nil {
		return nil, fmt.Errorf("decode mode of %s: %w", st.GroupID, err)
	}
	for _, f := range []struct {
		name string
		src  int64
		dst  *uint64
	}{
		{"round", round, &st.Round},
		{"input_asset_id", inAsset, &st.InputAssetID},
		{"output_asset_id", outAsset, &st.OutputAssetID},
		{"input_amount", inAmt, &st.InputAmount},
		{"output_amount", out, &st.OutputAmount},
	} {
		if *f.dst, err = fromBigint(f.name, f.src); err != nil {
			return nil, err
		}
	}
	return &st, nil
}

// scanSettlements scans multiple rows into a slice of Settlement.
func scanSettlements(rows pgx.Rows) ([]*storage.Settlement, error) {
	var settlements []*storage.Settlement

	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan settlement row: %w", err)
		}
		settlements = append(settlements, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlement rows: %w", err)
	}

	return settlements, nil
}
