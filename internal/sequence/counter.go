package sequence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DBTX is the minimal query surface the counter needs. Both *pgxpool.Pool and
// pgx.Tx satisfy it, so Next can run inside the transaction that inserts the
// numbered entity.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CounterStore advances durable per-tenant counters. Counter rows are created
// lazily on first use and never deleted; restarts do not reset them.
type CounterStore struct{}

// NewCounterStore constructs a CounterStore.
func NewCounterStore() *CounterStore {
	return &CounterStore{}
}

// Next returns the next value for (tenant, kind) as a single atomic statement.
// Concurrent callers serialize on the counter row, so values are distinct and
// contiguous.
func (s *CounterStore) Next(ctx context.Context, db DBTX, tenantID int64, kind Kind) (int64, error) {
	if tenantID == 0 {
		return 0, ErrInvalidTenant
	}
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	var value int64
	err := db.QueryRow(ctx, `INSERT INTO sequence_counters (tenant_id, kind, value)
VALUES ($1, $2, 1)
ON CONFLICT (tenant_id, kind) DO UPDATE SET value = sequence_counters.value + 1
RETURNING value`, tenantID, string(kind)).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("sequence: next %s for tenant %d: %w", kind, tenantID, err)
	}
	return value, nil
}

// Seed raises a counter to at least floor, used when backfilling from the
// historical maximum of pre-existing numbers. Seeding never lowers a counter.
func (s *CounterStore) Seed(ctx context.Context, db DBTX, tenantID int64, kind Kind, floor int64) (int64, error) {
	if tenantID == 0 {
		return 0, ErrInvalidTenant
	}
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	var value int64
	err := db.QueryRow(ctx, `INSERT INTO sequence_counters (tenant_id, kind, value)
VALUES ($1, $2, $3)
ON CONFLICT (tenant_id, kind) DO UPDATE SET value = GREATEST(sequence_counters.value, EXCLUDED.value)
RETURNING value`, tenantID, string(kind), floor).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("sequence: seed %s for tenant %d: %w", kind, tenantID, err)
	}
	return value, nil
}
