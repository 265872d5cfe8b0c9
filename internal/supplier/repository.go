package supplier

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procureflow/procureflow/internal/platform/db"
	"github.com/procureflow/procureflow/internal/sequence"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool     *pgxpool.Pool
	counters *sequence.CounterStore
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, counters: sequence.NewCounterStore()}
}

type txRepo struct {
	tx       pgx.Tx
	counters *sequence.CounterStore
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, counters: r.counters})
	})
}

// Get fetches a supplier within the tenant scope.
func (r *Repository) Get(ctx context.Context, tenantID, id int64) (Supplier, error) {
	var s Supplier
	err := r.pool.QueryRow(ctx, `SELECT id, tenant_id, number, name, email, phone
FROM suppliers WHERE id=$1 AND tenant_id=$2`, id, tenantID).
		Scan(&s.ID, &s.TenantID, &s.Number, &s.Name, &s.Email, &s.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, ErrNotFound
		}
		return Supplier{}, err
	}
	return s, nil
}

// List returns tenant suppliers ordered by number.
func (r *Repository) List(ctx context.Context, tenantID int64, limit, offset int) ([]Supplier, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers WHERE tenant_id=$1`, tenantID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, tenant_id, number, name, email, phone
FROM suppliers WHERE tenant_id=$1 ORDER BY number LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var suppliers []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Number, &s.Name, &s.Email, &s.Phone); err != nil {
			return nil, 0, err
		}
		suppliers = append(suppliers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return suppliers, total, nil
}

func (tx *txRepo) NextSequence(ctx context.Context, tenantID int64, kind sequence.Kind) (int64, error) {
	return tx.counters.Next(ctx, tx.tx, tenantID, kind)
}

func (tx *txRepo) CreateSupplier(ctx context.Context, s Supplier) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO suppliers (tenant_id, number, name, email, phone)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, s.TenantID, s.Number, s.Name, s.Email, s.Phone).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrNumberCollision
		}
		return 0, err
	}
	return id, nil
}
