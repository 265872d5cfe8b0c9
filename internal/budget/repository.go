package budget

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the minimal query surface the ledger statements need, satisfied by
// both *pgxpool.Pool and pgx.Tx so reservations can join a caller transaction.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ReserveIn atomically increments amount_reserved, guarded against the
// allocation in the same statement. Never read-then-write: concurrent
// reservations against one budget serialize on the row.
func ReserveIn(ctx context.Context, db DBTX, tenantID, budgetID int64, amount float64) (Budget, error) {
	var b Budget
	err := db.QueryRow(ctx, `UPDATE budgets
SET amount_reserved = amount_reserved + $3,
    balance = amount_allocated - (amount_reserved + $3)
WHERE id = $1 AND tenant_id = $2 AND amount_reserved + $3 <= amount_allocated
RETURNING id, tenant_id, branch_id, department_id, category_id, name, amount_allocated, amount_reserved, balance`,
		budgetID, tenantID, amount).
		Scan(&b.ID, &b.TenantID, &b.BranchID, &b.DepartmentID, &b.CategoryID, &b.Name, &b.AmountAllocated, &b.AmountReserved, &b.Balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Budget{}, classifyMiss(ctx, db, tenantID, budgetID, ErrInsufficientFunds)
		}
		return Budget{}, fmt.Errorf("budget: reserve: %w", err)
	}
	return b, nil
}

// ReleaseIn atomically decrements amount_reserved, guarded against the
// reserved amount in the same statement.
func ReleaseIn(ctx context.Context, db DBTX, tenantID, budgetID int64, amount float64) (Budget, error) {
	var b Budget
	err := db.QueryRow(ctx, `UPDATE budgets
SET amount_reserved = amount_reserved - $3,
    balance = amount_allocated - (amount_reserved - $3)
WHERE id = $1 AND tenant_id = $2 AND amount_reserved >= $3
RETURNING id, tenant_id, branch_id, department_id, category_id, name, amount_allocated, amount_reserved, balance`,
		budgetID, tenantID, amount).
		Scan(&b.ID, &b.TenantID, &b.BranchID, &b.DepartmentID, &b.CategoryID, &b.Name, &b.AmountAllocated, &b.AmountReserved, &b.Balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Budget{}, classifyMiss(ctx, db, tenantID, budgetID, ErrExcessRelease)
		}
		return Budget{}, fmt.Errorf("budget: release: %w", err)
	}
	return b, nil
}

// classifyMiss distinguishes an absent budget from a failed guard without
// leaking cross-tenant existence.
func classifyMiss(ctx context.Context, db DBTX, tenantID, budgetID int64, guardErr error) error {
	var exists bool
	err := db.QueryRow(ctx, `SELECT true FROM budgets WHERE id = $1 AND tenant_id = $2`, budgetID, tenantID).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return guardErr
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a budget and returns it with its identity.
func (r *Repository) Create(ctx context.Context, b Budget) (Budget, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO budgets (tenant_id, branch_id, department_id, category_id, name, amount_allocated, amount_reserved, balance)
VALUES ($1, $2, $3, $4, $5, $6, 0, $6)
RETURNING id, amount_reserved, balance`,
		b.TenantID, b.BranchID, b.DepartmentID, b.CategoryID, b.Name, b.AmountAllocated).
		Scan(&b.ID, &b.AmountReserved, &b.Balance)
	if err != nil {
		return Budget{}, fmt.Errorf("budget: create: %w", err)
	}
	return b, nil
}

// Get fetches a budget within the tenant scope.
func (r *Repository) Get(ctx context.Context, tenantID, id int64) (Budget, error) {
	var b Budget
	err := r.pool.QueryRow(ctx, `SELECT id, tenant_id, branch_id, department_id, category_id, name, amount_allocated, amount_reserved, balance
FROM budgets WHERE id = $1 AND tenant_id = $2`, id, tenantID).
		Scan(&b.ID, &b.TenantID, &b.BranchID, &b.DepartmentID, &b.CategoryID, &b.Name, &b.AmountAllocated, &b.AmountReserved, &b.Balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Budget{}, ErrNotFound
		}
		return Budget{}, err
	}
	return b, nil
}

// List returns tenant budgets ordered by creation.
func (r *Repository) List(ctx context.Context, tenantID int64, limit, offset int) ([]Budget, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM budgets WHERE tenant_id = $1`, tenantID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, tenant_id, branch_id, department_id, category_id, name, amount_allocated, amount_reserved, balance
FROM budgets WHERE tenant_id = $1 ORDER BY id LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var budgets []Budget
	for rows.Next() {
		var b Budget
		if err := rows.Scan(&b.ID, &b.TenantID, &b.BranchID, &b.DepartmentID, &b.CategoryID, &b.Name, &b.AmountAllocated, &b.AmountReserved, &b.Balance); err != nil {
			return nil, 0, err
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return budgets, total, nil
}

// Reserve applies ReserveIn against the pool.
func (r *Repository) Reserve(ctx context.Context, tenantID, budgetID int64, amount float64) (Budget, error) {
	return ReserveIn(ctx, r.pool, tenantID, budgetID, amount)
}

// Release applies ReleaseIn against the pool.
func (r *Repository) Release(ctx context.Context, tenantID, budgetID int64, amount float64) (Budget, error) {
	return ReleaseIn(ctx, r.pool, tenantID, budgetID, amount)
}
