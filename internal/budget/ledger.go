package budget

import (
	"context"
	"fmt"

	"github.com/procureflow/procureflow/internal/shared"
)

// RepositoryPort describes repository operations used by Ledger.
type RepositoryPort interface {
	Create(ctx context.Context, b Budget) (Budget, error)
	Get(ctx context.Context, tenantID, id int64) (Budget, error)
	List(ctx context.Context, tenantID int64, limit, offset int) ([]Budget, int, error)
	Reserve(ctx context.Context, tenantID, budgetID int64, amount float64) (Budget, error)
	Release(ctx context.Context, tenantID, budgetID int64, amount float64) (Budget, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// NotifierPort delivers fire-and-forget domain events.
type NotifierPort interface {
	Notify(ctx context.Context, event string, payload map[string]any)
}

// Ledger exposes budget reservation operations.
type Ledger struct {
	repo     RepositoryPort
	audit    AuditPort
	notifier NotifierPort
}

// NewLedger constructs the ledger service.
func NewLedger(repo RepositoryPort, audit AuditPort, notifier NotifierPort) *Ledger {
	return &Ledger{repo: repo, audit: audit, notifier: notifier}
}

// CreateInput describes a new allocation.
type CreateInput struct {
	BranchID        int64
	DepartmentID    int64
	CategoryID      int64
	Name            string
	AmountAllocated float64
}

// Create persists a new budget allocation.
func (l *Ledger) Create(ctx context.Context, scope shared.Scope, input CreateInput) (Budget, error) {
	if err := scope.Validate(); err != nil {
		return Budget{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if input.Name == "" || input.AmountAllocated <= 0 {
		return Budget{}, fmt.Errorf("%w: name and positive allocation required", ErrValidation)
	}
	created, err := l.repo.Create(ctx, Budget{
		TenantID:        scope.TenantID,
		BranchID:        input.BranchID,
		DepartmentID:    input.DepartmentID,
		CategoryID:      input.CategoryID,
		Name:            input.Name,
		AmountAllocated: input.AmountAllocated,
	})
	if err != nil {
		return Budget{}, err
	}
	l.recordAudit(ctx, scope, "BUDGET_CREATE", created.ID, map[string]any{"name": created.Name, "allocated": created.AmountAllocated})
	return created, nil
}

// Get fetches a budget in the caller's tenant.
func (l *Ledger) Get(ctx context.Context, scope shared.Scope, id int64) (Budget, error) {
	if err := scope.Validate(); err != nil {
		return Budget{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return l.repo.Get(ctx, scope.TenantID, id)
}

// List returns tenant budgets.
func (l *Ledger) List(ctx context.Context, scope shared.Scope, limit, offset int) ([]Budget, int, error) {
	if err := scope.Validate(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if limit <= 0 {
		limit = 20
	}
	return l.repo.List(ctx, scope.TenantID, limit, offset)
}

// Reserve places a hold against the allocation. Fails with
// ErrInsufficientFunds when the remaining balance cannot cover the amount;
// a failed reservation never mutates state.
func (l *Ledger) Reserve(ctx context.Context, scope shared.Scope, budgetID int64, amount float64) (Budget, error) {
	if err := scope.Validate(); err != nil {
		return Budget{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if amount <= 0 {
		return Budget{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	b, err := l.repo.Reserve(ctx, scope.TenantID, budgetID, amount)
	if err != nil {
		return Budget{}, err
	}
	l.recordAudit(ctx, scope, "BUDGET_RESERVE", b.ID, map[string]any{"amount": amount, "reserved": b.AmountReserved})
	if l.notifier != nil {
		l.notifier.Notify(ctx, "budget.reserved", map[string]any{"budget_id": b.ID, "amount": amount, "balance": b.Balance})
	}
	return b, nil
}

// Release returns a previously reserved amount. reserve(a) then release(a)
// restores amount_reserved exactly.
func (l *Ledger) Release(ctx context.Context, scope shared.Scope, budgetID int64, amount float64) (Budget, error) {
	if err := scope.Validate(); err != nil {
		return Budget{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if amount <= 0 {
		return Budget{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	b, err := l.repo.Release(ctx, scope.TenantID, budgetID, amount)
	if err != nil {
		return Budget{}, err
	}
	l.recordAudit(ctx, scope, "BUDGET_RELEASE", b.ID, map[string]any{"amount": amount, "reserved": b.AmountReserved})
	if l.notifier != nil {
		l.notifier.Notify(ctx, "budget.released", map[string]any{"budget_id": b.ID, "amount": amount, "balance": b.Balance})
	}
	return b, nil
}

func (l *Ledger) recordAudit(ctx context.Context, scope shared.Scope, action string, entityID int64, meta map[string]any) {
	if l.audit == nil {
		return
	}
	_ = l.audit.Record(ctx, shared.AuditLog{
		TenantID: scope.TenantID,
		ActorID:  scope.ActorID,
		Action:   action,
		Entity:   "budget",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}
