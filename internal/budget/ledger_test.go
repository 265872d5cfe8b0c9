package budget

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/procureflow/procureflow/internal/shared"
)

type memoryBudgetRepo struct {
	mu      sync.Mutex
	budgets map[int64]Budget
	nextID  int64
}

func newMemoryBudgetRepo() *memoryBudgetRepo {
	return &memoryBudgetRepo{budgets: make(map[int64]Budget)}
}

func (r *memoryBudgetRepo) Create(ctx context.Context, b Budget) (Budget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	b.ID = r.nextID
	b.Balance = b.AmountAllocated
	r.budgets[b.ID] = b
	return b, nil
}

func (r *memoryBudgetRepo) Get(ctx context.Context, tenantID, id int64) (Budget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.budgets[id]
	if !ok || b.TenantID != tenantID {
		return Budget{}, ErrNotFound
	}
	return b, nil
}

func (r *memoryBudgetRepo) List(ctx context.Context, tenantID int64, limit, offset int) ([]Budget, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var budgets []Budget
	for _, b := range r.budgets {
		if b.TenantID == tenantID {
			budgets = append(budgets, b)
		}
	}
	return budgets, len(budgets), nil
}

func (r *memoryBudgetRepo) Reserve(ctx context.Context, tenantID, budgetID int64, amount float64) (Budget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.budgets[budgetID]
	if !ok || b.TenantID != tenantID {
		return Budget{}, ErrNotFound
	}
	if b.AmountReserved+amount > b.AmountAllocated {
		return Budget{}, ErrInsufficientFunds
	}
	b.AmountReserved += amount
	b.Balance = b.AmountAllocated - b.AmountReserved
	r.budgets[budgetID] = b
	return b, nil
}

func (r *memoryBudgetRepo) Release(ctx context.Context, tenantID, budgetID int64, amount float64) (Budget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.budgets[budgetID]
	if !ok || b.TenantID != tenantID {
		return Budget{}, ErrNotFound
	}
	if amount > b.AmountReserved {
		return Budget{}, ErrExcessRelease
	}
	b.AmountReserved -= amount
	b.Balance = b.AmountAllocated - b.AmountReserved
	r.budgets[budgetID] = b
	return b, nil
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	repo := newMemoryBudgetRepo()
	ledger := NewLedger(repo, nil, nil)
	ctx := context.Background()
	scope := shared.Scope{TenantID: 1, ActorID: 9}

	created, err := ledger.Create(ctx, scope, CreateInput{Name: "Operations", AmountAllocated: 1000})
	require.NoError(t, err)
	require.Equal(t, 1000.0, created.Balance)

	reserved, err := ledger.Reserve(ctx, scope, created.ID, 250)
	require.NoError(t, err)
	require.Equal(t, 250.0, reserved.AmountReserved)
	require.Equal(t, 750.0, reserved.Balance)

	released, err := ledger.Release(ctx, scope, created.ID, 250)
	require.NoError(t, err)
	require.Equal(t, 0.0, released.AmountReserved)
	require.Equal(t, 1000.0, released.Balance)
}

func TestReserveBeyondBalanceFailsWithoutMutation(t *testing.T) {
	repo := newMemoryBudgetRepo()
	ledger := NewLedger(repo, nil, nil)
	ctx := context.Background()
	scope := shared.Scope{TenantID: 1, ActorID: 9}

	created, err := ledger.Create(ctx, scope, CreateInput{Name: "Capex", AmountAllocated: 100})
	require.NoError(t, err)

	_, err = ledger.Reserve(ctx, scope, created.ID, 150)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	after, err := ledger.Get(ctx, scope, created.ID)
	require.NoError(t, err)
	require.Equal(t, 0.0, after.AmountReserved)
	require.Equal(t, 100.0, after.Balance)
}

func TestReleaseBeyondReservedFails(t *testing.T) {
	repo := newMemoryBudgetRepo()
	ledger := NewLedger(repo, nil, nil)
	ctx := context.Background()
	scope := shared.Scope{TenantID: 1, ActorID: 9}

	created, err := ledger.Create(ctx, scope, CreateInput{Name: "Travel", AmountAllocated: 500})
	require.NoError(t, err)

	_, err = ledger.Reserve(ctx, scope, created.ID, 100)
	require.NoError(t, err)

	_, err = ledger.Release(ctx, scope, created.ID, 200)
	require.ErrorIs(t, err, ErrExcessRelease)
}

func TestCrossTenantLooksAbsent(t *testing.T) {
	repo := newMemoryBudgetRepo()
	ledger := NewLedger(repo, nil, nil)
	ctx := context.Background()

	created, err := ledger.Create(ctx, shared.Scope{TenantID: 1, ActorID: 9}, CreateInput{Name: "IT", AmountAllocated: 100})
	require.NoError(t, err)

	_, err = ledger.Get(ctx, shared.Scope{TenantID: 2, ActorID: 9}, created.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = ledger.Reserve(ctx, shared.Scope{TenantID: 2, ActorID: 9}, created.ID, 10)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentReservesNeverOvercommit(t *testing.T) {
	repo := newMemoryBudgetRepo()
	ledger := NewLedger(repo, nil, nil)
	ctx := context.Background()
	scope := shared.Scope{TenantID: 1, ActorID: 9}

	created, err := ledger.Create(ctx, scope, CreateInput{Name: "Shared", AmountAllocated: 100})
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	var okCount int64
	var mu sync.Mutex
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Reserve(ctx, scope, created.ID, 10); err == nil {
				mu.Lock()
				okCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 10, okCount)
	after, err := ledger.Get(ctx, scope, created.ID)
	require.NoError(t, err)
	require.Equal(t, 100.0, after.AmountReserved)
	require.Equal(t, 0.0, after.Balance)
}
