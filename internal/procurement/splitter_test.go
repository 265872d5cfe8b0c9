package procurement

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/procureflow/procureflow/internal/sequence"
)

func TestApproveAndCreateOrdersSplitsPerSupplier(t *testing.T) {
	repo := newMemoryRepo()
	repo.budgets[9] = memBudget{tenantID: 1, allocated: 300}
	svc := newTestService(repo)
	ctx := context.Background()
	req := createPending(t, svc, []LineItemInput{
		{ItemName: "Laptop", UnitPrice: 100, PRQuantity: 2, SupplierID: 1},
		{ItemName: "Dock", UnitPrice: 50, PRQuantity: 1, SupplierID: 2},
	})

	approved, err := svc.Decide(ctx, testScope, req.ID, ActionApproveAndCreatePO, DecideInput{BudgetID: 9})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.Equal(t, 250.0, repo.budgets[9].reserved)

	// No enqueuer configured, so the split ran inline.
	orders, err := svc.ListOrders(ctx, testScope, req.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, int64(1), orders[0].SupplierID)
	require.Equal(t, 200.0, orders[0].TotalAmount)
	require.Equal(t, int64(2), orders[1].SupplierID)
	require.Equal(t, 50.0, orders[1].TotalAmount)
	require.True(t, strings.HasPrefix(orders[0].Number, "PO-"+sequence.TenantHash(1)+"-"))
	require.True(t, strings.HasSuffix(orders[0].Number, "-0001"))
	require.True(t, strings.HasSuffix(orders[1].Number, "-0002"))

	// Every line is linked to the order of its supplier.
	_, items, err := svc.Get(ctx, testScope, req.ID)
	require.NoError(t, err)
	for _, item := range items {
		require.NotZero(t, item.OrderID)
		require.Equal(t, LineItemOrdered, item.Status)
		switch item.SupplierID {
		case 1:
			require.Equal(t, orders[0].ID, item.OrderID)
		case 2:
			require.Equal(t, orders[1].ID, item.OrderID)
		}
	}
}

func TestCreateOrdersRequiresApprovedStatus(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	req := createPending(t, svc, []LineItemInput{
		{ItemName: "Laptop", UnitPrice: 100, PRQuantity: 1, SupplierID: 1},
	})

	_, err := svc.CreateOrders(context.Background(), testScope, req.ID)
	require.ErrorIs(t, err, ErrConflict)
}

func TestCreateOrdersIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	req := createPending(t, svc, []LineItemInput{
		{ItemName: "Laptop", UnitPrice: 100, PRQuantity: 1, SupplierID: 1},
	})
	_, err := svc.Decide(ctx, testScope, req.ID, ActionApprove, DecideInput{})
	require.NoError(t, err)

	first, err := svc.CreateOrders(ctx, testScope, req.ID)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A redelivered split finds no unlinked lines and creates nothing.
	second, err := svc.CreateOrders(ctx, testScope, req.ID)
	require.NoError(t, err)
	require.Empty(t, second)

	orders, err := svc.ListOrders(ctx, testScope, req.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
}

func TestCreateOrdersGroupsLinesOfSameSupplier(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	req := createPending(t, svc, []LineItemInput{
		{ItemName: "Laptop", UnitPrice: 100, PRQuantity: 2, SupplierID: 1},
		{ItemName: "Mouse", UnitPrice: 10, PRQuantity: 3, SupplierID: 1},
		{ItemName: "Desk", UnitPrice: 200, PRQuantity: 1, SupplierID: 2},
	})
	_, err := svc.Decide(ctx, testScope, req.ID, ActionApprove, DecideInput{})
	require.NoError(t, err)

	orders, err := svc.CreateOrders(ctx, testScope, req.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, 230.0, orders[0].SubTotal)
	require.Equal(t, 200.0, orders[1].SubTotal)
}

func TestSplitRetryProcessesOnlyUnlinkedLines(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	req := createPending(t, svc, []LineItemInput{
		{ItemName: "Laptop", UnitPrice: 100, PRQuantity: 1, SupplierID: 1},
		{ItemName: "Dock", UnitPrice: 50, PRQuantity: 1, SupplierID: 2},
	})
	_, err := svc.Decide(ctx, testScope, req.ID, ActionApprove, DecideInput{})
	require.NoError(t, err)

	// Simulate a crash after the first supplier's order committed: the
	// supplier 1 line is already linked when the split is redelivered.
	for id, item := range repo.items {
		if item.SupplierID == 1 {
			item.OrderID = 999
			repo.items[id] = item
		}
	}

	orders, err := svc.CreateOrders(ctx, testScope, req.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, int64(2), orders[0].SupplierID)
	require.Equal(t, 50.0, orders[0].TotalAmount)
}
