package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/procureflow/procureflow/internal/budget"
	"github.com/procureflow/procureflow/internal/sequence"
	"github.com/procureflow/procureflow/internal/shared"
)

type memBudget struct {
	tenantID  int64
	allocated float64
	reserved  float64
}

// memoryRepo backs service tests. WithTx snapshots all state and restores it
// when the callback fails, mirroring transactional rollback.
type memoryRepo struct {
	mu           sync.Mutex
	requisitions map[int64]Requisition
	items        map[int64]LineItem
	orders       map[int64]PurchaseOrder
	counters     map[string]int64
	budgets      map[int64]memBudget
	nextID       int64
	deltaCalls   int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		requisitions: make(map[int64]Requisition),
		items:        make(map[int64]LineItem),
		orders:       make(map[int64]PurchaseOrder),
		counters:     make(map[string]int64),
		budgets:      make(map[int64]memBudget),
	}
}

type memoryTx struct {
	repo *memoryRepo
}

func (r *memoryRepo) snapshot() (map[int64]Requisition, map[int64]LineItem, map[int64]PurchaseOrder, map[string]int64, map[int64]memBudget, int64) {
	reqs := make(map[int64]Requisition, len(r.requisitions))
	for k, v := range r.requisitions {
		reqs[k] = v
	}
	items := make(map[int64]LineItem, len(r.items))
	for k, v := range r.items {
		items[k] = v
	}
	orders := make(map[int64]PurchaseOrder, len(r.orders))
	for k, v := range r.orders {
		orders[k] = v
	}
	counters := make(map[string]int64, len(r.counters))
	for k, v := range r.counters {
		counters[k] = v
	}
	budgets := make(map[int64]memBudget, len(r.budgets))
	for k, v := range r.budgets {
		budgets[k] = v
	}
	return reqs, items, orders, counters, budgets, r.nextID
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reqs, items, orders, counters, budgets, nextID := r.snapshot()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.requisitions, r.items, r.orders, r.counters, r.budgets, r.nextID = reqs, items, orders, counters, budgets, nextID
		return err
	}
	return nil
}

func (r *memoryRepo) GetRequisition(ctx context.Context, tenantID, id int64) (Requisition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getRequisition(tenantID, id)
}

func (r *memoryRepo) getRequisition(tenantID, id int64) (Requisition, error) {
	req, ok := r.requisitions[id]
	if !ok || req.TenantID != tenantID {
		return Requisition{}, ErrNotFound
	}
	return req, nil
}

func (r *memoryRepo) ListRequisitions(ctx context.Context, tenantID, actorID int64, filter ListFilter) ([]Requisition, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Requisition
	for _, req := range r.requisitions {
		if req.TenantID != tenantID {
			continue
		}
		if req.Status.Draft() && req.CreatedBy != actorID {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (r *memoryRepo) GetLineItems(ctx context.Context, tenantID, requisitionID int64) ([]LineItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []LineItem
	for _, item := range r.items {
		if item.TenantID == tenantID && item.RequisitionID == requisitionID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) UnassignedItemIDs(ctx context.Context, tenantID, requisitionID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unassignedItemIDs(tenantID, requisitionID), nil
}

func (r *memoryRepo) unassignedItemIDs(tenantID, requisitionID int64) []int64 {
	var ids []int64
	for _, item := range r.items {
		if item.TenantID == tenantID && item.RequisitionID == requisitionID && item.SupplierID == 0 {
			ids = append(ids, item.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *memoryRepo) GetOrder(ctx context.Context, tenantID, id int64) (PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.TenantID != tenantID {
		return PurchaseOrder{}, ErrNotFound
	}
	return o, nil
}

func (r *memoryRepo) ListOrders(ctx context.Context, tenantID, requisitionID int64) ([]PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PurchaseOrder
	for _, o := range r.orders {
		if o.TenantID != tenantID {
			continue
		}
		if requisitionID != 0 && o.RequisitionID != requisitionID {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) StatusSummary(ctx context.Context, tenantID int64) (map[Status]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary := make(map[Status]int)
	for _, req := range r.requisitions {
		if req.TenantID == tenantID {
			summary[req.Status]++
		}
	}
	return summary, nil
}

func (tx *memoryTx) NextSequence(ctx context.Context, tenantID int64, kind sequence.Kind) (int64, error) {
	key := fmt.Sprintf("%s:%d", kind, tenantID)
	tx.repo.counters[key]++
	return tx.repo.counters[key], nil
}

func (tx *memoryTx) CreateRequisition(ctx context.Context, req Requisition) (int64, error) {
	for _, existing := range tx.repo.requisitions {
		if existing.TenantID == req.TenantID && existing.Number == req.Number {
			return 0, ErrNumberCollision
		}
	}
	tx.repo.nextID++
	req.ID = tx.repo.nextID
	tx.repo.requisitions[req.ID] = req
	return req.ID, nil
}

func (tx *memoryTx) LockRequisition(ctx context.Context, tenantID, id int64) (Requisition, error) {
	return tx.repo.getRequisition(tenantID, id)
}

func (tx *memoryTx) UpdateStatus(ctx context.Context, u StatusUpdate) (Requisition, error) {
	req, ok := tx.repo.requisitions[u.ID]
	if !ok || req.TenantID != u.TenantID || req.Status != u.Expected {
		return Requisition{}, ErrConflict
	}
	req.Status = u.Next
	if u.ApprovedBy != nil {
		req.ApprovedBy = *u.ApprovedBy
	}
	if u.Justification != "" {
		req.Justification = u.Justification
	}
	tx.repo.requisitions[u.ID] = req
	return req, nil
}

func (tx *memoryTx) GetLineItem(ctx context.Context, tenantID, id int64) (LineItem, error) {
	item, ok := tx.repo.items[id]
	if !ok || item.TenantID != tenantID {
		return LineItem{}, ErrNotFound
	}
	return item, nil
}

func (tx *memoryTx) InsertLineItem(ctx context.Context, item LineItem) (int64, error) {
	for _, existing := range tx.repo.items {
		if existing.TenantID == item.TenantID && existing.RequisitionID == item.RequisitionID &&
			strings.EqualFold(existing.ItemName, item.ItemName) {
			return 0, ErrDuplicateItem
		}
	}
	tx.repo.nextID++
	item.ID = tx.repo.nextID
	tx.repo.items[item.ID] = item
	return item.ID, nil
}

func (tx *memoryTx) UpdateLineItem(ctx context.Context, item LineItem) error {
	existing, ok := tx.repo.items[item.ID]
	if !ok || existing.TenantID != item.TenantID {
		return ErrNotFound
	}
	tx.repo.items[item.ID] = item
	return nil
}

func (tx *memoryTx) DeleteLineItem(ctx context.Context, tenantID, id int64) error {
	item, ok := tx.repo.items[id]
	if !ok || item.TenantID != tenantID {
		return ErrNotFound
	}
	delete(tx.repo.items, id)
	return nil
}

func (tx *memoryTx) ApplyAggregateDelta(ctx context.Context, tenantID, requisitionID int64, delta AggregateDelta) error {
	tx.repo.deltaCalls++
	req, ok := tx.repo.requisitions[requisitionID]
	if !ok || req.TenantID != tenantID {
		return ErrNotFound
	}
	req.Quantity = max(0, req.Quantity+delta.Quantity)
	req.EstimatedCost = max(0, req.EstimatedCost+delta.Cost)
	req.TotalItems = int(max(0, float64(req.TotalItems+delta.Items)))
	tx.repo.requisitions[requisitionID] = req
	return nil
}

func (tx *memoryTx) UnassignedItemIDs(ctx context.Context, tenantID, requisitionID int64) ([]int64, error) {
	return tx.repo.unassignedItemIDs(tenantID, requisitionID), nil
}

func (tx *memoryTx) ReserveBudget(ctx context.Context, tenantID, budgetID int64, amount float64) error {
	b, ok := tx.repo.budgets[budgetID]
	if !ok || b.tenantID != tenantID {
		return budget.ErrNotFound
	}
	if b.reserved+amount > b.allocated {
		return budget.ErrInsufficientFunds
	}
	b.reserved += amount
	tx.repo.budgets[budgetID] = b
	return nil
}

func (tx *memoryTx) SplittableItems(ctx context.Context, tenantID, requisitionID int64) ([]LineItem, error) {
	var out []LineItem
	for _, item := range tx.repo.items {
		if item.TenantID == tenantID && item.RequisitionID == requisitionID &&
			item.SupplierID != 0 && item.OrderID == 0 {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tx *memoryTx) CreateOrder(ctx context.Context, o PurchaseOrder) (int64, error) {
	tx.repo.nextID++
	o.ID = tx.repo.nextID
	tx.repo.orders[o.ID] = o
	return o.ID, nil
}

func (tx *memoryTx) LinkItemsToOrder(ctx context.Context, tenantID, orderID int64, itemIDs []int64) (int64, error) {
	var linked int64
	for _, id := range itemIDs {
		item, ok := tx.repo.items[id]
		if !ok || item.TenantID != tenantID || item.OrderID != 0 {
			continue
		}
		item.OrderID = orderID
		item.Status = LineItemOrdered
		if item.POQuantity == 0 {
			item.POQuantity = item.PRQuantity
		}
		tx.repo.items[id] = item
		linked++
	}
	return linked, nil
}

func newTestService(repo *memoryRepo) *Service {
	return NewService(repo, nil, nil, nil, nil, slog.Default())
}

var testScope = shared.Scope{TenantID: 1, ActorID: 7}

func createPending(t *testing.T, svc *Service, items []LineItemInput) Requisition {
	t.Helper()
	ctx := context.Background()
	created, _, err := svc.Create(ctx, testScope, CreateInput{Department: "IT", Items: items})
	require.NoError(t, err)
	submitted, err := svc.Submit(ctx, testScope, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, submitted.Status)
	return submitted
}

func TestCreateComputesAggregates(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	created, items, err := svc.Create(context.Background(), testScope, CreateInput{
		Department: "IT",
		Items: []LineItemInput{
			{ItemName: "Laptop", UnitPrice: 100, PRQuantity: 2},
			{ItemName: "Dock", UnitPrice: 50, PRQuantity: 1},
		},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, StatusInitialized, created.Status)
	require.Equal(t, 3.0, created.Quantity)
	require.Equal(t, 250.0, created.EstimatedCost)
	require.Equal(t, 2, created.TotalItems)
	require.True(t, strings.HasPrefix(created.Number, "REQ-"+sequence.TenantHash(1)+"-"))
	require.True(t, strings.HasSuffix(created.Number, "-0001"))
}

func TestCreateRejectsDuplicateItemNames(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	_, _, err := svc.Create(context.Background(), testScope, CreateInput{
		Items: []LineItemInput{
			{ItemName: "Laptop", UnitPrice: 100, PRQuantity: 1},
			{ItemName: "laptop", UnitPrice: 90, PRQuantity: 1},
		},
	})
	require.ErrorIs(t, err, ErrDuplicateItem)
}

func TestRequisitionNumbersAreSequentialPerTenant(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()
	first, _, err := svc.Create(ctx, testScope, CreateInput{})
	require.NoError(t, err)
	second, _, err := svc.Create(ctx, testScope, CreateInput{})
	require.NoError(t, err)
	other, _, err := svc.Create(ctx, shared.Scope{TenantID: 2, ActorID: 7}, CreateInput{})
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(first.Number, "-0001"))
	require.True(t, strings.HasSuffix(second.Number, "-0002"))
	// A second tenant starts its own counter.
	require.True(t, strings.HasSuffix(other.Number, "-0001"))
}

func TestItemMutationsMaintainAggregates(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	created, _, err := svc.Create(ctx, testScope, CreateInput{
		Items: []LineItemInput{{ItemName: "Laptop", UnitPrice: 100, PRQuantity: 2}},
	})
	require.NoError(t, err)

	added, err := svc.AddItem(ctx, testScope, created.ID, LineItemInput{ItemName: "Dock", UnitPrice: 50, PRQuantity: 1})
	require.NoError(t, err)
	req, _, err := svc.Get(ctx, testScope, created.ID)
	require.NoError(t, err)
	require.Equal(t, 3.0, req.Quantity)
	require.Equal(t, 250.0, req.EstimatedCost)
	require.Equal(t, 2, req.TotalItems)

	newPrice := 80.0
	newQty := 3.0
	_, err = svc.UpdateItem(ctx, testScope, created.ID, added.ID, UpdateItemInput{UnitPrice: &newPrice, PRQuantity: &newQty})
	require.NoError(t, err)
	req, _, err = svc.Get(ctx, testScope, created.ID)
	require.NoError(t, err)
	require.Equal(t, 5.0, req.Quantity)
	require.Equal(t, 440.0, req.EstimatedCost)
	require.Equal(t, 2, req.TotalItems)

	require.NoError(t, svc.RemoveItem(ctx, testScope, created.ID, added.ID))
	req, _, err = svc.Get(ctx, testScope, created.ID)
	require.NoError(t, err)
	require.Equal(t, 2.0, req.Quantity)
	require.Equal(t, 200.0, req.EstimatedCost)
	require.Equal(t, 1, req.TotalItems)
}

func TestStatusOnlyItemUpdateLeavesAggregatesAlone(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	created, items, err := svc.Create(ctx, testScope, CreateInput{
		Items: []LineItemInput{{ItemName: "Laptop", UnitPrice: 100, PRQuantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, LineItemPending, items[0].Status)
	callsBefore := repo.deltaCalls

	status := LineItemOrdered
	updated, err := svc.UpdateItem(ctx, testScope, created.ID, items[0].ID, UpdateItemInput{Status: &status})
	require.NoError(t, err)
	require.Equal(t, LineItemOrdered, updated.Status)

	req, _, err := svc.Get(ctx, testScope, created.ID)
	require.NoError(t, err)
	require.Equal(t, 2.0, req.Quantity)
	require.Equal(t, 200.0, req.EstimatedCost)
	require.Equal(t, 1, req.TotalItems)
	// The zero delta never reaches the store.
	require.Equal(t, callsBefore, repo.deltaCalls)

	bogus := LineItemStatus("SHIPPED")
	_, err = svc.UpdateItem(ctx, testScope, created.ID, items[0].ID, UpdateItemInput{Status: &bogus})
	require.ErrorIs(t, err, ErrValidation)
}

func TestLifecycleHappyPath(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	created, _, err := svc.Create(ctx, testScope, CreateInput{
		Items: []LineItemInput{{ItemName: "Laptop", UnitPrice: 100, PRQuantity: 1, SupplierID: 11}},
	})
	require.NoError(t, err)

	saved, err := svc.SaveForLater(ctx, testScope, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSavedForLater, saved.Status)

	pending, err := svc.Submit(ctx, testScope, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, pending.Status)

	review, err := svc.SubmitForReview(ctx, testScope, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusManagerReview, review.Status)

	endorsed, err := svc.Decide(ctx, testScope, created.ID, ActionEndorse, DecideInput{})
	require.NoError(t, err)
	require.Equal(t, StatusPending, endorsed.Status)

	returned, err := svc.Decide(ctx, testScope, created.ID, ActionRequestModification, DecideInput{Justification: "split the order"})
	require.NoError(t, err)
	require.Equal(t, StatusRequestModification, returned.Status)
	require.Equal(t, "split the order", returned.Justification)

	pending, err = svc.Submit(ctx, testScope, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, pending.Status)

	reviewer := shared.Scope{TenantID: 1, ActorID: 42}
	approved, err := svc.Decide(ctx, reviewer, created.ID, ActionApprove, DecideInput{})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.Equal(t, int64(42), approved.ApprovedBy)

	// Terminal states admit no further decisions.
	_, err = svc.Decide(ctx, reviewer, created.ID, ActionReject, DecideInput{})
	require.ErrorIs(t, err, ErrConflict)
	_, err = svc.Submit(ctx, testScope, created.ID)
	require.ErrorIs(t, err, ErrConflict)
}

func TestApproveRequiresPendingStatus(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()
	created, _, err := svc.Create(ctx, testScope, CreateInput{})
	require.NoError(t, err)
	_, err = svc.Decide(ctx, testScope, created.ID, ActionApprove, DecideInput{})
	require.ErrorIs(t, err, ErrConflict)
}

func TestSubmitForReviewListsUnassignedItems(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()
	created, items, err := svc.Create(ctx, testScope, CreateInput{
		Items: []LineItemInput{
			{ItemName: "Laptop", UnitPrice: 100, PRQuantity: 1, SupplierID: 11},
			{ItemName: "Dock", UnitPrice: 50, PRQuantity: 1},
		},
	})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, testScope, created.ID)
	require.NoError(t, err)

	_, err = svc.SubmitForReview(ctx, testScope, created.ID)
	var missing *MissingSupplierError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, []int64{items[1].ID}, missing.ItemIDs)
	require.ErrorIs(t, err, ErrConflict)
}

func TestApproveReservesBudgetAtomically(t *testing.T) {
	repo := newMemoryRepo()
	repo.budgets[9] = memBudget{tenantID: 1, allocated: 300}
	svc := newTestService(repo)
	ctx := context.Background()
	req := createPending(t, svc, []LineItemInput{{ItemName: "Laptop", UnitPrice: 100, PRQuantity: 2, SupplierID: 11}})

	approved, err := svc.Decide(ctx, testScope, req.ID, ActionApprove, DecideInput{BudgetID: 9})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.Equal(t, 200.0, repo.budgets[9].reserved)
}

func TestApproveFailsClosedOnInsufficientFunds(t *testing.T) {
	repo := newMemoryRepo()
	repo.budgets[9] = memBudget{tenantID: 1, allocated: 100}
	svc := newTestService(repo)
	ctx := context.Background()
	req := createPending(t, svc, []LineItemInput{{ItemName: "Laptop", UnitPrice: 100, PRQuantity: 2, SupplierID: 11}})

	_, err := svc.Decide(ctx, testScope, req.ID, ActionApprove, DecideInput{BudgetID: 9})
	require.ErrorIs(t, err, budget.ErrInsufficientFunds)

	// The failed reservation rolled the status flip back with it.
	current, _, err := svc.Get(ctx, testScope, req.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, current.Status)
	require.Equal(t, 0.0, repo.budgets[9].reserved)
}

func TestApproveRejectsUnknownBudget(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	req := createPending(t, svc, []LineItemInput{{ItemName: "Laptop", UnitPrice: 100, PRQuantity: 1, SupplierID: 11}})
	_, err := svc.Decide(context.Background(), testScope, req.ID, ActionApprove, DecideInput{BudgetID: 404})
	require.ErrorIs(t, err, budget.ErrNotFound)
}

func TestConcurrentDecidesHaveOneWinner(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	req := createPending(t, svc, []LineItemInput{{ItemName: "Laptop", UnitPrice: 100, PRQuantity: 1, SupplierID: 11}})

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		action := ActionApprove
		if i%2 == 1 {
			action = ActionReject
		}
		go func(a Action) {
			defer wg.Done()
			_, err := svc.Decide(context.Background(), testScope, req.ID, a, DecideInput{})
			errs <- err
		}(action)
	}
	wg.Wait()
	close(errs)

	var wins, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, ErrConflict)
			conflicts++
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, attempts-1, conflicts)

	current, _, err := svc.Get(context.Background(), testScope, req.ID)
	require.NoError(t, err)
	require.True(t, current.Status.Terminal())
}

func TestCrossTenantLooksAbsent(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()
	created, _, err := svc.Create(ctx, testScope, CreateInput{})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, testScope, created.ID)
	require.NoError(t, err)

	foreign := shared.Scope{TenantID: 2, ActorID: 7}
	_, _, err = svc.Get(ctx, foreign, created.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Decide(ctx, foreign, created.ID, ActionApprove, DecideInput{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDraftsHiddenFromOtherActors(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()
	created, _, err := svc.Create(ctx, testScope, CreateInput{})
	require.NoError(t, err)

	colleague := shared.Scope{TenantID: 1, ActorID: 8}
	_, _, err = svc.Get(ctx, colleague, created.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Submit(ctx, colleague, created.ID)
	require.ErrorIs(t, err, ErrNotFound)

	listed, _, err := svc.List(ctx, colleague, ListFilter{})
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestItemMutationRejectedOnTerminalRequisition(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()
	req := createPending(t, svc, []LineItemInput{{ItemName: "Laptop", UnitPrice: 100, PRQuantity: 1, SupplierID: 11}})
	_, err := svc.Decide(ctx, testScope, req.ID, ActionReject, DecideInput{})
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, testScope, req.ID, LineItemInput{ItemName: "Dock", UnitPrice: 50, PRQuantity: 1})
	require.ErrorIs(t, err, ErrConflict)
}
