package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/procureflow/procureflow/internal/sequence"
	"github.com/procureflow/procureflow/internal/shared"
	"github.com/procureflow/procureflow/internal/supplier"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetRequisition(ctx context.Context, tenantID, id int64) (Requisition, error)
	ListRequisitions(ctx context.Context, tenantID, actorID int64, filter ListFilter) ([]Requisition, int, error)
	GetLineItems(ctx context.Context, tenantID, requisitionID int64) ([]LineItem, error)
	UnassignedItemIDs(ctx context.Context, tenantID, requisitionID int64) ([]int64, error)
	GetOrder(ctx context.Context, tenantID, id int64) (PurchaseOrder, error)
	ListOrders(ctx context.Context, tenantID, requisitionID int64) ([]PurchaseOrder, error)
	StatusSummary(ctx context.Context, tenantID int64) (map[Status]int, error)
}

// TxRepository exposes the operations that must share one transaction.
type TxRepository interface {
	NextSequence(ctx context.Context, tenantID int64, kind sequence.Kind) (int64, error)
	CreateRequisition(ctx context.Context, r Requisition) (int64, error)
	LockRequisition(ctx context.Context, tenantID, id int64) (Requisition, error)
	UpdateStatus(ctx context.Context, u StatusUpdate) (Requisition, error)
	GetLineItem(ctx context.Context, tenantID, id int64) (LineItem, error)
	InsertLineItem(ctx context.Context, item LineItem) (int64, error)
	UpdateLineItem(ctx context.Context, item LineItem) error
	DeleteLineItem(ctx context.Context, tenantID, id int64) error
	ApplyAggregateDelta(ctx context.Context, tenantID, requisitionID int64, delta AggregateDelta) error
	UnassignedItemIDs(ctx context.Context, tenantID, requisitionID int64) ([]int64, error)
	ReserveBudget(ctx context.Context, tenantID, budgetID int64, amount float64) error
	SplittableItems(ctx context.Context, tenantID, requisitionID int64) ([]LineItem, error)
	CreateOrder(ctx context.Context, o PurchaseOrder) (int64, error)
	LinkItemsToOrder(ctx context.Context, tenantID, orderID int64, itemIDs []int64) (int64, error)
}

// StatusUpdate is a guarded status flip: the UPDATE matches only when the row
// still carries Expected, so exactly one concurrent caller wins.
type StatusUpdate struct {
	TenantID      int64
	ID            int64
	Expected      Status
	Next          Status
	ApprovedBy    *int64
	Justification string
}

// AggregateDelta carries relative increments for the requisition aggregates.
type AggregateDelta struct {
	Quantity float64
	Cost     float64
	Items    int
}

func (d AggregateDelta) zero() bool {
	return d.Quantity == 0 && d.Cost == 0 && d.Items == 0
}

// ListFilter narrows requisition listings.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

// SupplierPort resolves suppliers for line-item assignment validation.
type SupplierPort interface {
	FindByID(ctx context.Context, scope shared.Scope, id int64) (supplier.Supplier, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ApprovalsPort records the approval trail.
type ApprovalsPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
	EnsureSubmit(ctx context.Context, tenantID int64, module string, ref int64, actorID int64, note string) error
}

// NotifierPort publishes domain events, best effort.
type NotifierPort interface {
	Notify(ctx context.Context, event string, payload map[string]any)
}

// SplitEnqueuer hands order creation to the background worker.
type SplitEnqueuer interface {
	EnqueueSplit(ctx context.Context, scope shared.Scope, requisitionID int64) error
}

const approvalModule = "procurement"

// Service orchestrates the requisition lifecycle.
type Service struct {
	repo        RepositoryPort
	suppliers   SupplierPort
	approvals   ApprovalsPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	notifier    NotifierPort
	enqueuer    SplitEnqueuer
	logger      *slog.Logger
}

// NewService constructs the procurement service.
func NewService(repo RepositoryPort, suppliers SupplierPort, approvals ApprovalsPort, audit AuditPort, idem *shared.IdempotencyStore, logger *slog.Logger) *Service {
	return &Service{repo: repo, suppliers: suppliers, approvals: approvals, audit: audit, idempotency: idem, logger: logger}
}

// SetNotifier wires the event publisher. Optional.
func (s *Service) SetNotifier(n NotifierPort) { s.notifier = n }

// SetSplitEnqueuer wires the background splitter. When absent the split runs
// inline, still best effort relative to the decision.
func (s *Service) SetSplitEnqueuer(e SplitEnqueuer) { s.enqueuer = e }

// LineItemInput describes a requisition line on create or add.
type LineItemInput struct {
	ItemName   string
	UnitPrice  float64
	PRQuantity float64
	SupplierID int64
}

// CreateInput describes a new requisition.
type CreateInput struct {
	Department    string
	Branch        string
	NeededByDate  time.Time
	Justification string
	Items         []LineItemInput
}

func validateItemInput(in LineItemInput) error {
	if strings.TrimSpace(in.ItemName) == "" {
		return fmt.Errorf("%w: item name required", ErrValidation)
	}
	if in.PRQuantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if in.UnitPrice < 0 {
		return fmt.Errorf("%w: unit price cannot be negative", ErrValidation)
	}
	return nil
}

// Create persists a requisition header and any initial lines. The document
// number comes from the tenant counter inside the same transaction as the
// insert, so a rolled-back create never burns a visible gap... it does burn
// the counter value, which is acceptable: numbers are unique, not dense.
func (s *Service) Create(ctx context.Context, scope shared.Scope, input CreateInput) (Requisition, []LineItem, error) {
	if err := scope.Validate(); err != nil {
		return Requisition{}, nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	seen := make(map[string]struct{}, len(input.Items))
	for _, item := range input.Items {
		if err := validateItemInput(item); err != nil {
			return Requisition{}, nil, err
		}
		key := strings.ToLower(strings.TrimSpace(item.ItemName))
		if _, dup := seen[key]; dup {
			return Requisition{}, nil, fmt.Errorf("%w: %q", ErrDuplicateItem, item.ItemName)
		}
		seen[key] = struct{}{}
	}
	created, items, err := s.createOnce(ctx, scope, input)
	if errors.Is(err, ErrNumberCollision) {
		s.logger.Warn("requisition number collision, retrying", slog.Int64("tenant", scope.TenantID))
		created, items, err = s.createOnce(ctx, scope, input)
	}
	if err != nil {
		return Requisition{}, nil, err
	}
	s.recordAudit(ctx, scope, "REQUISITION_CREATE", created.ID, map[string]any{
		"number": created.Number,
		"items":  len(items),
	})
	return created, items, nil
}

func (s *Service) createOnce(ctx context.Context, scope shared.Scope, input CreateInput) (Requisition, []LineItem, error) {
	var created Requisition
	var items []LineItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		seq, err := tx.NextSequence(ctx, scope.TenantID, sequence.KindRequisition)
		if err != nil {
			return err
		}
		req := Requisition{
			TenantID:      scope.TenantID,
			Number:        sequence.Format(sequence.KindRequisition, scope.TenantID, time.Now(), seq),
			Status:        StatusInitialized,
			Department:    input.Department,
			Branch:        input.Branch,
			NeededByDate:  input.NeededByDate,
			CreatedBy:     scope.ActorID,
			Justification: input.Justification,
		}
		id, err := tx.CreateRequisition(ctx, req)
		if err != nil {
			return err
		}
		req.ID = id
		var delta AggregateDelta
		items = items[:0]
		for _, in := range input.Items {
			line := LineItem{
				TenantID:      scope.TenantID,
				RequisitionID: id,
				SupplierID:    in.SupplierID,
				ItemName:      strings.TrimSpace(in.ItemName),
				UnitPrice:     in.UnitPrice,
				PRQuantity:    in.PRQuantity,
				Status:        LineItemPending,
			}
			lineID, err := tx.InsertLineItem(ctx, line)
			if err != nil {
				return err
			}
			line.ID = lineID
			items = append(items, line)
			delta.Quantity += line.PRQuantity
			delta.Cost += line.Contribution()
			delta.Items++
		}
		if !delta.zero() {
			if err := tx.ApplyAggregateDelta(ctx, scope.TenantID, id, delta); err != nil {
				return err
			}
			req.Quantity = delta.Quantity
			req.EstimatedCost = delta.Cost
			req.TotalItems = delta.Items
		}
		created = req
		return nil
	})
	if err != nil {
		return Requisition{}, nil, err
	}
	return created, items, nil
}

// Get fetches a requisition with its lines. Drafts are visible only to their
// creator; anyone else sees not-found, same as a cross-tenant probe.
func (s *Service) Get(ctx context.Context, scope shared.Scope, id int64) (Requisition, []LineItem, error) {
	if err := scope.Validate(); err != nil {
		return Requisition{}, nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	req, err := s.repo.GetRequisition(ctx, scope.TenantID, id)
	if err != nil {
		return Requisition{}, nil, err
	}
	if req.Status.Draft() && req.CreatedBy != scope.ActorID {
		return Requisition{}, nil, ErrNotFound
	}
	items, err := s.repo.GetLineItems(ctx, scope.TenantID, id)
	if err != nil {
		return Requisition{}, nil, err
	}
	return req, items, nil
}

// List returns tenant requisitions, hiding other actors' drafts.
func (s *Service) List(ctx context.Context, scope shared.Scope, filter ListFilter) ([]Requisition, int, error) {
	if err := scope.Validate(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	return s.repo.ListRequisitions(ctx, scope.TenantID, scope.ActorID, filter)
}

// AddItem appends a line to a non-terminal requisition and bumps the header
// aggregates in the same transaction.
func (s *Service) AddItem(ctx context.Context, scope shared.Scope, requisitionID int64, input LineItemInput) (LineItem, error) {
	if err := scope.Validate(); err != nil {
		return LineItem{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := validateItemInput(input); err != nil {
		return LineItem{}, err
	}
	if input.SupplierID != 0 {
		if err := s.checkSupplier(ctx, scope, input.SupplierID); err != nil {
			return LineItem{}, err
		}
	}
	var created LineItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, err := tx.LockRequisition(ctx, scope.TenantID, requisitionID)
		if err != nil {
			return err
		}
		if req.Status.Terminal() {
			return fmt.Errorf("%w: requisition %s is %s", ErrConflict, req.Number, req.Status)
		}
		line := LineItem{
			TenantID:      scope.TenantID,
			RequisitionID: requisitionID,
			SupplierID:    input.SupplierID,
			ItemName:      strings.TrimSpace(input.ItemName),
			UnitPrice:     input.UnitPrice,
			PRQuantity:    input.PRQuantity,
			Status:        LineItemPending,
		}
		id, err := tx.InsertLineItem(ctx, line)
		if err != nil {
			return err
		}
		line.ID = id
		created = line
		return tx.ApplyAggregateDelta(ctx, scope.TenantID, requisitionID, AggregateDelta{
			Quantity: line.PRQuantity,
			Cost:     line.Contribution(),
			Items:    1,
		})
	})
	if err != nil {
		return LineItem{}, err
	}
	s.recordAudit(ctx, scope, "REQUISITION_ITEM_ADD", requisitionID, map[string]any{"item_id": created.ID, "name": created.ItemName})
	return created, nil
}

// UpdateItemInput carries the mutable line fields; nil means unchanged.
type UpdateItemInput struct {
	UnitPrice  *float64
	PRQuantity *float64
	POQuantity *float64
	SupplierID *int64
	Status     *LineItemStatus
}

// UpdateItem mutates a line. Header aggregates move by the difference between
// the new and old contribution, never by recomputation from scratch.
func (s *Service) UpdateItem(ctx context.Context, scope shared.Scope, requisitionID, itemID int64, input UpdateItemInput) (LineItem, error) {
	if err := scope.Validate(); err != nil {
		return LineItem{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if input.UnitPrice != nil && *input.UnitPrice < 0 {
		return LineItem{}, fmt.Errorf("%w: unit price cannot be negative", ErrValidation)
	}
	if input.PRQuantity != nil && *input.PRQuantity <= 0 {
		return LineItem{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if input.POQuantity != nil && *input.POQuantity < 0 {
		return LineItem{}, fmt.Errorf("%w: purchase quantity cannot be negative", ErrValidation)
	}
	if input.Status != nil && !input.Status.Valid() {
		return LineItem{}, fmt.Errorf("%w: unknown line status %q", ErrValidation, *input.Status)
	}
	if input.SupplierID != nil && *input.SupplierID != 0 {
		if err := s.checkSupplier(ctx, scope, *input.SupplierID); err != nil {
			return LineItem{}, err
		}
	}
	var updated LineItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, err := tx.LockRequisition(ctx, scope.TenantID, requisitionID)
		if err != nil {
			return err
		}
		if req.Status.Terminal() {
			return fmt.Errorf("%w: requisition %s is %s", ErrConflict, req.Number, req.Status)
		}
		old, err := tx.GetLineItem(ctx, scope.TenantID, itemID)
		if err != nil {
			return err
		}
		if old.RequisitionID != requisitionID {
			return ErrNotFound
		}
		next := old
		if input.UnitPrice != nil {
			next.UnitPrice = *input.UnitPrice
		}
		if input.PRQuantity != nil {
			next.PRQuantity = *input.PRQuantity
		}
		if input.POQuantity != nil {
			next.POQuantity = *input.POQuantity
		}
		if input.SupplierID != nil {
			next.SupplierID = *input.SupplierID
		}
		if input.Status != nil {
			next.Status = *input.Status
		}
		if err := tx.UpdateLineItem(ctx, next); err != nil {
			return err
		}
		// Status never enters the contribution, so a status-only update
		// yields a zero delta and skips the aggregate statement.
		delta := AggregateDelta{
			Quantity: next.PRQuantity - old.PRQuantity,
			Cost:     next.Contribution() - old.Contribution(),
		}
		if !delta.zero() {
			if err := tx.ApplyAggregateDelta(ctx, scope.TenantID, requisitionID, delta); err != nil {
				return err
			}
		}
		updated = next
		return nil
	})
	if err != nil {
		return LineItem{}, err
	}
	s.recordAudit(ctx, scope, "REQUISITION_ITEM_UPDATE", requisitionID, map[string]any{"item_id": itemID})
	return updated, nil
}

// AssignSupplier binds a line to a supplier from the tenant directory.
func (s *Service) AssignSupplier(ctx context.Context, scope shared.Scope, requisitionID, itemID, supplierID int64) (LineItem, error) {
	if supplierID == 0 {
		return LineItem{}, fmt.Errorf("%w: supplier required", ErrValidation)
	}
	return s.UpdateItem(ctx, scope, requisitionID, itemID, UpdateItemInput{SupplierID: &supplierID})
}

// RemoveItem deletes a line and walks the header aggregates back down. The
// decrement clamps at zero in storage; a drifted header never goes negative.
func (s *Service) RemoveItem(ctx context.Context, scope shared.Scope, requisitionID, itemID int64) error {
	if err := scope.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, err := tx.LockRequisition(ctx, scope.TenantID, requisitionID)
		if err != nil {
			return err
		}
		if req.Status.Terminal() {
			return fmt.Errorf("%w: requisition %s is %s", ErrConflict, req.Number, req.Status)
		}
		old, err := tx.GetLineItem(ctx, scope.TenantID, itemID)
		if err != nil {
			return err
		}
		if old.RequisitionID != requisitionID {
			return ErrNotFound
		}
		if err := tx.DeleteLineItem(ctx, scope.TenantID, itemID); err != nil {
			return err
		}
		return tx.ApplyAggregateDelta(ctx, scope.TenantID, requisitionID, AggregateDelta{
			Quantity: -old.PRQuantity,
			Cost:     -old.Contribution(),
			Items:    -1,
		})
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, scope, "REQUISITION_ITEM_REMOVE", requisitionID, map[string]any{"item_id": itemID})
	return nil
}

// Submit moves a draft or returned requisition into PENDING.
func (s *Service) Submit(ctx context.Context, scope shared.Scope, id int64) (Requisition, error) {
	req, err := s.move(ctx, scope, id, ActionSubmit)
	if err != nil {
		return Requisition{}, err
	}
	if s.approvals != nil {
		_ = s.approvals.EnsureSubmit(ctx, scope.TenantID, approvalModule, id, scope.ActorID, "")
	}
	return req, nil
}

// SaveForLater parks a freshly initialized requisition as a draft.
func (s *Service) SaveForLater(ctx context.Context, scope shared.Scope, id int64) (Requisition, error) {
	return s.move(ctx, scope, id, ActionSaveForLater)
}

// SubmitForReview escalates a pending requisition to manager review. Every
// line must carry a supplier; otherwise the offending item ids come back in
// a MissingSupplierError.
func (s *Service) SubmitForReview(ctx context.Context, scope shared.Scope, id int64) (Requisition, error) {
	if err := scope.Validate(); err != nil {
		return Requisition{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	missing, err := s.repo.UnassignedItemIDs(ctx, scope.TenantID, id)
	if err != nil {
		return Requisition{}, err
	}
	if len(missing) > 0 {
		return Requisition{}, &MissingSupplierError{ItemIDs: missing}
	}
	return s.move(ctx, scope, id, ActionSubmitForReview)
}

// move applies a creator-side transition through the table with a guarded
// status flip.
func (s *Service) move(ctx context.Context, scope shared.Scope, id int64, action Action) (Requisition, error) {
	if err := scope.Validate(); err != nil {
		return Requisition{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	req, err := s.repo.GetRequisition(ctx, scope.TenantID, id)
	if err != nil {
		return Requisition{}, err
	}
	if req.Status.Draft() && req.CreatedBy != scope.ActorID {
		return Requisition{}, ErrNotFound
	}
	next, ok := NextStatus(req.Status, action)
	if !ok {
		return Requisition{}, fmt.Errorf("%w: cannot %s from %s", ErrConflict, action, req.Status)
	}
	var updated Requisition
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		updated, err = tx.UpdateStatus(ctx, StatusUpdate{
			TenantID: scope.TenantID,
			ID:       id,
			Expected: req.Status,
			Next:     next,
		})
		return err
	})
	if err != nil {
		return Requisition{}, err
	}
	s.recordAudit(ctx, scope, "REQUISITION_"+string(action), id, map[string]any{"from": req.Status, "to": next})
	s.publish(ctx, EventStatusChanged, statusChangedPayload(updated, req.Status, action))
	return updated, nil
}

// DecideInput carries reviewer decision details.
type DecideInput struct {
	Justification string
	BudgetID      int64
}

// Decide applies a reviewer action. The status flip is a conditional update
// on the previously observed status, so one of two racing reviewers loses
// with ErrConflict. When the decision approves and names a budget, the
// reservation joins the same transaction: the flip and the hold commit or
// roll back together.
func (s *Service) Decide(ctx context.Context, scope shared.Scope, id int64, action Action, input DecideInput) (Requisition, error) {
	if err := scope.Validate(); err != nil {
		return Requisition{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !action.Decisive() {
		return Requisition{}, fmt.Errorf("%w: %s is not a reviewer action", ErrValidation, action)
	}
	req, err := s.repo.GetRequisition(ctx, scope.TenantID, id)
	if err != nil {
		return Requisition{}, err
	}
	if req.Status.Terminal() {
		return Requisition{}, fmt.Errorf("%w: requisition %s already %s", ErrConflict, req.Number, req.Status)
	}
	next, ok := NextStatus(req.Status, action)
	if !ok {
		return Requisition{}, fmt.Errorf("%w: cannot %s from %s", ErrConflict, action, req.Status)
	}
	if action.Approves() {
		missing, err := s.repo.UnassignedItemIDs(ctx, scope.TenantID, id)
		if err != nil {
			return Requisition{}, err
		}
		if len(missing) > 0 {
			return Requisition{}, &MissingSupplierError{ItemIDs: missing}
		}
	}
	var updated Requisition
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		update := StatusUpdate{
			TenantID:      scope.TenantID,
			ID:            id,
			Expected:      req.Status,
			Next:          next,
			Justification: input.Justification,
		}
		if next.Terminal() {
			actor := scope.ActorID
			update.ApprovedBy = &actor
		}
		updated, err = tx.UpdateStatus(ctx, update)
		if err != nil {
			return err
		}
		if action.Approves() && input.BudgetID != 0 {
			return tx.ReserveBudget(ctx, scope.TenantID, input.BudgetID, updated.EstimatedCost)
		}
		return nil
	})
	if err != nil {
		return Requisition{}, err
	}
	s.recordDecision(ctx, scope, updated, action, input.Justification)
	s.publish(ctx, EventStatusChanged, statusChangedPayload(updated, req.Status, action))
	if action.CreatesOrders() {
		s.dispatchSplit(ctx, scope, id)
	}
	return updated, nil
}

// dispatchSplit hands the requisition to the background splitter, falling
// back to an inline run. Either way failures are logged, never surfaced: the
// approval already committed.
func (s *Service) dispatchSplit(ctx context.Context, scope shared.Scope, requisitionID int64) {
	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueSplit(ctx, scope, requisitionID); err != nil {
			s.logger.Error("enqueue order split", slog.Int64("requisition", requisitionID), slog.Any("error", err))
		}
		return
	}
	if _, err := s.CreateOrders(ctx, scope, requisitionID); err != nil {
		s.logger.Error("inline order split", slog.Int64("requisition", requisitionID), slog.Any("error", err))
	}
}

func (s *Service) recordDecision(ctx context.Context, scope shared.Scope, req Requisition, action Action, note string) {
	s.recordAudit(ctx, scope, "REQUISITION_"+string(action), req.ID, map[string]any{
		"status": req.Status,
		"number": req.Number,
	})
	if s.approvals == nil {
		return
	}
	var approvalAction shared.ApprovalAction
	switch {
	case action.Approves():
		approvalAction = shared.ApprovalApprove
	case action == ActionReject:
		approvalAction = shared.ApprovalReject
	case action == ActionRequestModification:
		approvalAction = shared.ApprovalReturn
	default:
		approvalAction = shared.ApprovalSubmit
	}
	_ = s.approvals.Record(ctx, shared.ApprovalLog{
		TenantID: scope.TenantID,
		Module:   approvalModule,
		RefID:    req.ID,
		ActorID:  scope.ActorID,
		Action:   approvalAction,
		Note:     note,
	})
}

// GetOrder fetches a purchase order within the tenant scope.
func (s *Service) GetOrder(ctx context.Context, scope shared.Scope, id int64) (PurchaseOrder, error) {
	if err := scope.Validate(); err != nil {
		return PurchaseOrder{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.repo.GetOrder(ctx, scope.TenantID, id)
}

// ListOrders returns orders for a requisition, or all tenant orders when the
// requisition id is zero.
func (s *Service) ListOrders(ctx context.Context, scope shared.Scope, requisitionID int64) ([]PurchaseOrder, error) {
	if err := scope.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.repo.ListOrders(ctx, scope.TenantID, requisitionID)
}

// StatusSummary counts requisitions per status for the tenant.
func (s *Service) StatusSummary(ctx context.Context, scope shared.Scope) (map[Status]int, error) {
	if err := scope.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.repo.StatusSummary(ctx, scope.TenantID)
}

func (s *Service) checkSupplier(ctx context.Context, scope shared.Scope, supplierID int64) error {
	if s.suppliers == nil {
		return nil
	}
	if _, err := s.suppliers.FindByID(ctx, scope, supplierID); err != nil {
		if errors.Is(err, supplier.ErrNotFound) {
			return fmt.Errorf("%w: unknown supplier %d", ErrValidation, supplierID)
		}
		return err
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, scope shared.Scope, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		TenantID: scope.TenantID,
		ActorID:  scope.ActorID,
		Action:   action,
		Entity:   "requisition",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}

func (s *Service) publish(ctx context.Context, event string, payload map[string]any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, event, payload)
}
