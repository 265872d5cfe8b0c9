package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/procureflow/procureflow/internal/sequence"
	"github.com/procureflow/procureflow/internal/shared"
)

// CreateOrders splits an approved requisition into one purchase order per
// distinct supplier and links the contributing lines to their order.
//
// The operation is idempotent by construction: the requisition row is locked
// for the duration, only lines without an order are eligible, and linking
// matches unlinked rows alone. A retry after a crash picks up exactly the
// lines the first run did not commit. The idempotency key is a backstop for
// duplicate queue deliveries, not the primary guard.
func (s *Service) CreateOrders(ctx context.Context, scope shared.Scope, requisitionID int64) ([]PurchaseOrder, error) {
	if err := scope.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	idemKey := fmt.Sprintf("SPLIT:%d:%d", scope.TenantID, requisitionID)
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idemKey, approvalModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				s.logger.Info("order split already processed", slog.Int64("requisition", requisitionID))
				return s.repo.ListOrders(ctx, scope.TenantID, requisitionID)
			}
			return nil, err
		}
	}
	orders, err := s.splitTx(ctx, scope, requisitionID)
	if err != nil {
		if s.idempotency != nil {
			_ = s.idempotency.Delete(ctx, idemKey)
		}
		return nil, err
	}
	for _, order := range orders {
		s.recordAudit(ctx, scope, "ORDER_CREATE", requisitionID, map[string]any{
			"order_id": order.ID,
			"number":   order.Number,
			"supplier": order.SupplierID,
			"total":    order.TotalAmount,
		})
		s.publish(ctx, EventOrderCreated, orderCreatedPayload(order))
	}
	return orders, nil
}

func (s *Service) splitTx(ctx context.Context, scope shared.Scope, requisitionID int64) ([]PurchaseOrder, error) {
	var orders []PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, err := tx.LockRequisition(ctx, scope.TenantID, requisitionID)
		if err != nil {
			return err
		}
		if req.Status != StatusApproved {
			return fmt.Errorf("%w: requisition %s is %s, split requires %s", ErrConflict, req.Number, req.Status, StatusApproved)
		}
		items, err := tx.SplittableItems(ctx, scope.TenantID, requisitionID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		groups := make(map[int64][]LineItem)
		for _, item := range items {
			groups[item.SupplierID] = append(groups[item.SupplierID], item)
		}
		supplierIDs := make([]int64, 0, len(groups))
		for id := range groups {
			supplierIDs = append(supplierIDs, id)
		}
		// Deterministic order assignment regardless of map iteration.
		sort.Slice(supplierIDs, func(i, j int) bool { return supplierIDs[i] < supplierIDs[j] })
		for _, supplierID := range supplierIDs {
			lines := groups[supplierID]
			seq, err := tx.NextSequence(ctx, scope.TenantID, sequence.KindOrder)
			if err != nil {
				return err
			}
			number := sequence.Format(sequence.KindOrder, scope.TenantID, time.Now(), seq)
			var subTotal float64
			ids := make([]int64, 0, len(lines))
			for _, line := range lines {
				subTotal += line.OrderQuantity() * line.UnitPrice
				ids = append(ids, line.ID)
			}
			order := PurchaseOrder{
				TenantID:      scope.TenantID,
				Number:        number,
				RequisitionID: requisitionID,
				SupplierID:    supplierID,
				SubTotal:      subTotal,
				TotalAmount:   subTotal,
				Status:        OrderStatusPending,
			}
			orderID, err := tx.CreateOrder(ctx, order)
			if err != nil {
				return err
			}
			order.ID = orderID
			linked, err := tx.LinkItemsToOrder(ctx, scope.TenantID, orderID, ids)
			if err != nil {
				return err
			}
			if linked != int64(len(ids)) {
				return fmt.Errorf("%w: linked %d of %d lines to order %s", ErrConflict, linked, len(ids), number)
			}
			orders = append(orders, order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}
