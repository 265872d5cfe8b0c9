package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/procureflow/procureflow/internal/procurement"
	"github.com/procureflow/procureflow/internal/shared"
)

// OrderSplitPayload identifies the approved requisition to split.
type OrderSplitPayload struct {
	TenantID      int64 `json:"tenant_id"`
	ActorID       int64 `json:"actor_id"`
	RequisitionID int64 `json:"requisition_id"`
}

// NewOrderSplitTask constructs an Asynq task.
func NewOrderSplitTask(payload OrderSplitPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderSplit, data, asynq.MaxRetry(5)), nil
}

// OrderSplitter is the slice of the procurement service the handler needs.
type OrderSplitter interface {
	CreateOrders(ctx context.Context, scope shared.Scope, requisitionID int64) ([]procurement.PurchaseOrder, error)
}

// NewOrderSplitHandler processes TaskOrderSplit tasks. The split itself is
// idempotent, so redeliveries are harmless; only conflicts (requisition no
// longer approved) skip the retry loop.
func NewOrderSplitHandler(splitter OrderSplitter, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload OrderSplitPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		scope := shared.Scope{TenantID: payload.TenantID, ActorID: payload.ActorID}
		orders, err := splitter.CreateOrders(ctx, scope, payload.RequisitionID)
		if err != nil {
			if errors.Is(err, procurement.ErrConflict) || errors.Is(err, procurement.ErrNotFound) {
				logger.Warn("order split skipped",
					slog.Int64("requisition", payload.RequisitionID),
					slog.Any("error", err))
				return asynq.SkipRetry
			}
			return err
		}
		logger.Info("order split complete",
			slog.Int64("requisition", payload.RequisitionID),
			slog.Int("orders", len(orders)))
		return nil
	}
}
