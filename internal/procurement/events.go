package procurement

import "github.com/google/uuid"

// Event names published through the notifier.
const (
	EventStatusChanged = "requisition.status_changed"
	EventOrderCreated  = "order.created"
)

func statusChangedPayload(req Requisition, from Status, action Action) map[string]any {
	return map[string]any{
		"event_id":       uuid.NewString(),
		"tenant_id":      req.TenantID,
		"requisition_id": req.ID,
		"number":         req.Number,
		"from":           string(from),
		"to":             string(req.Status),
		"action":         string(action),
	}
}

func orderCreatedPayload(order PurchaseOrder) map[string]any {
	return map[string]any{
		"event_id":       uuid.NewString(),
		"tenant_id":      order.TenantID,
		"order_id":       order.ID,
		"number":         order.Number,
		"requisition_id": order.RequisitionID,
		"supplier_id":    order.SupplierID,
		"total_amount":   order.TotalAmount,
	}
}
