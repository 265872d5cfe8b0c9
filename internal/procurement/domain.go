// Package procurement implements the purchase requisition lifecycle: the
// status state machine, line-item aggregate maintenance and the splitting of
// approved requisitions into per-supplier purchase orders.
package procurement

import (
	"errors"
	"fmt"
	"time"
)

// Status enumerates requisition lifecycle states.
type Status string

const (
	StatusInitialized         Status = "INITIALIZED"
	StatusSavedForLater       Status = "SAVED_FOR_LATER"
	StatusPending             Status = "PENDING"
	StatusManagerReview       Status = "MANAGER_REVIEW"
	StatusApproved            Status = "APPROVED"
	StatusRejected            Status = "REJECTED"
	StatusRequestModification Status = "REQUEST_MODIFICATION"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Draft reports whether the requisition is visible only to its creator.
func (s Status) Draft() bool {
	return s == StatusInitialized || s == StatusSavedForLater
}

// Action enumerates lifecycle actions a caller may request.
type Action string

const (
	ActionSaveForLater        Action = "SAVE_FOR_LATER"
	ActionSubmit              Action = "SUBMIT"
	ActionSubmitForReview     Action = "SUBMIT_FOR_REVIEW"
	ActionEndorse             Action = "ENDORSE"
	ActionApprove             Action = "APPROVE"
	ActionApproveAndCreatePO  Action = "APPROVE_AND_CREATE_PO"
	ActionReject              Action = "REJECT"
	ActionRequestModification Action = "REQUEST_MODIFICATION"
)

// Approves reports whether the action moves the requisition to APPROVED.
func (a Action) Approves() bool {
	return a == ActionApprove || a == ActionApproveAndCreatePO
}

// CreatesOrders reports whether approval should also trigger order creation.
func (a Action) CreatesOrders() bool {
	return a == ActionApproveAndCreatePO
}

// Decisive reports whether the action is a reviewer decision rather than a
// creator-side movement.
func (a Action) Decisive() bool {
	switch a {
	case ActionEndorse, ActionApprove, ActionApproveAndCreatePO, ActionReject, ActionRequestModification:
		return true
	}
	return false
}

// transitions is the single transition table. Every legality check routes
// through NextStatus; no call site re-derives the rules.
var transitions = map[Status]map[Action]Status{
	StatusInitialized: {
		ActionSaveForLater: StatusSavedForLater,
		ActionSubmit:       StatusPending,
	},
	StatusSavedForLater: {
		ActionSubmit: StatusPending,
	},
	StatusPending: {
		ActionSubmitForReview:     StatusManagerReview,
		ActionApprove:             StatusApproved,
		ActionApproveAndCreatePO:  StatusApproved,
		ActionReject:              StatusRejected,
		ActionRequestModification: StatusRequestModification,
	},
	StatusManagerReview: {
		ActionEndorse:             StatusPending,
		ActionReject:              StatusRejected,
		ActionRequestModification: StatusRequestModification,
	},
	StatusRequestModification: {
		ActionSubmit: StatusPending,
	},
}

// NextStatus resolves the transition table for (current, action).
func NextStatus(current Status, action Action) (Status, bool) {
	next, ok := transitions[current][action]
	return next, ok
}

// Requisition is a purchase request header. Quantity, EstimatedCost and
// TotalItems are derived aggregates over the live line items; only the
// line-item operations write them, always as relative increments.
type Requisition struct {
	ID            int64
	TenantID      int64
	Number        string
	Status        Status
	Department    string
	Branch        string
	NeededByDate  time.Time
	Quantity      float64
	EstimatedCost float64
	TotalItems    int
	CreatedBy     int64
	ApprovedBy    int64
	Justification string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LineItemStatus tracks a line independently of its requisition.
type LineItemStatus string

const (
	LineItemPending LineItemStatus = "PENDING"
	LineItemOrdered LineItemStatus = "ORDERED"
)

// Valid reports whether the status is a known line state.
func (s LineItemStatus) Valid() bool {
	return s == LineItemPending || s == LineItemOrdered
}

// LineItem is a requisition line. SupplierID is zero until assigned and
// OrderID is zero until the splitter links the line to a purchase order.
// Status does not feed the requisition aggregates.
type LineItem struct {
	ID            int64
	TenantID      int64
	RequisitionID int64
	OrderID       int64
	SupplierID    int64
	ItemName      string
	UnitPrice     float64
	PRQuantity    float64
	POQuantity    float64
	Status        LineItemStatus
}

// Contribution returns the line's share of the requisition estimated cost.
func (l LineItem) Contribution() float64 {
	return l.PRQuantity * l.UnitPrice
}

// OrderQuantity returns the quantity to order: the explicit purchase
// quantity when set, otherwise the requested quantity.
func (l LineItem) OrderQuantity() float64 {
	if l.POQuantity > 0 {
		return l.POQuantity
	}
	return l.PRQuantity
}

// OrderStatus enumerates purchase order states, independent of the
// originating requisition.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusApproved OrderStatus = "APPROVED"
	OrderStatusRejected OrderStatus = "REJECTED"
)

// PurchaseOrder is emitted by the splitter. An order never spans suppliers.
type PurchaseOrder struct {
	ID            int64
	TenantID      int64
	Number        string
	RequisitionID int64
	SupplierID    int64
	SubTotal      float64
	DeliveryFee   float64
	VAT           float64
	TotalAmount   float64
	Status        OrderStatus
	CreatedAt     time.Time
}

var (
	// ErrNotFound indicates the record is absent or outside the tenant scope.
	ErrNotFound = errors.New("procurement: not found")
	// ErrConflict indicates a state-machine or precondition violation.
	ErrConflict = errors.New("procurement: conflict")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("procurement: invalid input")
	// ErrDuplicateItem indicates a duplicate item name within one requisition.
	ErrDuplicateItem = errors.New("procurement: duplicate item in requisition")
	// ErrNumberCollision indicates the (tenant, number) uniqueness backstop
	// caught a duplicate document number.
	ErrNumberCollision = errors.New("procurement: number collision")
)

// MissingSupplierError lists line items without a supplier assignment when
// the requested transition requires full assignment.
type MissingSupplierError struct {
	ItemIDs []int64
}

func (e *MissingSupplierError) Error() string {
	return fmt.Sprintf("procurement: line items missing supplier assignment: %v", e.ItemIDs)
}

// Unwrap classifies the failure as a conflict.
func (e *MissingSupplierError) Unwrap() error {
	return ErrConflict
}
