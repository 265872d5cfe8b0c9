// Package budget tracks allocations and their reservations.
package budget

import "errors"

// Budget is a spending allocation scoped to a tenant organisational unit.
// AmountAllocated is immutable after creation. AmountReserved is the
// authoritative ledger field, mutated only by reserve/release. Balance is
// derived (allocated - reserved) and recomputed in the same statement that
// moves the reservation.
type Budget struct {
	ID              int64
	TenantID        int64
	BranchID        int64
	DepartmentID    int64
	CategoryID      int64
	Name            string
	AmountAllocated float64
	AmountReserved  float64
	Balance         float64
}

var (
	// ErrNotFound indicates the budget is absent or outside the tenant scope.
	ErrNotFound = errors.New("budget: not found")
	// ErrInsufficientFunds indicates a reservation exceeding the remaining balance.
	ErrInsufficientFunds = errors.New("budget: insufficient funds")
	// ErrExcessRelease indicates a release exceeding the reserved amount.
	ErrExcessRelease = errors.New("budget: release exceeds reserved")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("budget: invalid input")
)
