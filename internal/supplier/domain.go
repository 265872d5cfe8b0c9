// Package supplier maintains the tenant supplier directory.
package supplier

import "errors"

// Supplier is a vendor a line item can be sourced from.
type Supplier struct {
	ID       int64
	TenantID int64
	Number   string
	Name     string
	Email    string
	Phone    string
}

var (
	// ErrNotFound indicates the supplier is absent or outside the tenant scope.
	ErrNotFound = errors.New("supplier: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("supplier: invalid input")
	// ErrNumberCollision indicates the uniqueness backstop caught a duplicate
	// supplier number. Treated as an internal anomaly and retried once.
	ErrNumberCollision = errors.New("supplier: number collision")
)
