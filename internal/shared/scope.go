package shared

import (
	"context"
	"errors"
)

var (
	// ErrTenantRequired indicates a missing tenant reference.
	ErrTenantRequired = errors.New("tenant required")
	// ErrActorRequired indicates a missing actor reference.
	ErrActorRequired = errors.New("actor required")
)

// Scope carries the caller identity for every core operation. The engine
// trusts the pair as supplied; it never resolves identity itself.
type Scope struct {
	TenantID int64
	ActorID  int64
}

// Validate checks both references are present.
func (s Scope) Validate() error {
	if s.TenantID == 0 {
		return ErrTenantRequired
	}
	if s.ActorID == 0 {
		return ErrActorRequired
	}
	return nil
}

type scopeContextKey struct{}

// ContextWithScope stores the caller scope in context for the HTTP layer.
func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext extracts the caller scope from context.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey{}).(Scope)
	return scope, ok
}
