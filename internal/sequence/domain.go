// Package sequence mints human-readable document numbers from durable
// per-tenant counters.
package sequence

import (
	"errors"
	"fmt"
	"hash/fnv"
	"time"
)

// Kind identifies a counter family within a tenant.
type Kind string

const (
	// KindRequisition numbers purchase requisitions.
	KindRequisition Kind = "REQ"
	// KindOrder numbers purchase orders.
	KindOrder Kind = "PO"
	// KindSupplier numbers supplier records.
	KindSupplier Kind = "SUP"
)

var (
	// ErrInvalidKind indicates an unknown counter kind.
	ErrInvalidKind = errors.New("sequence: invalid kind")
	// ErrInvalidTenant indicates a missing tenant reference.
	ErrInvalidTenant = errors.New("sequence: tenant required")
)

// Valid reports whether the kind is one of the known families.
func (k Kind) Valid() bool {
	switch k {
	case KindRequisition, KindOrder, KindSupplier:
		return true
	}
	return false
}

// TenantHash derives a short stable tag from the tenant id so numbers from
// different tenants never look alike. FNV-32a keeps it cheap and deterministic.
func TenantHash(tenantID int64) string {
	h := fnv.New32a()
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(tenantID >> (8 * i))
	}
	_, _ = h.Write(buf[:])
	return fmt.Sprintf("%04X", h.Sum32()&0xFFFF)
}

// Format assembles the monthly-scoped number shape used for requisitions and
// orders: <PREFIX>-<TENANT_HASH>-<YYMM>-<SEQ>.
func Format(kind Kind, tenantID int64, at time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%s-%04d", kind, TenantHash(tenantID), at.Format("0601"), seq)
}

// FormatLegacy assembles the per-tenant-only shape kept for supplier numbers:
// <PREFIX>-<SEQ>.
func FormatLegacy(kind Kind, seq int64) string {
	return fmt.Sprintf("%s-%05d", kind, seq)
}
