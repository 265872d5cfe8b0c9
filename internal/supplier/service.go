package supplier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/procureflow/procureflow/internal/sequence"
	"github.com/procureflow/procureflow/internal/shared"
)

// TxRepository exposes transactional operations.
type TxRepository interface {
	NextSequence(ctx context.Context, tenantID int64, kind sequence.Kind) (int64, error)
	CreateSupplier(ctx context.Context, s Supplier) (int64, error)
}

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, tenantID, id int64) (Supplier, error)
	List(ctx context.Context, tenantID int64, limit, offset int) ([]Supplier, int, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the supplier directory.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService constructs the supplier service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// CreateInput describes a new supplier.
type CreateInput struct {
	Name  string
	Email string
	Phone string
}

// Create registers a supplier, minting its number from the durable counter in
// the same transaction as the insert. A collision on the number backstop is an
// anomaly: logged and retried once before surfacing.
func (s *Service) Create(ctx context.Context, scope shared.Scope, input CreateInput) (Supplier, error) {
	if err := scope.Validate(); err != nil {
		return Supplier{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if input.Name == "" {
		return Supplier{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	created, err := s.createOnce(ctx, scope, input)
	if errors.Is(err, ErrNumberCollision) {
		s.logger.Warn("supplier number collision, retrying", slog.Int64("tenant", scope.TenantID))
		created, err = s.createOnce(ctx, scope, input)
	}
	if err != nil {
		return Supplier{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			TenantID: scope.TenantID,
			ActorID:  scope.ActorID,
			Action:   "SUPPLIER_CREATE",
			Entity:   "supplier",
			EntityID: fmt.Sprintf("%d", created.ID),
			Meta:     map[string]any{"number": created.Number, "name": created.Name},
		})
	}
	return created, nil
}

func (s *Service) createOnce(ctx context.Context, scope shared.Scope, input CreateInput) (Supplier, error) {
	var created Supplier
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		seq, err := tx.NextSequence(ctx, scope.TenantID, sequence.KindSupplier)
		if err != nil {
			return err
		}
		sup := Supplier{
			TenantID: scope.TenantID,
			Number:   sequence.FormatLegacy(sequence.KindSupplier, seq),
			Name:     input.Name,
			Email:    input.Email,
			Phone:    input.Phone,
		}
		id, err := tx.CreateSupplier(ctx, sup)
		if err != nil {
			return err
		}
		created = sup
		created.ID = id
		return nil
	})
	if err != nil {
		return Supplier{}, err
	}
	return created, nil
}

// FindByID resolves a supplier within the caller's tenant, the contract used
// to validate line-item assignments.
func (s *Service) FindByID(ctx context.Context, scope shared.Scope, id int64) (Supplier, error) {
	if err := scope.Validate(); err != nil {
		return Supplier{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.repo.Get(ctx, scope.TenantID, id)
}

// List returns tenant suppliers.
func (s *Service) List(ctx context.Context, scope shared.Scope, limit, offset int) ([]Supplier, int, error) {
	if err := scope.Validate(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repo.List(ctx, scope.TenantID, limit, offset)
}
