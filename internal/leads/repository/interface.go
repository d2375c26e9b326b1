package repository

import (
	"context"
	"time"

	"sourcing_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
}

// LeadWriter provides create/delete and media writes.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	SetImageURL(ctx context.Context, id uuid.UUID, imageURL *string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// LifecycleStore is what the lifecycle engine needs from the store.
type LifecycleStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	SaveLifecycle(ctx context.Context, id uuid.UUID, expectedUpdatedAt time.Time, u LifecycleUpdate) (Lead, error)
}

// CommissionStore selects and settles unpaid commission.
type CommissionStore interface {
	ListUnpaidCommission(ctx context.Context, payeeID uuid.UUID, class domain.ActorClass) ([]Lead, error)
	MarkCommissionPaid(ctx context.Context, ids []uuid.UUID, class domain.ActorClass) ([]uuid.UUID, error)
}

// DriftLister finds leads whose calendar link disagrees with their status.
type DriftLister interface {
	ListCalendarDrift(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// LeadsRepository composes every lead store capability.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	LifecycleStore
	CommissionStore
	DriftLister
}

var _ LeadsRepository = (*Repository)(nil)
