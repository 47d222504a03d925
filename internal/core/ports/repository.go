package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

type StandRepository interface {
	GetByID(ctx context.Context, standID uuid.UUID) (*domain.Stand, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.Stand, error)
	GetAvailableStandsByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.Stand, error)
}

type RequestRepository interface {
	Create(ctx context.Context, req *domain.AssignmentRequest, entry domain.HistoryEntry) error
	GetByID(ctx context.Context, requestID uuid.UUID) (*domain.AssignmentRequest, error)
	List(ctx context.Context, filter domain.RequestFilter) ([]domain.AssignmentRequest, error)
	Transition(ctx context.Context, t domain.RequestTransition) error
	CommitAssignment(ctx context.Context, a domain.StandAssignment) error
	UpdatePriority(ctx context.Context, requestID uuid.UUID, score float64, at time.Time) error
}

type ConflictRepository interface {
	Create(ctx context.Context, c *domain.Conflict, entry domain.HistoryEntry) (bool, error)
	GetByID(ctx context.Context, conflictID uuid.UUID) (*domain.Conflict, error)
	List(ctx context.Context, filter domain.ConflictFilter) ([]domain.Conflict, error)
	Update(ctx context.Context, c *domain.Conflict, from domain.ConflictState, entry domain.HistoryEntry) error
	ListExpired(ctx context.Context, now time.Time) ([]domain.Conflict, error)
}

type HistoryRepository interface {
	ListByEntity(ctx context.Context, entityID uuid.UUID) ([]domain.HistoryEntry, error)
}

// CatalogReader reads the collaborator-owned company and event records.
type CatalogReader interface {
	GetCompany(ctx context.Context, companyID uuid.UUID) (*domain.Company, error)
	GetEvent(ctx context.Context, eventID uuid.UUID) (*domain.Event, error)
}
