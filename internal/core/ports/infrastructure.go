package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

// EventLocker serializes mutating operations of one event.
type EventLocker interface {
	Lock(ctx context.Context, eventID uuid.UUID) (unlock func(), err error)
}

type StandCache interface {
	GetAvailable(ctx context.Context, eventID uuid.UUID) ([]domain.Stand, bool, error)
	SetAvailable(ctx context.Context, eventID uuid.UUID, stands []domain.Stand) error
	Invalidate(ctx context.Context, eventID uuid.UUID) error
}

// Notifier receives one call per committed state transition.
type Notifier interface {
	Notify(ctx context.Context, entry domain.HistoryEntry) error
}

type Metrics interface {
	RecordTransition(kind domain.EntityKind, to string)
	RecordConflictsDetected(typ domain.ConflictType, n int)
	RecordRun(algorithm, mode string, assigned, unmatched int, elapsed time.Duration)
}
