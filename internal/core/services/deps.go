package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/ports"
)

// Dependencies groups the ports shared by the engine services. Cache, Notifier
// and Metrics are optional.
type Dependencies struct {
	Requests  ports.RequestRepository
	Stands    ports.StandRepository
	Conflicts ports.ConflictRepository
	History   ports.HistoryRepository
	Catalog   ports.CatalogReader
	Locker    ports.EventLocker
	Cache     ports.StandCache
	Notifier  ports.Notifier
	Metrics   ports.Metrics
	Logger    zerolog.Logger
	Now       func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}

	if d.Metrics == nil {
		d.Metrics = nopMetrics{}
	}

	if d.Now == nil {
		d.Now = time.Now
	}

	return d
}

func (d Dependencies) now() time.Time {
	return d.Now().UTC()
}

func (d Dependencies) publish(ctx context.Context, entry domain.HistoryEntry) {
	d.Metrics.RecordTransition(entry.EntityKind, entry.ToState)

	if err := d.Notifier.Notify(ctx, entry); err != nil {
		d.Logger.Warn().Err(err).
			Str("entity_id", entry.EntityID.String()).
			Str("to_state", entry.ToState).
			Msg("state change notification failed")
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, domain.HistoryEntry) error { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordTransition(domain.EntityKind, string)        {}
func (nopMetrics) RecordConflictsDetected(domain.ConflictType, int)  {}
func (nopMetrics) RecordRun(string, string, int, int, time.Duration) {}
