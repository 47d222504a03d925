package notifier

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/ports"
)

// LogNotifier writes one structured line per state change.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, e domain.HistoryEntry) error {
	n.log.Info().
		Str("entity", string(e.EntityKind)).
		Str("entity_id", e.EntityID.String()).
		Str("event_id", e.EventID.String()).
		Str("from", e.FromState).
		Str("to", e.ToState).
		Str("actor", e.Actor).
		Str("note", e.Note).
		Msg("state changed")

	return nil
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []ports.Notifier

func (m Multi) Notify(ctx context.Context, e domain.HistoryEntry) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
