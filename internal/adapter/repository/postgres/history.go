package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertHistory appends one audit entry inside the caller's transaction.
func insertHistory(ctx context.Context, tx execer, e domain.HistoryEntry) error {
	query := `
	INSERT INTO assignment_history (id, entity_kind, entity_id, event_id, from_state, to_state, actor, note, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := tx.ExecContext(ctx, query, e.ID, e.EntityKind, e.EntityID, e.EventID, e.FromState, e.ToState, e.Actor, e.Note, e.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	return nil
}

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) ListByEntity(ctx context.Context, entityID uuid.UUID) ([]domain.HistoryEntry, error) {
	query := `
	SELECT id, entity_kind, entity_id, event_id, from_state, to_state, actor, note, created_at
	FROM assignment_history
	WHERE entity_id = $1
	ORDER BY seq
	`

	rows, err := r.db.QueryContext(ctx, query, entityID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	entries := []domain.HistoryEntry{}
	for rows.Next() {
		var e domain.HistoryEntry
		if err := rows.Scan(
			&e.ID,
			&e.EntityKind,
			&e.EntityID,
			&e.EventID,
			&e.FromState,
			&e.ToState,
			&e.Actor,
			&e.Note,
			&e.Timestamp,
		); err != nil {
			return nil, err
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
