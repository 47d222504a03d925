package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

const conflictColumns = `id, event_id, stand_id, zone, type, contenders, state, assigned_to, deadline, resolution, created_at, updated_at`

type ConflictRepository struct {
	db *sql.DB
}

func NewConflictRepository(db *sql.DB) *ConflictRepository {
	return &ConflictRepository{db: db}
}

// Create inserts the conflict unless its ID is already stored. Conflict IDs
// are derived from the contender set, so detection re-runs are no-ops.
func (r *ConflictRepository) Create(ctx context.Context, c *domain.Conflict, entry domain.HistoryEntry) (bool, error) {
	contenders, err := json.Marshal(c.Contenders)
	if err != nil {
		return false, fmt.Errorf("failed to encode contenders: %w", err)
	}

	resolution, err := encodeResolution(c.Resolution)
	if err != nil {
		return false, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}

	defer tx.Rollback()

	query := `
	INSERT INTO conflicts (` + conflictColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id) DO NOTHING
	`

	result, err := tx.ExecContext(ctx, query,
		c.ID, c.EventID, nullUUID(c.StandID), c.Zone, c.Type, string(contenders), c.State,
		nullString(c.AssignedTo), nullTime(c.Deadline), resolution, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert conflict: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if rowsAffected == 0 {
		return false, nil
	}

	if err := insertHistory(ctx, tx, entry); err != nil {
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

func (r *ConflictRepository) GetByID(ctx context.Context, conflictID uuid.UUID) (*domain.Conflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM conflicts WHERE id = $1`

	c, err := scanConflict(r.db.QueryRowContext(ctx, query, conflictID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Errorf(domain.ErrNotFound, "conflict %s not found", conflictID)
		}

		return nil, err
	}

	return c, nil
}

func (r *ConflictRepository) List(ctx context.Context, filter domain.ConflictFilter) ([]domain.Conflict, error) {
	var where []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.EventID != nil {
		where = append(where, "event_id = "+arg(*filter.EventID))
	}

	if filter.Type != "" {
		where = append(where, "type = "+arg(filter.Type))
	}

	if len(filter.States) > 0 {
		states := make([]string, 0, len(filter.States))
		for _, s := range filter.States {
			states = append(states, string(s))
		}
		where = append(where, "state = ANY("+arg(pq.Array(states))+")")
	}

	query := `SELECT ` + conflictColumns + ` FROM conflicts`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`

	return r.query(ctx, query, args...)
}

func (r *ConflictRepository) Update(ctx context.Context, c *domain.Conflict, from domain.ConflictState, entry domain.HistoryEntry) error {
	resolution, err := encodeResolution(c.Resolution)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	query := `
	UPDATE conflicts
	SET state = $1,
		assigned_to = $2,
		deadline = $3,
		resolution = $4,
		updated_at = $5
	WHERE id = $6 AND state = $7
	`

	result, err := tx.ExecContext(ctx, query, c.State, nullString(c.AssignedTo), nullTime(c.Deadline), resolution, c.UpdatedAt, c.ID, from)
	if err != nil {
		return fmt.Errorf("failed to update conflict: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.Errorf(domain.ErrInvalidTransition, "conflict %s is no longer %s", c.ID, from)
	}

	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *ConflictRepository) ListExpired(ctx context.Context, now time.Time) ([]domain.Conflict, error) {
	query := `
	SELECT ` + conflictColumns + `
	FROM conflicts
	WHERE state = 'asignado_para_resolucion' AND deadline < $1
	ORDER BY deadline
	LIMIT 100
	`

	return r.query(ctx, query, now)
}

func (r *ConflictRepository) query(ctx context.Context, query string, args ...any) ([]domain.Conflict, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	conflicts := []domain.Conflict{}
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}

		conflicts = append(conflicts, *c)
	}

	return conflicts, rows.Err()
}

func scanConflict(row rowScanner) (*domain.Conflict, error) {
	var c domain.Conflict
	var standID uuid.NullUUID
	var assignedTo sql.NullString
	var deadline sql.NullTime
	var contenders, resolution []byte

	err := row.Scan(
		&c.ID,
		&c.EventID,
		&standID,
		&c.Zone,
		&c.Type,
		&contenders,
		&c.State,
		&assignedTo,
		&deadline,
		&resolution,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if standID.Valid {
		id := standID.UUID
		c.StandID = &id
	}

	if assignedTo.Valid {
		v := assignedTo.String
		c.AssignedTo = &v
	}

	if deadline.Valid {
		d := deadline.Time
		c.Deadline = &d
	}

	if err := json.Unmarshal(contenders, &c.Contenders); err != nil {
		return nil, fmt.Errorf("failed to decode contenders of conflict %s: %w", c.ID, err)
	}

	if len(resolution) > 0 {
		var res domain.Resolution
		if err := json.Unmarshal(resolution, &res); err != nil {
			return nil, fmt.Errorf("failed to decode resolution of conflict %s: %w", c.ID, err)
		}
		c.Resolution = &res
	}

	return &c, nil
}

// encodeResolution renders the JSONB resolution column; NULL while unresolved.
func encodeResolution(res *domain.Resolution) (sql.NullString, error) {
	if res == nil {
		return sql.NullString{}, nil
	}

	b, err := json.Marshal(res)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode resolution: %w", err)
	}

	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *v, Valid: true}
}
