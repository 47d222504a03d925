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

const requestColumns = `id, company_id, event_id, modality, requested_stand_id, criteria, priority_score, state,
	assigned_stand_id, assigned_price, discount, final_price, notes, rejection_reason, requested_at, updated_at`

// uniqueViolation is the postgres SQLSTATE raised by the one-assignment-per-stand index.
const uniqueViolation = "23505"

type RequestRepository struct {
	db *sql.DB
}

func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) Create(ctx context.Context, req *domain.AssignmentRequest, entry domain.HistoryEntry) error {
	criteria, err := json.Marshal(req.Criteria)
	if err != nil {
		return fmt.Errorf("failed to encode criteria: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	query := `
	INSERT INTO assignment_requests (` + requestColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = tx.ExecContext(ctx, query,
		req.ID, req.CompanyID, req.EventID, req.Modality, nullUUID(req.RequestedStandID), string(criteria),
		req.PriorityScore, req.State, nullUUID(req.AssignedStandID), req.AssignedPrice, req.Discount,
		req.FinalPrice, req.Notes, req.RejectionReason, req.RequestedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}

	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *RequestRepository) GetByID(ctx context.Context, requestID uuid.UUID) (*domain.AssignmentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM assignment_requests WHERE id = $1`

	req, err := scanRequest(r.db.QueryRowContext(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Errorf(domain.ErrNotFound, "request %s not found", requestID)
		}

		return nil, err
	}

	return req, nil
}

func (r *RequestRepository) List(ctx context.Context, filter domain.RequestFilter) ([]domain.AssignmentRequest, error) {
	var where []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.EventID != nil {
		where = append(where, "event_id = "+arg(*filter.EventID))
	}

	if filter.CompanyID != nil {
		where = append(where, "company_id = "+arg(*filter.CompanyID))
	}

	if filter.StandID != nil {
		where = append(where, "requested_stand_id = "+arg(*filter.StandID))
	}

	if filter.Modality != "" {
		where = append(where, "modality = "+arg(filter.Modality))
	}

	if len(filter.States) > 0 {
		states := make([]string, 0, len(filter.States))
		for _, s := range filter.States {
			states = append(states, string(s))
		}
		where = append(where, "state = ANY("+arg(pq.Array(states))+")")
	}

	query := `SELECT ` + requestColumns + ` FROM assignment_requests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY requested_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	reqs := []domain.AssignmentRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}

		reqs = append(reqs, *req)
	}

	return reqs, rows.Err()
}

// Transition moves the request from t.From to t.To. The WHERE clause on the
// current state makes a concurrent transition lose instead of overwrite.
func (r *RequestRepository) Transition(ctx context.Context, t domain.RequestTransition) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	query := `
	UPDATE assignment_requests
	SET state = $1,
		updated_at = $2,
		rejection_reason = CASE WHEN $3 <> '' THEN $3 ELSE rejection_reason END
	WHERE id = $4 AND state = $5
	`

	result, err := tx.ExecContext(ctx, query, t.To, t.At, t.RejectionReason, t.RequestID, t.From)
	if err != nil {
		return fmt.Errorf("failed to update request state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return r.staleRequest(ctx, t.RequestID, t.From)
	}

	if err := insertHistory(ctx, tx, t.Entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CommitAssignment flips the stand to assigned and the request to asignada in
// one transaction. The stand update only matches an available stand, so a
// stand taken by a concurrent commit yields ErrStandUnavailable here.
func (r *RequestRepository) CommitAssignment(ctx context.Context, a domain.StandAssignment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
	UPDATE stands
	SET status = 'assigned',
		version = version + 1
	WHERE id = $1 AND event_id = $2 AND status = 'available'
	`, a.StandID, a.EventID)
	if err != nil {
		return fmt.Errorf("failed to claim stand: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.Errorf(domain.ErrStandUnavailable, "stand %s is no longer available", a.StandID)
	}

	result, err = tx.ExecContext(ctx, `
	UPDATE assignment_requests
	SET state = 'asignada',
		assigned_stand_id = $1,
		assigned_price = $2,
		discount = $3,
		final_price = $4,
		updated_at = $5
	WHERE id = $6 AND state = 'aprobada'
	`, a.StandID, a.Price, a.Discount, a.FinalPrice, a.At, a.RequestID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.Errorf(domain.ErrStandUnavailable, "stand %s already holds an assignment", a.StandID)
		}

		return fmt.Errorf("failed to assign request: %w", err)
	}

	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.Errorf(domain.ErrInvalidTransition, "request %s is no longer aprobada", a.RequestID)
	}

	if err := insertHistory(ctx, tx, a.Entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *RequestRepository) UpdatePriority(ctx context.Context, requestID uuid.UUID, score float64, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
	UPDATE assignment_requests
	SET priority_score = $1, updated_at = $2
	WHERE id = $3
	`, score, at, requestID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.Errorf(domain.ErrNotFound, "request %s not found", requestID)
	}

	return nil
}

func (r *RequestRepository) staleRequest(ctx context.Context, requestID uuid.UUID, expected domain.RequestState) error {
	var state domain.RequestState

	err := r.db.QueryRowContext(ctx, `SELECT state FROM assignment_requests WHERE id = $1`, requestID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Errorf(domain.ErrNotFound, "request %s not found", requestID)
	}

	if err != nil {
		return err
	}

	return domain.Errorf(domain.ErrInvalidTransition, "request %s is %s, not %s", requestID, state, expected)
}

func scanRequest(row rowScanner) (*domain.AssignmentRequest, error) {
	var req domain.AssignmentRequest
	var requestedStand, assignedStand uuid.NullUUID
	var criteria []byte

	err := row.Scan(
		&req.ID,
		&req.CompanyID,
		&req.EventID,
		&req.Modality,
		&requestedStand,
		&criteria,
		&req.PriorityScore,
		&req.State,
		&assignedStand,
		&req.AssignedPrice,
		&req.Discount,
		&req.FinalPrice,
		&req.Notes,
		&req.RejectionReason,
		&req.RequestedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if requestedStand.Valid {
		id := requestedStand.UUID
		req.RequestedStandID = &id
	}

	if assignedStand.Valid {
		id := assignedStand.UUID
		req.AssignedStandID = &id
	}

	if len(criteria) > 0 {
		if err := json.Unmarshal(criteria, &req.Criteria); err != nil {
			return nil, fmt.Errorf("failed to decode criteria of request %s: %w", req.ID, err)
		}
	}

	return &req, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}

	return uuid.NullUUID{UUID: *id, Valid: true}
}
