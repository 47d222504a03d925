package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

const standColumns = `id, event_id, code, area, price, zone, services, status, version`

type StandRepository struct {
	db *sql.DB
}

func NewStandRepository(db *sql.DB) *StandRepository {
	return &StandRepository{db: db}
}

func (r *StandRepository) GetByID(ctx context.Context, standID uuid.UUID) (*domain.Stand, error) {
	query := `SELECT ` + standColumns + ` FROM stands WHERE id = $1`

	st, err := scanStand(r.db.QueryRowContext(ctx, query, standID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Errorf(domain.ErrNotFound, "stand %s not found", standID)
		}

		return nil, err
	}

	return st, nil
}

func (r *StandRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.Stand, error) {
	query := `SELECT ` + standColumns + ` FROM stands WHERE event_id = $1 ORDER BY code, id`

	return r.query(ctx, query, eventID)
}

func (r *StandRepository) GetAvailableStandsByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.Stand, error) {
	query := `
	SELECT ` + standColumns + `
	FROM stands
	WHERE event_id = $1 AND status = 'available'
	ORDER BY code, id
	`

	return r.query(ctx, query, eventID)
}

func (r *StandRepository) query(ctx context.Context, query string, args ...any) ([]domain.Stand, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	stands := []domain.Stand{}
	for rows.Next() {
		st, err := scanStand(rows)
		if err != nil {
			return nil, err
		}

		stands = append(stands, *st)
	}

	return stands, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStand(row rowScanner) (*domain.Stand, error) {
	var st domain.Stand
	var services []string

	err := row.Scan(
		&st.ID,
		&st.EventID,
		&st.Code,
		&st.Area,
		&st.Price,
		&st.Zone,
		pq.Array(&services),
		&st.Status,
		&st.Version,
	)
	if err != nil {
		return nil, err
	}

	st.Services = services

	return &st, nil
}
