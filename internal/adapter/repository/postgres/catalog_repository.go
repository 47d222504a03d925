package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

// CatalogRepository reads the company and event tables owned by the
// surrounding platform.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) GetCompany(ctx context.Context, companyID uuid.UUID) (*domain.Company, error) {
	query := `SELECT id, name, primary_category, participations, budget FROM companies WHERE id = $1`

	var c domain.Company
	err := r.db.QueryRowContext(ctx, query, companyID).Scan(
		&c.ID,
		&c.Name,
		&c.PrimaryCategory,
		&c.Participations,
		&c.Budget,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Errorf(domain.ErrNotFound, "company %s not found", companyID)
		}

		return nil, err
	}

	return &c, nil
}

func (r *CatalogRepository) GetEvent(ctx context.Context, eventID uuid.UUID) (*domain.Event, error) {
	query := `SELECT id, name, starts_at, ends_at, focus_categories FROM events WHERE id = $1`

	var e domain.Event
	var startsAt, endsAt sql.NullTime
	var focus []string

	err := r.db.QueryRowContext(ctx, query, eventID).Scan(
		&e.ID,
		&e.Name,
		&startsAt,
		&endsAt,
		pq.Array(&focus),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Errorf(domain.ErrNotFound, "event %s not found", eventID)
		}

		return nil, err
	}

	if startsAt.Valid {
		e.StartsAt = startsAt.Time
	}

	if endsAt.Valid {
		e.EndsAt = endsAt.Time
	}

	e.FocusCategories = focus

	return &e, nil
}
