package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

func approvedRequest(s *Store, eventID uuid.UUID) domain.AssignmentRequest {
	req := domain.AssignmentRequest{
		ID:        uuid.New(),
		CompanyID: uuid.New(),
		EventID:   eventID,
		Modality:  domain.ModalityAutomatic,
		State:     domain.RequestApproved,
	}
	s.requests[req.ID] = req

	return req
}

func assignment(req domain.AssignmentRequest, standID uuid.UUID) domain.StandAssignment {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	return domain.StandAssignment{
		RequestID:  req.ID,
		EventID:    req.EventID,
		StandID:    standID,
		Price:      decimal.NewFromInt(500),
		FinalPrice: decimal.NewFromInt(500),
		At:         now,
		Entry:      domain.NewHistoryEntry(domain.EntityRequest, req.ID, req.EventID, "aprobada", "asignada", "", "", now),
	}
}

func TestCommitAssignment_SecondCommitLosesStand(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	eventID, standID := uuid.New(), uuid.New()
	s.AddStand(domain.Stand{ID: standID, EventID: eventID, Code: "B-01"})

	first := approvedRequest(s, eventID)
	second := approvedRequest(s, eventID)

	require.NoError(t, s.Requests().CommitAssignment(ctx, assignment(first, standID)))

	err := s.Requests().CommitAssignment(ctx, assignment(second, standID))
	assert.ErrorIs(t, err, domain.ErrStandUnavailable)

	got, err := s.Requests().GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestApproved, got.State)

	available, err := s.Stands().GetAvailableStandsByEvent(ctx, eventID)
	require.NoError(t, err)
	assert.Empty(t, available)

	history, err := s.History().ListByEntity(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "asignada", history[0].ToState)
}

func TestTransition_StaleFromState(t *testing.T) {
	s := NewStore()
	req := approvedRequest(s, uuid.New())

	err := s.Requests().Transition(context.Background(), domain.RequestTransition{
		RequestID: req.ID,
		From:      domain.RequestSubmitted,
		To:        domain.RequestInReview,
	})

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestConflictCreate_IsInsertIfAbsent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	c := &domain.Conflict{ID: uuid.New(), EventID: uuid.New(), Type: domain.ConflictMultipleRequests, State: domain.ConflictDetected}

	created, err := s.Conflicts().Create(ctx, c, domain.HistoryEntry{EntityID: c.ID})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Conflicts().Create(ctx, c, domain.HistoryEntry{EntityID: c.ID})
	require.NoError(t, err)
	assert.False(t, created)

	history, err := s.History().ListByEntity(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	standID := uuid.New()
	s.AddStand(domain.Stand{ID: standID, EventID: uuid.New(), Services: []string{"internet"}})

	st, err := s.Stands().GetByID(ctx, standID)
	require.NoError(t, err)
	st.Services[0] = "water"
	st.Status = domain.StandReserved

	again, err := s.Stands().GetByID(ctx, standID)
	require.NoError(t, err)
	assert.Equal(t, []string{"internet"}, again.Services)
	assert.Equal(t, domain.StandAvailable, again.Status)
}

func TestLoadSeed(t *testing.T) {
	eventID, companyID, standID := uuid.New(), uuid.New(), uuid.New()
	path := filepath.Join(t.TempDir(), "seed.yaml")

	content := `
eventos:
  - id: ` + eventID.String() + `
    nombre: Expo Lima
    categorias_foco: [tech, food]
empresas:
  - id: ` + companyID.String() + `
    nombre: Acme
    categoria_principal: tech
    participaciones: 3
    presupuesto: 1500
stands:
  - id: ` + standID.String() + `
    evento_id: ` + eventID.String() + `
    codigo: A-01
    area: 24
    precio: 900
    zona: norte
    servicios: [internet, electricidad]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	seed, err := LoadSeed(path)
	require.NoError(t, err)

	s := NewStore()
	s.Apply(seed)
	ctx := context.Background()

	event, err := s.Catalog().GetEvent(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, event.HasFocusCategory("food"))

	company, err := s.Catalog().GetCompany(ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, 3, company.Participations)

	st, err := s.Stands().GetByID(ctx, standID)
	require.NoError(t, err)
	assert.Equal(t, "A-01", st.Code)
	assert.Equal(t, domain.StandAvailable, st.Status)
	assert.True(t, st.HasServices([]string{"Internet"}))
}

func TestLoadSeed_MissingFile(t *testing.T) {
	_, err := LoadSeed(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}
