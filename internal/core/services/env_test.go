package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/adapter/lock"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/adapter/repository/memory"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/services"
)

// env is one event on a memory store with the engine services wired on top.
type env struct {
	store     *memory.Store
	now       time.Time
	eventID   uuid.UUID
	requests  *services.RequestService
	conflicts *services.ConflictService
	orch      *services.Orchestrator
}

func newEnv(t *testing.T, opts ...func(*services.Dependencies)) *env {
	t.Helper()

	e := &env{
		store:   memory.NewStore(),
		now:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		eventID: uuid.New(),
	}
	e.store.AddEvent(domain.Event{ID: e.eventID, Name: "Expo", FocusCategories: []string{"tech"}})

	deps := services.Dependencies{
		Requests:  e.store.Requests(),
		Stands:    e.store.Stands(),
		Conflicts: e.store.Conflicts(),
		History:   e.store.History(),
		Catalog:   e.store.Catalog(),
		Locker:    lock.NewLocalLocker(),
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return e.now },
	}
	for _, opt := range opts {
		opt(&deps)
	}

	matcher := services.NewCompatibilityMatcher(services.DefaultMatchWeights())
	e.requests = services.NewRequestService(deps, services.NewPriorityScorer(services.DefaultScoreWeights()))
	e.conflicts = services.NewConflictService(deps, e.requests, services.NewConflictDetector(matcher))
	e.orch = services.NewOrchestrator(deps, e.requests, e.conflicts, matcher)

	return e
}

func (e *env) addStand(code string, area, price float64, zone string, svcs ...string) domain.Stand {
	st := domain.Stand{
		ID:       uuid.New(),
		EventID:  e.eventID,
		Code:     code,
		Area:     area,
		Price:    price,
		Zone:     zone,
		Services: svcs,
		Status:   domain.StandAvailable,
	}
	e.store.AddStand(st)

	return st
}

func (e *env) addCompany(participations int) uuid.UUID {
	id := uuid.New()
	e.store.AddCompany(domain.Company{ID: id, Name: "company", PrimaryCategory: "tech", Participations: participations, Budget: 1000})

	return id
}

// seed stores a request with a fixed priority, bypassing the scorer.
func (e *env) seed(t *testing.T, modality domain.Modality, standID *uuid.UUID, criteria domain.Criteria, score float64, at time.Time) domain.AssignmentRequest {
	t.Helper()

	req := domain.AssignmentRequest{
		ID:               uuid.New(),
		CompanyID:        e.addCompany(1),
		EventID:          e.eventID,
		Modality:         modality,
		RequestedStandID: standID,
		Criteria:         criteria,
		PriorityScore:    score,
		State:            domain.RequestSubmitted,
		RequestedAt:      at,
		UpdatedAt:        at,
	}
	require.NoError(t, req.Validate())

	entry := domain.NewHistoryEntry(domain.EntityRequest, req.ID, req.EventID, "", string(req.State), "", "", at)
	require.NoError(t, e.store.Requests().Create(context.Background(), &req, entry))

	return req
}

func (e *env) direct(t *testing.T, standID uuid.UUID, score float64) domain.AssignmentRequest {
	id := standID
	return e.seed(t, domain.ModalityDirectSelection, &id, domain.Criteria{}, score, e.now)
}

func (e *env) automatic(t *testing.T, criteria domain.Criteria, score float64) domain.AssignmentRequest {
	return e.seed(t, domain.ModalityAutomatic, nil, criteria, score, e.now)
}

func (e *env) request(t *testing.T, id uuid.UUID) *domain.AssignmentRequest {
	t.Helper()

	req, err := e.requests.Get(context.Background(), id)
	require.NoError(t, err)

	return req
}

// assignedPerStand counts asignada requests per stand.
func (e *env) assignedPerStand(t *testing.T) map[uuid.UUID]int {
	t.Helper()

	reqs, err := e.requests.List(context.Background(), domain.RequestFilter{
		EventID: &e.eventID,
		States:  []domain.RequestState{domain.RequestAssigned},
	})
	require.NoError(t, err)

	out := map[uuid.UUID]int{}
	for _, r := range reqs {
		require.NotNil(t, r.AssignedStandID)
		out[*r.AssignedStandID]++
	}

	return out
}

func assignInput(standID uuid.UUID) services.AssignStandInput {
	return services.AssignStandInput{StandID: standID, Actor: "staff-1"}
}
