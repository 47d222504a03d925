package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/adapter/cache"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/adapter/lock"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/ports/mocks"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/services"
)

func TestCreate_Validation(t *testing.T) {
	e := newEnv(t)
	st := e.addStand("A-01", 30, 800, "norte")
	companyID := e.addCompany(2)
	ctx := context.Background()

	foreign := uuid.New()

	tests := []struct {
		name string
		in   services.CreateRequestInput
		want error
	}{
		{
			name: "direct selection without stand",
			in:   services.CreateRequestInput{CompanyID: companyID, EventID: e.eventID, Modality: domain.ModalityDirectSelection},
			want: domain.ErrValidation,
		},
		{
			name: "automatic with a stand",
			in:   services.CreateRequestInput{CompanyID: companyID, EventID: e.eventID, Modality: domain.ModalityAutomatic, RequestedStandID: &st.ID},
			want: domain.ErrValidation,
		},
		{
			name: "inverted area range",
			in: services.CreateRequestInput{
				CompanyID: companyID,
				EventID:   e.eventID,
				Modality:  domain.ModalityAutomatic,
				Criteria:  domain.Criteria{AreaMin: domain.Float(50), AreaMax: domain.Float(10)},
			},
			want: domain.ErrValidation,
		},
		{
			name: "stand of another event",
			in:   services.CreateRequestInput{CompanyID: companyID, EventID: e.eventID, Modality: domain.ModalityDirectSelection, RequestedStandID: &foreign},
			want: domain.ErrValidation,
		},
		{
			name: "unknown company",
			in:   services.CreateRequestInput{CompanyID: uuid.New(), EventID: e.eventID, Modality: domain.ModalityManual},
			want: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := e.requests.Create(ctx, tt.in)

			assert.Nil(t, req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRequestLifecycle(t *testing.T) {
	e := newEnv(t)
	st := e.addStand("A-01", 30, 800, "norte", "internet")
	companyID := e.addCompany(3)
	ctx := context.Background()

	req, err := e.requests.Create(ctx, services.CreateRequestInput{
		CompanyID:        companyID,
		EventID:          e.eventID,
		Modality:         domain.ModalityDirectSelection,
		RequestedStandID: &st.ID,
		Actor:            "company-portal",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RequestSubmitted, req.State)
	assert.Greater(t, req.PriorityScore, 0.0)
	assert.Equal(t, e.now, req.RequestedAt)

	_, err = e.requests.StartReview(ctx, req.ID, "staff-1", "")
	require.NoError(t, err)

	_, err = e.requests.AssignStand(ctx, req.ID, assignInput(st.ID))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "only approved requests take a stand")

	_, err = e.requests.Approve(ctx, req.ID, "staff-1", "documents ok")
	require.NoError(t, err)

	_, err = e.requests.Cancel(ctx, req.ID, "company-portal", "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	assigned, err := e.requests.AssignStand(ctx, req.ID, services.AssignStandInput{
		StandID:  st.ID,
		Discount: decimal.NewFromInt(10),
		Actor:    "staff-1",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RequestAssigned, assigned.State)
	require.NotNil(t, assigned.AssignedStandID)
	assert.Equal(t, st.ID, *assigned.AssignedStandID)
	assert.True(t, decimal.NewFromInt(800).Equal(assigned.AssignedPrice))
	assert.True(t, decimal.NewFromInt(720).Equal(assigned.FinalPrice))

	_, err = e.requests.Reject(ctx, req.ID, "staff-1", "duplicate")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	history, err := e.requests.History(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, []string{"solicitada", "en_revision", "aprobada", "asignada"}, []string{
		history[0].ToState, history[1].ToState, history[2].ToState, history[3].ToState,
	})
	assert.Equal(t, "aprobada", history[3].FromState)
}

func TestReject_RequiresReason(t *testing.T) {
	e := newEnv(t)
	req := e.automatic(t, domain.Criteria{}, 40)

	_, err := e.requests.Reject(context.Background(), req.ID, "staff-1", "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	rejected, err := e.requests.Reject(context.Background(), req.ID, "staff-1", "incomplete file")
	require.NoError(t, err)

	assert.Equal(t, domain.RequestRejected, rejected.State)
	assert.Equal(t, "incomplete file", e.request(t, req.ID).RejectionReason)
}

func TestAssignStand_RejectsTakenStandAndBadDiscount(t *testing.T) {
	e := newEnv(t)
	st := e.addStand("A-01", 30, 800, "")
	ctx := context.Background()

	first := e.automatic(t, domain.Criteria{}, 50)
	second := e.automatic(t, domain.Criteria{}, 40)
	for _, id := range []uuid.UUID{first.ID, second.ID} {
		_, err := e.requests.Approve(ctx, id, "staff-1", "")
		require.NoError(t, err)
	}

	_, err := e.requests.AssignStand(ctx, first.ID, services.AssignStandInput{StandID: st.ID, Discount: decimal.NewFromInt(120)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.requests.AssignStand(ctx, first.ID, assignInput(st.ID))
	require.NoError(t, err)

	_, err = e.requests.AssignStand(ctx, second.ID, assignInput(st.ID))
	assert.ErrorIs(t, err, domain.ErrStandUnavailable)
	assert.Equal(t, domain.RequestApproved, e.request(t, second.ID).State)
}

func TestAssignStand_ConcurrentWritersOneWinner(t *testing.T) {
	e := newEnv(t)
	st := e.addStand("A-01", 30, 800, "")
	ctx := context.Background()

	const writers = 8
	ids := make([]uuid.UUID, 0, writers)
	for i := 0; i < writers; i++ {
		req := e.automatic(t, domain.Criteria{}, float64(10+i))
		_, err := e.requests.Approve(ctx, req.ID, "staff-1", "")
		require.NoError(t, err)
		ids = append(ids, req.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = e.requests.AssignStand(ctx, id, assignInput(st.ID))
		}(i, id)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrStandUnavailable), "unexpected error: %v", err)
	}

	assert.Equal(t, 1, won)
	assert.Equal(t, map[uuid.UUID]int{st.ID: 1}, e.assignedPerStand(t))
}

func TestRecomputePriority(t *testing.T) {
	e := newEnv(t)
	e.addStand("A-01", 30, 800, "")
	req := e.automatic(t, domain.Criteria{}, 1)
	ctx := context.Background()

	e.now = e.now.Add(time.Hour)
	got, err := e.requests.RecomputePriority(ctx, req.ID)
	require.NoError(t, err)

	// one participation, focus category, budget above the only price
	assert.Equal(t, 53.0, got.PriorityScore)
	assert.Equal(t, 53.0, e.request(t, req.ID).PriorityScore)
	assert.Equal(t, e.now, e.request(t, req.ID).UpdatedAt)

	_, err = e.requests.Cancel(ctx, req.ID, "company-portal", "")
	require.NoError(t, err)

	_, err = e.requests.RecomputePriority(ctx, req.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRequestStats(t *testing.T) {
	e := newEnv(t)
	st := e.addStand("A-01", 30, 800, "")
	e.direct(t, st.ID, 60)
	e.automatic(t, domain.Criteria{}, 40)
	e.automatic(t, domain.Criteria{}, 20)

	stats, err := e.requests.Stats(context.Background(), &e.eventID)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.ByState[domain.RequestSubmitted])
	assert.Equal(t, 2, stats.ByModality[domain.ModalityAutomatic])
	assert.Equal(t, 40.0, stats.AvgPriority)
}

func TestCreate_ScoresAndNotifies(t *testing.T) {
	requests := mocks.NewRequestRepository(t)
	stands := mocks.NewStandRepository(t)
	catalog := mocks.NewCatalogReader(t)
	notifier := mocks.NewNotifier(t)

	companyID, eventID := uuid.New(), uuid.New()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	catalog.On("GetCompany", mock.Anything, companyID).
		Return(&domain.Company{ID: companyID, PrimaryCategory: "tech", Participations: 10, Budget: 800}, nil)
	catalog.On("GetEvent", mock.Anything, eventID).
		Return(&domain.Event{ID: eventID, FocusCategories: []string{"tech"}}, nil)
	stands.On("ListByEvent", mock.Anything, eventID).
		Return([]domain.Stand{{ID: uuid.New(), EventID: eventID, Price: 800, Zone: "sur", Status: domain.StandAvailable}}, nil)
	requests.On("Create", mock.Anything, mock.AnythingOfType("*domain.AssignmentRequest"), mock.Anything).Return(nil)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e domain.HistoryEntry) bool {
		return e.EntityKind == domain.EntityRequest && e.ToState == "solicitada"
	})).Return(errors.New("broker down"))

	svc := services.NewRequestService(services.Dependencies{
		Requests: requests,
		Stands:   stands,
		Catalog:  catalog,
		Locker:   lock.NewLocalLocker(),
		Notifier: notifier,
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return now },
	}, services.NewPriorityScorer(services.DefaultScoreWeights()))

	req, err := svc.Create(context.Background(), services.CreateRequestInput{
		CompanyID: companyID,
		EventID:   eventID,
		Modality:  domain.ModalityAutomatic,
		Criteria:  domain.Criteria{PreferredZone: "sur"},
	})

	require.NoError(t, err, "a failed notification does not fail the request")
	assert.Equal(t, 100.0, req.PriorityScore)
	assert.Equal(t, now, req.RequestedAt)
}

func TestAssignStand_InvalidatesStandCache(t *testing.T) {
	requests := mocks.NewRequestRepository(t)
	stands := mocks.NewStandRepository(t)
	notifier := mocks.NewNotifier(t)
	client, redisMock := redismock.NewClientMock()

	eventID := uuid.New()
	stand := &domain.Stand{ID: uuid.New(), EventID: eventID, Code: "A-01", Price: 500, Status: domain.StandAvailable}
	req := &domain.AssignmentRequest{ID: uuid.New(), CompanyID: uuid.New(), EventID: eventID, Modality: domain.ModalityManual, State: domain.RequestApproved}

	requests.On("GetByID", mock.Anything, req.ID).Return(req, nil)
	stands.On("GetByID", mock.Anything, stand.ID).Return(stand, nil)
	requests.On("CommitAssignment", mock.Anything, mock.MatchedBy(func(a domain.StandAssignment) bool {
		return a.StandID == stand.ID && a.FinalPrice.Equal(decimal.NewFromInt(500))
	})).Return(nil)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()
	redisMock.ExpectDel(cache.Key(eventID)).SetVal(1)

	svc := services.NewRequestService(services.Dependencies{
		Requests: requests,
		Stands:   stands,
		Locker:   lock.NewLocalLocker(),
		Cache:    cache.NewRedisStandCache(client, time.Minute),
		Notifier: notifier,
		Logger:   zerolog.Nop(),
	}, services.NewPriorityScorer(services.DefaultScoreWeights()))

	got, err := svc.AssignStand(context.Background(), req.ID, assignInput(stand.ID))

	require.NoError(t, err)
	assert.Equal(t, domain.RequestAssigned, got.State)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
