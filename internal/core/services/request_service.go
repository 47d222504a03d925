package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

const lostConflictReason = "lost conflict resolution"

type CreateRequestInput struct {
	CompanyID        uuid.UUID       `json:"empresa_id"`
	EventID          uuid.UUID       `json:"evento_id"`
	Modality         domain.Modality `json:"modalidad"`
	RequestedStandID *uuid.UUID      `json:"stand_solicitado_id,omitempty"`
	Criteria         domain.Criteria `json:"criterios"`
	Notes            string          `json:"observaciones,omitempty"`
	Actor            string          `json:"-"`
}

type AssignStandInput struct {
	StandID  uuid.UUID        `json:"stand_id"`
	Price    *decimal.Decimal `json:"precio,omitempty"`
	Discount decimal.Decimal  `json:"descuento"`
	Note     string           `json:"nota,omitempty"`
	Actor    string           `json:"-"`
}

type RequestStats struct {
	Total       int                         `json:"total"`
	ByState     map[domain.RequestState]int `json:"por_estado"`
	ByModality  map[domain.Modality]int     `json:"por_modalidad"`
	AvgPriority float64                     `json:"prioridad_promedio"`
}

type RequestService struct {
	deps   Dependencies
	scorer PriorityScorer
}

func NewRequestService(deps Dependencies, scorer PriorityScorer) *RequestService {
	return &RequestService{
		deps:   deps.withDefaults(),
		scorer: scorer,
	}
}

func (s *RequestService) Create(ctx context.Context, in CreateRequestInput) (*domain.AssignmentRequest, error) {
	now := s.deps.now()

	req := &domain.AssignmentRequest{
		ID:               uuid.New(),
		CompanyID:        in.CompanyID,
		EventID:          in.EventID,
		Modality:         in.Modality,
		RequestedStandID: in.RequestedStandID,
		Criteria:         in.Criteria,
		State:            domain.RequestSubmitted,
		Notes:            in.Notes,
		RequestedAt:      now,
		UpdatedAt:        now,
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	company, err := s.deps.Catalog.GetCompany(ctx, in.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load company %s: %w", in.CompanyID, err)
	}

	event, err := s.deps.Catalog.GetEvent(ctx, in.EventID)
	if err != nil {
		return nil, fmt.Errorf("load event %s: %w", in.EventID, err)
	}

	stands, err := s.deps.Stands.ListByEvent(ctx, in.EventID)
	if err != nil {
		return nil, fmt.Errorf("list stands of event %s: %w", in.EventID, err)
	}

	if req.RequestedStandID != nil && !containsStand(stands, *req.RequestedStandID) {
		return nil, domain.Errorf(domain.ErrValidation, "stand %s does not belong to event %s", *req.RequestedStandID, in.EventID)
	}

	req.PriorityScore = s.scorer.Score(ScoreInput{
		Request: req,
		Company: company,
		Event:   event,
		Stands:  stands,
	})

	entry := domain.NewHistoryEntry(domain.EntityRequest, req.ID, req.EventID, "", string(req.State), in.Actor, "request created", now)

	if err := s.deps.Requests.Create(ctx, req, entry); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.deps.publish(ctx, entry)

	return req, nil
}

func (s *RequestService) Get(ctx context.Context, id uuid.UUID) (*domain.AssignmentRequest, error) {
	return s.deps.Requests.GetByID(ctx, id)
}

func (s *RequestService) List(ctx context.Context, filter domain.RequestFilter) ([]domain.AssignmentRequest, error) {
	return s.deps.Requests.List(ctx, filter)
}

func (s *RequestService) History(ctx context.Context, id uuid.UUID) ([]domain.HistoryEntry, error) {
	if _, err := s.deps.Requests.GetByID(ctx, id); err != nil {
		return nil, err
	}

	return s.deps.History.ListByEntity(ctx, id)
}

func (s *RequestService) Stats(ctx context.Context, eventID *uuid.UUID) (*RequestStats, error) {
	reqs, err := s.deps.Requests.List(ctx, domain.RequestFilter{EventID: eventID})
	if err != nil {
		return nil, err
	}

	stats := &RequestStats{
		Total:      len(reqs),
		ByState:    map[domain.RequestState]int{},
		ByModality: map[domain.Modality]int{},
	}

	scores := make([]float64, 0, len(reqs))
	for _, r := range reqs {
		stats.ByState[r.State]++
		stats.ByModality[r.Modality]++
		scores = append(scores, r.PriorityScore)
	}

	if len(scores) > 0 {
		stats.AvgPriority = round2(stat.Mean(scores, nil))
	}

	return stats, nil
}

func (s *RequestService) StartReview(ctx context.Context, id uuid.UUID, actor, note string) (*domain.AssignmentRequest, error) {
	return s.withRequestLock(ctx, id, func(req *domain.AssignmentRequest) error {
		return s.transition(ctx, req, domain.RequestInReview, actor, note)
	})
}

func (s *RequestService) Approve(ctx context.Context, id uuid.UUID, actor, note string) (*domain.AssignmentRequest, error) {
	return s.withRequestLock(ctx, id, func(req *domain.AssignmentRequest) error {
		return s.approveLocked(ctx, req, actor, note)
	})
}

func (s *RequestService) Reject(ctx context.Context, id uuid.UUID, actor, reason string) (*domain.AssignmentRequest, error) {
	if reason == "" {
		return nil, domain.Errorf(domain.ErrValidation, "a rejection reason is required")
	}

	return s.withRequestLock(ctx, id, func(req *domain.AssignmentRequest) error {
		return s.rejectLocked(ctx, req, actor, reason)
	})
}

func (s *RequestService) Cancel(ctx context.Context, id uuid.UUID, actor, note string) (*domain.AssignmentRequest, error) {
	return s.withRequestLock(ctx, id, func(req *domain.AssignmentRequest) error {
		return s.transition(ctx, req, domain.RequestCancelled, actor, note)
	})
}

func (s *RequestService) AssignStand(ctx context.Context, id uuid.UUID, in AssignStandInput) (*domain.AssignmentRequest, error) {
	return s.withRequestLock(ctx, id, func(req *domain.AssignmentRequest) error {
		return s.assignStandLocked(ctx, req, in)
	})
}

// RecomputePriority re-scores a request that is still competing for a stand.
func (s *RequestService) RecomputePriority(ctx context.Context, id uuid.UUID) (*domain.AssignmentRequest, error) {
	req, err := s.deps.Requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.State.IsTerminal() {
		return nil, domain.Errorf(domain.ErrInvalidTransition, "request %s is %s; its priority is final", req.ID, req.State)
	}

	company, err := s.deps.Catalog.GetCompany(ctx, req.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load company %s: %w", req.CompanyID, err)
	}

	event, err := s.deps.Catalog.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("load event %s: %w", req.EventID, err)
	}

	stands, err := s.deps.Stands.ListByEvent(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("list stands of event %s: %w", req.EventID, err)
	}

	now := s.deps.now()
	score := s.scorer.Score(ScoreInput{Request: req, Company: company, Event: event, Stands: stands})

	if err := s.deps.Requests.UpdatePriority(ctx, req.ID, score, now); err != nil {
		return nil, fmt.Errorf("update priority: %w", err)
	}

	req.PriorityScore = score
	req.UpdatedAt = now

	return req, nil
}

func (s *RequestService) withRequestLock(ctx context.Context, id uuid.UUID, fn func(req *domain.AssignmentRequest) error) (*domain.AssignmentRequest, error) {
	req, err := s.deps.Requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock, err := s.deps.Locker.Lock(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("lock event %s: %w", req.EventID, err)
	}
	defer unlock()

	// Re-read under the lock; another writer may have moved the request.
	req, err = s.deps.Requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(req); err != nil {
		return nil, err
	}

	return req, nil
}

func (s *RequestService) approveLocked(ctx context.Context, req *domain.AssignmentRequest, actor, note string) error {
	return s.transition(ctx, req, domain.RequestApproved, actor, note)
}

func (s *RequestService) rejectLocked(ctx context.Context, req *domain.AssignmentRequest, actor, reason string) error {
	return s.transition(ctx, req, domain.RequestRejected, actor, reason)
}

func (s *RequestService) transition(ctx context.Context, req *domain.AssignmentRequest, to domain.RequestState, actor, note string) error {
	if !req.State.CanTransitionTo(to) {
		return domain.Errorf(domain.ErrInvalidTransition, "request %s cannot move from %s to %s", req.ID, req.State, to)
	}

	now := s.deps.now()
	entry := domain.NewHistoryEntry(domain.EntityRequest, req.ID, req.EventID, string(req.State), string(to), actor, note, now)

	t := domain.RequestTransition{
		RequestID: req.ID,
		From:      req.State,
		To:        to,
		At:        now,
		Entry:     entry,
	}
	if to == domain.RequestRejected {
		t.RejectionReason = note
	}

	if err := s.deps.Requests.Transition(ctx, t); err != nil {
		return err
	}

	req.State = to
	req.UpdatedAt = now
	if to == domain.RequestRejected {
		req.RejectionReason = note
	}

	s.deps.publish(ctx, entry)

	return nil
}

// assignStandLocked moves an approved request onto a stand. The caller holds
// the event lock; the repository re-checks availability inside the commit.
func (s *RequestService) assignStandLocked(ctx context.Context, req *domain.AssignmentRequest, in AssignStandInput) error {
	if req.State != domain.RequestApproved {
		return domain.Errorf(domain.ErrInvalidTransition, "request %s is %s; only aprobada requests can be assigned a stand", req.ID, req.State)
	}

	stand, err := s.deps.Stands.GetByID(ctx, in.StandID)
	if err != nil {
		return err
	}

	if stand.EventID != req.EventID {
		return domain.Errorf(domain.ErrValidation, "stand %s does not belong to event %s", stand.ID, req.EventID)
	}

	if !stand.IsAvailable() {
		return domain.Errorf(domain.ErrStandUnavailable, "stand %s is %s", stand.Code, stand.Status)
	}

	hundred := decimal.NewFromInt(100)
	if in.Discount.IsNegative() || in.Discount.GreaterThan(hundred) {
		return domain.Errorf(domain.ErrValidation, "descuento must be between 0 and 100")
	}

	price := decimal.NewFromFloat(stand.Price)
	if in.Price != nil {
		price = *in.Price
	}

	if price.IsNegative() {
		return domain.Errorf(domain.ErrValidation, "precio must not be negative")
	}

	now := s.deps.now()
	note := in.Note
	if note == "" {
		note = fmt.Sprintf("stand %s assigned", stand.Code)
	}

	a := domain.StandAssignment{
		RequestID:  req.ID,
		EventID:    req.EventID,
		StandID:    stand.ID,
		Price:      price,
		Discount:   in.Discount,
		FinalPrice: domain.FinalPrice(price, in.Discount),
		At:         now,
		Entry:      domain.NewHistoryEntry(domain.EntityRequest, req.ID, req.EventID, string(req.State), string(domain.RequestAssigned), in.Actor, note, now),
	}

	if err := s.deps.Requests.CommitAssignment(ctx, a); err != nil {
		if errors.Is(err, domain.ErrStandUnavailable) {
			s.deps.Logger.Info().
				Str("request_id", req.ID.String()).
				Str("stand_id", stand.ID.String()).
				Msg("stand taken at commit time")
		}
		return err
	}

	standID := stand.ID
	req.State = domain.RequestAssigned
	req.AssignedStandID = &standID
	req.AssignedPrice = a.Price
	req.Discount = a.Discount
	req.FinalPrice = a.FinalPrice
	req.UpdatedAt = now

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Invalidate(ctx, req.EventID); err != nil {
			s.deps.Logger.Warn().Err(err).Str("event_id", req.EventID.String()).Msg("invalidate stand cache")
		}
	}

	s.deps.publish(ctx, a.Entry)

	return nil
}

func containsStand(stands []domain.Stand, id uuid.UUID) bool {
	for _, st := range stands {
		if st.ID == id {
			return true
		}
	}

	return false
}

// pendingRequests returns the event's competing requests, highest priority first.
func (s *RequestService) pendingRequests(ctx context.Context, eventID uuid.UUID) ([]domain.AssignmentRequest, error) {
	reqs, err := s.deps.Requests.List(ctx, domain.RequestFilter{
		EventID: &eventID,
		States:  domain.PendingRequestStates(),
	})
	if err != nil {
		return nil, err
	}

	domain.SortRequestsByPriority(reqs)

	return reqs, nil
}
