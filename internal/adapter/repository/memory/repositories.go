package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

type StandRepository struct {
	s *Store
}

func (r *StandRepository) GetByID(_ context.Context, standID uuid.UUID) (*domain.Stand, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	st, ok := r.s.stands[standID]
	if !ok {
		return nil, domain.Errorf(domain.ErrNotFound, "stand %s not found", standID)
	}

	st = cloneStand(st)

	return &st, nil
}

func (r *StandRepository) ListByEvent(_ context.Context, eventID uuid.UUID) ([]domain.Stand, error) {
	return r.list(eventID, false), nil
}

func (r *StandRepository) GetAvailableStandsByEvent(_ context.Context, eventID uuid.UUID) ([]domain.Stand, error) {
	return r.list(eventID, true), nil
}

func (r *StandRepository) list(eventID uuid.UUID, availableOnly bool) []domain.Stand {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stands := []domain.Stand{}
	for _, st := range r.s.stands {
		if st.EventID != eventID || (availableOnly && !st.IsAvailable()) {
			continue
		}
		stands = append(stands, cloneStand(st))
	}
	sortStands(stands)

	return stands
}

type RequestRepository struct {
	s *Store
}

func (r *RequestRepository) Create(_ context.Context, req *domain.AssignmentRequest, entry domain.HistoryEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.requests[req.ID]; ok {
		return domain.Errorf(domain.ErrValidation, "request %s already exists", req.ID)
	}

	r.s.requests[req.ID] = cloneRequest(*req)
	r.s.appendHistory(entry)

	return nil
}

func (r *RequestRepository) GetByID(_ context.Context, requestID uuid.UUID) (*domain.AssignmentRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	req, ok := r.s.requests[requestID]
	if !ok {
		return nil, domain.Errorf(domain.ErrNotFound, "request %s not found", requestID)
	}

	req = cloneRequest(req)

	return &req, nil
}

func (r *RequestRepository) List(_ context.Context, filter domain.RequestFilter) ([]domain.AssignmentRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.AssignmentRequest{}
	for _, req := range r.s.requests {
		if filter.Matches(&req) {
			out = append(out, cloneRequest(req))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].RequestedAt.Before(out[j].RequestedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})

	return out, nil
}

// Transition applies a state change only if the request is still in t.From.
func (r *RequestRepository) Transition(_ context.Context, t domain.RequestTransition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req, ok := r.s.requests[t.RequestID]
	if !ok {
		return domain.Errorf(domain.ErrNotFound, "request %s not found", t.RequestID)
	}

	if req.State != t.From {
		return domain.Errorf(domain.ErrInvalidTransition, "request %s is %s, not %s", req.ID, req.State, t.From)
	}

	req.State = t.To
	req.UpdatedAt = t.At
	if t.RejectionReason != "" {
		req.RejectionReason = t.RejectionReason
	}

	r.s.requests[req.ID] = req
	r.s.appendHistory(t.Entry)

	return nil
}

// CommitAssignment marks the stand assigned and the request asignada in one
// step. It fails with ErrStandUnavailable when the stand is no longer free.
func (r *RequestRepository) CommitAssignment(_ context.Context, a domain.StandAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st, ok := r.s.stands[a.StandID]
	if !ok {
		return domain.Errorf(domain.ErrNotFound, "stand %s not found", a.StandID)
	}

	if !st.IsAvailable() {
		return domain.Errorf(domain.ErrStandUnavailable, "stand %s is %s", st.Code, st.Status)
	}

	req, ok := r.s.requests[a.RequestID]
	if !ok {
		return domain.Errorf(domain.ErrNotFound, "request %s not found", a.RequestID)
	}

	if req.State != domain.RequestApproved {
		return domain.Errorf(domain.ErrInvalidTransition, "request %s is %s", req.ID, req.State)
	}

	st.Status = domain.StandAssigned
	st.Version++
	r.s.stands[st.ID] = st

	standID := a.StandID
	req.State = domain.RequestAssigned
	req.AssignedStandID = &standID
	req.AssignedPrice = a.Price
	req.Discount = a.Discount
	req.FinalPrice = a.FinalPrice
	req.UpdatedAt = a.At
	r.s.requests[req.ID] = req

	r.s.appendHistory(a.Entry)

	return nil
}

func (r *RequestRepository) UpdatePriority(_ context.Context, requestID uuid.UUID, score float64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req, ok := r.s.requests[requestID]
	if !ok {
		return domain.Errorf(domain.ErrNotFound, "request %s not found", requestID)
	}

	req.PriorityScore = score
	req.UpdatedAt = at
	r.s.requests[requestID] = req

	return nil
}

type ConflictRepository struct {
	s *Store
}

// Create stores the conflict unless one with the same ID exists; it reports
// whether a record was written.
func (r *ConflictRepository) Create(_ context.Context, c *domain.Conflict, entry domain.HistoryEntry) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.conflicts[c.ID]; ok {
		return false, nil
	}

	r.s.conflicts[c.ID] = cloneConflict(*c)
	r.s.appendHistory(entry)

	return true, nil
}

func (r *ConflictRepository) GetByID(_ context.Context, conflictID uuid.UUID) (*domain.Conflict, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.conflicts[conflictID]
	if !ok {
		return nil, domain.Errorf(domain.ErrNotFound, "conflict %s not found", conflictID)
	}

	c = cloneConflict(c)

	return &c, nil
}

func (r *ConflictRepository) List(_ context.Context, filter domain.ConflictFilter) ([]domain.Conflict, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Conflict{}
	for _, c := range r.s.conflicts {
		if filter.Matches(&c) {
			out = append(out, cloneConflict(c))
		}
	}
	sortConflicts(out)

	return out, nil
}

func (r *ConflictRepository) Update(_ context.Context, c *domain.Conflict, from domain.ConflictState, entry domain.HistoryEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.conflicts[c.ID]
	if !ok {
		return domain.Errorf(domain.ErrNotFound, "conflict %s not found", c.ID)
	}

	if cur.State != from {
		return domain.Errorf(domain.ErrInvalidTransition, "conflict %s is %s, not %s", c.ID, cur.State, from)
	}

	r.s.conflicts[c.ID] = cloneConflict(*c)
	r.s.appendHistory(entry)

	return nil
}

func (r *ConflictRepository) ListExpired(_ context.Context, now time.Time) ([]domain.Conflict, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Conflict{}
	for _, c := range r.s.conflicts {
		if c.Expired(now) {
			out = append(out, cloneConflict(c))
		}
	}
	sortConflicts(out)

	return out, nil
}

func sortConflicts(cs []domain.Conflict) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.Before(cs[j].CreatedAt)
		}
		return cs[i].ID.String() < cs[j].ID.String()
	})
}

type HistoryRepository struct {
	s *Store
}

// ListByEntity returns the entity's entries in the order they were written.
func (r *HistoryRepository) ListByEntity(_ context.Context, entityID uuid.UUID) ([]domain.HistoryEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.HistoryEntry{}
	for _, e := range r.s.history {
		if e.EntityID == entityID {
			out = append(out, e)
		}
	}

	return out, nil
}

type CatalogRepository struct {
	s *Store
}

func (r *CatalogRepository) GetCompany(_ context.Context, companyID uuid.UUID) (*domain.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.companies[companyID]
	if !ok {
		return nil, domain.Errorf(domain.ErrNotFound, "company %s not found", companyID)
	}

	return &c, nil
}

func (r *CatalogRepository) GetEvent(_ context.Context, eventID uuid.UUID) (*domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.events[eventID]
	if !ok {
		return nil, domain.Errorf(domain.ErrNotFound, "event %s not found", eventID)
	}

	return &e, nil
}
