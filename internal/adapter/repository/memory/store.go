package memory

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

// Store keeps every engine record in process memory. Each write takes the
// store mutex for its whole duration, so a stand change and its request
// transition are observed together.
type Store struct {
	mu        sync.RWMutex
	stands    map[uuid.UUID]domain.Stand
	requests  map[uuid.UUID]domain.AssignmentRequest
	conflicts map[uuid.UUID]domain.Conflict
	history   []domain.HistoryEntry
	companies map[uuid.UUID]domain.Company
	events    map[uuid.UUID]domain.Event
}

func NewStore() *Store {
	return &Store{
		stands:    map[uuid.UUID]domain.Stand{},
		requests:  map[uuid.UUID]domain.AssignmentRequest{},
		conflicts: map[uuid.UUID]domain.Conflict{},
		companies: map[uuid.UUID]domain.Company{},
		events:    map[uuid.UUID]domain.Event{},
	}
}

func (s *Store) Stands() *StandRepository       { return &StandRepository{s: s} }
func (s *Store) Requests() *RequestRepository   { return &RequestRepository{s: s} }
func (s *Store) Conflicts() *ConflictRepository { return &ConflictRepository{s: s} }
func (s *Store) History() *HistoryRepository    { return &HistoryRepository{s: s} }
func (s *Store) Catalog() *CatalogRepository    { return &CatalogRepository{s: s} }

func (s *Store) AddEvent(e domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.FocusCategories = append([]string(nil), e.FocusCategories...)
	s.events[e.ID] = e
}

func (s *Store) AddCompany(c domain.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.companies[c.ID] = c
}

func (s *Store) AddStand(st domain.Stand) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.Status == "" {
		st.Status = domain.StandAvailable
	}
	s.stands[st.ID] = cloneStand(st)
}

// SetStandStatus changes a stand outside the engine, as the stand catalog
// owner would.
func (s *Store) SetStandStatus(standID uuid.UUID, status domain.StandStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stands[standID]
	if !ok {
		return domain.Errorf(domain.ErrNotFound, "stand %s not found", standID)
	}

	st.Status = status
	st.Version++
	s.stands[standID] = st

	return nil
}

func (s *Store) appendHistory(e domain.HistoryEntry) {
	s.history = append(s.history, e)
}

func cloneStand(st domain.Stand) domain.Stand {
	st.Services = append([]string(nil), st.Services...)
	return st
}

func cloneRequest(r domain.AssignmentRequest) domain.AssignmentRequest {
	r.Criteria.RequiredServices = append([]string(nil), r.Criteria.RequiredServices...)
	if r.RequestedStandID != nil {
		id := *r.RequestedStandID
		r.RequestedStandID = &id
	}
	if r.AssignedStandID != nil {
		id := *r.AssignedStandID
		r.AssignedStandID = &id
	}
	return r
}

func cloneConflict(c domain.Conflict) domain.Conflict {
	c.Contenders = append([]domain.Contender(nil), c.Contenders...)
	if c.StandID != nil {
		id := *c.StandID
		c.StandID = &id
	}
	if c.AssignedTo != nil {
		v := *c.AssignedTo
		c.AssignedTo = &v
	}
	if c.Deadline != nil {
		d := *c.Deadline
		c.Deadline = &d
	}
	if c.Resolution != nil {
		res := *c.Resolution
		if res.WinnerCompanyID != nil {
			id := *res.WinnerCompanyID
			res.WinnerCompanyID = &id
		}
		c.Resolution = &res
	}
	return c
}

func sortStands(stands []domain.Stand) {
	sort.Slice(stands, func(i, j int) bool {
		if stands[i].Code != stands[j].Code {
			return stands[i].Code < stands[j].Code
		}
		return stands[i].ID.String() < stands[j].ID.String()
	})
}
