package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

const autoResolutionCriterion = "highest priority score"

type DetectionReport struct {
	EventID    uuid.UUID         `json:"evento_id"`
	New        []domain.Conflict `json:"nuevos"`
	Existing   int               `json:"existentes"`
	Unresolved int               `json:"sin_candidato"`
}

type ConflictStats struct {
	Total   int                          `json:"total"`
	ByState map[domain.ConflictState]int `json:"por_estado"`
	ByType  map[domain.ConflictType]int  `json:"por_tipo"`
}

type DashboardSummary struct {
	Open       int               `json:"abiertos"`
	Unassigned int               `json:"sin_asignar"`
	InProgress int               `json:"en_resolucion"`
	Escalated  int               `json:"escalados"`
	Resolved   int               `json:"resueltos"`
	DueSoon    int               `json:"vencen_24h"`
	Urgent     []domain.Conflict `json:"urgentes"`
}

type ConflictService struct {
	deps     Dependencies
	requests *RequestService
	detector ConflictDetector
}

func NewConflictService(deps Dependencies, requests *RequestService, detector ConflictDetector) *ConflictService {
	return &ConflictService{
		deps:     deps.withDefaults(),
		requests: requests,
		detector: detector,
	}
}

func (s *ConflictService) Get(ctx context.Context, id uuid.UUID) (*domain.Conflict, error) {
	return s.deps.Conflicts.GetByID(ctx, id)
}

func (s *ConflictService) List(ctx context.Context, filter domain.ConflictFilter) ([]domain.Conflict, error) {
	return s.deps.Conflicts.List(ctx, filter)
}

func (s *ConflictService) History(ctx context.Context, id uuid.UUID) ([]domain.HistoryEntry, error) {
	if _, err := s.deps.Conflicts.GetByID(ctx, id); err != nil {
		return nil, err
	}

	return s.deps.History.ListByEntity(ctx, id)
}

// Detect scans the event's pending requests and stores the conflicts not seen
// before. Re-running it over the same contention stores nothing new.
func (s *ConflictService) Detect(ctx context.Context, eventID uuid.UUID, actor string) (*DetectionReport, error) {
	if _, err := s.deps.Catalog.GetEvent(ctx, eventID); err != nil {
		return nil, fmt.Errorf("load event %s: %w", eventID, err)
	}

	unlock, err := s.deps.Locker.Lock(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("lock event %s: %w", eventID, err)
	}
	defer unlock()

	reqs, err := s.requests.pendingRequests(ctx, eventID)
	if err != nil {
		return nil, err
	}

	stands, err := s.deps.Stands.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list stands of event %s: %w", eventID, err)
	}

	res := s.detector.Detect(DetectionInput{EventID: eventID, Requests: reqs, Stands: stands}, s.deps.now())

	created, existing, err := s.persist(ctx, res.Conflicts, actor)
	if err != nil {
		return nil, err
	}

	return &DetectionReport{
		EventID:    eventID,
		New:        created,
		Existing:   existing,
		Unresolved: len(res.Unresolved),
	}, nil
}

// persist stores conflicts under an already held event lock.
func (s *ConflictService) persist(ctx context.Context, conflicts []domain.Conflict, actor string) ([]domain.Conflict, int, error) {
	created := []domain.Conflict{}
	existing := 0
	byType := map[domain.ConflictType]int{}

	for i := range conflicts {
		c := conflicts[i]
		note := fmt.Sprintf("%s with %d contenders", c.Type, len(c.Contenders))
		entry := domain.NewHistoryEntry(domain.EntityConflict, c.ID, c.EventID, "", string(c.State), actor, note, c.CreatedAt)

		ok, err := s.deps.Conflicts.Create(ctx, &c, entry)
		if err != nil {
			return nil, 0, fmt.Errorf("store conflict %s: %w", c.ID, err)
		}

		if !ok {
			existing++
			continue
		}

		created = append(created, c)
		byType[c.Type]++
		s.deps.publish(ctx, entry)
	}

	for typ, n := range byType {
		s.deps.Metrics.RecordConflictsDetected(typ, n)
	}

	return created, existing, nil
}

func (s *ConflictService) Assign(ctx context.Context, id uuid.UUID, staffID string, deadline *time.Time, actor string) (*domain.Conflict, error) {
	if staffID == "" {
		return nil, domain.Errorf(domain.ErrValidation, "staff id is required")
	}

	if deadline != nil && !deadline.After(s.deps.now()) {
		return nil, domain.Errorf(domain.ErrValidation, "fecha_limite must be in the future")
	}

	return s.withConflictLock(ctx, id, func(c *domain.Conflict) error {
		if c.State == domain.ConflictResolved {
			return domain.Errorf(domain.ErrAlreadyResolved, "conflict %s is already resolved", c.ID)
		}

		if !c.State.Assignable() {
			return domain.Errorf(domain.ErrInvalidTransition, "conflict %s is %s and cannot be assigned", c.ID, c.State)
		}

		staff := staffID
		note := "assigned to " + staffID
		if deadline != nil {
			d := deadline.UTC()
			c.Deadline = &d
			note += " until " + d.Format(time.RFC3339)
		}
		c.AssignedTo = &staff

		return s.move(ctx, c, domain.ConflictInProgress, actor, note)
	})
}

func (s *ConflictService) ResolveManually(ctx context.Context, id, winnerCompanyID uuid.UUID, criterion, actor string) (*domain.Conflict, error) {
	if criterion == "" {
		return nil, domain.Errorf(domain.ErrValidation, "a resolution criterion is required")
	}

	return s.resolve(ctx, id, actor, func(c *domain.Conflict) (domain.Contender, string, error) {
		winner, ok := c.Contender(winnerCompanyID)
		if !ok {
			return domain.Contender{}, "", domain.Errorf(domain.ErrValidation, "company %s is not a contender of conflict %s", winnerCompanyID, c.ID)
		}
		return winner, criterion, nil
	})
}

// ResolveAutomatically awards the conflict to the highest priority contender
// that can still take it; equal scores go to the earliest request. Contenders
// whose request was cancelled, rejected or assigned elsewhere are passed over.
func (s *ConflictService) ResolveAutomatically(ctx context.Context, id uuid.UUID, actor string) (*domain.Conflict, error) {
	return s.resolve(ctx, id, actor, func(c *domain.Conflict) (domain.Contender, string, error) {
		if len(c.Contenders) == 0 {
			return domain.Contender{}, "", domain.Errorf(domain.ErrValidation, "conflict %s has no contenders", c.ID)
		}

		ordered := append([]domain.Contender(nil), c.Contenders...)
		domain.SortContenders(ordered)

		for _, ct := range ordered {
			ok, err := s.canWin(ctx, c, ct)
			if err != nil {
				return domain.Contender{}, "", err
			}
			if ok {
				return ct, autoResolutionCriterion, nil
			}
		}

		return domain.Contender{}, "", domain.Errorf(domain.ErrInvalidTransition, "no contender of conflict %s is still pending", c.ID)
	})
}

// canWin reports whether the contender's request can still be awarded the
// conflict: it is pending, or it already holds the contested stand.
func (s *ConflictService) canWin(ctx context.Context, c *domain.Conflict, ct domain.Contender) (bool, error) {
	req, err := s.deps.Requests.GetByID(ctx, ct.RequestID)
	if err != nil {
		return false, fmt.Errorf("load contending request %s: %w", ct.RequestID, err)
	}

	if req.State.IsPending() {
		return true, nil
	}

	return req.State == domain.RequestAssigned && c.StandID != nil &&
		req.AssignedStandID != nil && *req.AssignedStandID == *c.StandID, nil
}

type winnerPicker func(c *domain.Conflict) (domain.Contender, string, error)

func (s *ConflictService) resolve(ctx context.Context, id uuid.UUID, actor string, pick winnerPicker) (*domain.Conflict, error) {
	return s.withConflictLock(ctx, id, func(c *domain.Conflict) error {
		if c.State == domain.ConflictResolved {
			return domain.Errorf(domain.ErrAlreadyResolved, "conflict %s is already resolved", c.ID)
		}

		if !c.State.Resolvable() {
			return domain.Errorf(domain.ErrInvalidTransition, "conflict %s is %s and cannot be resolved", c.ID, c.State)
		}

		winner, criterion, err := pick(c)
		if err != nil {
			return err
		}

		if c.Type == domain.ConflictMultipleRequests && c.StandID != nil {
			if err := s.settleStand(ctx, c, winner, actor); err != nil {
				return err
			}
		}

		companyID := winner.CompanyID
		c.Resolution = &domain.Resolution{
			WinnerCompanyID: &companyID,
			Criterion:       criterion,
			ResolvedBy:      actorOrSystem(actor),
			ResolvedAt:      s.deps.now(),
		}

		return s.move(ctx, c, domain.ConflictResolved, actor, criterion)
	})
}

// settleStand hands the contested stand to the winner and rejects the other
// contenders that are still pending.
func (s *ConflictService) settleStand(ctx context.Context, c *domain.Conflict, winner domain.Contender, actor string) error {
	req, err := s.deps.Requests.GetByID(ctx, winner.RequestID)
	if err != nil {
		return fmt.Errorf("load winning request %s: %w", winner.RequestID, err)
	}

	switch req.State {
	case domain.RequestSubmitted, domain.RequestInReview:
		if err := s.requests.approveLocked(ctx, req, actor, "won conflict resolution"); err != nil {
			return err
		}
		fallthrough
	case domain.RequestApproved:
		err := s.requests.assignStandLocked(ctx, req, AssignStandInput{
			StandID: *c.StandID,
			Actor:   actor,
			Note:    fmt.Sprintf("awarded by conflict %s", c.ID),
		})
		if err != nil {
			return err
		}
	case domain.RequestAssigned:
		if req.AssignedStandID == nil || *req.AssignedStandID != *c.StandID {
			return domain.Errorf(domain.ErrInvalidTransition, "winning request %s already holds another stand", req.ID)
		}
	default:
		return domain.Errorf(domain.ErrInvalidTransition, "winning request %s is %s", req.ID, req.State)
	}

	for _, ct := range c.Contenders {
		if ct.RequestID == winner.RequestID {
			continue
		}

		loser, err := s.deps.Requests.GetByID(ctx, ct.RequestID)
		if err != nil {
			return fmt.Errorf("load losing request %s: %w", ct.RequestID, err)
		}

		if !loser.State.IsPending() {
			continue
		}

		if err := s.requests.rejectLocked(ctx, loser, actor, lostConflictReason); err != nil {
			return err
		}
	}

	return nil
}

// CheckExpired escalates in-progress conflicts whose deadline passed at now.
// A failure on one conflict is logged and the sweep goes on.
func (s *ConflictService) CheckExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.deps.Conflicts.ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expired conflicts: %w", err)
	}

	escalated := 0
	for _, c := range expired {
		_, err := s.withConflictLock(ctx, c.ID, func(cur *domain.Conflict) error {
			if !cur.Expired(now) {
				return errNotExpired
			}
			return s.move(ctx, cur, domain.ConflictEscalated, "system", "deadline "+cur.Deadline.Format(time.RFC3339)+" passed")
		})

		switch {
		case err == nil:
			escalated++
		case errors.Is(err, errNotExpired):
		default:
			s.deps.Logger.Error().Err(err).Str("conflict_id", c.ID.String()).Msg("escalate conflict")
		}
	}

	return escalated, nil
}

var errNotExpired = errors.New("conflict not expired")

// RunBackgroundSweep escalates expired conflicts every interval until ctx ends.
func (s *ConflictService) RunBackgroundSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.deps.Logger.Info().Dur("interval", interval).Msg("conflict deadline sweep started")

	for {
		select {
		case <-ctx.Done():
			s.deps.Logger.Info().Msg("conflict deadline sweep stopped")
			return
		case <-ticker.C:
			n, err := s.CheckExpired(ctx, s.deps.now())
			if err != nil {
				s.deps.Logger.Error().Err(err).Msg("conflict deadline sweep")
				continue
			}
			if n > 0 {
				s.deps.Logger.Info().Int("escalated", n).Msg("conflicts escalated")
			}
		}
	}
}

func (s *ConflictService) Stats(ctx context.Context, eventID *uuid.UUID) (*ConflictStats, error) {
	conflicts, err := s.deps.Conflicts.List(ctx, domain.ConflictFilter{EventID: eventID})
	if err != nil {
		return nil, err
	}

	stats := &ConflictStats{
		Total:   len(conflicts),
		ByState: map[domain.ConflictState]int{},
		ByType:  map[domain.ConflictType]int{},
	}

	for _, c := range conflicts {
		stats.ByState[c.State]++
		stats.ByType[c.Type]++
	}

	return stats, nil
}

func (s *ConflictService) DashboardSummary(ctx context.Context, now time.Time) (*DashboardSummary, error) {
	conflicts, err := s.deps.Conflicts.List(ctx, domain.ConflictFilter{})
	if err != nil {
		return nil, err
	}

	sum := &DashboardSummary{Urgent: []domain.Conflict{}}
	soon := now.Add(24 * time.Hour)

	var urgent []domain.Conflict
	for _, c := range conflicts {
		switch c.State {
		case domain.ConflictDetected:
			sum.Unassigned++
		case domain.ConflictInProgress:
			sum.InProgress++
			if c.Deadline != nil && c.Deadline.Before(soon) {
				sum.DueSoon++
				urgent = append(urgent, c)
			}
		case domain.ConflictEscalated:
			sum.Escalated++
			urgent = append(urgent, c)
		case domain.ConflictResolved:
			sum.Resolved++
		}
	}
	sum.Open = sum.Unassigned + sum.InProgress + sum.Escalated

	sort.SliceStable(urgent, func(i, j int) bool {
		return deadlineOf(urgent[i]).Before(deadlineOf(urgent[j]))
	})
	if len(urgent) > 5 {
		urgent = urgent[:5]
	}
	sum.Urgent = append(sum.Urgent, urgent...)

	return sum, nil
}

func (s *ConflictService) withConflictLock(ctx context.Context, id uuid.UUID, fn func(c *domain.Conflict) error) (*domain.Conflict, error) {
	c, err := s.deps.Conflicts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock, err := s.deps.Locker.Lock(ctx, c.EventID)
	if err != nil {
		return nil, fmt.Errorf("lock event %s: %w", c.EventID, err)
	}
	defer unlock()

	c, err = s.deps.Conflicts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *ConflictService) move(ctx context.Context, c *domain.Conflict, to domain.ConflictState, actor, note string) error {
	now := s.deps.now()
	from := c.State
	entry := domain.NewHistoryEntry(domain.EntityConflict, c.ID, c.EventID, string(from), string(to), actor, note, now)

	c.State = to
	c.UpdatedAt = now

	if err := s.deps.Conflicts.Update(ctx, c, from, entry); err != nil {
		c.State = from
		return err
	}

	s.deps.publish(ctx, entry)

	return nil
}

func deadlineOf(c domain.Conflict) time.Time {
	if c.Deadline == nil {
		return c.CreatedAt
	}

	return *c.Deadline
}

func actorOrSystem(actor string) string {
	if actor == "" {
		return "system"
	}

	return actor
}
