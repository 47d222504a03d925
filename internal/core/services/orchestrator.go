package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

type Algorithm string

const (
	AlgorithmDirect    Algorithm = "seleccion_directa"
	AlgorithmManual    Algorithm = "manual"
	AlgorithmAutomatic Algorithm = "automatica"
	AlgorithmMixed     Algorithm = "mixto"
)

type AlgorithmInfo struct {
	Name        Algorithm `json:"nombre"`
	Description string    `json:"descripcion"`
}

func Algorithms() []AlgorithmInfo {
	return []AlgorithmInfo{
		{Name: AlgorithmDirect, Description: "approve and assign direct selections whose stand is free and uncontested"},
		{Name: AlgorithmManual, Description: "no automatic pairing; capacity and coverage report for staff"},
		{Name: AlgorithmAutomatic, Description: "greedy matching by priority over automatic requests"},
		{Name: AlgorithmMixed, Description: "direct selection first, then automatic matching over the remaining stands"},
	}
}

func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case AlgorithmDirect, AlgorithmManual, AlgorithmAutomatic, AlgorithmMixed:
		return a, nil
	}

	return "", domain.Errorf(domain.ErrValidation, "unknown algorithm %q", s)
}

type Mode string

const (
	ModeSimulate Mode = "simulate"
	ModeExecute  Mode = "execute"
)

type Pairing struct {
	RequestID uuid.UUID `json:"solicitud_id"`
	CompanyID uuid.UUID `json:"empresa_id"`
	StandID   uuid.UUID `json:"stand_id"`
	StandCode string    `json:"stand_codigo"`
	Priority  float64   `json:"prioridad_score"`
	Score     float64   `json:"compatibilidad"`
	Source    Algorithm `json:"algoritmo"`
}

type Unmatched struct {
	RequestID uuid.UUID `json:"solicitud_id"`
	CompanyID uuid.UUID `json:"empresa_id"`
	Reason    string    `json:"motivo"`
}

type SimulationResult struct {
	EventID            uuid.UUID         `json:"evento_id"`
	Algorithm          Algorithm         `json:"algoritmo"`
	Eligible           int               `json:"elegibles"`
	Possible           int               `json:"posibles"`
	PotentialConflicts int               `json:"conflictos_potenciales"`
	SuccessRate        float64           `json:"porcentaje_exito"`
	Pairings           []Pairing         `json:"emparejamientos"`
	Conflicts          []domain.Conflict `json:"conflictos"`
	Unmatched          []Unmatched       `json:"sin_asignar"`
	Capacity           *CapacityReport   `json:"capacidad,omitempty"`
}

type ExecutionResult struct {
	EventID     uuid.UUID         `json:"evento_id"`
	Algorithm   Algorithm         `json:"algoritmo"`
	Eligible    int               `json:"elegibles"`
	Assigned    []Pairing         `json:"asignados"`
	Skipped     int               `json:"omitidos"`
	Conflicts   []domain.Conflict `json:"conflictos_nuevos"`
	Unmatched   []Unmatched       `json:"sin_asignar"`
	SuccessRate float64           `json:"porcentaje_exito"`
	Capacity    *CapacityReport   `json:"capacidad,omitempty"`
}

type ZoneCapacity struct {
	Zone      string `json:"zona"`
	Stands    int    `json:"stands"`
	Available int    `json:"disponibles"`
	Demand    int    `json:"demanda"`
}

type CapacityReport struct {
	EventID   uuid.UUID      `json:"evento_id"`
	Stands    int            `json:"stands_totales"`
	Available int            `json:"stands_disponibles"`
	Assigned  int            `json:"stands_asignados"`
	Reserved  int            `json:"stands_reservados"`
	Pending   int            `json:"solicitudes_pendientes"`
	Covered   int            `json:"solicitudes_cubiertas"`
	Coverage  float64        `json:"porcentaje_cobertura"`
	Zones     []ZoneCapacity `json:"zonas"`
}

type CompatibilityReport struct {
	CompanyID uuid.UUID    `json:"empresa_id"`
	Stand     domain.Stand `json:"stand"`
	RequestID *uuid.UUID   `json:"solicitud_id,omitempty"`
	Available bool         `json:"disponible"`
	Match     MatchResult  `json:"compatibilidad"`
}

type AlgorithmMetrics struct {
	Simulations    int       `json:"simulaciones"`
	Executions     int       `json:"ejecuciones"`
	Assigned       int       `json:"asignados"`
	Unmatched      int       `json:"sin_asignar"`
	AvgSuccessRate float64   `json:"porcentaje_exito_promedio"`
	LastRun        time.Time `json:"ultima_ejecucion"`
}

// plan is the outcome of one algorithm over a snapshot.
type plan struct {
	eligible  int
	pairings  []Pairing
	conflicts []domain.Conflict
	unmatched []Unmatched
}

func (p *plan) merge(o plan) {
	p.eligible += o.eligible
	p.pairings = append(p.pairings, o.pairings...)
	p.conflicts = append(p.conflicts, o.conflicts...)
	p.unmatched = append(p.unmatched, o.unmatched...)
}

type snapshot struct {
	eventID   uuid.UUID
	requests  []domain.AssignmentRequest
	stands    []domain.Stand
	standByID map[uuid.UUID]domain.Stand
	available []domain.Stand
}

type Orchestrator struct {
	deps      Dependencies
	requests  *RequestService
	conflicts *ConflictService
	matcher   CompatibilityMatcher

	mu      sync.Mutex
	metrics map[Algorithm]*AlgorithmMetrics
}

func NewOrchestrator(deps Dependencies, requests *RequestService, conflicts *ConflictService, matcher CompatibilityMatcher) *Orchestrator {
	return &Orchestrator{
		deps:      deps.withDefaults(),
		requests:  requests,
		conflicts: conflicts,
		matcher:   matcher,
		metrics:   map[Algorithm]*AlgorithmMetrics{},
	}
}

// Simulate runs the algorithm against a snapshot of the event and stores nothing.
func (o *Orchestrator) Simulate(ctx context.Context, eventID uuid.UUID, alg Algorithm) (*SimulationResult, error) {
	start := time.Now()

	snap, err := o.snapshot(ctx, eventID)
	if err != nil {
		return nil, err
	}

	p, err := o.plan(alg, snap)
	if err != nil {
		return nil, err
	}

	res := &SimulationResult{
		EventID:            eventID,
		Algorithm:          alg,
		Eligible:           p.eligible,
		Possible:           len(p.pairings),
		PotentialConflicts: len(p.conflicts),
		SuccessRate:        percent(len(p.pairings), p.eligible),
		Pairings:           nonNil(p.pairings),
		Conflicts:          nonNil(p.conflicts),
		Unmatched:          nonNil(p.unmatched),
	}

	if alg == AlgorithmManual {
		res.Capacity = o.capacity(snap)
	}

	o.record(alg, ModeSimulate, len(p.pairings), len(p.unmatched), res.SuccessRate, time.Since(start))

	return res, nil
}

// Execute runs the algorithm and commits each pairing under the event lock.
// Stand availability is re-checked per commit, so a pairing lost to a
// concurrent writer is reported as unmatched and the batch continues.
func (o *Orchestrator) Execute(ctx context.Context, eventID uuid.UUID, alg Algorithm, actor string) (*ExecutionResult, error) {
	start := time.Now()

	snap, err := o.snapshot(ctx, eventID)
	if err != nil {
		return nil, err
	}

	p, err := o.plan(alg, snap)
	if err != nil {
		return nil, err
	}

	res := &ExecutionResult{
		EventID:   eventID,
		Algorithm: alg,
		Eligible:  p.eligible,
		Assigned:  []Pairing{},
		Conflicts: []domain.Conflict{},
		Unmatched: append([]Unmatched{}, p.unmatched...),
	}

	if len(p.conflicts) > 0 {
		created, err := o.storeConflicts(ctx, eventID, p.conflicts, actor)
		if err != nil {
			return nil, err
		}
		res.Conflicts = append(res.Conflicts, created...)
	}

	for _, pr := range p.pairings {
		assigned, reason, err := o.commit(ctx, eventID, pr, alg, actor)
		if err != nil {
			return nil, err
		}

		switch {
		case assigned:
			res.Assigned = append(res.Assigned, pr)
		case reason == "":
			res.Skipped++
		default:
			res.Unmatched = append(res.Unmatched, Unmatched{RequestID: pr.RequestID, CompanyID: pr.CompanyID, Reason: reason})
		}
	}

	res.SuccessRate = percent(len(res.Assigned), p.eligible)

	if alg == AlgorithmManual {
		res.Capacity = o.capacity(snap)
	}

	o.record(alg, ModeExecute, len(res.Assigned), len(res.Unmatched), res.SuccessRate, time.Since(start))

	o.deps.Logger.Info().
		Str("event_id", eventID.String()).
		Str("algorithm", string(alg)).
		Int("assigned", len(res.Assigned)).
		Int("unmatched", len(res.Unmatched)).
		Int("conflicts", len(res.Conflicts)).
		Msg("assignment run executed")

	return res, nil
}

func (o *Orchestrator) storeConflicts(ctx context.Context, eventID uuid.UUID, conflicts []domain.Conflict, actor string) ([]domain.Conflict, error) {
	unlock, err := o.deps.Locker.Lock(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("lock event %s: %w", eventID, err)
	}
	defer unlock()

	created, _, err := o.conflicts.persist(ctx, conflicts, actor)

	return created, err
}

// commit applies one pairing. It returns assigned=true on success, a reason
// when the request ends up unmatched, and neither when the request was already
// assigned by an earlier run.
func (o *Orchestrator) commit(ctx context.Context, eventID uuid.UUID, pr Pairing, alg Algorithm, actor string) (bool, string, error) {
	unlock, err := o.deps.Locker.Lock(ctx, eventID)
	if err != nil {
		return false, "", fmt.Errorf("lock event %s: %w", eventID, err)
	}
	defer unlock()

	req, err := o.deps.Requests.GetByID(ctx, pr.RequestID)
	if err != nil {
		return false, "", err
	}

	if req.State == domain.RequestAssigned {
		return false, "", nil
	}

	if !req.State.IsPending() {
		return false, fmt.Sprintf("request is %s", req.State), nil
	}

	stand, err := o.deps.Stands.GetByID(ctx, pr.StandID)
	if err != nil {
		return false, "", err
	}

	if !stand.IsAvailable() {
		return false, fmt.Sprintf("stand %s is %s", stand.Code, stand.Status), nil
	}

	if req.State != domain.RequestApproved {
		if err := o.requests.approveLocked(ctx, req, actor, fmt.Sprintf("approved by %s run", alg)); err != nil {
			return false, "", err
		}
	}

	err = o.requests.assignStandLocked(ctx, req, AssignStandInput{
		StandID: pr.StandID,
		Actor:   actor,
		Note:    fmt.Sprintf("stand %s assigned by %s run", pr.StandCode, alg),
	})

	switch {
	case err == nil:
		return true, "", nil
	case errors.Is(err, domain.ErrStandUnavailable), errors.Is(err, domain.ErrInvalidTransition):
		return false, domain.Reason(err), nil
	default:
		return false, "", err
	}
}

func (o *Orchestrator) plan(alg Algorithm, snap *snapshot) (plan, error) {
	claimed := map[uuid.UUID]bool{}

	switch alg {
	case AlgorithmDirect:
		return o.planDirect(snap, claimed), nil
	case AlgorithmAutomatic:
		return o.planAutomatic(snap, claimed), nil
	case AlgorithmMixed:
		p := o.planDirect(snap, claimed)
		p.merge(o.planAutomatic(snap, claimed))
		return p, nil
	case AlgorithmManual:
		return plan{eligible: len(snap.requests)}, nil
	}

	return plan{}, domain.Errorf(domain.ErrValidation, "unknown algorithm %q", alg)
}

// planDirect pairs direct selections with their stand. A stand named by more
// than one request becomes a conflict and none of them is paired.
func (o *Orchestrator) planDirect(snap *snapshot, claimed map[uuid.UUID]bool) plan {
	var p plan

	groups := map[uuid.UUID][]domain.AssignmentRequest{}
	for _, req := range snap.requests {
		if req.Modality != domain.ModalityDirectSelection || req.RequestedStandID == nil {
			continue
		}
		p.eligible++
		groups[*req.RequestedStandID] = append(groups[*req.RequestedStandID], req)
	}

	ids := make([]uuid.UUID, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := snap.standByID[ids[i]].Code, snap.standByID[ids[j]].Code
		if a != b {
			return a < b
		}
		return ids[i].String() < ids[j].String()
	})

	for _, standID := range ids {
		reqs := groups[standID]
		st, ok := snap.standByID[standID]

		if !ok || !st.IsAvailable() || claimed[standID] {
			reason := "stand not available"
			if ok {
				reason = fmt.Sprintf("stand %s is %s", st.Code, st.Status)
			}
			for _, r := range reqs {
				p.unmatched = append(p.unmatched, Unmatched{RequestID: r.ID, CompanyID: r.CompanyID, Reason: reason})
			}
			continue
		}

		claimed[standID] = true

		if len(reqs) > 1 {
			contenders := make([]domain.Contender, 0, len(reqs))
			for _, r := range reqs {
				contenders = append(contenders, r.Contender())
			}
			id := standID
			p.conflicts = append(p.conflicts, newConflict(snap.eventID, domain.ConflictMultipleRequests, &id, st.Zone, contenders, o.deps.now()))
			for _, r := range reqs {
				p.unmatched = append(p.unmatched, Unmatched{RequestID: r.ID, CompanyID: r.CompanyID, Reason: fmt.Sprintf("stand %s is contested", st.Code)})
			}
			continue
		}

		r := reqs[0]
		p.pairings = append(p.pairings, Pairing{
			RequestID: r.ID,
			CompanyID: r.CompanyID,
			StandID:   st.ID,
			StandCode: st.Code,
			Priority:  r.PriorityScore,
			Score:     o.matcher.Match(r.Criteria, st).Score,
			Source:    AlgorithmDirect,
		})
	}

	return p
}

// planAutomatic is a greedy bipartite matching: requests in priority order
// each take the best compatible stand nobody claimed yet.
func (o *Orchestrator) planAutomatic(snap *snapshot, claimed map[uuid.UUID]bool) plan {
	var p plan

	free := func(st domain.Stand) bool { return !claimed[st.ID] }

	for _, req := range snap.requests {
		if req.Modality != domain.ModalityAutomatic {
			continue
		}
		p.eligible++

		best, ok := o.matcher.Best(req.Criteria, snap.available, free)
		if !ok {
			p.unmatched = append(p.unmatched, Unmatched{RequestID: req.ID, CompanyID: req.CompanyID, Reason: "no compatible stand available"})
			continue
		}

		claimed[best.Stand.ID] = true
		p.pairings = append(p.pairings, Pairing{
			RequestID: req.ID,
			CompanyID: req.CompanyID,
			StandID:   best.Stand.ID,
			StandCode: best.Stand.Code,
			Priority:  req.PriorityScore,
			Score:     best.Match.Score,
			Source:    AlgorithmAutomatic,
		})
	}

	return p
}

func (o *Orchestrator) snapshot(ctx context.Context, eventID uuid.UUID) (*snapshot, error) {
	if _, err := o.deps.Catalog.GetEvent(ctx, eventID); err != nil {
		return nil, fmt.Errorf("load event %s: %w", eventID, err)
	}

	reqs, err := o.requests.pendingRequests(ctx, eventID)
	if err != nil {
		return nil, err
	}

	stands, err := o.deps.Stands.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list stands of event %s: %w", eventID, err)
	}

	snap := &snapshot{
		eventID:   eventID,
		requests:  reqs,
		stands:    stands,
		standByID: make(map[uuid.UUID]domain.Stand, len(stands)),
	}
	for _, st := range stands {
		snap.standByID[st.ID] = st
		if st.IsAvailable() {
			snap.available = append(snap.available, st)
		}
	}

	return snap, nil
}

func (o *Orchestrator) Capacity(ctx context.Context, eventID uuid.UUID) (*CapacityReport, error) {
	snap, err := o.snapshot(ctx, eventID)
	if err != nil {
		return nil, err
	}

	return o.capacity(snap), nil
}

// capacity counts a pending request as covered when at least one available
// stand could take it: its named stand for direct selections, any compatible
// stand otherwise.
func (o *Orchestrator) capacity(snap *snapshot) *CapacityReport {
	rep := &CapacityReport{
		EventID: snap.eventID,
		Stands:  len(snap.stands),
		Pending: len(snap.requests),
		Zones:   []ZoneCapacity{},
	}

	zones := map[string]*ZoneCapacity{}
	zoneOf := func(name string) *ZoneCapacity {
		key := zoneKey(name)
		if key == "" {
			return nil
		}
		z, ok := zones[key]
		if !ok {
			z = &ZoneCapacity{Zone: name}
			zones[key] = z
		}
		return z
	}

	for _, st := range snap.stands {
		switch st.Status {
		case domain.StandAvailable:
			rep.Available++
		case domain.StandAssigned:
			rep.Assigned++
		case domain.StandReserved:
			rep.Reserved++
		}

		if z := zoneOf(st.Zone); z != nil {
			z.Stands++
			if st.IsAvailable() {
				z.Available++
			}
		}
	}

	for _, req := range snap.requests {
		if req.Modality == domain.ModalityDirectSelection {
			st, ok := snap.standByID[*req.RequestedStandID]
			if !ok {
				continue
			}
			if st.IsAvailable() {
				rep.Covered++
			}
			if z := zoneOf(st.Zone); z != nil {
				z.Demand++
			}
			continue
		}

		if _, ok := o.matcher.Best(req.Criteria, snap.available, nil); ok {
			rep.Covered++
		}
		if z := zoneOf(req.Criteria.PreferredZone); z != nil {
			z.Demand++
		}
	}

	keys := make([]string, 0, len(zones))
	for k := range zones {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rep.Zones = append(rep.Zones, *zones[k])
	}

	rep.Coverage = percent(rep.Covered, rep.Pending)

	return rep
}

// Compatibility grades a stand against the company's most recent open request
// for the stand's event. Without one, the stand is graded against empty criteria.
func (o *Orchestrator) Compatibility(ctx context.Context, companyID, standID uuid.UUID) (*CompatibilityReport, error) {
	if _, err := o.deps.Catalog.GetCompany(ctx, companyID); err != nil {
		return nil, fmt.Errorf("load company %s: %w", companyID, err)
	}

	stand, err := o.deps.Stands.GetByID(ctx, standID)
	if err != nil {
		return nil, err
	}

	req, err := o.latestOpenRequest(ctx, companyID, stand.EventID)
	if err != nil {
		return nil, err
	}

	rep := &CompatibilityReport{
		CompanyID: companyID,
		Stand:     *stand,
		Available: stand.IsAvailable(),
	}

	var criteria domain.Criteria
	if req != nil {
		id := req.ID
		rep.RequestID = &id
		criteria = req.Criteria
	}
	rep.Match = o.matcher.Match(criteria, *stand)

	return rep, nil
}

// Candidates ranks the event's available stands for the company, compatible
// stands only.
func (o *Orchestrator) Candidates(ctx context.Context, companyID, eventID uuid.UUID) ([]RankedStand, error) {
	if _, err := o.deps.Catalog.GetCompany(ctx, companyID); err != nil {
		return nil, fmt.Errorf("load company %s: %w", companyID, err)
	}

	if _, err := o.deps.Catalog.GetEvent(ctx, eventID); err != nil {
		return nil, fmt.Errorf("load event %s: %w", eventID, err)
	}

	stands, err := o.availableStands(ctx, eventID)
	if err != nil {
		return nil, err
	}

	req, err := o.latestOpenRequest(ctx, companyID, eventID)
	if err != nil {
		return nil, err
	}

	var criteria domain.Criteria
	if req != nil {
		criteria = req.Criteria
	}

	out := []RankedStand{}
	for _, r := range o.matcher.Rank(criteria, stands) {
		if r.Match.Compatible {
			out = append(out, r)
		}
	}

	return out, nil
}

func (o *Orchestrator) availableStands(ctx context.Context, eventID uuid.UUID) ([]domain.Stand, error) {
	if o.deps.Cache != nil {
		stands, ok, err := o.deps.Cache.GetAvailable(ctx, eventID)
		if err != nil {
			o.deps.Logger.Warn().Err(err).Str("event_id", eventID.String()).Msg("read stand cache")
		} else if ok {
			return stands, nil
		}
	}

	stands, err := o.deps.Stands.GetAvailableStandsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list available stands of event %s: %w", eventID, err)
	}

	if o.deps.Cache != nil {
		if err := o.deps.Cache.SetAvailable(ctx, eventID, stands); err != nil {
			o.deps.Logger.Warn().Err(err).Str("event_id", eventID.String()).Msg("fill stand cache")
		}
	}

	return stands, nil
}

func (o *Orchestrator) latestOpenRequest(ctx context.Context, companyID, eventID uuid.UUID) (*domain.AssignmentRequest, error) {
	reqs, err := o.deps.Requests.List(ctx, domain.RequestFilter{
		EventID:   &eventID,
		CompanyID: &companyID,
		States:    domain.PendingRequestStates(),
	})
	if err != nil {
		return nil, err
	}

	var latest *domain.AssignmentRequest
	for i := range reqs {
		if latest == nil || reqs[i].RequestedAt.After(latest.RequestedAt) {
			latest = &reqs[i]
		}
	}

	return latest, nil
}

// Metrics returns per-algorithm run counters since the process started.
func (o *Orchestrator) Metrics() map[Algorithm]AlgorithmMetrics {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make(map[Algorithm]AlgorithmMetrics, len(o.metrics))
	for alg, m := range o.metrics {
		out[alg] = *m
	}

	return out
}

func (o *Orchestrator) record(alg Algorithm, mode Mode, assigned, unmatched int, rate float64, elapsed time.Duration) {
	o.deps.Metrics.RecordRun(string(alg), string(mode), assigned, unmatched, elapsed)

	o.mu.Lock()
	defer o.mu.Unlock()

	m, ok := o.metrics[alg]
	if !ok {
		m = &AlgorithmMetrics{}
		o.metrics[alg] = m
	}

	runs := m.Simulations + m.Executions
	m.AvgSuccessRate = round2((m.AvgSuccessRate*float64(runs) + rate) / float64(runs+1))

	if mode == ModeExecute {
		m.Executions++
		m.Assigned += assigned
		m.Unmatched += unmatched
	} else {
		m.Simulations++
	}
	m.LastRun = o.deps.now()
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}

	return round2(float64(n) / float64(total) * 100)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}

	return s
}
