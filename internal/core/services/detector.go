package services

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

type ConflictDetector struct {
	Matcher CompatibilityMatcher
}

func NewConflictDetector(matcher CompatibilityMatcher) ConflictDetector {
	return ConflictDetector{Matcher: matcher}
}

type DetectionInput struct {
	EventID  uuid.UUID
	Requests []domain.AssignmentRequest
	Stands   []domain.Stand
}

type DetectionResult struct {
	Conflicts []domain.Conflict
	// Candidates maps each pending request to the stand it competes for.
	Candidates map[uuid.UUID]uuid.UUID
	// Unresolved lists requests with no available stand to compete for.
	Unresolved []uuid.UUID
}

func (d ConflictDetector) Detect(in DetectionInput, now time.Time) DetectionResult {
	res := DetectionResult{Candidates: map[uuid.UUID]uuid.UUID{}}

	standByID := map[uuid.UUID]domain.Stand{}
	var available []domain.Stand
	for _, st := range in.Stands {
		if st.EventID != in.EventID {
			continue
		}
		standByID[st.ID] = st
		if st.IsAvailable() {
			available = append(available, st)
		}
	}

	pending := pendingForEvent(in.EventID, in.Requests)

	groups := map[uuid.UUID][]domain.Contender{}
	for i := range pending {
		req := &pending[i]

		standID, ok := d.candidate(req, standByID, available)
		if !ok {
			res.Unresolved = append(res.Unresolved, req.ID)
			continue
		}

		res.Candidates[req.ID] = standID
		groups[standID] = append(groups[standID], req.Contender())
	}

	for _, standID := range sortedStandIDs(groups, standByID) {
		contenders := groups[standID]
		if len(contenders) < 2 {
			continue
		}

		id := standID
		res.Conflicts = append(res.Conflicts, newConflict(in.EventID, domain.ConflictMultipleRequests, &id, standByID[standID].Zone, contenders, now))
	}

	res.Conflicts = append(res.Conflicts, d.capacityConflicts(in.EventID, pending, standByID, available, now)...)

	return res
}

func (d ConflictDetector) candidate(req *domain.AssignmentRequest, standByID map[uuid.UUID]domain.Stand, available []domain.Stand) (uuid.UUID, bool) {
	if req.Modality == domain.ModalityDirectSelection {
		if req.RequestedStandID == nil {
			return uuid.Nil, false
		}
		st, ok := standByID[*req.RequestedStandID]
		if !ok || !st.IsAvailable() {
			return uuid.Nil, false
		}
		return st.ID, true
	}

	best, ok := d.Matcher.Best(req.Criteria, available, nil)
	if !ok {
		return uuid.Nil, false
	}

	return best.Stand.ID, true
}

// capacityConflicts flags zones whose demand exceeds their available stands.
// Demand counts direct requests on an available stand of the zone and requests
// preferring the zone that fit at least one of its available stands.
func (d ConflictDetector) capacityConflicts(eventID uuid.UUID, pending []domain.AssignmentRequest, standByID map[uuid.UUID]domain.Stand, available []domain.Stand, now time.Time) []domain.Conflict {
	supply := map[string][]domain.Stand{}
	names := map[string]string{}
	for _, st := range available {
		key := zoneKey(st.Zone)
		if key == "" {
			continue
		}
		supply[key] = append(supply[key], st)
		if _, ok := names[key]; !ok {
			names[key] = st.Zone
		}
	}

	demand := map[string][]domain.Contender{}
	for i := range pending {
		req := &pending[i]

		if req.Modality == domain.ModalityDirectSelection {
			if req.RequestedStandID == nil {
				continue
			}
			st, ok := standByID[*req.RequestedStandID]
			if !ok || !st.IsAvailable() || zoneKey(st.Zone) == "" {
				continue
			}
			demand[zoneKey(st.Zone)] = append(demand[zoneKey(st.Zone)], req.Contender())
			continue
		}

		key := zoneKey(req.Criteria.PreferredZone)
		if key == "" {
			continue
		}
		if _, ok := d.Matcher.Best(req.Criteria, supply[key], nil); ok {
			demand[key] = append(demand[key], req.Contender())
		}
	}

	keys := make([]string, 0, len(demand))
	for k := range demand {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var conflicts []domain.Conflict
	for _, key := range keys {
		if len(demand[key]) <= len(supply[key]) {
			continue
		}
		conflicts = append(conflicts, newConflict(eventID, domain.ConflictCapacityExceeded, nil, names[key], demand[key], now))
	}

	return conflicts
}

func newConflict(eventID uuid.UUID, typ domain.ConflictType, standID *uuid.UUID, zone string, contenders []domain.Contender, now time.Time) domain.Conflict {
	ordered := append([]domain.Contender(nil), contenders...)
	domain.SortContenders(ordered)

	return domain.Conflict{
		ID:         domain.ConflictID(eventID, typ, standID, zone, ordered),
		EventID:    eventID,
		StandID:    standID,
		Zone:       zone,
		Type:       typ,
		Contenders: ordered,
		State:      domain.ConflictDetected,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
}

func pendingForEvent(eventID uuid.UUID, reqs []domain.AssignmentRequest) []domain.AssignmentRequest {
	var out []domain.AssignmentRequest
	for _, r := range reqs {
		if r.EventID == eventID && r.State.IsPending() {
			out = append(out, r)
		}
	}
	domain.SortRequestsByPriority(out)

	return out
}

func sortedStandIDs(groups map[uuid.UUID][]domain.Contender, standByID map[uuid.UUID]domain.Stand) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		a, b := standByID[ids[i]].Code, standByID[ids[j]].Code
		if a != b {
			return a < b
		}
		return ids[i].String() < ids[j].String()
	})

	return ids
}

func zoneKey(zone string) string {
	return strings.ToLower(strings.TrimSpace(zone))
}
