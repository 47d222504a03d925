package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/adapter/lock"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/adapter/repository/memory"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/services"
)

type fixture struct {
	router    http.Handler
	store     *memory.Store
	eventID   uuid.UUID
	standID   uuid.UUID
	companies []uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	f := &fixture{store: store, eventID: uuid.New(), standID: uuid.New()}
	store.AddEvent(domain.Event{ID: f.eventID, Name: "Expo Lima", FocusCategories: []string{"tech"}})
	store.AddStand(domain.Stand{ID: f.standID, EventID: f.eventID, Code: "A-01", Area: 20, Price: 800, Zone: "norte", Services: []string{"internet"}})
	store.AddStand(domain.Stand{ID: uuid.New(), EventID: f.eventID, Code: "A-02", Area: 30, Price: 1200, Zone: "sur"})

	for i, participations := range []int{5, 1} {
		id := uuid.New()
		store.AddCompany(domain.Company{ID: id, Name: fmt.Sprintf("Company %d", i), PrimaryCategory: "tech", Participations: participations, Budget: 1000})
		f.companies = append(f.companies, id)
	}

	deps := services.Dependencies{
		Requests:  store.Requests(),
		Stands:    store.Stands(),
		Conflicts: store.Conflicts(),
		History:   store.History(),
		Catalog:   store.Catalog(),
		Locker:    lock.NewLocalLocker(),
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return now },
	}

	matcher := services.NewCompatibilityMatcher(services.DefaultMatchWeights())
	requests := services.NewRequestService(deps, services.NewPriorityScorer(services.DefaultScoreWeights()))
	conflicts := services.NewConflictService(deps, requests, services.NewConflictDetector(matcher))
	orch := services.NewOrchestrator(deps, requests, conflicts, matcher)

	f.router = NewRouter(RouterConfig{
		Requests:  NewRequestHandler(requests, zerolog.Nop()),
		Conflicts: NewConflictHandler(conflicts, zerolog.Nop()),
		Automatic: NewAutomaticHandler(orch, zerolog.Nop()),
		Logger:    zerolog.Nop(),
	})

	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(actorHeader, "staff-1")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	return rec
}

func (f *fixture) createDirect(t *testing.T, companyID uuid.UUID) domain.AssignmentRequest {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/asignaciones/solicitudes", map[string]any{
		"empresa_id":          companyID,
		"evento_id":           f.eventID,
		"modalidad":           "direct_selection",
		"stand_solicitado_id": f.standID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var req domain.AssignmentRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &req))

	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body
}

// standConflict returns the multiple_requests conflict of a detection run. Two
// direct requests on the single stand of a zone also overflow that zone.
func standConflict(t *testing.T, report services.DetectionReport) uuid.UUID {
	t.Helper()

	require.Len(t, report.New, 2)
	assert.Equal(t, domain.ConflictCapacityExceeded, report.New[1].Type)
	require.Equal(t, domain.ConflictMultipleRequests, report.New[0].Type)

	return report.New[0].ID
}

func TestRequestLifecycle_ApproveAndAssign(t *testing.T) {
	f := newFixture(t)
	req := f.createDirect(t, f.companies[0])

	assert.Equal(t, domain.RequestSubmitted, req.State)
	assert.Greater(t, req.PriorityScore, 0.0)

	rec := f.do(t, http.MethodPost, "/asignaciones/solicitudes/"+req.ID.String()+"/aprobar", map[string]string{"nota": "ok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/asignaciones/solicitudes/"+req.ID.String()+"/asignar-stand", map[string]any{
		"stand_id":  f.standID,
		"descuento": "10",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var assigned domain.AssignmentRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assigned))
	assert.Equal(t, domain.RequestAssigned, assigned.State)
	require.NotNil(t, assigned.AssignedStandID)
	assert.Equal(t, f.standID, *assigned.AssignedStandID)
	assert.Equal(t, "720", assigned.FinalPrice.String())

	rec = f.do(t, http.MethodGet, "/asignaciones/solicitudes/"+req.ID.String()+"/historial", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var history []domain.HistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 3)
	assert.Equal(t, "asignada", history[2].ToState)
	assert.Equal(t, "staff-1", history[2].Actor)
}

func TestAssignStand_TakenStandIsConflict(t *testing.T) {
	f := newFixture(t)
	first := f.createDirect(t, f.companies[0])
	second := f.createDirect(t, f.companies[1])

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		rec := f.do(t, http.MethodPost, "/asignaciones/solicitudes/"+id.String()+"/aprobar", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := f.do(t, http.MethodPost, "/asignaciones/solicitudes/"+first.ID.String()+"/asignar-stand", map[string]any{"stand_id": f.standID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/asignaciones/solicitudes/"+second.ID.String()+"/asignar-stand", map[string]any{"stand_id": f.standID})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "stand_unavailable", decodeError(t, rec).Code)
}

func TestRejectAssignedRequest_InvalidTransition(t *testing.T) {
	f := newFixture(t)
	req := f.createDirect(t, f.companies[0])

	f.do(t, http.MethodPost, "/asignaciones/solicitudes/"+req.ID.String()+"/aprobar", nil)
	f.do(t, http.MethodPost, "/asignaciones/solicitudes/"+req.ID.String()+"/asignar-stand", map[string]any{"stand_id": f.standID})

	rec := f.do(t, http.MethodPost, "/asignaciones/solicitudes/"+req.ID.String()+"/rechazar", map[string]string{"motivo": "late"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decodeError(t, rec).Code)
}

func TestRequestErrors(t *testing.T) {
	f := newFixture(t)
	req := f.createDirect(t, f.companies[0])

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown request", http.MethodGet, "/asignaciones/solicitudes/" + uuid.NewString(), nil, http.StatusNotFound, "not_found"},
		{"malformed id", http.MethodGet, "/asignaciones/solicitudes/not-a-uuid", nil, http.StatusBadRequest, "validation"},
		{"reject without reason", http.MethodPost, "/asignaciones/solicitudes/" + req.ID.String() + "/rechazar", map[string]string{}, http.StatusBadRequest, "validation"},
		{"direct without stand", http.MethodPost, "/asignaciones/solicitudes", map[string]any{
			"empresa_id": f.companies[1], "evento_id": f.eventID, "modalidad": "direct_selection",
		}, http.StatusBadRequest, "validation"},
		{"unknown state filter", http.MethodGet, "/asignaciones/solicitudes?estado=perdida", nil, http.StatusBadRequest, "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestListRequests_FiltersByState(t *testing.T) {
	f := newFixture(t)
	first := f.createDirect(t, f.companies[0])
	f.createDirect(t, f.companies[1])
	f.do(t, http.MethodPost, "/asignaciones/solicitudes/"+first.ID.String()+"/cancelar", nil)

	rec := f.do(t, http.MethodGet, "/asignaciones/solicitudes?estado=cancelada&evento_id="+f.eventID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var reqs []domain.AssignmentRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reqs))
	require.Len(t, reqs, 1)
	assert.Equal(t, first.ID, reqs[0].ID)
}

func TestConflictDetectAndResolve(t *testing.T) {
	f := newFixture(t)
	winner := f.createDirect(t, f.companies[0])
	loser := f.createDirect(t, f.companies[1])
	require.Greater(t, winner.PriorityScore, loser.PriorityScore)

	rec := f.do(t, http.MethodPost, "/asignaciones/conflictos/evento/"+f.eventID.String()+"/detectar", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report services.DetectionReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	conflictID := standConflict(t, report)

	rec = f.do(t, http.MethodPost, "/asignaciones/conflictos/"+conflictID.String()+"/resolver", map[string]string{"metodo": "automatico"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resolved domain.Conflict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolved))
	assert.Equal(t, domain.ConflictResolved, resolved.State)
	require.NotNil(t, resolved.Resolution)
	assert.Equal(t, f.companies[0], *resolved.Resolution.WinnerCompanyID)

	rec = f.do(t, http.MethodGet, "/asignaciones/solicitudes/"+loser.ID.String(), nil)
	var lost domain.AssignmentRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lost))
	assert.Equal(t, domain.RequestRejected, lost.State)
	assert.Equal(t, "lost conflict resolution", lost.RejectionReason)

	rec = f.do(t, http.MethodPost, "/asignaciones/conflictos/"+conflictID.String()+"/resolver", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_resolved", decodeError(t, rec).Code)
}

func TestConflictAssign_RequiresStaff(t *testing.T) {
	f := newFixture(t)
	f.createDirect(t, f.companies[0])
	f.createDirect(t, f.companies[1])

	rec := f.do(t, http.MethodPost, "/asignaciones/conflictos/evento/"+f.eventID.String()+"/detectar", nil)
	var report services.DetectionReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	conflictID := standConflict(t, report)

	rec = f.do(t, http.MethodPost, "/asignaciones/conflictos/"+conflictID.String()+"/asignar", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/asignaciones/conflictos/"+conflictID.String()+"/asignar", map[string]string{"asignado_a": "staff-9"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var c domain.Conflict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, domain.ConflictInProgress, c.State)
	require.NotNil(t, c.AssignedTo)
	assert.Equal(t, "staff-9", *c.AssignedTo)
}

func TestAutomaticEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/asignaciones/automatica/algoritmos", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var algs []services.AlgorithmInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &algs))
	assert.Len(t, algs, 4)

	rec = f.do(t, http.MethodPost, "/asignaciones/automatica/evento/"+f.eventID.String()+"/simular", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/asignaciones/automatica/evento/"+f.eventID.String()+"/simular", map[string]string{"algoritmo": "genetico"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.createDirect(t, f.companies[0])

	rec = f.do(t, http.MethodPost, "/asignaciones/automatica/evento/"+f.eventID.String()+"/simular?algoritmo=seleccion_directa", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sim services.SimulationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sim))
	assert.Equal(t, 1, sim.Possible)
	assert.Equal(t, 100.0, sim.SuccessRate)

	rec = f.do(t, http.MethodGet, "/asignaciones/automatica/evento/"+f.eventID.String()+"/capacidad", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var capacity services.CapacityReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &capacity))
	assert.Equal(t, 2, capacity.Stands)
	assert.Equal(t, 1, capacity.Pending)
}

func TestOptionalBody_UnknownLength(t *testing.T) {
	f := newFixture(t)
	created := f.createDirect(t, f.companies[0])

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/asignaciones/solicitudes/"+created.ID.String()+"/aprobar", io.NopCloser(strings.NewReader(body)))
		req.Header.Set(actorHeader, "staff-1")
		require.Equal(t, int64(-1), req.ContentLength)

		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		return rec
	}

	rec := send("{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", decodeError(t, rec).Code)

	rec = send("")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var approved domain.AssignmentRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &approved))
	assert.Equal(t, domain.RequestApproved, approved.State)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}
