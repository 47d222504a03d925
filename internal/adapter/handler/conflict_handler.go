package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/services"
)

type ConflictHandler struct {
	svc *services.ConflictService
	log zerolog.Logger
	now func() time.Time
}

func NewConflictHandler(svc *services.ConflictService, log zerolog.Logger) *ConflictHandler {
	return &ConflictHandler{svc: svc, log: log, now: time.Now}
}

func (h *ConflictHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/stats", h.Stats)
	r.Get("/dashboard/resumen", h.Dashboard)
	r.Post("/evento/{eventID}/detectar", h.Detect)
	r.Post("/vencidos/escalar", h.EscalateExpired)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Get("/historial", h.History)
		r.Post("/asignar", h.Assign)
		r.Post("/resolver", h.Resolve)
	})
}

type assignConflictBody struct {
	StaffID  string     `json:"asignado_a"`
	Deadline *time.Time `json:"fecha_limite,omitempty"`
}

const (
	resolveAutomatic = "automatico"
	resolveManual    = "manual"
)

type resolveConflictBody struct {
	Method          string    `json:"metodo"`
	WinnerCompanyID uuid.UUID `json:"empresa_ganadora_id"`
	Criterion       string    `json:"criterio"`
}

func (h *ConflictHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter domain.ConflictFilter
	var err error

	if filter.EventID, err = queryUUID(r, "evento_id"); err != nil {
		respondError(w, h.log, err)
		return
	}

	for _, s := range queryList(r, "estado") {
		state := domain.ConflictState(s)
		if !state.Valid() {
			respondError(w, h.log, domain.Errorf(domain.ErrValidation, "unknown estado %q", s))
			return
		}
		filter.States = append(filter.States, state)
	}
	filter.Type = domain.ConflictType(r.URL.Query().Get("tipo"))

	conflicts, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, conflicts)
}

func (h *ConflictHandler) Stats(w http.ResponseWriter, r *http.Request) {
	eventID, err := queryUUID(r, "evento_id")
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	stats, err := h.svc.Stats(r.Context(), eventID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (h *ConflictHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.DashboardSummary(r.Context(), h.now().UTC())
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, sum)
}

func (h *ConflictHandler) Detect(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathUUID(r, "eventID")
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	report, err := h.svc.Detect(r.Context(), eventID, actor(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

func (h *ConflictHandler) EscalateExpired(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.CheckExpired(r.Context(), h.now().UTC())
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"escalados": n})
}

func (h *ConflictHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

func (h *ConflictHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	entries, err := h.svc.History(r.Context(), id)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

func (h *ConflictHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	var body assignConflictBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, h.log, err)
		return
	}

	c, err := h.svc.Assign(r.Context(), id, body.StaffID, body.Deadline, actor(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

// Resolve settles a conflict. Without a metodo the conflict is resolved
// automatically unless a winner is named.
func (h *ConflictHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	var body resolveConflictBody
	if err := decodeOptionalJSON(r, &body); err != nil {
		respondError(w, h.log, err)
		return
	}

	method := body.Method
	if method == "" {
		method = resolveAutomatic
		if body.WinnerCompanyID != uuid.Nil {
			method = resolveManual
		}
	}

	var c *domain.Conflict
	switch method {
	case resolveAutomatic:
		c, err = h.svc.ResolveAutomatically(r.Context(), id, actor(r))
	case resolveManual:
		c, err = h.svc.ResolveManually(r.Context(), id, body.WinnerCompanyID, body.Criterion, actor(r))
	default:
		err = domain.Errorf(domain.ErrValidation, "unknown metodo %q", body.Method)
	}

	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}
