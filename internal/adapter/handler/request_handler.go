package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/services"
)

type RequestHandler struct {
	svc *services.RequestService
	log zerolog.Logger
}

func NewRequestHandler(svc *services.RequestService, log zerolog.Logger) *RequestHandler {
	return &RequestHandler{svc: svc, log: log}
}

func (h *RequestHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/stats", h.Stats)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Get("/historial", h.History)
		r.Post("/revisar", h.StartReview)
		r.Post("/aprobar", h.Approve)
		r.Post("/rechazar", h.Reject)
		r.Post("/cancelar", h.Cancel)
		r.Post("/asignar-stand", h.AssignStand)
		r.Post("/recalcular-prioridad", h.RecomputePriority)
	})
}

type noteBody struct {
	Note   string `json:"nota"`
	Reason string `json:"motivo"`
}

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateRequestInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, h.log, err)
		return
	}
	in.Actor = actor(r)

	req, err := h.svc.Create(r.Context(), in)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, req)
}

func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := requestFilter(r)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	reqs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, reqs)
}

func requestFilter(r *http.Request) (domain.RequestFilter, error) {
	var filter domain.RequestFilter
	var err error

	if filter.EventID, err = queryUUID(r, "evento_id"); err != nil {
		return filter, err
	}

	if filter.CompanyID, err = queryUUID(r, "empresa_id"); err != nil {
		return filter, err
	}

	if filter.StandID, err = queryUUID(r, "stand_id"); err != nil {
		return filter, err
	}

	for _, s := range queryList(r, "estado") {
		state := domain.RequestState(s)
		if !state.Valid() {
			return filter, domain.Errorf(domain.ErrValidation, "unknown estado %q", s)
		}
		filter.States = append(filter.States, state)
	}

	if m := r.URL.Query().Get("modalidad"); m != "" {
		filter.Modality = domain.Modality(m)
		if !filter.Modality.Valid() {
			return filter, domain.Errorf(domain.ErrValidation, "unknown modalidad %q", m)
		}
	}

	return filter, nil
}

func (h *RequestHandler) Stats(w http.ResponseWriter, r *http.Request) {
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

func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(id uuid.UUID) (any, error) {
		return h.svc.Get(r.Context(), id)
	})
}

func (h *RequestHandler) History(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(id uuid.UUID) (any, error) {
		return h.svc.History(r.Context(), id)
	})
}

func (h *RequestHandler) StartReview(w http.ResponseWriter, r *http.Request) {
	h.withNote(w, r, func(id uuid.UUID, body noteBody) (any, error) {
		return h.svc.StartReview(r.Context(), id, actor(r), body.Note)
	})
}

func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.withNote(w, r, func(id uuid.UUID, body noteBody) (any, error) {
		return h.svc.Approve(r.Context(), id, actor(r), body.Note)
	})
}

func (h *RequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.withNote(w, r, func(id uuid.UUID, body noteBody) (any, error) {
		return h.svc.Reject(r.Context(), id, actor(r), body.Reason)
	})
}

func (h *RequestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.withNote(w, r, func(id uuid.UUID, body noteBody) (any, error) {
		return h.svc.Cancel(r.Context(), id, actor(r), body.Note)
	})
}

func (h *RequestHandler) AssignStand(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	var in services.AssignStandInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, h.log, err)
		return
	}
	in.Actor = actor(r)

	req, err := h.svc.AssignStand(r.Context(), id, in)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, req)
}

func (h *RequestHandler) RecomputePriority(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(id uuid.UUID) (any, error) {
		return h.svc.RecomputePriority(r.Context(), id)
	})
}

func (h *RequestHandler) withID(w http.ResponseWriter, r *http.Request, fn func(id uuid.UUID) (any, error)) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	out, err := fn(id)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, out)
}

func (h *RequestHandler) withNote(w http.ResponseWriter, r *http.Request, fn func(id uuid.UUID, body noteBody) (any, error)) {
	var body noteBody
	if err := decodeOptionalJSON(r, &body); err != nil {
		respondError(w, h.log, err)
		return
	}

	h.withID(w, r, func(id uuid.UUID) (any, error) {
		return fn(id, body)
	})
}
