package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/services"
)

type AutomaticHandler struct {
	orch *services.Orchestrator
	log  zerolog.Logger
}

func NewAutomaticHandler(orch *services.Orchestrator, log zerolog.Logger) *AutomaticHandler {
	return &AutomaticHandler{orch: orch, log: log}
}

func (h *AutomaticHandler) Routes(r chi.Router) {
	r.Get("/algoritmos", h.Algorithms)
	r.Get("/metricas", h.Metrics)
	r.Get("/evento/{eventID}/capacidad", h.Capacity)
	r.Post("/evento/{eventID}/simular", h.Simulate)
	r.Post("/evento/{eventID}/ejecutar", h.Execute)
	r.Get("/compatibilidad/{companyID}/{standID}", h.Compatibility)
	r.Get("/candidatos/{companyID}/{eventID}", h.Candidates)
}

type runBody struct {
	Algorithm string `json:"algoritmo"`
}

func (h *AutomaticHandler) Algorithms(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, services.Algorithms())
}

func (h *AutomaticHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.orch.Metrics())
}

func (h *AutomaticHandler) Capacity(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathUUID(r, "eventID")
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	report, err := h.orch.Capacity(r.Context(), eventID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

func (h *AutomaticHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	eventID, alg, err := h.runArgs(r)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	res, err := h.orch.Simulate(r.Context(), eventID, alg)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

func (h *AutomaticHandler) Execute(w http.ResponseWriter, r *http.Request) {
	eventID, alg, err := h.runArgs(r)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	res, err := h.orch.Execute(r.Context(), eventID, alg, actor(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// runArgs reads the event from the path and the algorithm from the body or
// the algoritmo query parameter.
func (h *AutomaticHandler) runArgs(r *http.Request) (uuid.UUID, services.Algorithm, error) {
	id, err := pathUUID(r, "eventID")
	if err != nil {
		return id, "", err
	}

	var body runBody
	if err := decodeOptionalJSON(r, &body); err != nil {
		return id, "", err
	}

	name := body.Algorithm
	if name == "" {
		name = r.URL.Query().Get("algoritmo")
	}
	if name == "" {
		return id, "", domain.Errorf(domain.ErrValidation, "algoritmo is required")
	}

	alg, err := services.ParseAlgorithm(name)

	return id, alg, err
}

func (h *AutomaticHandler) Compatibility(w http.ResponseWriter, r *http.Request) {
	companyID, err := pathUUID(r, "companyID")
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	standID, err := pathUUID(r, "standID")
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	report, err := h.orch.Compatibility(r.Context(), companyID, standID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

func (h *AutomaticHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	companyID, err := pathUUID(r, "companyID")
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	eventID, err := pathUUID(r, "eventID")
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	ranked, err := h.orch.Candidates(r.Context(), companyID, eventID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, ranked)
}
