package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

const actorHeader = "X-Actor-ID"

type errorBody struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Reason string `json:"motivo,omitempty"`
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.Errorf(domain.ErrValidation, "invalid json body: %v", err)
	}

	return nil
}

// decodeOptionalJSON accepts an empty body for endpoints whose fields are all optional.
func decodeOptionalJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}

	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		return domain.Errorf(domain.ErrValidation, "invalid json body: %v", err)
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError maps domain error kinds onto HTTP statuses. Unknown errors are
// logged and answered with a generic message.
func respondError(w http.ResponseWriter, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "validation error", Code: "validation", Reason: domain.Reason(err)})
	case errors.Is(err, domain.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorBody{Error: "not found", Code: "not_found", Reason: domain.Reason(err)})
	case errors.Is(err, domain.ErrInvalidTransition):
		respondJSON(w, http.StatusConflict, errorBody{Error: "invalid transition", Code: "invalid_transition", Reason: domain.Reason(err)})
	case errors.Is(err, domain.ErrStandUnavailable):
		respondJSON(w, http.StatusConflict, errorBody{Error: "stand unavailable", Code: "stand_unavailable", Reason: domain.Reason(err)})
	case errors.Is(err, domain.ErrAlreadyResolved):
		respondJSON(w, http.StatusConflict, errorBody{Error: "conflict already resolved", Code: "already_resolved", Reason: domain.Reason(err)})
	default:
		log.Error().Err(err).Msg("request failed")
		respondJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error", Code: "internal"})
	}
}

func actor(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(actorHeader)); v != "" {
		return v
	}

	return "system"
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, domain.Errorf(domain.ErrValidation, "invalid %s %q", name, chi.URLParam(r, name))
	}

	return id, nil
}

func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.Errorf(domain.ErrValidation, "invalid %s %q", name, raw)
	}

	return &id, nil
}

// queryList splits a comma separated query parameter.
func queryList(r *http.Request, name string) []string {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}

	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}

	return out
}
