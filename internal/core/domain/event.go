package domain

import (
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"nombre"`
	StartsAt        time.Time `json:"fecha_inicio"`
	EndsAt          time.Time `json:"fecha_fin"`
	FocusCategories []string  `json:"categorias_foco"`
}

func (e *Event) HasFocusCategory(category string) bool {
	if category == "" {
		return false
	}

	for _, c := range e.FocusCategories {
		if normalize(c) == normalize(category) {
			return true
		}
	}

	return false
}

// Company carries the read-only priority inputs of an exhibiting company.
type Company struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"nombre"`
	PrimaryCategory string    `json:"categoria_principal"`
	Participations  int       `json:"participaciones"`
	Budget          float64   `json:"presupuesto"`
}
