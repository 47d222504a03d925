package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ConflictType string

const (
	ConflictMultipleRequests ConflictType = "multiple_requests"
	ConflictCapacityExceeded ConflictType = "capacity_exceeded"
)

type ConflictState string

const (
	ConflictDetected   ConflictState = "detectado"
	ConflictInProgress ConflictState = "asignado_para_resolucion"
	ConflictResolved   ConflictState = "resuelto"
	ConflictEscalated  ConflictState = "escalado"
)

func (s ConflictState) Valid() bool {
	switch s {
	case ConflictDetected, ConflictInProgress, ConflictResolved, ConflictEscalated:
		return true
	}

	return false
}

// Resolvable reports whether a conflict in this state may be settled.
func (s ConflictState) Resolvable() bool {
	return s == ConflictDetected || s == ConflictInProgress || s == ConflictEscalated
}

func (s ConflictState) Assignable() bool {
	return s == ConflictDetected || s == ConflictEscalated
}

type Contender struct {
	RequestID     uuid.UUID `json:"solicitud_id"`
	CompanyID     uuid.UUID `json:"empresa_id"`
	PriorityScore float64   `json:"prioridad_score"`
	RequestedAt   time.Time `json:"fecha_solicitud"`
}

type Resolution struct {
	WinnerCompanyID *uuid.UUID `json:"empresa_ganadora_id,omitempty"`
	Criterion       string     `json:"criterio"`
	ResolvedBy      string     `json:"resuelto_por"`
	ResolvedAt      time.Time  `json:"fecha_resolucion"`
}

type Conflict struct {
	ID         uuid.UUID     `json:"id"`
	EventID    uuid.UUID     `json:"evento_id"`
	StandID    *uuid.UUID    `json:"stand_id,omitempty"`
	Zone       string        `json:"zona,omitempty"`
	Type       ConflictType  `json:"tipo"`
	Contenders []Contender   `json:"contendientes"`
	State      ConflictState `json:"estado"`
	AssignedTo *string       `json:"asignado_a,omitempty"`
	Deadline   *time.Time    `json:"fecha_limite,omitempty"`
	Resolution *Resolution   `json:"resolucion,omitempty"`
	CreatedAt  time.Time     `json:"fecha_deteccion"`
	UpdatedAt  time.Time     `json:"fecha_actualizacion"`
}

func (c *Conflict) Contender(companyID uuid.UUID) (Contender, bool) {
	for _, ct := range c.Contenders {
		if ct.CompanyID == companyID {
			return ct, true
		}
	}

	return Contender{}, false
}

// Expired reports whether an in-progress conflict passed its deadline at now.
func (c *Conflict) Expired(now time.Time) bool {
	return c.State == ConflictInProgress && c.Deadline != nil && now.After(*c.Deadline)
}

// ConflictID derives a stable identifier from the event, the conflict kind, the
// contested stand or zone, and the set of contending requests. Detecting the
// same contention twice yields the same ID.
func ConflictID(eventID uuid.UUID, typ ConflictType, standID *uuid.UUID, zone string, contenders []Contender) uuid.UUID {
	ids := make([]string, 0, len(contenders))
	for _, c := range contenders {
		ids = append(ids, c.RequestID.String())
	}
	sort.Strings(ids)

	target := "zone:" + normalize(zone)
	if standID != nil {
		target = "stand:" + standID.String()
	}

	key := strings.Join([]string{eventID.String(), string(typ), target, strings.Join(ids, ",")}, "|")

	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key))
}

type ConflictFilter struct {
	EventID *uuid.UUID
	States  []ConflictState
	Type    ConflictType
}

func (f ConflictFilter) Matches(c *Conflict) bool {
	if f.EventID != nil && c.EventID != *f.EventID {
		return false
	}

	if f.Type != "" && c.Type != f.Type {
		return false
	}

	if len(f.States) == 0 {
		return true
	}

	for _, s := range f.States {
		if c.State == s {
			return true
		}
	}

	return false
}
