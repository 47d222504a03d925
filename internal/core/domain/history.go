package domain

import (
	"time"

	"github.com/google/uuid"
)

type EntityKind string

const (
	EntityRequest  EntityKind = "solicitud"
	EntityConflict EntityKind = "conflicto"
)

// HistoryEntry is one immutable line of the assignment audit trail.
type HistoryEntry struct {
	ID         uuid.UUID  `json:"id"`
	EntityKind EntityKind `json:"tipo_entidad"`
	EntityID   uuid.UUID  `json:"entidad_id"`
	EventID    uuid.UUID  `json:"evento_id"`
	FromState  string     `json:"estado_anterior"`
	ToState    string     `json:"estado_nuevo"`
	Actor      string     `json:"actor"`
	Note       string     `json:"nota,omitempty"`
	Timestamp  time.Time  `json:"fecha"`
}

func NewHistoryEntry(kind EntityKind, entityID, eventID uuid.UUID, from, to, actor, note string, at time.Time) HistoryEntry {
	if actor == "" {
		actor = "system"
	}

	return HistoryEntry{
		ID:         uuid.New(),
		EntityKind: kind,
		EntityID:   entityID,
		EventID:    eventID,
		FromState:  from,
		ToState:    to,
		Actor:      actor,
		Note:       note,
		Timestamp:  at.UTC(),
	}
}
