package domain

import (
	"strings"

	"github.com/google/uuid"
)

type StandStatus string

const (
	StandAvailable StandStatus = "available"
	StandReserved  StandStatus = "reserved"
	StandAssigned  StandStatus = "assigned"
)

type Stand struct {
	ID       uuid.UUID   `json:"id"`
	EventID  uuid.UUID   `json:"evento_id"`
	Code     string      `json:"codigo"`
	Area     float64     `json:"area"`
	Price    float64     `json:"precio"`
	Zone     string      `json:"zona"`
	Services []string    `json:"servicios"`
	Status   StandStatus `json:"estado"`
	Version  int         `json:"-"`
}

func (s *Stand) IsAvailable() bool {
	return s.Status == StandAvailable
}

// HasServices reports whether the stand offers every required service.
// Service names compare case-insensitively.
func (s *Stand) HasServices(required []string) bool {
	return len(s.MissingServices(required)) == 0
}

func (s *Stand) MissingServices(required []string) []string {
	offered := make(map[string]struct{}, len(s.Services))
	for _, svc := range s.Services {
		offered[normalize(svc)] = struct{}{}
	}

	var missing []string
	for _, req := range required {
		if _, ok := offered[normalize(req)]; !ok {
			missing = append(missing, req)
		}
	}

	return missing
}

func (s *Stand) InZone(zone string) bool {
	return zone != "" && normalize(s.Zone) == normalize(zone)
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
