package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RequestState string

const (
	RequestSubmitted RequestState = "solicitada"
	RequestInReview  RequestState = "en_revision"
	RequestApproved  RequestState = "aprobada"
	RequestAssigned  RequestState = "asignada"
	RequestRejected  RequestState = "rechazada"
	RequestCancelled RequestState = "cancelada"
)

var requestTransitions = map[RequestState][]RequestState{
	RequestSubmitted: {RequestInReview, RequestApproved, RequestRejected, RequestCancelled},
	RequestInReview:  {RequestApproved, RequestRejected, RequestCancelled},
	RequestApproved:  {RequestAssigned, RequestRejected},
}

func (s RequestState) Valid() bool {
	switch s {
	case RequestSubmitted, RequestInReview, RequestApproved, RequestAssigned, RequestRejected, RequestCancelled:
		return true
	}

	return false
}

func (s RequestState) IsTerminal() bool {
	return s == RequestAssigned || s == RequestRejected || s == RequestCancelled
}

// IsPending reports whether the request still competes for a stand.
func (s RequestState) IsPending() bool {
	return s == RequestSubmitted || s == RequestInReview || s == RequestApproved
}

func (s RequestState) CanTransitionTo(next RequestState) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

func PendingRequestStates() []RequestState {
	return []RequestState{RequestSubmitted, RequestInReview, RequestApproved}
}

type Modality string

const (
	ModalityDirectSelection Modality = "direct_selection"
	ModalityManual          Modality = "manual"
	ModalityAutomatic       Modality = "automatic"
)

func (m Modality) Valid() bool {
	return m == ModalityDirectSelection || m == ModalityManual || m == ModalityAutomatic
}

type AssignmentRequest struct {
	ID               uuid.UUID       `json:"id"`
	CompanyID        uuid.UUID       `json:"empresa_id"`
	EventID          uuid.UUID       `json:"evento_id"`
	Modality         Modality        `json:"modalidad"`
	RequestedStandID *uuid.UUID      `json:"stand_solicitado_id,omitempty"`
	Criteria         Criteria        `json:"criterios"`
	PriorityScore    float64         `json:"prioridad_score"`
	State            RequestState    `json:"estado"`
	AssignedStandID  *uuid.UUID      `json:"stand_asignado_id,omitempty"`
	AssignedPrice    decimal.Decimal `json:"precio_asignado"`
	Discount         decimal.Decimal `json:"descuento"`
	FinalPrice       decimal.Decimal `json:"precio_final"`
	Notes            string          `json:"observaciones,omitempty"`
	RejectionReason  string          `json:"motivo_rechazo,omitempty"`
	RequestedAt      time.Time       `json:"fecha_solicitud"`
	UpdatedAt        time.Time       `json:"fecha_actualizacion"`
}

// Validate checks the modality/criteria invariant: a requested stand is set
// exactly when the modality is direct selection.
func (r *AssignmentRequest) Validate() error {
	if r.CompanyID == uuid.Nil {
		return Errorf(ErrValidation, "empresa_id is required")
	}

	if r.EventID == uuid.Nil {
		return Errorf(ErrValidation, "evento_id is required")
	}

	if !r.Modality.Valid() {
		return Errorf(ErrValidation, "unknown modalidad %q", r.Modality)
	}

	hasStand := r.RequestedStandID != nil && *r.RequestedStandID != uuid.Nil
	if r.Modality == ModalityDirectSelection && !hasStand {
		return Errorf(ErrValidation, "direct_selection requires stand_solicitado_id")
	}

	if r.Modality != ModalityDirectSelection && hasStand {
		return Errorf(ErrValidation, "stand_solicitado_id is only allowed with direct_selection")
	}

	return r.Criteria.Validate()
}

// Contender snapshots the request for priority comparisons.
func (r *AssignmentRequest) Contender() Contender {
	return Contender{
		RequestID:     r.ID,
		CompanyID:     r.CompanyID,
		PriorityScore: r.PriorityScore,
		RequestedAt:   r.RequestedAt,
	}
}

type RequestFilter struct {
	EventID   *uuid.UUID
	CompanyID *uuid.UUID
	StandID   *uuid.UUID
	States    []RequestState
	Modality  Modality
}

func (f RequestFilter) Matches(r *AssignmentRequest) bool {
	if f.EventID != nil && r.EventID != *f.EventID {
		return false
	}

	if f.CompanyID != nil && r.CompanyID != *f.CompanyID {
		return false
	}

	if f.StandID != nil && (r.RequestedStandID == nil || *r.RequestedStandID != *f.StandID) {
		return false
	}

	if f.Modality != "" && r.Modality != f.Modality {
		return false
	}

	if len(f.States) == 0 {
		return true
	}

	for _, s := range f.States {
		if r.State == s {
			return true
		}
	}

	return false
}

// RequestTransition is a conditional state change applied together with its
// history entry.
type RequestTransition struct {
	RequestID       uuid.UUID
	From            RequestState
	To              RequestState
	RejectionReason string
	At              time.Time
	Entry           HistoryEntry
}

// StandAssignment commits an approved request onto an available stand.
type StandAssignment struct {
	RequestID  uuid.UUID
	EventID    uuid.UUID
	StandID    uuid.UUID
	Price      decimal.Decimal
	Discount   decimal.Decimal
	FinalPrice decimal.Decimal
	At         time.Time
	Entry      HistoryEntry
}

func FinalPrice(price, discountPct decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(discountPct.Div(decimal.NewFromInt(100)))
	return price.Mul(factor).Round(2)
}
