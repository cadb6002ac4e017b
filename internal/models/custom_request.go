package models

import (
	"time"

	"github.com/google/uuid"
)

// CustomRequestStatus is the lifecycle state of a custom-quote negotiation.
// Matches PostgreSQL ENUM: custom_request_status
type CustomRequestStatus string

const (
	CustomRequestPending   CustomRequestStatus = "PENDING"
	CustomRequestInReview  CustomRequestStatus = "IN_REVIEW"
	CustomRequestAccepted  CustomRequestStatus = "ACCEPTED"
	CustomRequestPaid      CustomRequestStatus = "PAID"
	CustomRequestProcessed CustomRequestStatus = "PROCESSED"
	CustomRequestOngoing   CustomRequestStatus = "ONGOING"
	CustomRequestCompleted CustomRequestStatus = "COMPLETED"
	CustomRequestRejected  CustomRequestStatus = "REJECTED"
	CustomRequestCancelled CustomRequestStatus = "CANCELLED"
)

// customRequestTransitions is the directed transition graph. REJECTED and
// CANCELLED are reachable from every non-terminal state, so they appear as
// explicit edges rather than as a computed rule.
var customRequestTransitions = map[CustomRequestStatus][]CustomRequestStatus{
	CustomRequestPending:   {CustomRequestInReview, CustomRequestRejected, CustomRequestCancelled},
	CustomRequestInReview:  {CustomRequestAccepted, CustomRequestRejected, CustomRequestCancelled},
	CustomRequestAccepted:  {CustomRequestPaid, CustomRequestRejected, CustomRequestCancelled},
	CustomRequestPaid:      {CustomRequestProcessed, CustomRequestRejected, CustomRequestCancelled},
	CustomRequestProcessed: {CustomRequestOngoing, CustomRequestRejected, CustomRequestCancelled},
	CustomRequestOngoing:   {CustomRequestCompleted, CustomRequestRejected, CustomRequestCancelled},
	CustomRequestCompleted: {},
	CustomRequestRejected:  {},
	CustomRequestCancelled: {},
}

// CanTransitionTo reports whether the graph has an edge from s to target.
func (s CustomRequestStatus) CanTransitionTo(target CustomRequestStatus) bool {
	for _, next := range customRequestTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s CustomRequestStatus) Terminal() bool {
	return len(customRequestTransitions[s]) == 0
}

// Valid reports whether s is a known custom request status.
func (s CustomRequestStatus) Valid() bool {
	_, ok := customRequestTransitions[s]
	return ok
}

// CustomTourRequest is a negotiated-price tour request. EstimatedPrice moves
// during negotiation (each change logged to PriceEstimateHistory);
// FinalPrice is the agreed amount and is required before ACCEPTED.
type CustomTourRequest struct {
	ID               uuid.UUID           `json:"id" db:"id"`
	UserID           uuid.UUID           `json:"user_id" db:"user_id"`
	Destination      string              `json:"destination" db:"destination"`
	StartDate        time.Time           `json:"start_date" db:"start_date"`
	EndDate          time.Time           `json:"end_date" db:"end_date"`
	ParticipantCount int                 `json:"participant_count" db:"participant_count"`
	Status           CustomRequestStatus `json:"status" db:"status"`
	EstimatedPrice   *float64            `json:"estimated_price,omitempty" db:"estimated_price"`
	FinalPrice       *float64            `json:"final_price,omitempty" db:"final_price"`
	GuideID          *uuid.UUID          `json:"guide_id,omitempty" db:"guide_id"`
	AdminNotes       string              `json:"admin_notes" db:"admin_notes"`
	CreatedAt        time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at" db:"updated_at"`
}

// PriceEstimateHistory is one entry of the append-only negotiation audit
// trail. Rows are inserted when an estimate changes and are never updated or
// deleted.
type PriceEstimateHistory struct {
	ID             uuid.UUID `json:"id" db:"id"`
	RequestID      uuid.UUID `json:"request_id" db:"request_id"`
	EstimatedPrice float64   `json:"estimated_price" db:"estimated_price"`
	NotedBy        uuid.UUID `json:"noted_by" db:"noted_by"`
	Note           string    `json:"note" db:"note"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// CreateCustomRequestRequest is the customer request to open a negotiation.
type CreateCustomRequestRequest struct {
	Destination      string    `json:"destination" binding:"required"`
	StartDate        time.Time `json:"start_date" binding:"required"`
	EndDate          time.Time `json:"end_date" binding:"required"`
	ParticipantCount int       `json:"participant_count" binding:"required,min=1"`
}

// TransitionCustomRequestRequest carries a target status plus the optional
// fields some transitions require or record.
type TransitionCustomRequestRequest struct {
	Status         CustomRequestStatus `json:"status" binding:"required"`
	EstimatedPrice *float64            `json:"estimated_price,omitempty"`
	FinalPrice     *float64            `json:"final_price,omitempty"`
	GuideID        *string             `json:"guide_id,omitempty"`
	AdminNotes     *string             `json:"admin_notes,omitempty"`
	Note           string              `json:"note,omitempty"`
}
