package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of a booking.
// Matches PostgreSQL ENUM: booking_status
type BookingStatus string

const (
	BookingPending         BookingStatus = "PENDING"
	BookingPaymentReceived BookingStatus = "PAYMENT_RECEIVED"
	BookingProcessed       BookingStatus = "PROCESSED"
	BookingOngoing         BookingStatus = "ONGOING"
	BookingCompleted       BookingStatus = "COMPLETED"
	BookingCancelled       BookingStatus = "CANCELLED"
	BookingExpired         BookingStatus = "EXPIRED"
)

// bookingTransitions is the directed transition graph: the forward chain plus
// the named side-exits. An absent edge is an illegal transition, so legality
// is a structural lookup rather than an index comparison.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:         {BookingPaymentReceived, BookingCancelled, BookingExpired},
	BookingPaymentReceived: {BookingProcessed, BookingCancelled},
	BookingProcessed:       {BookingOngoing},
	BookingOngoing:         {BookingCompleted},
	BookingCompleted:       {},
	BookingCancelled:       {},
	BookingExpired:         {},
}

// bookingChainIndex orders the forward chain. Used only to decide whether a
// duplicate PAYMENT_RECEIVED event arrived at or past its target, never to
// validate transitions.
var bookingChainIndex = map[BookingStatus]int{
	BookingPending:         0,
	BookingPaymentReceived: 1,
	BookingProcessed:       2,
	BookingOngoing:         3,
	BookingCompleted:       4,
}

// CanTransitionTo reports whether the graph has an edge from s to target.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s BookingStatus) Terminal() bool {
	return len(bookingTransitions[s]) == 0
}

// Absorbing reports whether s is a side-exit (early termination).
func (s BookingStatus) Absorbing() bool {
	return s == BookingCancelled || s == BookingExpired
}

// AtOrPast reports whether s sits at or beyond target on the forward chain.
// Side-exit states are never "past" anything.
func (s BookingStatus) AtOrPast(target BookingStatus) bool {
	si, ok := bookingChainIndex[s]
	if !ok {
		return false
	}
	ti, ok := bookingChainIndex[target]
	if !ok {
		return false
	}
	return si >= ti
}

// Valid reports whether s is a known booking status.
func (s BookingStatus) Valid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// Booking is the reservation unit. TotalAmount is snapshotted from the price
// in effect at admission and never changes afterwards; later price edits to
// the departure or group do not reach existing bookings.
type Booking struct {
	ID               uuid.UUID     `json:"id" db:"id"`
	Code             string        `json:"code" db:"code"`
	UserID           uuid.UUID     `json:"user_id" db:"user_id"`
	DepartureID      uuid.UUID     `json:"departure_id" db:"departure_id"`
	GroupID          *uuid.UUID    `json:"group_id,omitempty" db:"group_id"`
	Status           BookingStatus `json:"status" db:"status"`
	ParticipantCount int           `json:"participant_count" db:"participant_count"`
	TotalAmount      float64       `json:"total_amount" db:"total_amount"`
	PaymentDeadline  time.Time     `json:"payment_deadline" db:"payment_deadline"`
	PaidAt           *time.Time    `json:"paid_at,omitempty" db:"paid_at"`

	// Payment provider references, set by the gateway adapter.
	PaymentOrderID     *string `json:"payment_order_id,omitempty" db:"payment_order_id"`
	PaymentToken       *string `json:"payment_token,omitempty" db:"payment_token"`
	PaymentRedirectURL *string `json:"payment_redirect_url,omitempty" db:"payment_redirect_url"`

	CancelledAt *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	ExpiredAt   *time.Time `json:"expired_at,omitempty" db:"expired_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// HoldsGroup reports whether the booking occupies a private-trip group.
func (b *Booking) HoldsGroup() bool {
	return b.GroupID != nil
}

// PaymentDeadlineTTL is how long a new booking may stay PENDING before the
// sweeper reclaims its capacity.
const PaymentDeadlineTTL = 24 * time.Hour

// CreateBookingRequest is the customer request to admit a booking.
// GroupID is required for private trips and must be absent for open trips.
type CreateBookingRequest struct {
	DepartureID  string                    `json:"departure_id" binding:"required,uuid"`
	GroupID      *string                   `json:"group_id,omitempty"`
	Participants []BookingParticipantInput `json:"participants" binding:"required,min=1,dive"`
}

// BookingParticipantInput names one traveller on the booking, either inline
// or by referencing a saved participant profile of the same customer. Exactly
// one entry should be primary; when none is marked the first becomes primary.
type BookingParticipantInput struct {
	ParticipantID *uuid.UUID `json:"participant_id,omitempty"`
	FullName      string     `json:"full_name" binding:"required_without=ParticipantID"`
	Phone         string     `json:"phone"`
	Email         string     `json:"email"`
	IDNumber      string     `json:"id_number"`
	IsPrimary     bool       `json:"is_primary"`
}

// TransitionBookingRequest is the admin request to drive a booking forward.
type TransitionBookingRequest struct {
	Status BookingStatus `json:"status" binding:"required"`
}
