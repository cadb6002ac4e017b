package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant is reusable traveller profile data belonging to a customer.
// It carries no capacity; bookings reference participants through a join
// with one entry marked primary.
type Participant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	FullName  string    `json:"full_name" db:"full_name"`
	Phone     string    `json:"phone" db:"phone"`
	Email     string    `json:"email" db:"email"`
	IDNumber  string    `json:"id_number" db:"id_number"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// BookingParticipant links a participant to a booking.
type BookingParticipant struct {
	BookingID     uuid.UUID `json:"booking_id" db:"booking_id"`
	ParticipantID uuid.UUID `json:"participant_id" db:"participant_id"`
	IsPrimary     bool      `json:"is_primary" db:"is_primary"`
}
