package models

import (
	"time"

	"github.com/google/uuid"
)

// TripType distinguishes how a package's departures carry capacity.
type TripType string

const (
	// TripTypeOpen pools seats across all bookings on a departure.
	TripTypeOpen TripType = "OPEN_TRIP"
	// TripTypePrivate subdivides a departure into exclusive groups, each
	// bookable by at most one active booking.
	TripTypePrivate TripType = "PRIVATE_TRIP"
)

// TourPackage is the catalog entry a departure instantiates.
type TourPackage struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	TripType    TripType  `json:"trip_type" db:"trip_type"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Departure is a dated, capacity-bearing instance of a package. For open
// trips PricePerPerson and MaxParticipants are authoritative; for private
// trips pricing and exclusivity live in the departure's groups.
type Departure struct {
	ID              uuid.UUID `json:"id" db:"id"`
	PackageID       uuid.UUID `json:"package_id" db:"package_id"`
	DepartureDate   time.Time `json:"departure_date" db:"departure_date"`
	ReturnDate      time.Time `json:"return_date" db:"return_date"`
	PricePerPerson  float64   `json:"price_per_person" db:"price_per_person"`
	MaxParticipants int       `json:"max_participants" db:"max_participants"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// DepartureGroup is an exclusive slot within a private-trip departure.
// MaxParticipants is informational (seats inside the group); IsBooked is the
// exclusivity flag flipped only by compare-and-swap.
type DepartureGroup struct {
	ID              uuid.UUID `json:"id" db:"id"`
	DepartureID     uuid.UUID `json:"departure_id" db:"departure_id"`
	Name            string    `json:"name" db:"name"`
	Price           float64   `json:"price" db:"price"`
	MaxParticipants int       `json:"max_participants" db:"max_participants"`
	IsBooked        bool      `json:"is_booked" db:"is_booked"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// CreateTourPackageRequest is the admin request to add a catalog entry.
type CreateTourPackageRequest struct {
	Name        string   `json:"name" binding:"required"`
	Slug        string   `json:"slug" binding:"required"`
	Description string   `json:"description"`
	TripType    TripType `json:"trip_type" binding:"required,oneof=OPEN_TRIP PRIVATE_TRIP"`
}

// CreateDepartureRequest is the admin request to schedule a departure.
type CreateDepartureRequest struct {
	PackageID       string    `json:"package_id" binding:"required,uuid"`
	DepartureDate   time.Time `json:"departure_date" binding:"required"`
	ReturnDate      time.Time `json:"return_date" binding:"required"`
	PricePerPerson  float64   `json:"price_per_person" binding:"min=0"`
	MaxParticipants int       `json:"max_participants" binding:"min=0"`
}

// CreateDepartureGroupRequest is the admin request to add a private-trip slot.
type CreateDepartureGroupRequest struct {
	Name            string  `json:"name" binding:"required"`
	Price           float64 `json:"price" binding:"required,min=0"`
	MaxParticipants int     `json:"max_participants" binding:"required,min=1"`
}
