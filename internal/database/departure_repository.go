package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ysrn87/meetandgo-sub000/internal/models"
)

// DepartureRepository handles departures and their private-trip groups. The
// group exclusivity flag is only ever set through the compare-and-swap in
// BookingRepository.AdmitPrivateTrip and cleared through ReleaseGroup.
type DepartureRepository struct {
	db *sqlx.DB
}

// NewDepartureRepository creates a new DepartureRepository
func NewDepartureRepository(db *sqlx.DB) *DepartureRepository {
	return &DepartureRepository{db: db}
}

// Create inserts a new departure
func (r *DepartureRepository) Create(dep *models.Departure) error {
	dep.ID = uuid.New()
	dep.CreatedAt = time.Now()
	dep.UpdatedAt = dep.CreatedAt

	query := `
		INSERT INTO departures (id, package_id, departure_date, return_date, price_per_person, max_participants, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(query,
		dep.ID, dep.PackageID, dep.DepartureDate, dep.ReturnDate,
		dep.PricePerPerson, dep.MaxParticipants, dep.CreatedAt, dep.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create departure: %w", err)
	}
	return nil
}

// GetByID retrieves a departure by ID, nil when absent
func (r *DepartureRepository) GetByID(id uuid.UUID) (*models.Departure, error) {
	var dep models.Departure
	query := `
		SELECT id, package_id, departure_date, return_date, price_per_person, max_participants, created_at, updated_at
		FROM departures
		WHERE id = $1`

	err := r.db.Get(&dep, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch departure: %w", err)
	}
	return &dep, nil
}

// ListByPackage returns upcoming departures for a package
func (r *DepartureRepository) ListByPackage(packageID uuid.UUID) ([]models.Departure, error) {
	query := `
		SELECT id, package_id, departure_date, return_date, price_per_person, max_participants, created_at, updated_at
		FROM departures
		WHERE package_id = $1 AND departure_date >= CURRENT_DATE
		ORDER BY departure_date`

	var departures []models.Departure
	err := r.db.Select(&departures, query, packageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list departures: %w", err)
	}
	return departures, nil
}

// CreateGroup inserts a new private-trip group slot
func (r *DepartureRepository) CreateGroup(group *models.DepartureGroup) error {
	group.ID = uuid.New()
	group.CreatedAt = time.Now()
	group.UpdatedAt = group.CreatedAt

	query := `
		INSERT INTO departure_groups (id, departure_id, name, price, max_participants, is_booked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)`

	_, err := r.db.Exec(query,
		group.ID, group.DepartureID, group.Name, group.Price,
		group.MaxParticipants, group.CreatedAt, group.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create departure group: %w", err)
	}
	return nil
}

// GetGroupByID retrieves a group by ID, nil when absent
func (r *DepartureRepository) GetGroupByID(id uuid.UUID) (*models.DepartureGroup, error) {
	var group models.DepartureGroup
	query := `
		SELECT id, departure_id, name, price, max_participants, is_booked, created_at, updated_at
		FROM departure_groups
		WHERE id = $1`

	err := r.db.Get(&group, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch departure group: %w", err)
	}
	return &group, nil
}

// ListGroups returns all groups of a departure
func (r *DepartureRepository) ListGroups(departureID uuid.UUID) ([]models.DepartureGroup, error) {
	query := `
		SELECT id, departure_id, name, price, max_participants, is_booked, created_at, updated_at
		FROM departure_groups
		WHERE departure_id = $1
		ORDER BY name`

	var groups []models.DepartureGroup
	err := r.db.Select(&groups, query, departureID)
	if err != nil {
		return nil, fmt.Errorf("failed to list departure groups: %w", err)
	}
	return groups, nil
}

// ReleaseGroup unconditionally resets the exclusivity flag. Called whenever a
// booking holding the group reaches CANCELLED or EXPIRED.
func (r *DepartureRepository) ReleaseGroup(groupID uuid.UUID) error {
	query := `UPDATE departure_groups SET is_booked = FALSE, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(query, groupID)
	if err != nil {
		return fmt.Errorf("failed to release departure group: %w", err)
	}
	return nil
}

// ActiveSeatCount recomputes the admitted seat total for an open-trip
// departure. Cancelled and expired bookings fall out of the sum, which is how
// seats return to the pool; availability is never cached.
func (r *DepartureRepository) ActiveSeatCount(departureID uuid.UUID) (int, error) {
	var count int
	query := `
		SELECT COALESCE(SUM(participant_count), 0)
		FROM bookings
		WHERE departure_id = $1 AND status NOT IN ('CANCELLED', 'EXPIRED')`

	if err := r.db.Get(&count, query, departureID); err != nil {
		return 0, fmt.Errorf("failed to count active seats: %w", err)
	}
	return count, nil
}
