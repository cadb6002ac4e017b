package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ysrn87/meetandgo-sub000/internal/models"
)

// TourPackageRepository handles tour package catalog operations
type TourPackageRepository struct {
	db *sqlx.DB
}

// NewTourPackageRepository creates a new TourPackageRepository
func NewTourPackageRepository(db *sqlx.DB) *TourPackageRepository {
	return &TourPackageRepository{db: db}
}

// Create inserts a new tour package
func (r *TourPackageRepository) Create(pkg *models.TourPackage) error {
	pkg.ID = uuid.New()
	pkg.CreatedAt = time.Now()
	pkg.UpdatedAt = pkg.CreatedAt

	query := `
		INSERT INTO tour_packages (id, name, slug, description, trip_type, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(query,
		pkg.ID, pkg.Name, pkg.Slug, pkg.Description, pkg.TripType, pkg.IsActive,
		pkg.CreatedAt, pkg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tour package: %w", err)
	}
	return nil
}

// GetByID retrieves a package by ID, nil when absent
func (r *TourPackageRepository) GetByID(id uuid.UUID) (*models.TourPackage, error) {
	var pkg models.TourPackage
	query := `
		SELECT id, name, slug, description, trip_type, is_active, created_at, updated_at
		FROM tour_packages
		WHERE id = $1`

	err := r.db.Get(&pkg, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tour package: %w", err)
	}
	return &pkg, nil
}

// List returns active packages ordered by name
func (r *TourPackageRepository) List(limit, offset int) ([]models.TourPackage, error) {
	query := `
		SELECT id, name, slug, description, trip_type, is_active, created_at, updated_at
		FROM tour_packages
		WHERE is_active = TRUE
		ORDER BY name
		LIMIT $1 OFFSET $2`

	var packages []models.TourPackage
	err := r.db.Select(&packages, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tour packages: %w", err)
	}
	return packages, nil
}

// Update stores editable catalog fields
func (r *TourPackageRepository) Update(pkg *models.TourPackage) error {
	query := `
		UPDATE tour_packages
		SET name = $2, slug = $3, description = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.Exec(query, pkg.ID, pkg.Name, pkg.Slug, pkg.Description, pkg.IsActive)
	if err != nil {
		return fmt.Errorf("failed to update tour package: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("tour package not found")
	}
	return nil
}
