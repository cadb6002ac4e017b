package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ysrn87/meetandgo-sub000/internal/domain"
	"github.com/ysrn87/meetandgo-sub000/internal/models"
)

// CustomRequestRepository handles custom tour request database operations.
// Estimate changes always go through UpdateEstimate so the request row and
// the history insert commit together.
type CustomRequestRepository struct {
	db *sqlx.DB
}

// NewCustomRequestRepository creates a new CustomRequestRepository
func NewCustomRequestRepository(db *sqlx.DB) *CustomRequestRepository {
	return &CustomRequestRepository{db: db}
}

const customRequestColumns = `
	id, user_id, destination, start_date, end_date, participant_count,
	status, estimated_price, final_price, guide_id, admin_notes,
	created_at, updated_at`

// Create inserts a new custom tour request in PENDING
func (r *CustomRequestRepository) Create(req *models.CustomTourRequest) error {
	req.ID = uuid.New()
	req.Status = models.CustomRequestPending
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt

	query := `
		INSERT INTO custom_tour_requests (
			id, user_id, destination, start_date, end_date,
			participant_count, status, admin_notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(query,
		req.ID, req.UserID, req.Destination, req.StartDate, req.EndDate,
		req.ParticipantCount, req.Status, req.AdminNotes, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create custom request: %w", err)
	}
	return nil
}

// GetByID retrieves a custom request by ID, nil when absent
func (r *CustomRequestRepository) GetByID(id uuid.UUID) (*models.CustomTourRequest, error) {
	var req models.CustomTourRequest
	query := `SELECT` + customRequestColumns + ` FROM custom_tour_requests WHERE id = $1`
	err := r.db.Get(&req, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch custom request: %w", err)
	}
	return &req, nil
}

// ListByUser returns a customer's custom requests, newest first
func (r *CustomRequestRepository) ListByUser(userID uuid.UUID, limit, offset int) ([]models.CustomTourRequest, error) {
	query := `SELECT` + customRequestColumns + `
		FROM custom_tour_requests
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var requests []models.CustomTourRequest
	err := r.db.Select(&requests, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list custom requests: %w", err)
	}
	return requests, nil
}

// ListByStatus returns requests in a given status for the admin review queue
func (r *CustomRequestRepository) ListByStatus(status models.CustomRequestStatus, limit, offset int) ([]models.CustomTourRequest, error) {
	query := `SELECT` + customRequestColumns + `
		FROM custom_tour_requests
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3`

	var requests []models.CustomTourRequest
	err := r.db.Select(&requests, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list custom requests: %w", err)
	}
	return requests, nil
}

// TransitionStatus moves a request between statuses with a guarded update and
// stores whichever negotiation fields the transition carries. Returns false
// when the request was no longer in the expected status.
func (r *CustomRequestRepository) TransitionStatus(
	requestID uuid.UUID,
	from, to models.CustomRequestStatus,
	finalPrice *float64,
	guideID *uuid.UUID,
	adminNotes *string,
) (bool, error) {
	query := `
		UPDATE custom_tour_requests
		SET status = $2,
		    final_price = COALESCE($4, final_price),
		    guide_id = COALESCE($5, guide_id),
		    admin_notes = COALESCE($6, admin_notes),
		    updated_at = NOW()
		WHERE id = $1 AND status = $3`

	result, err := r.db.Exec(query, requestID, to, from, finalPrice, guideID, adminNotes)
	if err != nil {
		return false, fmt.Errorf("failed to transition custom request: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// UpdateEstimate sets a new estimated price and appends the history entry in
// one transaction. The history table is append-only; corrections are new rows.
func (r *CustomRequestRepository) UpdateEstimate(requestID uuid.UUID, price float64, notedBy uuid.UUID, note string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin estimate transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE custom_tour_requests
		SET estimated_price = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('PENDING', 'IN_REVIEW')`,
		requestID, price,
	)
	if err != nil {
		return fmt.Errorf("failed to update estimate: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Past IN_REVIEW the price is final; estimates would reopen a closed
		// negotiation.
		var status string
		gerr := tx.Get(&status, `SELECT status FROM custom_tour_requests WHERE id = $1`, requestID)
		if gerr == sql.ErrNoRows {
			return domain.NotFoundError{Resource: "custom tour request"}
		}
		if gerr != nil {
			return fmt.Errorf("failed to check custom request status: %w", gerr)
		}
		return domain.InvalidTransitionError{
			Resource: "custom tour request",
			From:     status,
			To:       string(models.CustomRequestInReview),
		}
	}

	_, err = tx.Exec(`
		INSERT INTO price_estimate_history (id, request_id, estimated_price, noted_by, note, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())`,
		uuid.New(), requestID, price, notedBy, note,
	)
	if err != nil {
		return fmt.Errorf("failed to append estimate history: %w", err)
	}

	return tx.Commit()
}

// ListEstimateHistory returns the negotiation trail, oldest first
func (r *CustomRequestRepository) ListEstimateHistory(requestID uuid.UUID) ([]models.PriceEstimateHistory, error) {
	query := `
		SELECT id, request_id, estimated_price, noted_by, note, created_at
		FROM price_estimate_history
		WHERE request_id = $1
		ORDER BY created_at`

	var history []models.PriceEstimateHistory
	err := r.db.Select(&history, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list estimate history: %w", err)
	}
	return history, nil
}
