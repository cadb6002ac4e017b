package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/ysrn87/meetandgo-sub000/internal/models"
)

// PaymentAuditRepository handles payment audit operations
type PaymentAuditRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db *sqlx.DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Log creates a new payment audit entry
// This should NEVER fail silently - payment events must be logged
func (r *PaymentAuditRepository) Log(ctx context.Context, audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audits (
			id, booking_id, order_id,
			event_type, event_source,
			transaction_status, fraud_status, gross_amount,
			amounts_match, signature_valid, is_duplicate,
			raw_body, ip_address, user_agent, ua_browser,
			created_at
		) VALUES (
			$1, $2, $3,
			$4, $5,
			$6, $7, $8,
			$9, $10, $11,
			$12, $13, $14, $15,
			$16
		)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.BookingID, audit.OrderID,
		audit.EventType, audit.EventSource,
		audit.TransactionStatus, audit.FraudStatus, audit.GrossAmount,
		audit.AmountsMatch, audit.SignatureValid, audit.IsDuplicate,
		audit.RawBody, audit.IPAddress, audit.UserAgent, audit.UABrowser,
		audit.CreatedAt,
	)

	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": audit.EventType,
			"order_id":   audit.OrderID,
		}).Error("CRITICAL: Failed to log payment audit - THIS SHOULD NEVER HAPPEN")
		return fmt.Errorf("failed to log payment audit: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"audit_id":   audit.ID,
		"event_type": audit.EventType,
		"order_id":   audit.OrderID,
	}).Debug("Payment audit logged")

	return nil
}

// GetByOrderID retrieves all audit entries for an order, oldest first
func (r *PaymentAuditRepository) GetByOrderID(ctx context.Context, orderID string) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	query := `
		SELECT * FROM payment_audits
		WHERE order_id = $1
		ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &audits, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audits by order ID: %w", err)
	}

	return audits, nil
}

// GetByBookingID retrieves all audit entries for a booking
func (r *PaymentAuditRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	query := `
		SELECT * FROM payment_audits
		WHERE booking_id = $1
		ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &audits, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audits by booking ID: %w", err)
	}

	return audits, nil
}

// GetAmountMismatches retrieves all audits where amounts don't match
// This is CRITICAL for fraud detection
func (r *PaymentAuditRepository) GetAmountMismatches(ctx context.Context, limit int) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	query := `
		SELECT * FROM payment_audits
		WHERE amounts_match = FALSE
		ORDER BY created_at DESC
		LIMIT $1`

	err := r.db.SelectContext(ctx, &audits, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get amount mismatches: %w", err)
	}

	return audits, nil
}

// GetRejectedSignatures retrieves recent webhook deliveries that failed
// signature verification
func (r *PaymentAuditRepository) GetRejectedSignatures(ctx context.Context, hours, limit int) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	query := `
		SELECT * FROM payment_audits
		WHERE signature_valid = FALSE
		AND created_at > NOW() - INTERVAL '1 hour' * $1
		ORDER BY created_at DESC
		LIMIT $2`

	err := r.db.SelectContext(ctx, &audits, query, hours, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get rejected signatures: %w", err)
	}

	return audits, nil
}
