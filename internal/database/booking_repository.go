package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/ysrn87/meetandgo-sub000/internal/domain"
	"github.com/ysrn87/meetandgo-sub000/internal/models"
)

// ErrDuplicateBookingCode reports a unique-constraint collision on the
// generated booking code. Admission retries with a fresh code.
var ErrDuplicateBookingCode = errors.New("booking code already in use")

// BookingRepository handles booking database operations. Admission runs
// inside a single transaction so the capacity check and the insert commit
// together; there is no window where two concurrent requests can both see a
// free seat and both land.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// ============================================================================
// ADMISSION (capacity ledger)
// ============================================================================

// AdmitOpenTrip admits a booking against the pooled seat capacity of a
// departure. The departure row is locked FOR UPDATE, the taken total is
// recomputed over every booking that still counts (anything not CANCELLED or
// EXPIRED, pending included), and the insert commits in the same transaction.
// TotalAmount is snapshotted from the locked price.
func (r *BookingRepository) AdmitOpenTrip(booking *models.Booking, participants []models.BookingParticipantInput) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin admission transaction: %w", err)
	}
	defer tx.Rollback()

	var dep struct {
		PricePerPerson  float64 `db:"price_per_person"`
		MaxParticipants int     `db:"max_participants"`
	}
	err = tx.Get(&dep, `
		SELECT price_per_person, max_participants
		FROM departures
		WHERE id = $1
		FOR UPDATE`, booking.DepartureID)
	if err == sql.ErrNoRows {
		return domain.NotFoundError{Resource: "departure"}
	}
	if err != nil {
		return fmt.Errorf("failed to lock departure: %w", err)
	}

	var taken int
	err = tx.Get(&taken, `
		SELECT COALESCE(SUM(participant_count), 0)
		FROM bookings
		WHERE departure_id = $1 AND status NOT IN ('CANCELLED', 'EXPIRED')`, booking.DepartureID)
	if err != nil {
		return fmt.Errorf("failed to count taken seats: %w", err)
	}

	if taken+booking.ParticipantCount > dep.MaxParticipants {
		return domain.CapacityExceededError{
			DepartureID: booking.DepartureID.String(),
			Requested:   booking.ParticipantCount,
			Available:   dep.MaxParticipants - taken,
		}
	}

	booking.TotalAmount = dep.PricePerPerson * float64(booking.ParticipantCount)

	if err := insertBookingTx(tx, booking); err != nil {
		return err
	}
	if err := insertParticipantsTx(tx, booking.ID, booking.UserID, participants); err != nil {
		return err
	}

	return tx.Commit()
}

// AdmitPrivateTrip admits a booking that takes a whole group slot. The
// exclusivity flag is flipped with a compare-and-swap; zero rows means some
// other booking got the group first. The group price comes back through
// RETURNING so the snapshot and the claim are one statement.
//
// Callers must have verified the group exists; a missing row and a lost race
// are indistinguishable here and both report the group as taken.
func (r *BookingRepository) AdmitPrivateTrip(booking *models.Booking, participants []models.BookingParticipantInput) error {
	if booking.GroupID == nil {
		return domain.ValidationError{Field: "group_id", Msg: "group is required for private trips"}
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin admission transaction: %w", err)
	}
	defer tx.Rollback()

	var price float64
	err = tx.Get(&price, `
		UPDATE departure_groups
		SET is_booked = TRUE, updated_at = NOW()
		WHERE id = $1 AND is_booked = FALSE
		RETURNING price`, *booking.GroupID)
	if err == sql.ErrNoRows {
		return domain.GroupAlreadyBookedError{GroupID: booking.GroupID.String()}
	}
	if err != nil {
		return fmt.Errorf("failed to claim departure group: %w", err)
	}

	booking.TotalAmount = price

	if err := insertBookingTx(tx, booking); err != nil {
		return err
	}
	if err := insertParticipantsTx(tx, booking.ID, booking.UserID, participants); err != nil {
		return err
	}

	return tx.Commit()
}

func insertBookingTx(tx *sqlx.Tx, booking *models.Booking) error {
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	query := `
		INSERT INTO bookings (
			id, code, user_id, departure_id, group_id, status,
			participant_count, total_amount, payment_deadline,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(query,
		booking.ID, booking.Code, booking.UserID, booking.DepartureID, booking.GroupID,
		booking.Status, booking.ParticipantCount, booking.TotalAmount, booking.PaymentDeadline,
		booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && strings.Contains(pqErr.Constraint, "code") {
			return ErrDuplicateBookingCode
		}
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

func insertParticipantsTx(tx *sqlx.Tx, bookingID, userID uuid.UUID, participants []models.BookingParticipantInput) error {
	hasPrimary := false
	for _, p := range participants {
		if p.IsPrimary {
			hasPrimary = true
			break
		}
	}
	for i, p := range participants {
		participantID := uuid.New()
		if p.ParticipantID != nil {
			// Reusing a saved profile: it must belong to the booking customer.
			var owned bool
			err := tx.Get(&owned,
				`SELECT EXISTS (SELECT 1 FROM participants WHERE id = $1 AND user_id = $2)`,
				*p.ParticipantID, userID,
			)
			if err != nil {
				return fmt.Errorf("failed to look up participant: %w", err)
			}
			if !owned {
				return domain.ValidationError{Field: "participant_id", Msg: "participant does not belong to this customer"}
			}
			participantID = *p.ParticipantID
		} else {
			_, err := tx.Exec(`
				INSERT INTO participants (id, user_id, full_name, phone, email, id_number, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`,
				participantID, userID, p.FullName, p.Phone, p.Email, p.IDNumber,
			)
			if err != nil {
				return fmt.Errorf("failed to insert participant: %w", err)
			}
		}

		isPrimary := p.IsPrimary || (!hasPrimary && i == 0)
		_, err := tx.Exec(`
			INSERT INTO booking_participants (booking_id, participant_id, is_primary)
			VALUES ($1, $2, $3)`,
			bookingID, participantID, isPrimary,
		)
		if err != nil {
			return fmt.Errorf("failed to link participant: %w", err)
		}
	}
	return nil
}

// ============================================================================
// LOOKUPS
// ============================================================================

const bookingColumns = `
	id, code, user_id, departure_id, group_id, status,
	participant_count, total_amount, payment_deadline, paid_at,
	payment_order_id, payment_token, payment_redirect_url,
	cancelled_at, expired_at, created_at, updated_at`

// GetByID retrieves a booking by ID, nil when absent
func (r *BookingRepository) GetByID(id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT` + bookingColumns + ` FROM bookings WHERE id = $1`
	err := r.db.Get(&booking, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}
	return &booking, nil
}

// GetByCode retrieves a booking by its human-facing code
func (r *BookingRepository) GetByCode(code string) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT` + bookingColumns + ` FROM bookings WHERE code = $1`
	err := r.db.Get(&booking, query, code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}
	return &booking, nil
}

// GetByPaymentOrderID resolves the booking a payment event refers to
func (r *BookingRepository) GetByPaymentOrderID(orderID string) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT` + bookingColumns + ` FROM bookings WHERE payment_order_id = $1`
	err := r.db.Get(&booking, query, orderID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}
	return &booking, nil
}

// ListByUser returns a customer's bookings, newest first
func (r *BookingRepository) ListByUser(userID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	query := `SELECT` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var bookings []models.Booking
	err := r.db.Select(&bookings, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// GetParticipants returns the travellers on a booking, primary first
func (r *BookingRepository) GetParticipants(bookingID uuid.UUID) ([]models.Participant, error) {
	query := `
		SELECT p.id, p.user_id, p.full_name, p.phone, p.email, p.id_number, p.created_at, p.updated_at
		FROM participants p
		JOIN booking_participants bp ON bp.participant_id = p.id
		WHERE bp.booking_id = $1
		ORDER BY bp.is_primary DESC, p.full_name`

	var participants []models.Participant
	err := r.db.Select(&participants, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch participants: %w", err)
	}
	return participants, nil
}

// ============================================================================
// STATUS UPDATE OPERATIONS
// ============================================================================

// TransitionStatus moves a booking from one status to another with a guarded
// single-statement update. Returns false when zero rows matched, meaning a
// concurrent writer moved the booking first; the caller re-reads and decides
// whether that is a conflict or a no-op.
func (r *BookingRepository) TransitionStatus(bookingID uuid.UUID, from, to models.BookingStatus) (bool, error) {
	result, err := r.db.Exec(transitionQuery(to), bookingID, to, from)
	if err != nil {
		return false, fmt.Errorf("failed to transition booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// TransitionAndReleaseGroup is TransitionStatus plus the group release, in
// one transaction. Used when a group-holding booking is cancelled or expired
// so the slot cannot leak if the process dies between the two writes.
func (r *BookingRepository) TransitionAndReleaseGroup(bookingID uuid.UUID, from, to models.BookingStatus, groupID uuid.UUID) (bool, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return false, fmt.Errorf("failed to begin transition transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(transitionQuery(to), bookingID, to, from)
	if err != nil {
		return false, fmt.Errorf("failed to transition booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return false, nil
	}

	_, err = tx.Exec(`UPDATE departure_groups SET is_booked = FALSE, updated_at = NOW() WHERE id = $1`, groupID)
	if err != nil {
		return false, fmt.Errorf("failed to release departure group: %w", err)
	}

	return true, tx.Commit()
}

// transitionQuery picks the SET list for a target status so the lifecycle
// timestamps land in the same guarded statement as the status flip.
func transitionQuery(to models.BookingStatus) string {
	switch to {
	case models.BookingPaymentReceived:
		return `UPDATE bookings SET status = $2, paid_at = COALESCE(paid_at, NOW()), updated_at = NOW() WHERE id = $1 AND status = $3`
	case models.BookingCancelled:
		return `UPDATE bookings SET status = $2, cancelled_at = NOW(), updated_at = NOW() WHERE id = $1 AND status = $3`
	case models.BookingExpired:
		return `UPDATE bookings SET status = $2, expired_at = NOW(), updated_at = NOW() WHERE id = $1 AND status = $3`
	default:
		return `UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`
	}
}

// SetPaymentReference stores the provider handles on a booking that is still
// awaiting payment. Guarded on PENDING so a late token refresh cannot touch a
// booking the webhook already settled.
func (r *BookingRepository) SetPaymentReference(bookingID uuid.UUID, orderID, token, redirectURL string) (bool, error) {
	query := `
		UPDATE bookings
		SET payment_order_id = $2, payment_token = $3, payment_redirect_url = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'`

	result, err := r.db.Exec(query, bookingID, orderID, token, redirectURL)
	if err != nil {
		return false, fmt.Errorf("failed to set payment reference: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// ============================================================================
// EXPIRY SWEEP SUPPORT
// ============================================================================

// GetExpiredPending returns PENDING bookings whose payment deadline has
// passed, oldest first. The sweeper walks these and expires each one through
// the guarded transition, so a webhook racing the sweep still wins.
func (r *BookingRepository) GetExpiredPending(now time.Time, limit int) ([]models.Booking, error) {
	query := `SELECT` + bookingColumns + `
		FROM bookings
		WHERE status = 'PENDING' AND payment_deadline < $1
		ORDER BY payment_deadline
		LIMIT $2`

	var bookings []models.Booking
	err := r.db.Select(&bookings, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired bookings: %w", err)
	}
	return bookings, nil
}
