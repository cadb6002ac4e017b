package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ysrn87/meetandgo-sub000/internal/domain"
	"github.com/ysrn87/meetandgo-sub000/internal/models"
)

func newMockRepo(t *testing.T) (*BookingRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewBookingRepository(sqlxDB), mock, func() { db.Close() }
}

func pendingBooking(departureID uuid.UUID, seats int) *models.Booking {
	return &models.Booking{
		ID:               uuid.New(),
		Code:             "MG-20260830-TEST22",
		UserID:           uuid.New(),
		DepartureID:      departureID,
		Status:           models.BookingPending,
		ParticipantCount: seats,
		PaymentDeadline:  time.Now().Add(24 * time.Hour),
	}
}

func TestAdmitOpenTrip(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	departureID := uuid.New()
	participants := []models.BookingParticipantInput{
		{FullName: "Ayu Lestari", IsPrimary: true},
		{FullName: "Budi Santoso"},
	}

	expectLockAndSum := func(price float64, max, taken int) {
		mock.ExpectQuery(`SELECT price_per_person, max_participants`).
			WithArgs(departureID).
			WillReturnRows(sqlmock.NewRows([]string{"price_per_person", "max_participants"}).
				AddRow(price, max))
		mock.ExpectQuery(`SELECT COALESCE\(SUM\(participant_count\), 0\)`).
			WithArgs(departureID).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(taken))
	}

	t.Run("Success", func(t *testing.T) {
		booking := pendingBooking(departureID, 2)

		mock.ExpectBegin()
		expectLockAndSum(1500000, 15, 10)
		mock.ExpectExec(`INSERT INTO bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		for _, p := range participants {
			// Participant rows carry the booking customer as owner.
			mock.ExpectExec(`INSERT INTO participants`).
				WithArgs(sqlmock.AnyArg(), booking.UserID, p.FullName, p.Phone, p.Email, p.IDNumber).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectExec(`INSERT INTO booking_participants`).
				WillReturnResult(sqlmock.NewResult(0, 1))
		}
		mock.ExpectCommit()

		err := repo.AdmitOpenTrip(booking, participants)
		require.NoError(t, err)
		assert.Equal(t, float64(3000000), booking.TotalAmount)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Capacity Exceeded", func(t *testing.T) {
		// 15 seats, 10 taken by active bookings: 6 more must be refused.
		booking := pendingBooking(departureID, 6)

		mock.ExpectBegin()
		expectLockAndSum(1500000, 15, 10)
		mock.ExpectRollback()

		err := repo.AdmitOpenTrip(booking, participants)
		require.Error(t, err)
		assert.True(t, domain.IsCapacityExceeded(err))

		var capErr domain.CapacityExceededError
		require.ErrorAs(t, err, &capErr)
		assert.Equal(t, 6, capErr.Requested)
		assert.Equal(t, 5, capErr.Available)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Exact Fit", func(t *testing.T) {
		// 10 taken of 15: 5 more is exactly the boundary and must be admitted.
		booking := pendingBooking(departureID, 5)

		mock.ExpectBegin()
		expectLockAndSum(1500000, 15, 10)
		mock.ExpectExec(`INSERT INTO bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		for range participants {
			mock.ExpectExec(`INSERT INTO participants`).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectExec(`INSERT INTO booking_participants`).
				WillReturnResult(sqlmock.NewResult(0, 1))
		}
		mock.ExpectCommit()

		err := repo.AdmitOpenTrip(booking, participants)
		require.NoError(t, err)
		assert.Equal(t, float64(7500000), booking.TotalAmount)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Departure Not Found", func(t *testing.T) {
		booking := pendingBooking(departureID, 1)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT price_per_person, max_participants`).
			WithArgs(departureID).
			WillReturnRows(sqlmock.NewRows([]string{"price_per_person", "max_participants"}))
		mock.ExpectRollback()

		err := repo.AdmitOpenTrip(booking, participants)
		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Reused Participant", func(t *testing.T) {
		booking := pendingBooking(departureID, 1)
		savedID := uuid.New()

		mock.ExpectBegin()
		expectLockAndSum(1500000, 15, 10)
		mock.ExpectExec(`INSERT INTO bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		// A referenced profile is linked, not re-inserted.
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(savedID, booking.UserID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectExec(`INSERT INTO booking_participants`).
			WithArgs(booking.ID, savedID, true).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.AdmitOpenTrip(booking, []models.BookingParticipantInput{
			{ParticipantID: &savedID, IsPrimary: true},
		})
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Reused Participant Of Another Customer", func(t *testing.T) {
		booking := pendingBooking(departureID, 1)
		savedID := uuid.New()

		mock.ExpectBegin()
		expectLockAndSum(1500000, 15, 10)
		mock.ExpectExec(`INSERT INTO bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(savedID, booking.UserID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		err := repo.AdmitOpenTrip(booking, []models.BookingParticipantInput{
			{ParticipantID: &savedID},
		})
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdmitPrivateTrip(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	departureID := uuid.New()
	groupID := uuid.New()
	participants := []models.BookingParticipantInput{{FullName: "Citra Dewi"}}

	t.Run("Success", func(t *testing.T) {
		booking := pendingBooking(departureID, 1)
		booking.GroupID = &groupID

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE departure_groups`).
			WithArgs(groupID).
			WillReturnRows(sqlmock.NewRows([]string{"price"}).AddRow(9000000.0))
		mock.ExpectExec(`INSERT INTO bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO participants`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO booking_participants`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.AdmitPrivateTrip(booking, participants)
		require.NoError(t, err)
		assert.Equal(t, float64(9000000), booking.TotalAmount)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Group Already Booked", func(t *testing.T) {
		// Compare-and-swap matched no rows: somebody else holds the group.
		booking := pendingBooking(departureID, 1)
		booking.GroupID = &groupID

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE departure_groups`).
			WithArgs(groupID).
			WillReturnRows(sqlmock.NewRows([]string{"price"}))
		mock.ExpectRollback()

		err := repo.AdmitPrivateTrip(booking, participants)
		require.Error(t, err)
		assert.True(t, domain.IsGroupAlreadyBooked(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing Group", func(t *testing.T) {
		booking := pendingBooking(departureID, 1)

		err := repo.AdmitPrivateTrip(booking, participants)
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
	})
}

func TestTransitionStatus(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	bookingID := uuid.New()

	t.Run("Moved", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings SET status`).
			WithArgs(bookingID, models.BookingPaymentReceived, models.BookingPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		moved, err := repo.TransitionStatus(bookingID, models.BookingPending, models.BookingPaymentReceived)
		require.NoError(t, err)
		assert.True(t, moved)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Guard Missed", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings SET status`).
			WithArgs(bookingID, models.BookingExpired, models.BookingPending).
			WillReturnResult(sqlmock.NewResult(0, 0))

		moved, err := repo.TransitionStatus(bookingID, models.BookingPending, models.BookingExpired)
		require.NoError(t, err)
		assert.False(t, moved)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings SET status`).
			WillReturnError(fmt.Errorf("database error"))

		_, err := repo.TransitionStatus(bookingID, models.BookingPending, models.BookingCancelled)
		assert.Error(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransitionAndReleaseGroup(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	bookingID := uuid.New()
	groupID := uuid.New()

	t.Run("Moved And Released", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE bookings SET status`).
			WithArgs(bookingID, models.BookingCancelled, models.BookingPending).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE departure_groups SET is_booked = FALSE`).
			WithArgs(groupID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		moved, err := repo.TransitionAndReleaseGroup(bookingID, models.BookingPending, models.BookingCancelled, groupID)
		require.NoError(t, err)
		assert.True(t, moved)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Guard Missed Leaves Group Alone", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE bookings SET status`).
			WithArgs(bookingID, models.BookingExpired, models.BookingPending).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		moved, err := repo.TransitionAndReleaseGroup(bookingID, models.BookingPending, models.BookingExpired, groupID)
		require.NoError(t, err)
		assert.False(t, moved)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetExpiredPending(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	now := time.Now()
	bookingID := uuid.New()
	userID := uuid.New()
	departureID := uuid.New()

	mock.ExpectQuery(`SELECT(.+)FROM bookings\s+WHERE status = 'PENDING' AND payment_deadline <`).
		WithArgs(now, 100).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "code", "user_id", "departure_id", "group_id", "status",
			"participant_count", "total_amount", "payment_deadline", "paid_at",
			"payment_order_id", "payment_token", "payment_redirect_url",
			"cancelled_at", "expired_at", "created_at", "updated_at",
		}).AddRow(
			bookingID, "MG-20260829-ABCD22", userID, departureID, nil, "PENDING",
			2, 3000000.0, now.Add(-time.Hour), nil,
			nil, nil, nil,
			nil, nil, now.Add(-25*time.Hour), now.Add(-25*time.Hour),
		))

	bookings, err := repo.GetExpiredPending(now, 100)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, bookingID, bookings[0].ID)
	assert.Equal(t, models.BookingPending, bookings[0].Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}
