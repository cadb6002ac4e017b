package services

import (
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ysrn87/meetandgo-sub000/internal/database"
	"github.com/ysrn87/meetandgo-sub000/internal/domain"
	"github.com/ysrn87/meetandgo-sub000/internal/models"
)

func newBookingHarness(t *testing.T) (*BookingService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	service := NewBookingService(
		database.NewBookingRepository(sqlxDB),
		database.NewDepartureRepository(sqlxDB),
		database.NewTourPackageRepository(sqlxDB),
		logger,
	)
	return service, mock, func() { db.Close() }
}

func expectDepartureByID(mock sqlmock.Sqlmock, departureID, packageID uuid.UUID) {
	now := time.Now()
	mock.ExpectQuery(`SELECT(.+)FROM departures\s+WHERE id`).
		WithArgs(departureID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "package_id", "departure_date", "return_date",
			"price_per_person", "max_participants", "created_at", "updated_at",
		}).AddRow(departureID, packageID, now.AddDate(0, 1, 0), now.AddDate(0, 1, 5), 1500000.0, 15, now, now))
}

func expectPackageByID(mock sqlmock.Sqlmock, packageID uuid.UUID, tripType models.TripType) {
	now := time.Now()
	mock.ExpectQuery(`SELECT(.+)FROM tour_packages\s+WHERE id`).
		WithArgs(packageID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "slug", "description", "trip_type", "is_active", "created_at", "updated_at",
		}).AddRow(packageID, "Bromo Sunrise", "bromo-sunrise", "", string(tripType), true, now, now))
}

func expectGroupByID(mock sqlmock.Sqlmock, groupID, departureID uuid.UUID, maxParticipants int) {
	now := time.Now()
	mock.ExpectQuery(`SELECT(.+)FROM departure_groups\s+WHERE id`).
		WithArgs(groupID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "departure_id", "name", "price", "max_participants", "is_booked", "created_at", "updated_at",
		}).AddRow(groupID, departureID, "Group A", 9000000.0, maxParticipants, false, now, now))
}

func TestCreateBookingValidation(t *testing.T) {
	service, mock, closeDB := newBookingHarness(t)
	defer closeDB()

	actor := domain.Actor{ID: uuid.New(), Role: domain.RoleCustomer}
	participants := []models.BookingParticipantInput{{FullName: "Ayu Lestari"}}

	t.Run("Open Trip Rejects Group", func(t *testing.T) {
		departureID := uuid.New()
		packageID := uuid.New()
		groupID := uuid.New().String()

		expectDepartureByID(mock, departureID, packageID)
		expectPackageByID(mock, packageID, models.TripTypeOpen)

		_, err := service.CreateBooking(actor, &models.CreateBookingRequest{
			DepartureID:  departureID.String(),
			GroupID:      &groupID,
			Participants: participants,
		})
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Private Trip Requires Group", func(t *testing.T) {
		departureID := uuid.New()
		packageID := uuid.New()

		expectDepartureByID(mock, departureID, packageID)
		expectPackageByID(mock, packageID, models.TripTypePrivate)

		_, err := service.CreateBooking(actor, &models.CreateBookingRequest{
			DepartureID:  departureID.String(),
			Participants: participants,
		})
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Group Must Belong To Departure", func(t *testing.T) {
		departureID := uuid.New()
		packageID := uuid.New()
		groupID := uuid.New()
		groupIDStr := groupID.String()

		expectDepartureByID(mock, departureID, packageID)
		expectPackageByID(mock, packageID, models.TripTypePrivate)
		expectGroupByID(mock, groupID, uuid.New(), 10)

		_, err := service.CreateBooking(actor, &models.CreateBookingRequest{
			DepartureID:  departureID.String(),
			GroupID:      &groupIDStr,
			Participants: participants,
		})
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Group Seat Limit", func(t *testing.T) {
		departureID := uuid.New()
		packageID := uuid.New()
		groupID := uuid.New()
		groupIDStr := groupID.String()

		expectDepartureByID(mock, departureID, packageID)
		expectPackageByID(mock, packageID, models.TripTypePrivate)
		expectGroupByID(mock, groupID, departureID, 2)

		_, err := service.CreateBooking(actor, &models.CreateBookingRequest{
			DepartureID:  departureID.String(),
			GroupID:      &groupIDStr,
			Participants: []models.BookingParticipantInput{
				{FullName: "Ayu Lestari"},
				{FullName: "Budi Santoso"},
				{FullName: "Citra Dewi"},
			},
		})
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Unknown Departure", func(t *testing.T) {
		departureID := uuid.New()

		mock.ExpectQuery(`SELECT(.+)FROM departures\s+WHERE id`).
			WithArgs(departureID).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "package_id", "departure_date", "return_date",
				"price_per_person", "max_participants", "created_at", "updated_at",
			}))

		_, err := service.CreateBooking(actor, &models.CreateBookingRequest{
			DepartureID:  departureID.String(),
			Participants: participants,
		})
		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorizeBookingTransition(t *testing.T) {
	ownerID := uuid.New()
	owner := domain.Actor{ID: ownerID, Role: domain.RoleCustomer}
	stranger := domain.Actor{ID: uuid.New(), Role: domain.RoleCustomer}
	admin := domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin}
	system := domain.SystemActor()

	booking := func(status models.BookingStatus) *models.Booking {
		return &models.Booking{ID: uuid.New(), UserID: ownerID, Status: status}
	}

	tests := []struct {
		name    string
		actor   domain.Actor
		booking *models.Booking
		target  models.BookingStatus
		allowed bool
	}{
		{"owner cancels pending", owner, booking(models.BookingPending), models.BookingCancelled, true},
		{"owner cannot cancel after payment", owner, booking(models.BookingPaymentReceived), models.BookingCancelled, false},
		{"stranger cannot cancel", stranger, booking(models.BookingPending), models.BookingCancelled, false},
		{"admin cancels anything", admin, booking(models.BookingPaymentReceived), models.BookingCancelled, true},
		{"system cancels on payment events", system, booking(models.BookingPending), models.BookingCancelled, true},
		{"owner cannot confirm payment", owner, booking(models.BookingPending), models.BookingPaymentReceived, false},
		{"system confirms payment", system, booking(models.BookingPending), models.BookingPaymentReceived, true},
		{"admin confirms payment", admin, booking(models.BookingPending), models.BookingPaymentReceived, true},
		{"only system expires", admin, booking(models.BookingPending), models.BookingExpired, false},
		{"system expires", system, booking(models.BookingPending), models.BookingExpired, true},
		{"admin processes", admin, booking(models.BookingPaymentReceived), models.BookingProcessed, true},
		{"system cannot process", system, booking(models.BookingPaymentReceived), models.BookingProcessed, false},
		{"owner cannot complete", owner, booking(models.BookingOngoing), models.BookingCompleted, false},
		{"admin completes", admin, booking(models.BookingOngoing), models.BookingCompleted, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authorizeBookingTransition(tt.actor, tt.booking, tt.target)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.True(t, domain.IsForbidden(err))
			}
		})
	}
}

func TestCreateBookingRetriesOnCodeCollision(t *testing.T) {
	service, mock, closeDB := newBookingHarness(t)
	defer closeDB()

	actor := domain.Actor{ID: uuid.New(), Role: domain.RoleCustomer}
	departureID := uuid.New()
	packageID := uuid.New()
	participants := []models.BookingParticipantInput{{FullName: "Ayu Lestari"}}

	expectAdmissionChecks := func() {
		mock.ExpectQuery(`SELECT price_per_person, max_participants`).
			WithArgs(departureID).
			WillReturnRows(sqlmock.NewRows([]string{"price_per_person", "max_participants"}).
				AddRow(1500000.0, 15))
		mock.ExpectQuery(`SELECT COALESCE\(SUM\(participant_count\), 0\)`).
			WithArgs(departureID).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
	}

	expectDepartureByID(mock, departureID, packageID)
	expectPackageByID(mock, packageID, models.TripTypeOpen)

	// First admission hits the code unique constraint and rolls back whole.
	mock.ExpectBegin()
	expectAdmissionChecks()
	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "bookings_code_key"})
	mock.ExpectRollback()

	// The retry runs with a regenerated code and lands.
	mock.ExpectBegin()
	expectAdmissionChecks()
	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO participants`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO booking_participants`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	booking, err := service.CreateBooking(actor, &models.CreateBookingRequest{
		DepartureID:  departureID.String(),
		Participants: participants,
	})
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, booking.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionPaymentReceivedReplayIsNoOp(t *testing.T) {
	service, mock, closeDB := newBookingHarness(t)
	defer closeDB()

	// An admin re-confirming payment on a booking already past it must get a
	// success, not a conflict; no write happens.
	booking := testBooking(models.BookingProcessed, "MG-20260830-TEST22-1a2b3c4d")
	mock.ExpectQuery(`SELECT(.+)FROM bookings WHERE id`).
		WithArgs(booking.ID).
		WillReturnRows(bookingRow(booking))

	result, err := service.Transition(adminActor, booking.ID, models.BookingPaymentReceived)
	require.NoError(t, err)
	assert.Equal(t, models.BookingProcessed, result.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBookingByCode(t *testing.T) {
	service, mock, closeDB := newBookingHarness(t)
	defer closeDB()

	booking := testBooking(models.BookingPending, "")

	t.Run("Owner Finds Own Booking", func(t *testing.T) {
		mock.ExpectQuery(`SELECT(.+)FROM bookings WHERE code`).
			WithArgs(booking.Code).
			WillReturnRows(bookingRow(booking))

		owner := domain.Actor{ID: booking.UserID, Role: domain.RoleCustomer}
		result, err := service.GetBookingByCode(owner, booking.Code)
		require.NoError(t, err)
		assert.Equal(t, booking.ID, result.ID)
	})

	t.Run("Stranger Forbidden", func(t *testing.T) {
		mock.ExpectQuery(`SELECT(.+)FROM bookings WHERE code`).
			WithArgs(booking.Code).
			WillReturnRows(bookingRow(booking))

		stranger := domain.Actor{ID: uuid.New(), Role: domain.RoleCustomer}
		_, err := service.GetBookingByCode(stranger, booking.Code)
		require.Error(t, err)
		assert.True(t, domain.IsForbidden(err))
	})

	t.Run("Unknown Code", func(t *testing.T) {
		mock.ExpectQuery(`SELECT(.+)FROM bookings WHERE code`).
			WithArgs("MG-20260101-XXXXXX").
			WillReturnRows(sqlmock.NewRows(bookingTestColumns))

		_, err := service.GetBookingByCode(adminActor, "MG-20260101-XXXXXX")
		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateBookingCode(t *testing.T) {
	code := generateBookingCode()

	require.True(t, strings.HasPrefix(code, "MG-"))
	parts := strings.Split(code, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, time.Now().UTC().Format("20060102"), parts[1])
	assert.Len(t, parts[2], 6)
	for _, r := range parts[2] {
		assert.Contains(t, bookingCodeAlphabet, string(r))
	}

	// Codes are random; two draws colliding would be astronomically unlikely.
	assert.NotEqual(t, code, generateBookingCode())
}
