package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ysrn87/meetandgo-sub000/internal/database"
	"github.com/ysrn87/meetandgo-sub000/internal/models"
)

func newSweeperHarness(t *testing.T, batchSize int) (*SweeperService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	bookingRepo := database.NewBookingRepository(sqlxDB)
	bookings := NewBookingService(
		bookingRepo,
		database.NewDepartureRepository(sqlxDB),
		database.NewTourPackageRepository(sqlxDB),
		logger,
	)
	sweeper := NewSweeperService(bookingRepo, bookings, batchSize, logger)
	return sweeper, mock, func() { db.Close() }
}

func overdueBooking() *models.Booking {
	b := testBooking(models.BookingPending, "MG-20260829-SWPX22-00000001")
	b.PaymentDeadline = time.Now().Add(-time.Hour)
	return b
}

func expectExpiredScan(mock sqlmock.Sqlmock, now time.Time, limit int, bookings ...*models.Booking) {
	rows := sqlmock.NewRows(bookingTestColumns)
	for _, b := range bookings {
		rows.AddRow(
			b.ID, b.Code, b.UserID, b.DepartureID, b.GroupID, string(b.Status),
			b.ParticipantCount, b.TotalAmount, b.PaymentDeadline, b.PaidAt,
			b.PaymentOrderID, b.PaymentToken, b.PaymentRedirectURL,
			b.CancelledAt, b.ExpiredAt, b.CreatedAt, b.UpdatedAt,
		)
	}
	mock.ExpectQuery(`SELECT(.+)FROM bookings\s+WHERE status = 'PENDING' AND payment_deadline <`).
		WithArgs(now, limit).
		WillReturnRows(rows)
}

func TestSweepExpiresOverdueBookings(t *testing.T) {
	sweeper, mock, closeDB := newSweeperHarness(t, 50)
	defer closeDB()

	now := time.Now()
	first := overdueBooking()
	second := overdueBooking()

	expectExpiredScan(mock, now, 50, first, second)
	for _, b := range []*models.Booking{first, second} {
		mock.ExpectQuery(`SELECT(.+)FROM bookings WHERE id`).
			WithArgs(b.ID).
			WillReturnRows(bookingRow(b))
		mock.ExpectExec(`UPDATE bookings SET status(.+)expired_at`).
			WithArgs(b.ID, models.BookingExpired, models.BookingPending).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expired := *b
		expired.Status = models.BookingExpired
		mock.ExpectQuery(`SELECT(.+)FROM bookings WHERE id`).
			WithArgs(b.ID).
			WillReturnRows(bookingRow(&expired))
	}

	count, err := sweeper.Sweep(now)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepSkipsBookingThatPaidMeanwhile(t *testing.T) {
	sweeper, mock, closeDB := newSweeperHarness(t, 50)
	defer closeDB()

	now := time.Now()
	booking := overdueBooking()

	expectExpiredScan(mock, now, 50, booking)
	// The webhook settled the booking between the scan and the expiry write.
	settled := *booking
	settled.Status = models.BookingPaymentReceived
	mock.ExpectQuery(`SELECT(.+)FROM bookings WHERE id`).
		WithArgs(booking.ID).
		WillReturnRows(bookingRow(&settled))

	count, err := sweeper.Sweep(now)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepReleasesPrivateGroup(t *testing.T) {
	sweeper, mock, closeDB := newSweeperHarness(t, 50)
	defer closeDB()

	now := time.Now()
	groupID := uuid.New()
	booking := overdueBooking()
	booking.GroupID = &groupID

	expectExpiredScan(mock, now, 50, booking)
	mock.ExpectQuery(`SELECT(.+)FROM bookings WHERE id`).
		WithArgs(booking.ID).
		WillReturnRows(bookingRow(booking))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bookings SET status(.+)expired_at`).
		WithArgs(booking.ID, models.BookingExpired, models.BookingPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE departure_groups SET is_booked = FALSE`).
		WithArgs(groupID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expired := *booking
	expired.Status = models.BookingExpired
	mock.ExpectQuery(`SELECT(.+)FROM bookings WHERE id`).
		WithArgs(booking.ID).
		WillReturnRows(bookingRow(&expired))

	count, err := sweeper.Sweep(now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepEmptyBatch(t *testing.T) {
	sweeper, mock, closeDB := newSweeperHarness(t, 50)
	defer closeDB()

	now := time.Now()
	expectExpiredScan(mock, now, 50)

	count, err := sweeper.Sweep(now)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}
