package services

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ysrn87/meetandgo-sub000/internal/database"
	"github.com/ysrn87/meetandgo-sub000/internal/domain"
	"github.com/ysrn87/meetandgo-sub000/internal/models"
)

// SweeperService reclaims capacity from bookings that missed their payment
// deadline. Each booking goes through the normal guarded transition, so a
// webhook settling concurrently always wins over the sweep.
type SweeperService struct {
	bookingRepo *database.BookingRepository
	bookings    *BookingService
	batchSize   int
	logger      *logrus.Logger
}

// NewSweeperService creates a new SweeperService
func NewSweeperService(bookingRepo *database.BookingRepository, bookings *BookingService, batchSize int, logger *logrus.Logger) *SweeperService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &SweeperService{
		bookingRepo: bookingRepo,
		bookings:    bookings,
		batchSize:   batchSize,
		logger:      logger,
	}
}

// Sweep expires one batch of overdue PENDING bookings and returns how many
// it reclaimed. A booking that lost its race to a payment event is skipped
// and counted separately; sweep errors on one booking do not stop the batch.
func (s *SweeperService) Sweep(now time.Time) (int, error) {
	overdue, err := s.bookingRepo.GetExpiredPending(now, s.batchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	skipped := 0
	for _, booking := range overdue {
		_, err := s.bookings.Transition(domain.SystemActor(), booking.ID, models.BookingExpired)
		if err != nil {
			if domain.IsInvalidTransition(err) {
				skipped++
				continue
			}
			s.logger.WithError(err).WithField("booking_id", booking.ID).Error("Failed to expire booking")
			continue
		}
		expired++
	}

	if expired > 0 || skipped > 0 {
		s.logger.WithFields(logrus.Fields{
			"expired": expired,
			"skipped": skipped,
			"scanned": len(overdue),
		}).Info("Expiry sweep finished")
	}

	return expired, nil
}
