package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ysrn87/meetandgo-sub000/internal/database"
	"github.com/ysrn87/meetandgo-sub000/internal/domain"
	"github.com/ysrn87/meetandgo-sub000/internal/models"
)

// BookingService orchestrates booking admission and lifecycle transitions.
// All capacity decisions happen in the repository transaction; this layer
// owns validation, pricing context and the authorization matrix.
type BookingService struct {
	bookingRepo   *database.BookingRepository
	departureRepo *database.DepartureRepository
	packageRepo   *database.TourPackageRepository
	logger        *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	bookingRepo *database.BookingRepository,
	departureRepo *database.DepartureRepository,
	packageRepo *database.TourPackageRepository,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo:   bookingRepo,
		departureRepo: departureRepo,
		packageRepo:   packageRepo,
		logger:        logger,
	}
}

// CreateBooking admits a new booking for the acting customer. Open trips draw
// from the pooled departure capacity; private trips claim one group slot
// exclusively. The booking starts PENDING with a 24 hour payment deadline.
func (s *BookingService) CreateBooking(actor domain.Actor, req *models.CreateBookingRequest) (*models.Booking, error) {
	departureID, err := uuid.Parse(req.DepartureID)
	if err != nil {
		return nil, domain.ValidationError{Field: "departure_id", Msg: "must be a valid UUID"}
	}

	departure, err := s.departureRepo.GetByID(departureID)
	if err != nil {
		return nil, err
	}
	if departure == nil {
		return nil, domain.NotFoundError{Resource: "departure"}
	}

	pkg, err := s.packageRepo.GetByID(departure.PackageID)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, domain.NotFoundError{Resource: "tour package"}
	}

	booking := &models.Booking{
		ID:               uuid.New(),
		Code:             generateBookingCode(),
		UserID:           actor.ID,
		DepartureID:      departureID,
		Status:           models.BookingPending,
		ParticipantCount: len(req.Participants),
		PaymentDeadline:  time.Now().UTC().Add(models.PaymentDeadlineTTL),
	}

	var admit func() error
	switch pkg.TripType {
	case models.TripTypeOpen:
		if req.GroupID != nil {
			return nil, domain.ValidationError{Field: "group_id", Msg: "open trips do not take a group"}
		}
		admit = func() error { return s.bookingRepo.AdmitOpenTrip(booking, req.Participants) }

	case models.TripTypePrivate:
		if req.GroupID == nil {
			return nil, domain.ValidationError{Field: "group_id", Msg: "private trips require a group"}
		}
		groupID, perr := uuid.Parse(*req.GroupID)
		if perr != nil {
			return nil, domain.ValidationError{Field: "group_id", Msg: "must be a valid UUID"}
		}
		group, gerr := s.departureRepo.GetGroupByID(groupID)
		if gerr != nil {
			return nil, gerr
		}
		if group == nil {
			return nil, domain.NotFoundError{Resource: "departure group"}
		}
		if group.DepartureID != departureID {
			return nil, domain.ValidationError{Field: "group_id", Msg: "group does not belong to this departure"}
		}
		if len(req.Participants) > group.MaxParticipants {
			return nil, domain.ValidationError{
				Field: "participants",
				Msg:   fmt.Sprintf("group holds at most %d participants", group.MaxParticipants),
			}
		}
		booking.GroupID = &groupID
		admit = func() error { return s.bookingRepo.AdmitPrivateTrip(booking, req.Participants) }

	default:
		return nil, domain.InternalError{Msg: fmt.Sprintf("unknown trip type %q", pkg.TripType)}
	}

	// A code collision aborts the whole admission transaction, so retrying
	// with a fresh code is safe; the claimed group was rolled back with it.
	err = admit()
	for attempt := 0; attempt < 2 && errors.Is(err, database.ErrDuplicateBookingCode); attempt++ {
		booking.Code = generateBookingCode()
		err = admit()
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"booking_code": booking.Code,
		"departure_id": booking.DepartureID,
		"participants": booking.ParticipantCount,
		"total_amount": booking.TotalAmount,
	}).Info("Booking admitted")

	return booking, nil
}

// GetBooking returns one booking. Customers only see their own; admins see
// everything.
func (s *BookingService) GetBooking(actor domain.Actor, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, domain.NotFoundError{Resource: "booking"}
	}
	if !actor.IsAdmin() && !actor.Owns(booking.UserID) {
		return nil, domain.ForbiddenError{Msg: "booking belongs to another customer"}
	}
	return booking, nil
}

// GetBookingByCode resolves a booking by its human-facing code, with the same
// visibility rules as GetBooking.
func (s *BookingService) GetBookingByCode(actor domain.Actor, code string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, domain.NotFoundError{Resource: "booking"}
	}
	if !actor.IsAdmin() && !actor.Owns(booking.UserID) {
		return nil, domain.ForbiddenError{Msg: "booking belongs to another customer"}
	}
	return booking, nil
}

// ListBookings returns the acting customer's bookings, newest first
func (s *BookingService) ListBookings(actor domain.Actor, limit, offset int) ([]models.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.bookingRepo.ListByUser(actor.ID, limit, offset)
}

// GetParticipants returns the travellers on a booking the actor may see
func (s *BookingService) GetParticipants(actor domain.Actor, bookingID uuid.UUID) ([]models.Participant, error) {
	if _, err := s.GetBooking(actor, bookingID); err != nil {
		return nil, err
	}
	return s.bookingRepo.GetParticipants(bookingID)
}

// Transition moves a booking to the target status. Legality comes from the
// transition graph; who may request which move comes from the authorization
// matrix below. The write itself is guarded on the observed status, so a
// concurrent writer turns into a re-read and a conflict error rather than a
// lost update.
func (s *BookingService) Transition(actor domain.Actor, bookingID uuid.UUID, target models.BookingStatus) (*models.Booking, error) {
	if !target.Valid() {
		return nil, domain.ValidationError{Field: "status", Msg: fmt.Sprintf("unknown status %q", target)}
	}

	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, domain.NotFoundError{Resource: "booking"}
	}

	if err := authorizeBookingTransition(actor, booking, target); err != nil {
		return nil, err
	}

	// Re-confirming a settled booking is a no-op, not a conflict, so replayed
	// payment confirmations always succeed whichever channel carries them.
	if target == models.BookingPaymentReceived && booking.Status.AtOrPast(target) {
		return booking, nil
	}

	if !booking.Status.CanTransitionTo(target) {
		return nil, domain.InvalidTransitionError{
			Resource: "booking",
			From:     string(booking.Status),
			To:       string(target),
		}
	}

	var moved bool
	if target.Absorbing() && booking.HoldsGroup() {
		moved, err = s.bookingRepo.TransitionAndReleaseGroup(booking.ID, booking.Status, target, *booking.GroupID)
	} else {
		moved, err = s.bookingRepo.TransitionStatus(booking.ID, booking.Status, target)
	}
	if err != nil {
		return nil, err
	}
	if !moved {
		// Lost the race; report against whatever the booking is now.
		current, rerr := s.bookingRepo.GetByID(booking.ID)
		if rerr == nil && current != nil {
			booking = current
		}
		return nil, domain.InvalidTransitionError{
			Resource: "booking",
			From:     string(booking.Status),
			To:       string(target),
		}
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"from":       booking.Status,
		"to":         target,
		"actor_role": actor.Role,
	}).Info("Booking transitioned")

	return s.bookingRepo.GetByID(booking.ID)
}

// CancelBooking is the customer-facing cancellation. It goes through the
// same matrix as any other transition.
func (s *BookingService) CancelBooking(actor domain.Actor, bookingID uuid.UUID) (*models.Booking, error) {
	return s.Transition(actor, bookingID, models.BookingCancelled)
}

// authorizeBookingTransition is the authorization matrix. Structural
// legality is checked separately; this only answers who may ask.
func authorizeBookingTransition(actor domain.Actor, booking *models.Booking, target models.BookingStatus) error {
	switch target {
	case models.BookingCancelled:
		if actor.IsAdmin() || actor.IsSystem() {
			return nil
		}
		if actor.Owns(booking.UserID) {
			// Customers may only walk away before paying.
			if booking.Status != models.BookingPending {
				return domain.ForbiddenError{Msg: "bookings can only be cancelled by the customer while awaiting payment"}
			}
			return nil
		}
		return domain.ForbiddenError{Msg: "booking belongs to another customer"}

	case models.BookingPaymentReceived:
		if actor.IsAdmin() || actor.IsSystem() {
			return nil
		}
		return domain.ForbiddenError{Msg: "payment confirmation is not a customer operation"}

	case models.BookingExpired:
		if actor.IsSystem() {
			return nil
		}
		return domain.ForbiddenError{Msg: "expiry is driven by the sweeper"}

	case models.BookingProcessed, models.BookingOngoing, models.BookingCompleted:
		if actor.IsAdmin() {
			return nil
		}
		return domain.ForbiddenError{Msg: "operational transitions require an admin"}

	default:
		return domain.ForbiddenError{Msg: fmt.Sprintf("no actor may move a booking to %s", target)}
	}
}

const bookingCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateBookingCode builds a human-facing code like MG-20260830-7KQ2NX.
// The alphabet drops easily confused characters.
func generateBookingCode() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// rand.Read on supported platforms never fails; fall back to time.
		return fmt.Sprintf("MG-%s-%06d", time.Now().UTC().Format("20060102"), time.Now().UnixNano()%1000000)
	}
	for i, b := range buf {
		buf[i] = bookingCodeAlphabet[int(b)%len(bookingCodeAlphabet)]
	}
	return fmt.Sprintf("MG-%s-%s", time.Now().UTC().Format("20060102"), string(buf))
}
