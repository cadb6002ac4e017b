package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mssola/user_agent"
	"github.com/sirupsen/logrus"
	"github.com/ysrn87/meetandgo-sub000/internal/database"
	"github.com/ysrn87/meetandgo-sub000/internal/domain"
	"github.com/ysrn87/meetandgo-sub000/internal/models"
)

// Audit event type labels. One row is written per delivery, whatever the
// outcome, so the trail shows rejected and ignored events too.
const (
	paymentEventSettled   = "payment_received"
	paymentEventCancelled = "payment_cancelled"
	paymentEventIgnored   = "ignored"
	paymentEventRejected  = "rejected_signature"
	paymentEventDuplicate = "duplicate"
	paymentEventCreated   = "transaction_created"
)

// RequestMeta carries transport-level facts about a payment delivery for the
// audit trail.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	RawBody   []byte
}

// PaymentService bridges bookings and the payment provider. Webhook handling
// is idempotent: signature first, then the state machine decides whether the
// event moves the booking or is a no-op.
type PaymentService struct {
	bookingRepo *database.BookingRepository
	auditRepo   *database.PaymentAuditRepository
	gateway     *MidtransService
	bookings    *BookingService
	logger      *logrus.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	bookingRepo *database.BookingRepository,
	auditRepo *database.PaymentAuditRepository,
	gateway *MidtransService,
	bookings *BookingService,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		bookingRepo: bookingRepo,
		auditRepo:   auditRepo,
		gateway:     gateway,
		bookings:    bookings,
		logger:      logger,
	}
}

// CreatePayment opens a Snap transaction for a PENDING booking owned by the
// actor and stores the provider handles. Every call mints a fresh order ID
// (booking code plus a random suffix) because the provider refuses to reopen
// an order ID it has already seen. The code prefix keeps every attempt
// resolvable by the webhook even after a newer attempt overwrote the stored
// order ID.
func (s *PaymentService) CreatePayment(ctx context.Context, actor domain.Actor, bookingID uuid.UUID, meta RequestMeta) (*models.CreatePaymentResponse, error) {
	booking, err := s.bookings.GetBooking(actor, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingPending {
		return nil, domain.NotPendingError{
			BookingID: booking.ID.String(),
			Status:    string(booking.Status),
		}
	}

	orderID := booking.Code + "-" + randomOrderSuffix()

	snap, err := s.gateway.CreateTransaction(&CreateTransactionParams{
		OrderID:     orderID,
		GrossAmount: booking.TotalAmount,
		ExpiryHours: int(models.PaymentDeadlineTTL.Hours()),
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.bookingRepo.SetPaymentReference(booking.ID, orderID, snap.Token, snap.RedirectURL)
	if err != nil {
		return nil, err
	}
	if !updated {
		// The booking left PENDING between the read and the write. The Snap
		// transaction will sit unpaid at the provider until it expires.
		return nil, domain.NotPendingError{BookingID: booking.ID.String(), Status: "unknown"}
	}

	s.audit(ctx, &models.PaymentAudit{
		BookingID:      &booking.ID,
		OrderID:        orderID,
		EventType:      paymentEventCreated,
		EventSource:    models.PaymentSourceCreate,
		GrossAmount:    strconv.FormatFloat(booking.TotalAmount, 'f', 2, 64),
		AmountsMatch:   true,
		SignatureValid: true,
	}, meta)

	return &models.CreatePaymentResponse{
		OrderID:     orderID,
		Token:       snap.Token,
		RedirectURL: snap.RedirectURL,
	}, nil
}

// HandleWebhook processes one provider notification. Order of checks is
// fixed: signature before any state is read, then booking resolution, then
// amount verification, then the state machine. Replays and stale events
// resolve to audited no-ops so the provider's retries always get a 2xx.
func (s *PaymentService) HandleWebhook(ctx context.Context, n *models.PaymentNotification, meta RequestMeta) error {
	audit := &models.PaymentAudit{
		OrderID:           n.OrderID,
		EventSource:       models.PaymentSourceWebhook,
		TransactionStatus: n.TransactionStatus,
		FraudStatus:       n.FraudStatus,
		GrossAmount:       n.GrossAmount,
	}

	if !s.gateway.VerifySignature(n) {
		audit.EventType = paymentEventRejected
		s.audit(ctx, audit, meta)
		return domain.InvalidSignatureError{OrderID: n.OrderID}
	}
	audit.SignatureValid = true

	booking, err := s.resolveBooking(n.OrderID)
	if err != nil {
		return err
	}
	if booking == nil {
		audit.EventType = paymentEventIgnored
		s.audit(ctx, audit, meta)
		return domain.NotFoundError{Resource: "booking"}
	}
	audit.BookingID = &booking.ID

	audit.AmountsMatch = amountMatches(n.GrossAmount, booking.TotalAmount)
	if !audit.AmountsMatch {
		audit.EventType = paymentEventIgnored
		s.audit(ctx, audit, meta)
		s.logger.WithFields(logrus.Fields{
			"order_id":     n.OrderID,
			"booking_id":   booking.ID,
			"gross_amount": n.GrossAmount,
			"expected":     booking.TotalAmount,
		}).Warn("Webhook amount does not match booking total")
		return domain.ValidationError{Field: "gross_amount", Msg: "amount does not match booking total"}
	}

	target, ok := mapTransactionStatus(n.TransactionStatus, n.FraudStatus)
	if !ok {
		// pending, refund notifications and anything unrecognized: acknowledged
		// but not acted on.
		audit.EventType = paymentEventIgnored
		s.audit(ctx, audit, meta)
		return nil
	}

	return s.applyPaymentOutcome(ctx, booking, target, audit, meta)
}

// PollStatus reports a booking's payment status, consulting the provider only
// while the booking is still PENDING and a transaction exists. Provider
// outages degrade to the stored status; polling never fails a booking.
func (s *PaymentService) PollStatus(ctx context.Context, actor domain.Actor, bookingID uuid.UUID, meta RequestMeta) (*models.PaymentStatusResponse, error) {
	booking, err := s.bookings.GetBooking(actor, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.Status != models.BookingPending || booking.PaymentOrderID == nil {
		return paymentStatusOf(booking), nil
	}

	status, err := s.gateway.CheckStatus(*booking.PaymentOrderID)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"booking_id": booking.ID,
			"order_id":   *booking.PaymentOrderID,
		}).Warn("Payment status poll failed, returning stored status")
		return paymentStatusOf(booking), nil
	}

	audit := &models.PaymentAudit{
		BookingID:         &booking.ID,
		OrderID:           status.OrderID,
		EventSource:       models.PaymentSourcePoll,
		TransactionStatus: status.TransactionStatus,
		FraudStatus:       status.FraudStatus,
		GrossAmount:       status.GrossAmount,
		SignatureValid:    true,
		AmountsMatch:      amountMatches(status.GrossAmount, booking.TotalAmount),
	}

	if target, ok := mapTransactionStatus(status.TransactionStatus, status.FraudStatus); ok && audit.AmountsMatch {
		if err := s.applyPaymentOutcome(ctx, booking, target, audit, meta); err != nil {
			s.logger.WithError(err).Warn("Failed to apply polled payment outcome")
		}
	} else {
		audit.EventType = paymentEventIgnored
		s.audit(ctx, audit, meta)
	}

	current, err := s.bookingRepo.GetByID(booking.ID)
	if err != nil || current == nil {
		return paymentStatusOf(booking), nil
	}
	return paymentStatusOf(current), nil
}

// resolveBooking maps an order ID to its booking. The booking stores only the
// latest order ID, but earlier Snap transactions stay payable at the provider
// after a checkout refresh, so a miss falls back to the booking code embedded
// as the order ID prefix. A settlement on a superseded attempt must still land.
func (s *PaymentService) resolveBooking(orderID string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByPaymentOrderID(orderID)
	if err != nil || booking != nil {
		return booking, err
	}
	if i := strings.LastIndex(orderID, "-"); i > 0 {
		return s.bookingRepo.GetByCode(orderID[:i])
	}
	return nil, nil
}

// applyPaymentOutcome drives the booking state machine from a verified
// payment event. Duplicates (already at or past the target) and stale events
// (booking already settled or reclaimed) become audited no-ops.
func (s *PaymentService) applyPaymentOutcome(ctx context.Context, booking *models.Booking, target models.BookingStatus, audit *models.PaymentAudit, meta RequestMeta) error {
	switch {
	case target == models.BookingPaymentReceived && booking.Status.AtOrPast(target):
		audit.EventType = paymentEventDuplicate
		audit.IsDuplicate = true
		s.audit(ctx, audit, meta)
		return nil

	case target == models.BookingCancelled && booking.Status.Absorbing():
		audit.EventType = paymentEventDuplicate
		audit.IsDuplicate = true
		s.audit(ctx, audit, meta)
		return nil

	case !booking.Status.CanTransitionTo(target):
		// Stale event, e.g. an expire notification for a booking that paid.
		audit.EventType = paymentEventIgnored
		s.audit(ctx, audit, meta)
		s.logger.WithFields(logrus.Fields{
			"booking_id": booking.ID,
			"status":     booking.Status,
			"target":     target,
		}).Warn("Ignoring stale payment event")
		return nil
	}

	if _, err := s.bookings.Transition(domain.SystemActor(), booking.ID, target); err != nil {
		if domain.IsInvalidTransition(err) {
			// A concurrent writer beat us; the retry semantics above make the
			// replayed delivery a duplicate.
			audit.EventType = paymentEventDuplicate
			audit.IsDuplicate = true
			s.audit(ctx, audit, meta)
			return nil
		}
		return err
	}

	if target == models.BookingPaymentReceived {
		audit.EventType = paymentEventSettled
	} else {
		audit.EventType = paymentEventCancelled
	}
	s.audit(ctx, audit, meta)

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"order_id":   audit.OrderID,
		"target":     target,
		"source":     audit.EventSource,
	}).Info("Payment event applied")

	return nil
}

// audit writes one trail row, folding in the transport metadata. Audit
// failures are logged inside the repository and never abort payment handling.
func (s *PaymentService) audit(ctx context.Context, audit *models.PaymentAudit, meta RequestMeta) {
	audit.IPAddress = meta.IPAddress
	audit.UserAgent = meta.UserAgent
	audit.RawBody = meta.RawBody
	if meta.UserAgent != "" {
		ua := user_agent.New(meta.UserAgent)
		name, version := ua.Browser()
		audit.UABrowser = fmt.Sprintf("%s %s", name, version)
	}
	if err := s.auditRepo.Log(ctx, audit); err != nil {
		s.logger.WithError(err).Error("Payment audit write failed")
	}
}

// mapTransactionStatus translates provider transaction and fraud statuses
// into a booking target. The second return is false for statuses that carry
// no state change (pending, refunds, unknown).
func mapTransactionStatus(transactionStatus, fraudStatus string) (models.BookingStatus, bool) {
	switch transactionStatus {
	case "capture", "settlement":
		if fraudStatus == "" || fraudStatus == "accept" {
			return models.BookingPaymentReceived, true
		}
		// challenge or deny on fraud review: wait for the follow-up event.
		return "", false
	case "deny", "cancel", "expire":
		return models.BookingCancelled, true
	default:
		return "", false
	}
}

func amountMatches(gross string, expected float64) bool {
	amount, err := strconv.ParseFloat(gross, 64)
	if err != nil {
		return false
	}
	return math.Abs(amount-expected) < 0.01
}

func paymentStatusOf(b *models.Booking) *models.PaymentStatusResponse {
	return &models.PaymentStatusResponse{
		BookingID: b.ID,
		Code:      b.Code,
		Status:    b.Status,
		PaidAt:    b.PaidAt,
	}
}

// randomOrderSuffix returns 8 hex characters for order ID uniqueness.
func randomOrderSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(buf)
}
