package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ysrn87/meetandgo-sub000/internal/middleware"
	"github.com/ysrn87/meetandgo-sub000/internal/models"
	"github.com/ysrn87/meetandgo-sub000/internal/services"
)

// PaymentHandler handles payment endpoints, including the public webhook
type PaymentHandler struct {
	paymentService *services.PaymentService
	logger         *logrus.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *services.PaymentService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

func requestMeta(c *gin.Context, rawBody []byte) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		RawBody:   rawBody,
	}
}

// CreatePayment opens a payment transaction for a PENDING booking
// @Summary Create payment transaction
// @Tags Payments
// @Produce json
// @Param id path string true "Booking ID"
// @Success 201 {object} models.CreatePaymentResponse
// @Failure 409 {object} map[string]interface{} "Booking not pending"
// @Failure 502 {object} map[string]interface{} "Provider unavailable"
// @Router /bookings/{id}/payment [post]
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	actor := middleware.MustGetActor(c)

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid booking id"})
		return
	}

	resp, err := h.paymentService.CreatePayment(c.Request.Context(), actor, bookingID, requestMeta(c, nil))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// PollStatus reports a booking's payment status, consulting the provider
// while the booking is still pending
// @Summary Poll payment status
// @Tags Payments
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} models.PaymentStatusResponse
// @Router /bookings/{id}/payment/status [get]
func (h *PaymentHandler) PollStatus(c *gin.Context) {
	actor := middleware.MustGetActor(c)

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid booking id"})
		return
	}

	resp, err := h.paymentService.PollStatus(c.Request.Context(), actor, bookingID, requestMeta(c, nil))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Webhook receives payment notifications from the provider. Unauthenticated
// by design; the signature inside the body is the credential. The raw body is
// kept byte for byte for the audit trail.
// @Summary Payment webhook
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body models.PaymentNotification true "Provider notification"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{} "Invalid signature"
// @Router /payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "unreadable body"})
		return
	}

	var notification models.PaymentNotification
	if err := binding.JSON.BindBody(rawBody, &notification); err != nil {
		h.logger.WithError(err).Warn("Malformed payment webhook")
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "malformed notification"})
		return
	}

	if err := h.paymentService.HandleWebhook(c.Request.Context(), &notification, requestMeta(c, rawBody)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
