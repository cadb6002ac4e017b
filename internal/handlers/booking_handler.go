package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ysrn87/meetandgo-sub000/internal/middleware"
	"github.com/ysrn87/meetandgo-sub000/internal/models"
	"github.com/ysrn87/meetandgo-sub000/internal/services"
)

// BookingHandler handles booking endpoints
type BookingHandler struct {
	bookingService *services.BookingService
	logger         *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookingService *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// CreateBooking admits a new booking
// @Summary Create booking
// @Description Admits a booking against departure capacity (open trip) or an exclusive group (private trip)
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body models.CreateBookingRequest true "Booking request"
// @Success 201 {object} models.Booking
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 409 {object} map[string]interface{} "Capacity exceeded or group already booked"
// @Router /bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	actor := middleware.MustGetActor(c)

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	booking, err := h.bookingService.CreateBooking(actor, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// GetBooking returns one booking
// @Summary Get booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} models.Booking
// @Failure 404 {object} map[string]interface{} "Not found"
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	actor := middleware.MustGetActor(c)

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid booking id"})
		return
	}

	booking, err := h.bookingService.GetBooking(actor, bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// GetBookingByCode returns one booking looked up by its code
// @Summary Get booking by code
// @Tags Bookings
// @Produce json
// @Param code path string true "Booking code"
// @Success 200 {object} models.Booking
// @Failure 404 {object} map[string]interface{} "Not found"
// @Router /bookings/code/{code} [get]
func (h *BookingHandler) GetBookingByCode(c *gin.Context) {
	actor := middleware.MustGetActor(c)

	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "booking code is required"})
		return
	}

	booking, err := h.bookingService.GetBookingByCode(actor, code)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// ListBookings returns the caller's bookings
// @Summary List bookings
// @Tags Bookings
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Booking
// @Router /bookings [get]
func (h *BookingHandler) ListBookings(c *gin.Context) {
	actor := middleware.MustGetActor(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	bookings, err := h.bookingService.ListBookings(actor, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// GetParticipants returns the travellers on a booking
// @Summary List booking participants
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {array} models.Participant
// @Router /bookings/{id}/participants [get]
func (h *BookingHandler) GetParticipants(c *gin.Context) {
	actor := middleware.MustGetActor(c)

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid booking id"})
		return
	}

	participants, err := h.bookingService.GetParticipants(actor, bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

// CancelBooking cancels a booking. Customers may cancel their own PENDING
// bookings; admins may also cancel after payment.
// @Summary Cancel booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} models.Booking
// @Failure 409 {object} map[string]interface{} "Invalid transition"
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	actor := middleware.MustGetActor(c)

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid booking id"})
		return
	}

	booking, err := h.bookingService.CancelBooking(actor, bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// TransitionBooking drives a booking to a target status (admin)
// @Summary Transition booking
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body models.TransitionBookingRequest true "Target status"
// @Success 200 {object} models.Booking
// @Failure 409 {object} map[string]interface{} "Invalid transition"
// @Router /admin/bookings/{id}/status [patch]
func (h *BookingHandler) TransitionBooking(c *gin.Context) {
	actor := middleware.MustGetActor(c)

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid booking id"})
		return
	}

	var req models.TransitionBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	booking, err := h.bookingService.Transition(actor, bookingID, req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}
