package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ysrn87/meetandgo-sub000/internal/database"
	"github.com/ysrn87/meetandgo-sub000/internal/services"
)

// AdminHandler handles operational admin endpoints
type AdminHandler struct {
	cronService   *services.CronService
	auditRepo     *database.PaymentAuditRepository
	departureRepo *database.DepartureRepository
	logger        *logrus.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	cronService *services.CronService,
	auditRepo *database.PaymentAuditRepository,
	departureRepo *database.DepartureRepository,
	logger *logrus.Logger,
) *AdminHandler {
	return &AdminHandler{
		cronService:   cronService,
		auditRepo:     auditRepo,
		departureRepo: departureRepo,
		logger:        logger,
	}
}

// TriggerSweep runs the expiry sweep immediately instead of waiting for the
// next scheduled run
// @Summary Trigger expiry sweep
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /admin/sweep [post]
func (h *AdminHandler) TriggerSweep(c *gin.Context) {
	expired, err := h.cronService.RunSweepNow()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expired": expired})
}

// GetPaymentAudits lists the audit trail for one order or one booking
// @Summary List payment audits
// @Tags Admin
// @Produce json
// @Param order_id query string false "Payment order ID"
// @Param booking_id query string false "Booking ID"
// @Success 200 {object} map[string]interface{}
// @Router /admin/payments/audits [get]
func (h *AdminHandler) GetPaymentAudits(c *gin.Context) {
	if orderID := c.Query("order_id"); orderID != "" {
		audits, err := h.auditRepo.GetByOrderID(c.Request.Context(), orderID)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"audits": audits, "count": len(audits)})
		return
	}

	if raw := c.Query("booking_id"); raw != "" {
		bookingID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid booking id"})
			return
		}
		audits, err := h.auditRepo.GetByBookingID(c.Request.Context(), bookingID)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"audits": audits, "count": len(audits)})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "order_id or booking_id query parameter is required"})
}

// ListAmountMismatches lists webhook deliveries whose gross amount disagreed
// with the booking total
// @Summary List amount mismatches
// @Tags Admin
// @Produce json
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Router /admin/payments/mismatches [get]
func (h *AdminHandler) ListAmountMismatches(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	audits, err := h.auditRepo.GetAmountMismatches(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"audits": audits, "count": len(audits)})
}

// ListRejectedSignatures lists recent webhook deliveries that failed
// signature verification
// @Summary List rejected webhook signatures
// @Tags Admin
// @Produce json
// @Param hours query int false "Lookback window in hours"
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Router /admin/payments/rejected [get]
func (h *AdminHandler) ListRejectedSignatures(c *gin.Context) {
	hours, _ := strconv.Atoi(c.DefaultQuery("hours", "24"))
	if hours <= 0 || hours > 720 {
		hours = 24
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	audits, err := h.auditRepo.GetRejectedSignatures(c.Request.Context(), hours, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"audits": audits, "count": len(audits)})
}

// ReleaseGroup force-clears the booked flag on a departure group. This is the
// manual escape hatch for groups left claimed by out-of-band corrections.
// @Summary Force-release a departure group
// @Tags Admin
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} map[string]interface{}
// @Router /admin/groups/{id}/release [post]
func (h *AdminHandler) ReleaseGroup(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid group id"})
		return
	}

	if err := h.departureRepo.ReleaseGroup(groupID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithField("group_id", groupID).Warn("Departure group force-released by admin")
	c.JSON(http.StatusOK, gin.H{"group_id": groupID, "released": true})
}
