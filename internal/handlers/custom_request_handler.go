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

// CustomRequestHandler handles custom tour request endpoints
type CustomRequestHandler struct {
	service *services.CustomRequestService
	logger  *logrus.Logger
}

// NewCustomRequestHandler creates a new CustomRequestHandler
func NewCustomRequestHandler(service *services.CustomRequestService, logger *logrus.Logger) *CustomRequestHandler {
	return &CustomRequestHandler{
		service: service,
		logger:  logger,
	}
}

// CreateRequest opens a custom tour negotiation
// @Summary Create custom tour request
// @Tags Custom Requests
// @Accept json
// @Produce json
// @Param request body models.CreateCustomRequestRequest true "Request details"
// @Success 201 {object} models.CustomTourRequest
// @Router /custom-requests [post]
func (h *CustomRequestHandler) CreateRequest(c *gin.Context) {
	actor := middleware.MustGetActor(c)

	var req models.CreateCustomRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	request, err := h.service.CreateRequest(actor, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

// GetRequest returns one custom tour request
// @Summary Get custom tour request
// @Tags Custom Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.CustomTourRequest
// @Router /custom-requests/{id} [get]
func (h *CustomRequestHandler) GetRequest(c *gin.Context) {
	actor := middleware.MustGetActor(c)

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid request id"})
		return
	}

	request, err := h.service.GetRequest(actor, requestID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// ListRequests returns the caller's custom tour requests
// @Summary List custom tour requests
// @Tags Custom Requests
// @Produce json
// @Success 200 {array} models.CustomTourRequest
// @Router /custom-requests [get]
func (h *CustomRequestHandler) ListRequests(c *gin.Context) {
	actor := middleware.MustGetActor(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	requests, err := h.service.ListRequests(actor, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests, "count": len(requests)})
}

// GetEstimateHistory returns the append-only price negotiation trail
// @Summary Get price estimate history
// @Tags Custom Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {array} models.PriceEstimateHistory
// @Router /custom-requests/{id}/history [get]
func (h *CustomRequestHandler) GetEstimateHistory(c *gin.Context) {
	actor := middleware.MustGetActor(c)

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid request id"})
		return
	}

	history, err := h.service.GetEstimateHistory(actor, requestID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

// CancelRequest cancels the caller's custom tour request
// @Summary Cancel custom tour request
// @Tags Custom Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.CustomTourRequest
// @Router /custom-requests/{id}/cancel [post]
func (h *CustomRequestHandler) CancelRequest(c *gin.Context) {
	actor := middleware.MustGetActor(c)

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid request id"})
		return
	}

	request, err := h.service.Transition(actor, requestID, &models.TransitionCustomRequestRequest{
		Status: models.CustomRequestCancelled,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// ============================================================================
// ADMIN OPERATIONS
// ============================================================================

// ListByStatus returns the admin review queue for one status
// @Summary List custom requests by status
// @Tags Admin
// @Produce json
// @Param status query string true "Status filter"
// @Success 200 {array} models.CustomTourRequest
// @Router /admin/custom-requests [get]
func (h *CustomRequestHandler) ListByStatus(c *gin.Context) {
	actor := middleware.MustGetActor(c)

	status := models.CustomRequestStatus(c.DefaultQuery("status", string(models.CustomRequestPending)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	requests, err := h.service.ListByStatus(actor, status, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests, "count": len(requests)})
}

// TransitionRequest drives a request through the negotiation lifecycle
// @Summary Transition custom tour request
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body models.TransitionCustomRequestRequest true "Target status and fields"
// @Success 200 {object} models.CustomTourRequest
// @Failure 409 {object} map[string]interface{} "Invalid transition"
// @Router /admin/custom-requests/{id}/status [patch]
func (h *CustomRequestHandler) TransitionRequest(c *gin.Context) {
	actor := middleware.MustGetActor(c)

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid request id"})
		return
	}

	var req models.TransitionCustomRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	request, err := h.service.Transition(actor, requestID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// UpdateEstimate records a new estimated price
// @Summary Update price estimate
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} map[string]interface{}
// @Router /admin/custom-requests/{id}/estimate [post]
func (h *CustomRequestHandler) UpdateEstimate(c *gin.Context) {
	actor := middleware.MustGetActor(c)

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid request id"})
		return
	}

	var req struct {
		EstimatedPrice float64 `json:"estimated_price" binding:"required,gt=0"`
		Note           string  `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	if err := h.service.UpdateEstimate(actor, requestID, req.EstimatedPrice, req.Note); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}
