package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/ysrn87/meetandgo-sub000/internal/domain"
)

// respondError maps a domain error onto the HTTP surface. Capacity and
// transition conflicts are 409s: the request was well formed, the state just
// says no. Signature failures are 403 so the provider sees the rejection but
// learns nothing about why.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	switch {
	case domain.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
	case domain.IsForbidden(err):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": err.Error()})
	case domain.IsInvalidSignature(err):
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid_signature", "message": "signature verification failed"})
	case domain.IsCapacityExceeded(err):
		c.JSON(http.StatusConflict, gin.H{"error": "capacity_exceeded", "message": err.Error()})
	case domain.IsGroupAlreadyBooked(err):
		c.JSON(http.StatusConflict, gin.H{"error": "group_already_booked", "message": err.Error()})
	case domain.IsInvalidTransition(err):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid_transition", "message": err.Error()})
	case domain.IsNotPending(err):
		c.JSON(http.StatusConflict, gin.H{"error": "not_pending", "message": err.Error()})
	case domain.IsUpstreamUnavailable(err):
		logger.WithError(err).Error("Payment provider unavailable")
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream_unavailable", "message": "payment provider is unavailable"})
	default:
		logger.WithError(err).Error("Unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "something went wrong"})
	}
}
