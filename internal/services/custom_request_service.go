package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ysrn87/meetandgo-sub000/internal/database"
	"github.com/ysrn87/meetandgo-sub000/internal/domain"
	"github.com/ysrn87/meetandgo-sub000/internal/models"
)

// CustomRequestService runs the custom-quote negotiation lifecycle. Estimates
// are advisory and every change lands in the append-only history; FinalPrice
// is the binding amount and must exist before a request can be accepted.
type CustomRequestService struct {
	repo   *database.CustomRequestRepository
	logger *logrus.Logger
}

// NewCustomRequestService creates a new CustomRequestService
func NewCustomRequestService(repo *database.CustomRequestRepository, logger *logrus.Logger) *CustomRequestService {
	return &CustomRequestService{repo: repo, logger: logger}
}

// CreateRequest opens a negotiation for the acting customer
func (s *CustomRequestService) CreateRequest(actor domain.Actor, req *models.CreateCustomRequestRequest) (*models.CustomTourRequest, error) {
	if req.EndDate.Before(req.StartDate) {
		return nil, domain.ValidationError{Field: "end_date", Msg: "must not be before start date"}
	}

	request := &models.CustomTourRequest{
		UserID:           actor.ID,
		Destination:      req.Destination,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		ParticipantCount: req.ParticipantCount,
	}
	if err := s.repo.Create(request); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"request_id":  request.ID,
		"destination": request.Destination,
	}).Info("Custom tour request created")

	return request, nil
}

// GetRequest returns one request. Customers only see their own.
func (s *CustomRequestService) GetRequest(actor domain.Actor, requestID uuid.UUID) (*models.CustomTourRequest, error) {
	request, err := s.repo.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, domain.NotFoundError{Resource: "custom tour request"}
	}
	if !actor.IsAdmin() && !actor.Owns(request.UserID) {
		return nil, domain.ForbiddenError{Msg: "request belongs to another customer"}
	}
	return request, nil
}

// ListRequests returns the acting customer's requests, newest first
func (s *CustomRequestService) ListRequests(actor domain.Actor, limit, offset int) ([]models.CustomTourRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(actor.ID, limit, offset)
}

// ListByStatus returns the admin review queue for one status
func (s *CustomRequestService) ListByStatus(actor domain.Actor, status models.CustomRequestStatus, limit, offset int) ([]models.CustomTourRequest, error) {
	if !actor.IsAdmin() {
		return nil, domain.ForbiddenError{Msg: "review queue requires an admin"}
	}
	if !status.Valid() {
		return nil, domain.ValidationError{Field: "status", Msg: fmt.Sprintf("unknown status %q", status)}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByStatus(status, limit, offset)
}

// UpdateEstimate records a new estimated price on an open request. Admin
// only; the request row and the history entry commit together.
func (s *CustomRequestService) UpdateEstimate(actor domain.Actor, requestID uuid.UUID, price float64, note string) error {
	if !actor.IsAdmin() {
		return domain.ForbiddenError{Msg: "estimates are set by admins"}
	}
	if price <= 0 {
		return domain.ValidationError{Field: "estimated_price", Msg: "must be positive"}
	}
	if _, err := s.GetRequest(actor, requestID); err != nil {
		return err
	}
	return s.repo.UpdateEstimate(requestID, price, actor.ID, note)
}

// GetEstimateHistory returns the negotiation trail for a request the actor
// may see, oldest first
func (s *CustomRequestService) GetEstimateHistory(actor domain.Actor, requestID uuid.UUID) ([]models.PriceEstimateHistory, error) {
	if _, err := s.GetRequest(actor, requestID); err != nil {
		return nil, err
	}
	return s.repo.ListEstimateHistory(requestID)
}

// Transition moves a request to the target status. An estimate carried on
// the same request is recorded first, while the request is still open, so
// the history reflects the number the decision was made on.
func (s *CustomRequestService) Transition(actor domain.Actor, requestID uuid.UUID, req *models.TransitionCustomRequestRequest) (*models.CustomTourRequest, error) {
	target := req.Status
	if !target.Valid() {
		return nil, domain.ValidationError{Field: "status", Msg: fmt.Sprintf("unknown status %q", target)}
	}

	request, err := s.repo.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, domain.NotFoundError{Resource: "custom tour request"}
	}

	if err := authorizeCustomRequestTransition(actor, request, target); err != nil {
		return nil, err
	}

	if !request.Status.CanTransitionTo(target) {
		return nil, domain.InvalidTransitionError{
			Resource: "custom tour request",
			From:     string(request.Status),
			To:       string(target),
		}
	}

	if target == models.CustomRequestAccepted && req.FinalPrice == nil && request.FinalPrice == nil {
		return nil, domain.ValidationError{Field: "final_price", Msg: "a final price must be agreed before accepting"}
	}
	if target == models.CustomRequestOngoing && req.GuideID == nil && request.GuideID == nil {
		return nil, domain.ValidationError{Field: "guide_id", Msg: "a guide must be assigned before the tour starts"}
	}

	if req.EstimatedPrice != nil {
		if err := s.UpdateEstimate(actor, requestID, *req.EstimatedPrice, req.Note); err != nil {
			return nil, err
		}
	}

	var guideID *uuid.UUID
	if req.GuideID != nil {
		parsed, perr := uuid.Parse(*req.GuideID)
		if perr != nil {
			return nil, domain.ValidationError{Field: "guide_id", Msg: "must be a valid UUID"}
		}
		guideID = &parsed
	}

	moved, err := s.repo.TransitionStatus(requestID, request.Status, target, req.FinalPrice, guideID, req.AdminNotes)
	if err != nil {
		return nil, err
	}
	if !moved {
		current, rerr := s.repo.GetByID(requestID)
		if rerr == nil && current != nil {
			request = current
		}
		return nil, domain.InvalidTransitionError{
			Resource: "custom tour request",
			From:     string(request.Status),
			To:       string(target),
		}
	}

	s.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"from":       request.Status,
		"to":         target,
		"actor_role": actor.Role,
	}).Info("Custom tour request transitioned")

	return s.repo.GetByID(requestID)
}

// authorizeCustomRequestTransition is the authorization matrix for the
// negotiation lifecycle. Customers open and cancel; admins drive everything
// else; PAID additionally accepts the system actor for payment events.
func authorizeCustomRequestTransition(actor domain.Actor, request *models.CustomTourRequest, target models.CustomRequestStatus) error {
	switch target {
	case models.CustomRequestCancelled:
		if actor.IsAdmin() || actor.IsSystem() || actor.Owns(request.UserID) {
			return nil
		}
		return domain.ForbiddenError{Msg: "request belongs to another customer"}

	case models.CustomRequestPaid:
		if actor.IsAdmin() || actor.IsSystem() {
			return nil
		}
		return domain.ForbiddenError{Msg: "payment confirmation is not a customer operation"}

	default:
		if actor.IsAdmin() {
			return nil
		}
		return domain.ForbiddenError{Msg: "negotiation transitions require an admin"}
	}
}
