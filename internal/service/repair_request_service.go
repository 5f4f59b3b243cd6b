package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/repairjunction/repairjunction-api/internal/dto"
	"github.com/repairjunction/repairjunction-api/internal/models"
	appErrors "github.com/repairjunction/repairjunction-api/pkg/errors"
)

type repairRequestStore interface {
	Create(ctx context.Context, req *models.RepairRequest) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.RepairRequest, error)
	ListByUser(ctx context.Context, userID string) ([]models.RepairRequest, error)
	UpdateTracking(ctx context.Context, exec sqlx.ExtContext, update models.TrackingUpdate) error
}

type requestAssigner interface {
	AutoAssign(ctx context.Context, requestID int64, loc models.Location) (*models.AssignResult, error)
	Complete(ctx context.Context, technicianID string, requestID int64) (*models.LedgerEntry, error)
	Close(ctx context.Context, c models.Completion) (*models.LedgerEntry, error)
}

// RepairRequestService manages the customer-facing request lifecycle.
type RepairRequestService struct {
	requests  repairRequestStore
	addresses addressReader
	locations requestLocationResolver
	assigner  requestAssigner
	feeds     feedInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRepairRequestService constructs a RepairRequestService.
func NewRepairRequestService(
	requests repairRequestStore,
	addresses addressReader,
	locations requestLocationResolver,
	assigner requestAssigner,
	feeds feedInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
) *RepairRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RepairRequestService{
		requests:  requests,
		addresses: addresses,
		locations: locations,
		assigner:  assigner,
		feeds:     feeds,
		validator: validate,
		logger:    logger,
	}
}

// Create stores a new request and immediately tries to assign it. A failed
// assignment never fails creation; the request then waits for a claim or a sweep.
func (s *RepairRequestService) Create(ctx context.Context, userID string, payload dto.CreateRepairRequest) (*dto.CreateRepairResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid repair request payload")
	}
	address := strings.TrimSpace(deref(payload.Address))
	addressID := strings.TrimSpace(deref(payload.AddressID))
	if address == "" && addressID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "address or address_id is required")
	}

	req := &models.RepairRequest{
		UserID:                  &userID,
		CustomerName:            strings.TrimSpace(payload.CustomerName),
		ApplianceType:           strings.TrimSpace(payload.ApplianceType),
		ModelName:               payload.ModelName,
		SerialNumber:            payload.SerialNumber,
		ServiceType:             payload.ServiceType,
		Description:             payload.Description,
		Status:                  models.StatusPendingAssignment,
		RepairStatus:            models.RepairRequestSubmitted,
		ScheduledPickupDatetime: payload.ScheduledPickupDatetime,
	}
	if address != "" {
		req.Address = &address
	}

	if addressID != "" {
		saved, err := s.ownedAddress(ctx, userID, addressID)
		if err != nil {
			return nil, err
		}
		req.AddressID = &saved.ID
		if req.Address == nil {
			text := formatAddress(saved)
			req.Address = &text
		}
	}

	if err := s.requests.Create(ctx, req); err != nil {
		s.logger.Error("failed to create repair request", zap.String("user_id", userID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to create repair request")
	}

	loc := models.Location{
		Pincode: strings.TrimSpace(deref(payload.Pincode)),
		City:    strings.TrimSpace(deref(payload.City)),
		State:   strings.TrimSpace(deref(payload.State)),
	}
	if loc.Pincode == "" && s.locations != nil {
		resolved := s.locations.Resolve(ctx, req)
		loc.Pincode = resolved.Pincode
		if loc.City == "" && loc.State == "" {
			loc.City, loc.State = resolved.City, resolved.State
		}
	}

	result, err := s.assigner.AutoAssign(ctx, req.ID, loc)
	if err != nil {
		s.logger.Error("auto assignment failed, request left pending", zap.Int64("request_id", req.ID), zap.Error(err))
		if result == nil {
			result = &models.AssignResult{Message: appErrors.FromError(err).Message}
		}
	}
	if result.Assigned && result.Technician != nil {
		req.TechnicianID = &result.Technician.ID
		req.Status = models.StatusAssigned
		req.RepairStatus = models.RepairRequestAccepted
	}

	return &dto.CreateRepairResponse{Request: req, Assignment: result}, nil
}

func (s *RepairRequestService) ownedAddress(ctx context.Context, userID, addressID string) (*models.Address, error) {
	if s.addresses == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "saved addresses are unavailable")
	}
	saved, err := s.addresses.FindByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "address not found")
		}
		return nil, appErrors.Internal(err, "failed to load address")
	}
	if saved.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "address belongs to another user")
	}
	return saved, nil
}

func formatAddress(a *models.Address) string {
	parts := make([]string, 0, 4)
	for _, p := range []*string{a.StreetAddress, a.City, a.State, a.Pincode} {
		if v := strings.TrimSpace(deref(p)); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

// Get returns a request visible to the caller. Customers see their own
// requests, technicians see open requests and the ones they hold.
func (s *RepairRequestService) Get(ctx context.Context, userID string, role models.UserRole, id int64) (*models.RepairRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch role {
	case models.RoleAdmin:
		return req, nil
	case models.RoleTechnician:
		if req.AssignedTo(userID) || (req.TechnicianID == nil && req.Status.Claimable()) {
			return req, nil
		}
	default:
		if req.UserID != nil && *req.UserID == userID {
			return req, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this request")
}

// ListByUser returns the caller's own requests.
func (s *RepairRequestService) ListByUser(ctx context.Context, userID string) ([]models.RepairRequest, error) {
	requests, err := s.requests.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list repair requests")
	}
	if requests == nil {
		requests = []models.RepairRequest{}
	}
	return requests, nil
}

// UpdateTracking advances the repair status of a request held by technicianID
// by exactly one step. Delivery completes the request and frees capacity.
func (s *RepairRequestService) UpdateTracking(ctx context.Context, technicianID string, id int64, payload dto.UpdateTrackingRequest) (*models.RepairRequest, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tracking payload")
	}
	next := payload.RepairStatus
	if !next.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown repair status %q", next))
	}
	if next == models.RepairPickupScheduled && payload.ScheduledPickupDatetime == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scheduled_pickup_datetime is required to schedule a pickup")
	}

	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.AssignedTo(technicianID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request is not assigned to this technician")
	}
	if !req.RepairStatus.CanTransitionTo(next) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move from %s to %s", req.RepairStatus, next))
	}

	if next == models.RepairDelivered {
		if _, err := s.assigner.Complete(ctx, technicianID, id); err != nil {
			return nil, err
		}
		return s.load(ctx, id)
	}

	update := models.TrackingUpdate{
		RequestID:       id,
		TechnicianID:    technicianID,
		From:            req.RepairStatus,
		To:              next,
		ScheduledPickup: payload.ScheduledPickupDatetime,
	}
	if status, ok := next.CoarseStatus(); ok {
		update.Status = status
	}
	if err := s.requests.UpdateTracking(ctx, nil, update); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request changed while updating, reload and retry")
		}
		return nil, appErrors.Internal(err, "failed to update repair tracking")
	}
	s.logger.Info("repair tracking updated",
		zap.Int64("request_id", id),
		zap.String("from", string(update.From)),
		zap.String("to", string(update.To)),
	)
	if s.feeds != nil {
		s.feeds.Invalidate(ctx, technicianID)
	}
	return s.load(ctx, id)
}

// AcceptQuotation records the customer's approval of a shared quotation.
// Repair work starts right away.
func (s *RepairRequestService) AcceptQuotation(ctx context.Context, userID string, id int64) (*models.RepairRequest, error) {
	req, err := s.quotedRequest(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	update := models.TrackingUpdate{
		RequestID:    id,
		TechnicianID: *req.TechnicianID,
		From:         models.RepairQuotationShared,
		To:           models.RepairInProgress,
		Status:       models.StatusInProgress,
	}
	if err := s.requests.UpdateTracking(ctx, nil, update); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "quotation is no longer awaiting a decision")
		}
		return nil, appErrors.Internal(err, "failed to accept quotation")
	}
	s.logger.Info("quotation accepted", zap.Int64("request_id", id), zap.String("technician_id", update.TechnicianID))
	if s.feeds != nil {
		s.feeds.Invalidate(ctx, update.TechnicianID)
	}
	return s.load(ctx, id)
}

// RejectQuotation closes the request on the customer's refusal and releases
// the technician's slot. The repair status stays at quotation_shared.
func (s *RepairRequestService) RejectQuotation(ctx context.Context, userID string, id int64) (*models.RepairRequest, error) {
	req, err := s.quotedRequest(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.assigner.Close(ctx, models.Completion{
		RequestID:    id,
		TechnicianID: *req.TechnicianID,
		From:         models.RepairQuotationShared,
		To:           models.RepairQuotationShared,
	}); err != nil {
		return nil, err
	}
	s.logger.Info("quotation rejected", zap.Int64("request_id", id), zap.String("technician_id", *req.TechnicianID))
	return s.load(ctx, id)
}

// quotedRequest loads a request owned by userID that is waiting on a quotation decision.
func (s *RepairRequestService) quotedRequest(ctx context.Context, userID string, id int64) (*models.RepairRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.UserID == nil || *req.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request belongs to another user")
	}
	if req.TechnicianID == nil || req.Status == models.StatusCompleted || req.RepairStatus != models.RepairQuotationShared {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "no quotation is awaiting a decision")
	}
	return req, nil
}

func (s *RepairRequestService) load(ctx context.Context, id int64) (*models.RepairRequest, error) {
	req, err := s.requests.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "repair request not found")
		}
		return nil, appErrors.Internal(err, "failed to load repair request")
	}
	return req, nil
}
