package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/repairjunction/repairjunction-api/internal/models"
	"github.com/repairjunction/repairjunction-api/pkg/database"
	appErrors "github.com/repairjunction/repairjunction-api/pkg/errors"
)

type assignmentRequestStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.RepairRequest, error)
	ListUnassigned(ctx context.Context, limit int) ([]models.RepairRequest, error)
	ListByTechnicianAndStatus(ctx context.Context, technicianID string, status models.RequestStatus) ([]models.RepairRequest, error)
	AssignIfUnassigned(ctx context.Context, exec sqlx.ExtContext, requestID int64, technicianID string) error
	Complete(ctx context.Context, exec sqlx.ExtContext, c models.Completion) error
}

type technicianLocator interface {
	Locate(ctx context.Context, loc models.Location) (*models.TechnicianProfile, models.LocatorStrategy, error)
}

type requestLocationResolver interface {
	Resolve(ctx context.Context, req *models.RepairRequest) models.Location
}

type eventPublisher interface {
	Publish(ctx context.Context, event models.AssignmentEvent) error
}

type feedInvalidator interface {
	Invalidate(ctx context.Context, technicianID string)
}

// AssignmentConfig tunes batch assignment.
type AssignmentConfig struct {
	SweepLimit int
}

// SweepResult is the technician dashboard batch view: every unassigned
// pending request plus the technician's assigned ones.
type SweepResult struct {
	Requests      []models.RepairRequest `json:"requests"`
	PendingCount  int                    `json:"pending_count"`
	AssignedCount int                    `json:"assigned_count"`
	Claimed       []int64                `json:"claimed"`
}

// PendingSweepResult summarises one periodic pass over unassigned requests.
type PendingSweepResult struct {
	Scanned    int `json:"scanned"`
	Assigned   int `json:"assigned"`
	Unassigned int `json:"unassigned"`
	Failed     int `json:"failed"`
}

// AssignmentService hands repair requests to technicians. Every path, whether
// automatic, claimed or swept, ends in the same transactional write.
type AssignmentService struct {
	requests  assignmentRequestStore
	locator   technicianLocator
	ledger    *CapacityLedger
	locations requestLocationResolver
	tx        database.TxBeginner
	events    eventPublisher
	feeds     feedInvalidator
	metrics   *MetricsService
	logger    *zap.Logger
	config    AssignmentConfig
	now       func() time.Time
}

// NewAssignmentService wires assignment dependencies. events and feeds may be nil.
func NewAssignmentService(
	requests assignmentRequestStore,
	locator technicianLocator,
	ledger *CapacityLedger,
	locations requestLocationResolver,
	tx database.TxBeginner,
	events eventPublisher,
	feeds feedInvalidator,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg AssignmentConfig,
) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SweepLimit <= 0 {
		cfg.SweepLimit = 100
	}
	return &AssignmentService{
		requests:  requests,
		locator:   locator,
		ledger:    ledger,
		locations: locations,
		tx:        tx,
		events:    events,
		feeds:     feeds,
		metrics:   metrics,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
}

// AutoAssign finds a technician near loc and hands them the request. An empty
// loc is resolved from the request itself. A result with Success=false carries
// the store error that caused it.
func (s *AssignmentService) AutoAssign(ctx context.Context, requestID int64, loc models.Location) (*models.AssignResult, error) {
	req, err := s.requests.FindByID(ctx, nil, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "repair request not found")
		}
		return &models.AssignResult{Message: "failed to load repair request"}, appErrors.Internal(err, "failed to load repair request")
	}
	if req.TechnicianID != nil || !req.Status.Claimable() {
		return nil, appErrors.Clone(appErrors.ErrAlreadyAssigned, "")
	}
	if loc.Empty() && s.locations != nil {
		loc = s.locations.Resolve(ctx, req)
	}
	return s.autoAssign(ctx, AssignPathAuto, req.ID, loc)
}

func (s *AssignmentService) autoAssign(ctx context.Context, path string, requestID int64, loc models.Location) (*models.AssignResult, error) {
	logger := s.logger.With(zap.String("path", path), zap.Int64("request_id", requestID))

	technician, strategy, err := s.locator.Locate(ctx, loc)
	if err != nil {
		s.metrics.RecordAssignment(path, OutcomeFailed)
		return &models.AssignResult{Message: "failed to locate technician"}, err
	}
	if technician == nil {
		logger.Info("no technician available, request stays pending", zap.String("pincode", loc.Pincode))
		s.metrics.RecordAssignment(path, OutcomeNoTechnician)
		return &models.AssignResult{Success: true, Message: "no technician available in this area"}, nil
	}
	if !s.ledger.CanAccept(technician) {
		logger.Info("located technician is at capacity", zap.String("technician_id", technician.ID))
		s.metrics.RecordAssignment(path, OutcomeAtCapacity)
		return &models.AssignResult{Success: true, Message: appErrors.ErrCapacityExceeded.Message, Strategy: strategy}, nil
	}

	entry, err := s.assign(ctx, path, requestID, technician.ID)
	switch {
	case errors.Is(err, appErrors.ErrCapacityExceeded):
		return &models.AssignResult{Success: true, Message: appErrors.ErrCapacityExceeded.Message, Strategy: strategy}, nil
	case errors.Is(err, appErrors.ErrAlreadyAssigned):
		return nil, err
	case err != nil:
		return &models.AssignResult{Message: "failed to assign technician"}, err
	}

	technician.ActiveRequestCount = entry.ActiveRequestCount
	technician.CanReceiveRequests = entry.CanReceiveRequests
	return &models.AssignResult{
		Success:    true,
		Assigned:   true,
		Message:    "technician assigned",
		Strategy:   strategy,
		Technician: technician,
	}, nil
}

// Claim lets a technician take a pending request. Capacity is checked against
// a fresh read, and again atomically by the write itself.
func (s *AssignmentService) Claim(ctx context.Context, technicianID string, requestID int64) (*models.AssignResult, error) {
	technician, err := s.ledger.Load(ctx, nil, technicianID)
	if err != nil {
		return nil, err
	}
	if !s.ledger.CanAccept(technician) {
		s.metrics.RecordAssignment(AssignPathClaim, OutcomeAtCapacity)
		return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "")
	}

	req, err := s.requests.FindByID(ctx, nil, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "repair request not found")
		}
		return nil, appErrors.Internal(err, "failed to load repair request")
	}
	if req.TechnicianID != nil || !req.Status.Claimable() {
		s.metrics.RecordAssignment(AssignPathClaim, OutcomeTaken)
		return nil, appErrors.Clone(appErrors.ErrAlreadyAssigned, "")
	}

	entry, err := s.assign(ctx, AssignPathClaim, requestID, technicianID)
	if err != nil {
		return nil, err
	}
	technician.ActiveRequestCount = entry.ActiveRequestCount
	technician.CanReceiveRequests = entry.CanReceiveRequests
	return &models.AssignResult{Success: true, Assigned: true, Message: "request claimed", Technician: technician}, nil
}

// assign performs the joint write: the request is taken only while it is
// unassigned, then the technician's ledger is incremented only while below
// capacity. Either refusal rolls back both.
func (s *AssignmentService) assign(ctx context.Context, path string, requestID int64, technicianID string) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.requests.AssignIfUnassigned(ctx, tx, requestID, technicianID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrAlreadyAssigned, "")
			}
			return appErrors.Internal(err, "failed to assign repair request")
		}
		e, err := s.ledger.OnAssign(ctx, tx, technicianID)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, appErrors.ErrCapacityExceeded):
			s.metrics.RecordAssignment(path, OutcomeAtCapacity)
		case errors.Is(err, appErrors.ErrAlreadyAssigned):
			s.metrics.RecordAssignment(path, OutcomeTaken)
		default:
			s.metrics.RecordAssignment(path, OutcomeFailed)
			s.logger.Error("assignment failed",
				zap.String("path", path),
				zap.Int64("request_id", requestID),
				zap.String("technician_id", technicianID),
				zap.Error(err),
			)
		}
		return nil, asAppError(err, "failed to assign repair request")
	}

	s.metrics.RecordAssignment(path, OutcomeAssigned)
	s.logger.Info("request assigned",
		zap.String("path", path),
		zap.Int64("request_id", requestID),
		zap.String("technician_id", technicianID),
		zap.Int("active_request_count", entry.ActiveRequestCount),
	)
	s.afterChange(ctx, models.EventRequestAssigned, requestID, technicianID, entry)
	return entry, nil
}

// Complete marks a request held by technicianID delivered and releases its slot.
func (s *AssignmentService) Complete(ctx context.Context, technicianID string, requestID int64) (*models.LedgerEntry, error) {
	return s.Close(ctx, models.Completion{RequestID: requestID, TechnicianID: technicianID, To: models.RepairDelivered})
}

// Close ends a request at c.To and releases the technician's slot in the same
// transaction. Delivery and a rejected quotation both end here.
func (s *AssignmentService) Close(ctx context.Context, c models.Completion) (*models.LedgerEntry, error) {
	requestID, technicianID := c.RequestID, c.TechnicianID
	req, err := s.requests.FindByID(ctx, nil, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "repair request not found")
		}
		return nil, appErrors.Internal(err, "failed to load repair request")
	}
	if !req.AssignedTo(technicianID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request is not assigned to this technician")
	}
	if req.Status == models.StatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request already completed")
	}
	if c.From != "" && req.RepairStatus != c.From {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("request is at %s, not %s", req.RepairStatus, c.From))
	}

	var entry *models.LedgerEntry
	err = database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.requests.Complete(ctx, tx, c); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrInvalidTransition, "request changed while closing, reload and retry")
			}
			return appErrors.Internal(err, "failed to complete repair request")
		}
		e, err := s.ledger.OnComplete(ctx, tx, technicianID)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "failed to complete repair request")
	}

	s.logger.Info("request completed",
		zap.Int64("request_id", requestID),
		zap.String("technician_id", technicianID),
		zap.String("repair_status", string(c.To)),
		zap.Int("active_request_count", entry.ActiveRequestCount),
	)
	s.afterChange(ctx, models.EventRequestCompleted, requestID, technicianID, entry)
	return entry, nil
}

// SweepForTechnician claims unassigned requests whose address carries the
// technician's pincode while capacity lasts, then returns the dashboard view.
func (s *AssignmentService) SweepForTechnician(ctx context.Context, technicianID string) (*SweepResult, error) {
	technician, err := s.ledger.Load(ctx, nil, technicianID)
	if err != nil {
		return nil, err
	}

	claimed := []int64{}
	if pin := technician.PincodeValue(); pin != "" {
		candidates, err := s.requests.ListUnassigned(ctx, s.config.SweepLimit)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to list unassigned requests")
		}
		for _, req := range candidates {
			if !strings.Contains(req.AddressValue(), pin) {
				continue
			}
			if !s.ledger.CanAccept(technician) {
				s.logger.Info("technician reached capacity during sweep", zap.String("technician_id", technicianID))
				break
			}
			entry, err := s.assign(ctx, AssignPathSweep, req.ID, technicianID)
			if err != nil {
				if errors.Is(err, appErrors.ErrCapacityExceeded) {
					break
				}
				// taken by someone else or a transient failure: move on to the next request
				continue
			}
			technician.ActiveRequestCount = entry.ActiveRequestCount
			technician.CanReceiveRequests = entry.CanReceiveRequests
			claimed = append(claimed, req.ID)
		}
	} else {
		s.logger.Info("technician has no pincode, skipping sweep", zap.String("technician_id", technicianID))
	}

	pending, err := s.requests.ListUnassigned(ctx, 0)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list pending requests")
	}
	assigned, err := s.requests.ListByTechnicianAndStatus(ctx, technicianID, models.StatusAssigned)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list assigned requests")
	}

	all := make([]models.RepairRequest, 0, len(pending)+len(assigned))
	all = append(all, pending...)
	all = append(all, assigned...)
	return &SweepResult{
		Requests:      all,
		PendingCount:  len(pending),
		AssignedCount: len(assigned),
		Claimed:       claimed,
	}, nil
}

// SweepPending retries automatic assignment for requests still waiting on a technician.
func (s *AssignmentService) SweepPending(ctx context.Context) (*PendingSweepResult, error) {
	pending, err := s.requests.ListUnassigned(ctx, s.config.SweepLimit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list unassigned requests")
	}

	result := &PendingSweepResult{Scanned: len(pending)}
	for i := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		req := &pending[i]
		var loc models.Location
		if s.locations != nil {
			loc = s.locations.Resolve(ctx, req)
		}
		outcome, err := s.autoAssign(ctx, AssignPathSweep, req.ID, loc)
		switch {
		case err != nil && !errors.Is(err, appErrors.ErrAlreadyAssigned):
			result.Failed++
		case outcome != nil && outcome.Assigned:
			result.Assigned++
		default:
			result.Unassigned++
		}
	}

	s.logger.Info("pending sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("assigned", result.Assigned),
		zap.Int("unassigned", result.Unassigned),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *AssignmentService) afterChange(ctx context.Context, eventType models.EventType, requestID int64, technicianID string, entry *models.LedgerEntry) {
	if s.feeds != nil {
		s.feeds.Invalidate(ctx, technicianID)
	}
	if s.events == nil {
		return
	}
	event := models.AssignmentEvent{
		EventID:            uuid.NewString(),
		Type:               eventType,
		RequestID:          requestID,
		TechnicianID:       technicianID,
		ActiveRequestCount: entry.ActiveRequestCount,
		OccurredAt:         s.now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to queue assignment event", zap.String("type", string(eventType)), zap.Error(err))
	}
}

// asAppError keeps typed errors and wraps anything else as an internal failure.
func asAppError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Internal(err, message)
}
