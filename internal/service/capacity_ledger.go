package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/repairjunction/repairjunction-api/internal/models"
	appErrors "github.com/repairjunction/repairjunction-api/pkg/errors"
)

type technicianReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TechnicianProfile, error)
}

type ledgerStore interface {
	Increment(ctx context.Context, exec sqlx.ExtContext, technicianID string, max int) (*models.LedgerEntry, error)
	Decrement(ctx context.Context, exec sqlx.ExtContext, technicianID string) (*models.LedgerEntry, error)
	Drift(ctx context.Context, max int) ([]models.LedgerDrift, error)
}

// CapacityLedger guards how many open requests a technician holds.
type CapacityLedger struct {
	technicians technicianReader
	store       ledgerStore
	logger      *zap.Logger
}

// NewCapacityLedger constructs a CapacityLedger.
func NewCapacityLedger(technicians technicianReader, store ledgerStore, logger *zap.Logger) *CapacityLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapacityLedger{technicians: technicians, store: store, logger: logger}
}

// CanAccept reports whether profile has room for another request.
func (l *CapacityLedger) CanAccept(profile *models.TechnicianProfile) bool {
	return profile.CanAccept()
}

// Load reads the technician's current ledger straight from the store.
func (l *CapacityLedger) Load(ctx context.Context, exec sqlx.ExtContext, technicianID string) (*models.TechnicianProfile, error) {
	profile, err := l.technicians.FindByID(ctx, exec, technicianID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "technician not found")
		}
		return nil, appErrors.Internal(err, "failed to load technician")
	}
	if profile.Role != models.RoleTechnician {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "profile is not a technician")
	}
	l.checkConsistent("load", technicianID, profile.Ledger())
	return profile, nil
}

// OnAssign takes one slot for technicianID. The check and the increment are a
// single conditional write, so a technician at capacity is never pushed past it.
func (l *CapacityLedger) OnAssign(ctx context.Context, exec sqlx.ExtContext, technicianID string) (*models.LedgerEntry, error) {
	entry, err := l.store.Increment(ctx, exec, technicianID, models.MaxActiveRequests)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "")
		}
		return nil, appErrors.Internal(err, "failed to update technician capacity")
	}
	l.logger.Info("technician capacity taken",
		zap.String("technician_id", technicianID),
		zap.Int("active_request_count", entry.ActiveRequestCount),
		zap.Bool("can_receive_requests", entry.CanReceiveRequests),
	)
	l.checkConsistent("assign", technicianID, *entry)
	return entry, nil
}

// OnComplete releases one slot and reopens the technician for new work.
func (l *CapacityLedger) OnComplete(ctx context.Context, exec sqlx.ExtContext, technicianID string) (*models.LedgerEntry, error) {
	entry, err := l.store.Decrement(ctx, exec, technicianID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "technician not found")
		}
		return nil, appErrors.Internal(err, "failed to release technician capacity")
	}
	l.logger.Info("technician capacity released",
		zap.String("technician_id", technicianID),
		zap.Int("active_request_count", entry.ActiveRequestCount),
	)
	l.checkConsistent("complete", technicianID, *entry)
	return entry, nil
}

// checkConsistent logs a ledger whose availability flag disagrees with its count.
// The next write through OnAssign or OnComplete recomputes the flag.
func (l *CapacityLedger) checkConsistent(op, technicianID string, entry models.LedgerEntry) {
	if entry.Consistent() {
		return
	}
	l.logger.Error("technician ledger inconsistent",
		zap.String("op", op),
		zap.String("technician_id", technicianID),
		zap.Int("active_request_count", entry.ActiveRequestCount),
		zap.Bool("can_receive_requests", entry.CanReceiveRequests),
	)
}

// Audit lists technicians whose ledger disagrees with their open requests.
func (l *CapacityLedger) Audit(ctx context.Context) ([]models.LedgerDrift, error) {
	drift, err := l.store.Drift(ctx, models.MaxActiveRequests)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to audit technician ledger")
	}
	if len(drift) > 0 {
		l.logger.Warn("technician ledger drift detected", zap.Int("technicians", len(drift)))
	}
	return drift, nil
}
