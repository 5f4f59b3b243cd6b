package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/repairjunction/repairjunction-api/internal/models"
	appErrors "github.com/repairjunction/repairjunction-api/pkg/errors"
	"github.com/repairjunction/repairjunction-api/pkg/pincode"
)

type technicianFinder interface {
	FindAvailableByPincode(ctx context.Context, pincode string) (*models.TechnicianProfile, error)
	FindAvailableByCityState(ctx context.Context, city, state string) (*models.TechnicianProfile, error)
	FindAvailableByPincodePrefix(ctx context.Context, prefix string) (*models.TechnicianProfile, error)
}

// locatorStep is one lookup in the cascade. Steps that do not apply to a
// location are skipped without a query.
type locatorStep struct {
	strategy models.LocatorStrategy
	applies  func(loc models.Location) bool
	find     func(ctx context.Context, loc models.Location) (*models.TechnicianProfile, error)
}

// TechnicianLocator picks the least loaded available technician near a location.
type TechnicianLocator struct {
	finder  technicianFinder
	metrics *MetricsService
	logger  *zap.Logger
	steps   []locatorStep
}

// NewTechnicianLocator constructs a TechnicianLocator.
func NewTechnicianLocator(finder technicianFinder, metrics *MetricsService, logger *zap.Logger) *TechnicianLocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &TechnicianLocator{finder: finder, metrics: metrics, logger: logger}
	l.steps = []locatorStep{
		{
			strategy: models.LocatorExactPincode,
			applies:  func(loc models.Location) bool { return loc.Pincode != "" },
			find: func(ctx context.Context, loc models.Location) (*models.TechnicianProfile, error) {
				return l.finder.FindAvailableByPincode(ctx, loc.Pincode)
			},
		},
		{
			strategy: models.LocatorCityState,
			applies:  func(loc models.Location) bool { return loc.City != "" && loc.State != "" },
			find: func(ctx context.Context, loc models.Location) (*models.TechnicianProfile, error) {
				return l.finder.FindAvailableByCityState(ctx, loc.City, loc.State)
			},
		},
		{
			strategy: models.LocatorPincodePrefix,
			applies:  func(loc models.Location) bool { return len(loc.Pincode) >= pincode.ProximityPrefix },
			find: func(ctx context.Context, loc models.Location) (*models.TechnicianProfile, error) {
				return l.finder.FindAvailableByPincodePrefix(ctx, pincode.Prefix(loc.Pincode, pincode.ProximityPrefix))
			},
		},
	}
	return l
}

// Locate runs the lookup cascade and stops at the first technician found.
// It returns nil with a zero strategy when nobody is available; a store error
// aborts the cascade.
func (l *TechnicianLocator) Locate(ctx context.Context, loc models.Location) (*models.TechnicianProfile, models.LocatorStrategy, error) {
	loc = models.Location{
		Pincode: strings.TrimSpace(loc.Pincode),
		City:    strings.TrimSpace(loc.City),
		State:   strings.TrimSpace(loc.State),
	}

	for _, step := range l.steps {
		if !step.applies(loc) {
			continue
		}
		technician, err := step.find(ctx, loc)
		if err != nil {
			l.logger.Error("technician lookup failed", zap.String("strategy", string(step.strategy)), zap.Error(err))
			return nil, "", appErrors.Internal(err, "failed to locate technician")
		}
		if technician != nil {
			l.logger.Info("technician located",
				zap.String("strategy", string(step.strategy)),
				zap.String("technician_id", technician.ID),
				zap.Int("active_request_count", technician.ActiveRequestCount),
			)
			l.metrics.RecordLocatorStrategy(step.strategy)
			return technician, step.strategy, nil
		}
	}

	l.logger.Info("no technician available",
		zap.String("pincode", loc.Pincode),
		zap.String("city", loc.City),
		zap.String("state", loc.State),
	)
	return nil, "", nil
}
