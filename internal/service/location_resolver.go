package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/repairjunction/repairjunction-api/internal/models"
	"github.com/repairjunction/repairjunction-api/pkg/pincode"
)

type addressReader interface {
	FindByID(ctx context.Context, id string) (*models.Address, error)
}

type localityLookup interface {
	Lookup(ctx context.Context, pin string) (models.Location, bool)
}

// LocationResolver works out where a repair request is. A saved address wins
// over parsing the free-text address.
type LocationResolver struct {
	addresses addressReader
	lookup    localityLookup
	logger    *zap.Logger
}

// NewLocationResolver constructs a LocationResolver. lookup may be nil.
func NewLocationResolver(addresses addressReader, lookup localityLookup, logger *zap.Logger) *LocationResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocationResolver{addresses: addresses, lookup: lookup, logger: logger}
}

// Resolve returns the best known location for req. It never fails; missing
// pieces are left empty.
func (r *LocationResolver) Resolve(ctx context.Context, req *models.RepairRequest) models.Location {
	var loc models.Location
	if req == nil {
		return loc
	}

	if req.AddressID != nil && *req.AddressID != "" && r.addresses != nil {
		address, err := r.addresses.FindByID(ctx, *req.AddressID)
		if err != nil {
			r.logger.Warn("saved address unavailable, parsing request address",
				zap.Int64("request_id", req.ID),
				zap.String("address_id", *req.AddressID),
				zap.Error(err),
			)
		} else {
			loc = models.Location{
				Pincode: strings.TrimSpace(deref(address.Pincode)),
				City:    strings.TrimSpace(deref(address.City)),
				State:   strings.TrimSpace(deref(address.State)),
			}
		}
	}

	if loc.Pincode == "" {
		pin, strategy, ok := pincode.Extract(req.AddressValue())
		r.logger.Info("pincode extraction",
			zap.Int64("request_id", req.ID),
			zap.String("strategy", string(strategy)),
			zap.Bool("found", ok),
		)
		loc.Pincode = pin
	}

	if loc.Pincode != "" && (loc.City == "" || loc.State == "") && r.lookup != nil {
		if found, ok := r.lookup.Lookup(ctx, loc.Pincode); ok {
			if loc.City == "" {
				loc.City = found.City
			}
			if loc.State == "" {
				loc.State = found.State
			}
		}
	}

	return loc
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
