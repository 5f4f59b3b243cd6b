package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repairjunction/repairjunction-api/internal/models"
	appErrors "github.com/repairjunction/repairjunction-api/pkg/errors"
)

// technicianFinderStub serves technicians from an in-memory list using the
// same filters and ordering as the SQL queries.
type technicianFinderStub struct {
	technicians []models.TechnicianProfile
	err         error
	calls       []models.LocatorStrategy
}

func (s *technicianFinderStub) pick(strategy models.LocatorStrategy, match func(models.TechnicianProfile) bool) (*models.TechnicianProfile, error) {
	s.calls = append(s.calls, strategy)
	if s.err != nil {
		return nil, s.err
	}
	var best *models.TechnicianProfile
	for i := range s.technicians {
		t := s.technicians[i]
		if t.Role != models.RoleTechnician || !t.CanReceiveRequests || !match(t) {
			continue
		}
		if best == nil || t.ActiveRequestCount < best.ActiveRequestCount {
			best = &s.technicians[i]
		}
	}
	return best, nil
}

func (s *technicianFinderStub) FindAvailableByPincode(ctx context.Context, pin string) (*models.TechnicianProfile, error) {
	return s.pick(models.LocatorExactPincode, func(t models.TechnicianProfile) bool { return t.PincodeValue() == pin })
}

func (s *technicianFinderStub) FindAvailableByCityState(ctx context.Context, city, state string) (*models.TechnicianProfile, error) {
	return s.pick(models.LocatorCityState, func(t models.TechnicianProfile) bool {
		return t.CityTown != nil && *t.CityTown == city && t.State != nil && *t.State == state
	})
}

func (s *technicianFinderStub) FindAvailableByPincodePrefix(ctx context.Context, prefix string) (*models.TechnicianProfile, error) {
	return s.pick(models.LocatorPincodePrefix, func(t models.TechnicianProfile) bool {
		p := t.PincodeValue()
		return len(p) >= len(prefix) && p[:len(prefix)] == prefix
	})
}

func strPtr(v string) *string { return &v }

func technician(id, pin string, count int) models.TechnicianProfile {
	return models.TechnicianProfile{
		ID:                 id,
		Pincode:            strPtr(pin),
		Role:               models.RoleTechnician,
		ActiveRequestCount: count,
		CanReceiveRequests: count < models.MaxActiveRequests,
	}
}

func TestTechnicianLocatorPrefersLeastLoadedExactMatch(t *testing.T) {
	finder := &technicianFinderStub{technicians: []models.TechnicianProfile{
		technician("busy", "400001", 2),
		technician("idle", "400001", 0),
	}}
	locator := NewTechnicianLocator(finder, nil, nil)

	found, strategy, err := locator.Locate(context.Background(), models.Location{Pincode: "400001"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "idle", found.ID)
	assert.Equal(t, models.LocatorExactPincode, strategy)
	assert.Equal(t, []models.LocatorStrategy{models.LocatorExactPincode}, finder.calls)
}

func TestTechnicianLocatorFallsBackToCityStateThenPrefix(t *testing.T) {
	cityTech := technician("city", "411001", 1)
	cityTech.CityTown = strPtr("Mumbai")
	cityTech.State = strPtr("Maharashtra")
	finder := &technicianFinderStub{technicians: []models.TechnicianProfile{cityTech, technician("near", "400099", 0)}}
	locator := NewTechnicianLocator(finder, NewMetricsService(), nil)

	found, strategy, err := locator.Locate(context.Background(), models.Location{Pincode: "400001", City: " Mumbai ", State: "Maharashtra"})
	require.NoError(t, err)
	assert.Equal(t, "city", found.ID)
	assert.Equal(t, models.LocatorCityState, strategy)

	finder.calls = nil
	found, strategy, err = locator.Locate(context.Background(), models.Location{Pincode: "400001", City: "Mumbai"})
	require.NoError(t, err)
	assert.Equal(t, "near", found.ID)
	assert.Equal(t, models.LocatorPincodePrefix, strategy)
	assert.Equal(t, []models.LocatorStrategy{models.LocatorExactPincode, models.LocatorPincodePrefix}, finder.calls)
}

func TestTechnicianLocatorSkipsFullTechnicians(t *testing.T) {
	finder := &technicianFinderStub{technicians: []models.TechnicianProfile{technician("full", "400001", 3)}}
	locator := NewTechnicianLocator(finder, nil, nil)

	found, strategy, err := locator.Locate(context.Background(), models.Location{Pincode: "400001"})
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.Empty(t, strategy)
}

func TestTechnicianLocatorNoLocationRunsNoQueries(t *testing.T) {
	finder := &technicianFinderStub{}
	locator := NewTechnicianLocator(finder, nil, nil)

	found, _, err := locator.Locate(context.Background(), models.Location{City: "Pune"})
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.Empty(t, finder.calls)
}

func TestTechnicianLocatorStoreErrorAbortsCascade(t *testing.T) {
	finder := &technicianFinderStub{err: errors.New("db down")}
	locator := NewTechnicianLocator(finder, nil, nil)

	found, _, err := locator.Locate(context.Background(), models.Location{Pincode: "400001", City: "Mumbai", State: "Maharashtra"})
	assert.Nil(t, found)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Len(t, finder.calls, 1)
}
