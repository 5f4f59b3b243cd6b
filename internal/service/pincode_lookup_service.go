package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/repairjunction/repairjunction-api/internal/models"
	"github.com/repairjunction/repairjunction-api/pkg/pincode"
)

// PincodeLookupConfig configures the postal directory client.
type PincodeLookupConfig struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type postOffice struct {
	Name     string `json:"Name"`
	District string `json:"District"`
	State    string `json:"State"`
}

type postalResponse struct {
	Status     string       `json:"Status"`
	PostOffice []postOffice `json:"PostOffice"`
}

// PincodeLookupService resolves a pincode to its locality using a postal
// directory. Lookups never fail callers: any error yields no locality.
type PincodeLookupService struct {
	client *http.Client
	cache  *CacheService
	config PincodeLookupConfig
	logger *zap.Logger
}

// NewPincodeLookupService constructs a PincodeLookupService.
func NewPincodeLookupService(client *http.Client, cache *CacheService, config PincodeLookupConfig, logger *zap.Logger) *PincodeLookupService {
	if config.Timeout <= 0 {
		config.Timeout = 3 * time.Second
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 7 * 24 * time.Hour
	}
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PincodeLookupService{client: client, cache: cache, config: config, logger: logger}
}

func pincodeCacheKey(pin string) string {
	return "pincode:locality:" + pin
}

// Lookup returns the city and state registered for pin.
func (s *PincodeLookupService) Lookup(ctx context.Context, pin string) (models.Location, bool) {
	if !pincode.Valid(pin) {
		return models.Location{}, false
	}

	var cached models.Location
	if s.cache.Get(ctx, pincodeCacheKey(pin), &cached) {
		return cached, !cached.Empty()
	}

	loc, err := s.fetch(ctx, pin)
	if err != nil {
		s.logger.Warn("pincode lookup failed", zap.String("pincode", pin), zap.Error(err))
		return models.Location{}, false
	}
	// misses are cached too so an unknown pincode is not re-queried on every request
	s.cache.Set(ctx, pincodeCacheKey(pin), loc, s.config.CacheTTL)
	return loc, !loc.Empty()
}

func (s *PincodeLookupService) fetch(ctx context.Context, pin string) (models.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	url := strings.TrimRight(s.config.BaseURL, "/") + "/" + pin
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Location{}, fmt.Errorf("build pincode request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return models.Location{}, fmt.Errorf("pincode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Location{}, fmt.Errorf("pincode directory returned %d", resp.StatusCode)
	}

	var payload []postalResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.Location{}, fmt.Errorf("decode pincode response: %w", err)
	}

	loc := models.Location{Pincode: pin}
	if len(payload) == 0 || payload[0].Status != "Success" || len(payload[0].PostOffice) == 0 {
		return loc, nil
	}
	office := payload[0].PostOffice[0]
	loc.City = office.Name
	if loc.City == "" {
		loc.City = office.District
	}
	loc.State = office.State
	return loc, nil
}
