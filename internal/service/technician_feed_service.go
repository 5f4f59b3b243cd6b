package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/repairjunction/repairjunction-api/internal/models"
	appErrors "github.com/repairjunction/repairjunction-api/pkg/errors"
)

type feedRequestStore interface {
	ListPending(ctx context.Context) ([]models.RepairRequest, error)
	ListAssignedToTechnician(ctx context.Context, technicianID string, since time.Time) ([]models.RepairRequest, error)
}

type technicianLoader interface {
	Load(ctx context.Context, exec sqlx.ExtContext, technicianID string) (*models.TechnicianProfile, error)
}

// FeedConfig tunes the technician feed.
type FeedConfig struct {
	CacheTTL         time.Duration
	AssignedLookback time.Duration
}

// TechnicianFeed is what a technician sees on their dashboard.
type TechnicianFeed struct {
	TechnicianID      string                         `json:"technician_id"`
	TechnicianPincode string                         `json:"technician_pincode,omitempty"`
	Pending           []models.RepairRequest         `json:"pending"`
	Strategies        map[int64]models.MatchStrategy `json:"strategies,omitempty"`
	Fallback          bool                           `json:"fallback"`
	Assigned          []models.RepairRequest         `json:"assigned"`
	GeneratedAt       time.Time                      `json:"generated_at"`
	Cached            bool                           `json:"-"`
}

// TechnicianFeedService builds and caches technician feeds.
type TechnicianFeedService struct {
	technicians technicianLoader
	requests    feedRequestStore
	matcher     *RequestMatcher
	cache       *CacheService
	logger      *zap.Logger
	config      FeedConfig
	now         func() time.Time
}

// NewTechnicianFeedService constructs a TechnicianFeedService.
func NewTechnicianFeedService(technicians technicianLoader, requests feedRequestStore, matcher *RequestMatcher, cache *CacheService, logger *zap.Logger, cfg FeedConfig) *TechnicianFeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if matcher == nil {
		matcher = NewRequestMatcher(nil, logger)
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	if cfg.AssignedLookback <= 0 {
		cfg.AssignedLookback = 24 * time.Hour
	}
	return &TechnicianFeedService{
		technicians: technicians,
		requests:    requests,
		matcher:     matcher,
		cache:       cache,
		logger:      logger,
		config:      cfg,
		now:         time.Now,
	}
}

func feedCacheKey(technicianID string) string {
	return "feed:technician:" + technicianID
}

// Feed returns the pending requests relevant to the technician plus their recent assignments.
func (s *TechnicianFeedService) Feed(ctx context.Context, technicianID string) (*TechnicianFeed, error) {
	var cached TechnicianFeed
	if s.cache.Get(ctx, feedCacheKey(technicianID), &cached) {
		cached.Cached = true
		return &cached, nil
	}

	technician, err := s.technicians.Load(ctx, nil, technicianID)
	if err != nil {
		return nil, err
	}

	pending, err := s.requests.ListPending(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list pending requests")
	}

	now := s.now().UTC()
	assigned, err := s.requests.ListAssignedToTechnician(ctx, technicianID, now.Add(-s.config.AssignedLookback))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list assigned requests")
	}
	if assigned == nil {
		assigned = []models.RepairRequest{}
	}

	match := s.matcher.Match(pending, technician.PincodeValue())
	feed := &TechnicianFeed{
		TechnicianID:      technicianID,
		TechnicianPincode: technician.PincodeValue(),
		Pending:           match.Requests,
		Strategies:        match.Strategies,
		Fallback:          match.Fallback,
		Assigned:          assigned,
		GeneratedAt:       now,
	}

	s.cache.Set(ctx, feedCacheKey(technicianID), feed, s.config.CacheTTL)
	return feed, nil
}

// Invalidate drops the cached feed of technicianID.
func (s *TechnicianFeedService) Invalidate(ctx context.Context, technicianID string) {
	s.cache.Invalidate(ctx, feedCacheKey(technicianID))
}
