// Package app assembles the service graph shared by the API server and the CLI.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/repairjunction/repairjunction-api/internal/events"
	"github.com/repairjunction/repairjunction-api/internal/models"
	"github.com/repairjunction/repairjunction-api/internal/repository"
	"github.com/repairjunction/repairjunction-api/internal/service"
	"github.com/repairjunction/repairjunction-api/pkg/cache"
	"github.com/repairjunction/repairjunction-api/pkg/config"
	"github.com/repairjunction/repairjunction-api/pkg/database"
)

// App holds the long-lived dependencies and services.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	DB      *sqlx.DB
	Redis   *redis.Client
	Cache   *repository.CacheRepository
	Metrics *service.MetricsService

	Auth        *service.AuthService
	Ledger      *service.CapacityLedger
	Assignments *service.AssignmentService
	Feeds       *service.TechnicianFeedService
	Requests    *service.RepairRequestService

	publisher *events.Publisher
}

// New connects to the stores and builds every service. Redis and the broker
// are optional: without them the cache is bypassed and events are discarded.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, DB: db, Metrics: service.NewMetricsService()}

	a.Redis, err = cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, caching disabled", zap.Error(err))
		a.Redis = nil
	}
	a.Cache = repository.NewCacheRepository(a.Redis, logger)
	cacheSvc := service.NewCacheService(a.Cache, a.Metrics, cfg.Feed.CacheTTL, logger, a.Redis != nil)

	technicians := repository.NewTechnicianRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	addresses := repository.NewAddressRepository(db)
	requests := repository.NewRepairRequestRepository(db)

	a.Auth = service.NewAuthService(logger, service.AuthConfig{
		Secret:   cfg.Auth.JWTSecret,
		Audience: cfg.Auth.Audience,
		Issuer:   cfg.Auth.Issuer,
	})
	a.Ledger = service.NewCapacityLedger(technicians, ledgerRepo, logger)

	var resolver *service.LocationResolver
	if cfg.Pincode.Enabled {
		lookup := service.NewPincodeLookupService(&http.Client{}, cacheSvc, service.PincodeLookupConfig{
			BaseURL:  cfg.Pincode.URL,
			Timeout:  cfg.Pincode.Timeout,
			CacheTTL: cfg.Pincode.CacheTTL,
		}, logger)
		resolver = service.NewLocationResolver(addresses, lookup, logger)
	} else {
		resolver = service.NewLocationResolver(addresses, nil, logger)
	}

	a.Feeds = service.NewTechnicianFeedService(a.Ledger, requests, service.NewRequestMatcher(a.Metrics, logger), cacheSvc, logger, service.FeedConfig{
		CacheTTL:         cfg.Feed.CacheTTL,
		AssignedLookback: cfg.Feed.AssignedLookback,
	})

	var publisher interface {
		Publish(context.Context, models.AssignmentEvent) error
	} = events.Noop{}
	if cfg.Events.Enabled {
		a.publisher = events.NewPublisher(events.DialURL(cfg.Events.URL), a.Metrics, logger, events.Config{
			Workers:      cfg.Events.Workers,
			MaxRetries:   cfg.Events.MaxRetries,
			RetryDelay:   cfg.Events.RetryDelay,
			DrainTimeout: cfg.Events.DrainTimeout,
		})
		publisher = a.publisher
	}

	locator := service.NewTechnicianLocator(technicians, a.Metrics, logger)
	a.Assignments = service.NewAssignmentService(requests, locator, a.Ledger, resolver, db, publisher, a.Feeds, a.Metrics, logger,
		service.AssignmentConfig{SweepLimit: cfg.Sweep.Limit})
	a.Requests = service.NewRepairRequestService(requests, addresses, resolver, a.Assignments, a.Feeds, nil, logger)

	return a, nil
}

// ReadinessChecks returns the dependency checks behind /ready.
func (a *App) ReadinessChecks() map[string]func(ctx context.Context) error {
	checks := map[string]func(ctx context.Context) error{
		"database": a.DB.PingContext,
	}
	if a.Redis != nil {
		checks["cache"] = a.Cache.Ping
	}
	return checks
}

// Start launches background workers.
func (a *App) Start(ctx context.Context) {
	if a.publisher != nil {
		a.publisher.Start(ctx)
	}
}

// Close stops workers and releases connections.
func (a *App) Close() {
	if a.publisher != nil {
		a.publisher.Stop()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
