package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/repairjunction/repairjunction-api/api/swagger"
	"github.com/repairjunction/repairjunction-api/internal/app"
	"github.com/repairjunction/repairjunction-api/internal/handler"
	"github.com/repairjunction/repairjunction-api/internal/router"
	"github.com/repairjunction/repairjunction-api/pkg/config"
	"github.com/repairjunction/repairjunction-api/pkg/logger"
	"github.com/repairjunction/repairjunction-api/pkg/scheduler"
)

// @title RepairJunction API
// @version 1.0.0
// @description Technician auto-assignment, request matching and capacity tracking for RepairJunction.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to build application", zap.Error(err))
	}
	defer application.Close()
	application.Start(ctx)

	checks := make(map[string]handler.ReadinessCheck)
	for name, check := range application.ReadinessChecks() {
		checks[name] = check
	}

	engine := router.New(router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Tokens:         application.Auth,
		HTTPMetrics:    application.Metrics,
		Requests:       handler.NewRepairRequestHandler(application.Requests, application.Assignments),
		Technicians:    handler.NewTechnicianHandler(application.Feeds, application.Assignments),
		Pincodes:       handler.NewPincodeHandler(),
		Metrics:        handler.NewMetricsHandler(application.Metrics.Handler(), checks),
	})

	sched := scheduler.New(logr, time.Minute)
	if cfg.Sweep.Enabled {
		err := sched.Add("pending-sweep", cfg.Sweep.Schedule, func(ctx context.Context) error {
			result, err := application.Assignments.SweepPending(ctx)
			if err != nil {
				return err
			}
			logr.Info("pending sweep finished",
				zap.Int("scanned", result.Scanned),
				zap.Int("assigned", result.Assigned),
				zap.Int("unassigned", result.Unassigned),
				zap.Int("failed", result.Failed),
			)
			return nil
		})
		if err != nil {
			logr.Fatal("invalid sweep schedule", zap.Error(err))
		}
		if next, err := scheduler.Next(cfg.Sweep.Schedule, time.Now()); err == nil {
			logr.Info("pending sweep enabled", zap.Time("next_run", next))
		}
		sched.Start()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http shutdown failed", zap.Error(err))
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logr.Error("scheduler shutdown failed", zap.Error(err))
	}
}
