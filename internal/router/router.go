// Package router wires handlers and middleware onto a gin engine.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/repairjunction/repairjunction-api/internal/handler"
	"github.com/repairjunction/repairjunction-api/internal/middleware"
	"github.com/repairjunction/repairjunction-api/internal/models"
	"github.com/repairjunction/repairjunction-api/pkg/logger"
	corsmiddleware "github.com/repairjunction/repairjunction-api/pkg/middleware/cors"
	reqidmiddleware "github.com/repairjunction/repairjunction-api/pkg/middleware/requestid"
)

// Options carries everything needed to build the engine.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Tokens         middleware.TokenValidator
	HTTPMetrics    middleware.HTTPObserver

	Requests    *handler.RepairRequestHandler
	Technicians *handler.TechnicianHandler
	Pincodes    *handler.PincodeHandler
	Metrics     *handler.MetricsHandler
}

// New builds the HTTP engine.
func New(opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.HTTPMetrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", opts.Metrics.Health)
	r.GET("/ready", opts.Metrics.Ready)
	r.GET("/metrics", opts.Metrics.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)
	api.Use(middleware.JWT(opts.Tokens))

	anyRole := middleware.RequireRoles(models.RoleUser, models.RoleTechnician, models.RoleAdmin)
	technician := middleware.RequireRoles(models.RoleTechnician)
	customer := middleware.RequireRoles(models.RoleUser)

	requests := api.Group("/requests")
	requests.POST("", customer, opts.Requests.Create)
	requests.GET("/mine", customer, opts.Requests.Mine)
	requests.GET("/:id", anyRole, opts.Requests.Get)
	requests.POST("/:id/auto-assign", middleware.RequireRoles(models.RoleAdmin), opts.Requests.AutoAssign)
	requests.PATCH("/:id/tracking", technician, opts.Requests.UpdateTracking)
	requests.POST("/:id/quotation/accept", customer, opts.Requests.AcceptQuotation)
	requests.POST("/:id/quotation/reject", customer, opts.Requests.RejectQuotation)

	technicians := api.Group("/technicians")
	technicians.GET("/me/feed", technician, opts.Technicians.Feed)
	technicians.POST("/me/requests/:id/claim", technician, opts.Technicians.Claim)
	technicians.POST("/me/requests/:id/complete", technician, opts.Technicians.Complete)
	technicians.POST("/:id/sweep", middleware.RBAC(string(models.RoleAdmin), middleware.Self), opts.Technicians.Sweep)

	api.GET("/pincodes/extract", anyRole, opts.Pincodes.Extract)

	return r
}
