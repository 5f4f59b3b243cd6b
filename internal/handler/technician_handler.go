package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/repairjunction/repairjunction-api/internal/middleware"
	"github.com/repairjunction/repairjunction-api/internal/models"
	"github.com/repairjunction/repairjunction-api/internal/service"
	"github.com/repairjunction/repairjunction-api/pkg/response"
)

type technicianFeedService interface {
	Feed(ctx context.Context, technicianID string) (*service.TechnicianFeed, error)
}

type technicianAssignmentService interface {
	Claim(ctx context.Context, technicianID string, requestID int64) (*models.AssignResult, error)
	Complete(ctx context.Context, technicianID string, requestID int64) (*models.LedgerEntry, error)
	SweepForTechnician(ctx context.Context, technicianID string) (*service.SweepResult, error)
}

// TechnicianHandler serves the technician dashboard endpoints.
type TechnicianHandler struct {
	feeds       technicianFeedService
	assignments technicianAssignmentService
}

// NewTechnicianHandler builds a new handler.
func NewTechnicianHandler(feeds technicianFeedService, assignments technicianAssignmentService) *TechnicianHandler {
	return &TechnicianHandler{feeds: feeds, assignments: assignments}
}

// Feed godoc
// @Summary Technician request feed
// @Description Pending requests near the technician's pincode, falling back to all pending requests when none match, plus recent assignments.
// @Tags Technicians
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /technicians/me/feed [get]
func (h *TechnicianHandler) Feed(c *gin.Context) {
	claims, err := requireClaims(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	feed, err := h.feeds.Feed(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, feed.Cached)
	response.JSON(c, http.StatusOK, feed, middleware.ExtractMeta(c))
}

// Claim godoc
// @Summary Claim a pending request
// @Tags Technicians
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /technicians/me/requests/{id}/claim [post]
func (h *TechnicianHandler) Claim(c *gin.Context) {
	claims, err := requireClaims(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := requestIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.assignments.Claim(c.Request.Context(), claims.UserID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Complete godoc
// @Summary Complete a held request
// @Tags Technicians
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /technicians/me/requests/{id}/complete [post]
func (h *TechnicianHandler) Complete(c *gin.Context) {
	claims, err := requireClaims(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := requestIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entry, err := h.assignments.Complete(c.Request.Context(), claims.UserID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry)
}

// Sweep godoc
// @Summary Claim nearby requests in one batch
// @Description Assigns unassigned requests whose address carries the technician's pincode while capacity lasts, then returns all unassigned pending requests and the technician's assigned ones.
// @Tags Technicians
// @Produce json
// @Param id path string true "Technician ID"
// @Success 200 {object} response.Envelope
// @Router /technicians/{id}/sweep [post]
func (h *TechnicianHandler) Sweep(c *gin.Context) {
	result, err := h.assignments.SweepForTechnician(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
