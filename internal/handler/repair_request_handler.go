package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/repairjunction/repairjunction-api/internal/dto"
	"github.com/repairjunction/repairjunction-api/internal/models"
	appErrors "github.com/repairjunction/repairjunction-api/pkg/errors"
	"github.com/repairjunction/repairjunction-api/pkg/response"
)

type repairRequestService interface {
	Create(ctx context.Context, userID string, payload dto.CreateRepairRequest) (*dto.CreateRepairResponse, error)
	Get(ctx context.Context, userID string, role models.UserRole, id int64) (*models.RepairRequest, error)
	ListByUser(ctx context.Context, userID string) ([]models.RepairRequest, error)
	UpdateTracking(ctx context.Context, technicianID string, id int64, payload dto.UpdateTrackingRequest) (*models.RepairRequest, error)
	AcceptQuotation(ctx context.Context, userID string, id int64) (*models.RepairRequest, error)
	RejectQuotation(ctx context.Context, userID string, id int64) (*models.RepairRequest, error)
}

type autoAssigner interface {
	AutoAssign(ctx context.Context, requestID int64, loc models.Location) (*models.AssignResult, error)
}

// RepairRequestHandler exposes the repair request endpoints.
type RepairRequestHandler struct {
	requests repairRequestService
	assigner autoAssigner
}

// NewRepairRequestHandler builds a new handler.
func NewRepairRequestHandler(requests repairRequestService, assigner autoAssigner) *RepairRequestHandler {
	return &RepairRequestHandler{requests: requests, assigner: assigner}
}

// Create godoc
// @Summary Create a repair request
// @Description Stores the request and immediately tries to assign the nearest technician with spare capacity.
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateRepairRequest true "Repair request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requests [post]
func (h *RepairRequestHandler) Create(c *gin.Context) {
	claims, err := requireClaims(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateRepairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid repair request payload"))
		return
	}
	created, err := h.requests.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Mine godoc
// @Summary List the caller's repair requests
// @Tags Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /requests/mine [get]
func (h *RepairRequestHandler) Mine(c *gin.Context) {
	claims, err := requireClaims(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.requests.ListByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// Get godoc
// @Summary Get a repair request
// @Tags Requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RepairRequestHandler) Get(c *gin.Context) {
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
	item, err := h.requests.Get(c.Request.Context(), claims.UserID, claims.AppRole, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// AutoAssign godoc
// @Summary Re-run automatic assignment
// @Description Locates a technician for a still unassigned request. A result with assigned=false means the request stays pending.
// @Tags Requests
// @Produce json
// @Param id path int true "Request ID"
// @Param pincode query string false "Override pincode"
// @Param city query string false "Override city"
// @Param state query string false "Override state"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/auto-assign [post]
func (h *RepairRequestHandler) AutoAssign(c *gin.Context) {
	id, err := requestIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	loc := models.Location{Pincode: c.Query("pincode"), City: c.Query("city"), State: c.Query("state")}
	result, err := h.assigner.AutoAssign(c.Request.Context(), id, loc)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// UpdateTracking godoc
// @Summary Advance repair tracking
// @Description Moves the repair status one step forward. Delivery completes the request and frees technician capacity.
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.UpdateTrackingRequest true "Tracking payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/tracking [patch]
func (h *RepairRequestHandler) UpdateTracking(c *gin.Context) {
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
	var req dto.UpdateTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid tracking payload"))
		return
	}
	item, err := h.requests.UpdateTracking(c.Request.Context(), claims.UserID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// AcceptQuotation godoc
// @Summary Accept the shared quotation
// @Description The customer approves the technician's quotation and repair work starts.
// @Tags Requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/quotation/accept [post]
func (h *RepairRequestHandler) AcceptQuotation(c *gin.Context) {
	h.decideQuotation(c, h.requests.AcceptQuotation)
}

// RejectQuotation godoc
// @Summary Reject the shared quotation
// @Description The customer declines the quotation. The request is closed and the technician's slot is released.
// @Tags Requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/quotation/reject [post]
func (h *RepairRequestHandler) RejectQuotation(c *gin.Context) {
	h.decideQuotation(c, h.requests.RejectQuotation)
}

func (h *RepairRequestHandler) decideQuotation(c *gin.Context, decide func(ctx context.Context, userID string, id int64) (*models.RepairRequest, error)) {
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
	item, err := decide(c.Request.Context(), claims.UserID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}
