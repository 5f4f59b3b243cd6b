package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/repairjunction/repairjunction-api/internal/dto"
	appErrors "github.com/repairjunction/repairjunction-api/pkg/errors"
	"github.com/repairjunction/repairjunction-api/pkg/pincode"
	"github.com/repairjunction/repairjunction-api/pkg/response"
)

// PincodeHandler exposes pincode extraction diagnostics.
type PincodeHandler struct{}

// NewPincodeHandler builds a new handler.
func NewPincodeHandler() *PincodeHandler {
	return &PincodeHandler{}
}

// Extract godoc
// @Summary Extract a pincode from an address
// @Tags Pincodes
// @Produce json
// @Param address query string true "Free-text address"
// @Param near query string false "Pincode to compare against, e.g. a technician's"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /pincodes/extract [get]
func (h *PincodeHandler) Extract(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "address query parameter is required"))
		return
	}
	pin, strategy, found := pincode.Extract(address)
	result := dto.PincodeExtraction{
		Address:  pincode.Normalize(address),
		Pincode:  pin,
		Strategy: string(strategy),
		Found:    found,
	}
	if near := c.Query("near"); near != "" {
		if !pincode.Valid(near) {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "near must be a 6-digit pincode"))
			return
		}
		nearby := pincode.InProximity(pin, near)
		result.Near = near
		result.InProximity = &nearby
	}
	response.JSON(c, http.StatusOK, result)
}
