package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/repairjunction/repairjunction-api/internal/middleware"
	"github.com/repairjunction/repairjunction-api/internal/models"
	appErrors "github.com/repairjunction/repairjunction-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// requireClaims returns the caller's claims or an unauthorized error.
func requireClaims(c *gin.Context) (*models.JWTClaims, error) {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	return claims, nil
}

func requestIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "request id must be a positive integer")
	}
	return id, nil
}
