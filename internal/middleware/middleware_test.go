package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repairjunction/repairjunction-api/internal/models"
	appErrors "github.com/repairjunction/repairjunction-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type validatorStub struct {
	claims *models.JWTClaims
	token  string
}

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != v.token {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

func serve(r *gin.Engine, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAndRBAC(t *testing.T) {
	claims := &models.JWTClaims{UserID: "tech-1", AppRole: models.RoleTechnician, Role: "authenticated"}
	r := gin.New()
	r.Use(JWT(validatorStub{claims: claims, token: "good"}))
	r.GET("/technicians/:id/feed", RBAC(string(models.RoleAdmin), Self), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/admin", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/work", RequireRoles(models.RoleTechnician), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/work", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/work", "Token good").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/work", "Bearer ").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/work", "Bearer bad").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/work", "Bearer good").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/work", "bearer good").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin", "Bearer good").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/technicians/tech-1/feed", "Bearer good").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/technicians/tech-2/feed", "Bearer good").Code)
}

func TestRBACIgnoresUserEditableRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u-1", AppRole: models.RoleUser, Role: "admin"}
	r := gin.New()
	r.Use(JWT(validatorStub{claims: claims, token: "t"}))
	r.GET("/admin", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin", "Bearer t").Code)
}

func TestRBACWithoutClaims(t *testing.T) {
	r := gin.New()
	r.GET("/admin", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/admin", "").Code)
}

type observerStub struct {
	paths    []string
	statuses []int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.paths = append(o.paths, method+" "+path)
	o.statuses = append(o.statuses, status)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	observer := &observerStub{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/requests/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	serve(r, http.MethodGet, "/requests/42", "")
	serve(r, http.MethodGet, "/nowhere/1", "")

	assert.Equal(t, []string{"GET /requests/:id", "GET unmatched"}, observer.paths)
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNotFound}, observer.statuses)

	plain := gin.New()
	plain.Use(Metrics(nil))
	plain.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, serve(plain, http.MethodGet, "/ok", "").Code)
}

func TestResponseMeta(t *testing.T) {
	var meta map[string]interface{}
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/feed", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	serve(r, http.MethodGet, "/feed", "")
	require.NotNil(t, meta)
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
	assert.NotContains(t, meta, "started_at")

	assert.Nil(t, ExtractMeta(nil))
}
