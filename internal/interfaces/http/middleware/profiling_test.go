package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestProfiling_LabelsRouteAndTenant(t *testing.T) {
	var route, tenant string
	var routeOK, tenantOK bool

	router := gin.New()
	router.Use(withIdentity(testIdentity), Profiling(true))
	router.GET("/products/:id", func(c *gin.Context) {
		route, routeOK = pprof.Label(c.Request.Context(), "route")
		tenant, tenantOK = pprof.Label(c.Request.Context(), "tenant_id")
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/1", nil))

	assert.True(t, routeOK)
	assert.Equal(t, "/products/:id", route)
	assert.True(t, tenantOK)
	assert.Equal(t, "tenant-a", tenant)
}

func TestProfiling_Disabled(t *testing.T) {
	var labelled bool
	router := gin.New()
	router.Use(Profiling(false))
	router.GET("/test", func(c *gin.Context) {
		pprof.ForLabels(c.Request.Context(), func(string, string) bool {
			labelled = true
			return false
		})
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.False(t, labelled)
}
