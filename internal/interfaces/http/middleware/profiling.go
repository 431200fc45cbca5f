package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/tenantapi/backend/internal/infrastructure/telemetry"
)

// Profiling labels CPU samples taken while the rest of the chain runs with
// the route and tenant. It must run after AuthGuard to see the tenant.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return func(c *gin.Context) {
		telemetry.WithTenantLabels(c.Request.Context(), c.FullPath(), GetTenantID(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
