package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/tenantapi/backend/internal/domain/identity"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// PermissionsKey is the gin context key for the resolved permission set
const PermissionsKey = "permissions"

// PermissionResolver loads the permissions a user currently holds in a tenant
type PermissionResolver interface {
	Resolve(ctx context.Context, userID, tenantID string) (identity.PermissionSet, error)
}

// RequirePermission resolves the caller's permissions on every request and
// rejects with 403 when permission is missing. Nothing is cached, so a
// revoked grant takes effect on the next request.
func RequirePermission(resolver PermissionResolver, permission string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			AbortWithError(c, shared.ErrUnauthenticated)
			return
		}

		perms, err := resolver.Resolve(c.Request.Context(), id.UserID, id.TenantID)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		if !perms.Has(permission) {
			logger.Enrich(c.Request.Context(), log).Info("Permission denied",
				zap.String("required", permission),
				zap.String("route", c.FullPath()),
			)
			AbortWithError(c, shared.ErrForbidden)
			return
		}

		c.Set(PermissionsKey, perms)
		c.Next()
	}
}

// GetPermissions returns the permission set resolved by RequirePermission
func GetPermissions(c *gin.Context) identity.PermissionSet {
	if v, exists := c.Get(PermissionsKey); exists {
		if perms, ok := v.(identity.PermissionSet); ok {
			return perms
		}
	}
	return nil
}
