package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tenantapi/backend/internal/domain/identity"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/auth"
	"github.com/tenantapi/backend/internal/infrastructure/logger"
	"github.com/tenantapi/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Context keys for the verified principal
const (
	IdentityKey = "identity"
	TenantIDKey = "tenant_id"
	UserIDKey   = "user_id"
)

// AccessTokenValidator validates bearer access tokens
type AccessTokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// AuthGuard requires a valid "Authorization: Bearer <token>" header.
// On success the identity is stored on the gin context and the request
// context so logs and spans downstream carry tenant and user.
func AuthGuard(validator AccessTokenValidator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, shared.ErrUnauthenticated)
			return
		}

		claims, err := validator.ValidateAccessToken(token)
		if err != nil {
			logger.Enrich(c.Request.Context(), log).Debug("Access token rejected",
				zap.String("path", c.FullPath()),
				zap.Error(err),
			)
			AbortWithError(c, shared.ErrUnauthenticated)
			return
		}

		id := claims.Identity()
		if !id.IsComplete() {
			AbortWithError(c, shared.ErrUnauthenticated)
			return
		}

		c.Set(IdentityKey, id)
		c.Set(TenantIDKey, id.TenantID)
		c.Set(UserIDKey, id.UserID)

		ctx := logger.WithIdentity(c.Request.Context(), id.TenantID, id.UserID)
		telemetry.SetIdentity(ctx, id.TenantID, id.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// bearerToken extracts the token from an Authorization header value
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetIdentity returns the identity set by AuthGuard
func GetIdentity(c *gin.Context) (identity.Identity, bool) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return identity.Identity{}, false
	}
	id, ok := v.(identity.Identity)
	return id, ok && id.IsComplete()
}

// GetTenantID returns the authenticated tenant, or "" before AuthGuard has run
func GetTenantID(c *gin.Context) string {
	return c.GetString(TenantIDKey)
}
