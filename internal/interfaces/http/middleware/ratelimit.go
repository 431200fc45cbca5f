package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/cache"
	"github.com/tenantapi/backend/internal/infrastructure/logger"
	"github.com/tenantapi/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// RateLimitConfig configures one rate limit
type RateLimitConfig struct {
	// Name scopes the counters so different limits never share a bucket
	Name   string
	Limit  int
	Window time.Duration
	// KeyFunc picks the bucket; defaults to TenantOrIPKey
	KeyFunc func(*gin.Context) string
}

// TenantOrIPKey buckets authenticated requests by tenant and everything else by client IP
func TenantOrIPKey(c *gin.Context) string {
	if tenantID := GetTenantID(c); tenantID != "" {
		return "tenant:" + tenantID
	}
	return "ip:" + c.ClientIP()
}

// IPKey buckets requests by client IP
func IPKey(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// RateLimit enforces cfg with limiter. Limiter failures let the request
// through and are logged, so a cache outage never blocks traffic.
func RateLimit(limiter cache.RateLimiter, cfg RateLimitConfig, log *zap.Logger) gin.HandlerFunc {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = TenantOrIPKey
	}

	return func(c *gin.Context) {
		if limiter == nil || cfg.Limit <= 0 {
			c.Next()
			return
		}

		key := cfg.Name + ":" + keyFunc(c)
		decision, err := limiter.Allow(c.Request.Context(), key, cfg.Limit, cfg.Window)
		if err != nil {
			logger.Enrich(c.Request.Context(), log).Warn("Rate limiter unavailable, allowing request",
				zap.String("limit", cfg.Name),
				zap.Error(err),
			)
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set(HeaderRateLimitLimit, strconv.Itoa(decision.Limit))
		h.Set(HeaderRateLimitRemaining, strconv.Itoa(decision.Remaining))
		h.Set(HeaderRateLimitReset, strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retryAfter := int(time.Until(decision.ResetAt).Seconds()) + 1
			if retryAfter < 1 {
				retryAfter = 1
			}
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewErrorResponseWithMessage(shared.CodeRateLimited, "Too many requests, please try again later"))
			return
		}

		c.Next()
	}
}
