package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tenantapi/backend/internal/infrastructure/logger"
	"github.com/tenantapi/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Pinger checks a dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the database is reachable
type HealthHandler struct {
	db      Pinger
	timeout time.Duration
	logger  *zap.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, timeout: 2 * time.Second, logger: logger}
}

// Health returns 200 when the database answers and 503 otherwise
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		logger.Enrich(c.Request.Context(), h.logger).Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dto.HealthResponse{OK: false, Database: "unavailable"})
		return
	}
	c.JSON(http.StatusOK, dto.HealthResponse{OK: true, Database: "ok"})
}
