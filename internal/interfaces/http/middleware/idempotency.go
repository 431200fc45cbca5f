package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/logger"
	"github.com/tenantapi/backend/internal/infrastructure/telemetry"
	"github.com/tenantapi/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// IdempotencyOptions wires the idempotency coordinator
type IdempotencyOptions struct {
	Records shared.IdempotencyRepository
	// Claims is only consulted when Config.ClaimInFlight is set
	Claims  shared.IdempotencyStore
	Config  shared.IdempotencyConfig
	Metrics *telemetry.PipelineMetrics
	Logger  *zap.Logger
	// Now defaults to time.Now
	Now func() time.Time
}

// pendingWrite is what the pre phase hands to the post phase
type pendingWrite struct {
	tenantID    string
	key         string
	method      string
	route       string
	requestHash string
}

// Idempotency deduplicates retried writes by Idempotency-Key.
// Safe methods pass straight through. An identical retry replays the
// stored response without running the handler; a different request under
// the same key is rejected with 409. Only responses below 400 are stored.
func Idempotency(opts IdempotencyOptions) gin.HandlerFunc {
	cfg := opts.Config
	if cfg.TTL <= 0 {
		cfg.TTL = shared.DefaultIdempotencyConfig().TTL
	}
	if cfg.MinKeyLength <= 0 {
		cfg.MinKeyLength = shared.DefaultIdempotencyConfig().MinKeyLength
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = shared.DefaultIdempotencyConfig().ClaimTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	claims := opts.Claims
	if !cfg.ClaimInFlight {
		claims = nil
	}

	return func(c *gin.Context) {
		if !isWriteMethod(c.Request.Method) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		log := logger.Enrich(ctx, opts.Logger)

		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if len(key) < cfg.MinKeyLength {
			opts.Metrics.IdempotencyOutcome(ctx, telemetry.OutcomeRejected)
			AbortWithError(c, shared.NewDomainError(shared.CodeIdempotencyKeyRequired,
				"Idempotency-Key header is required"))
			return
		}
		tenantID := GetTenantID(c)
		if tenantID == "" {
			opts.Metrics.IdempotencyOutcome(ctx, telemetry.OutcomeRejected)
			AbortWithError(c, shared.NewDomainError(shared.CodeTenantRequired, "Tenant is required"))
			return
		}

		body, err := readBody(c)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
					dto.NewErrorResponseWithMessage(shared.CodeRequestTooLarge, "Request body exceeds maximum allowed size"))
				return
			}
			HandleValidationError(c, err)
			return
		}

		pending := pendingWrite{
			tenantID:    tenantID,
			key:         key,
			method:      c.Request.Method,
			route:       c.FullPath(),
			requestHash: RequestHash(c.Request.Method, c.FullPath(), body),
		}

		existing, err := opts.Records.Find(ctx, tenantID, key, now())
		switch {
		case err == nil:
			if !existing.Matches(pending.requestHash) {
				opts.Metrics.IdempotencyOutcome(ctx, telemetry.OutcomeConflict)
				log.Info("Idempotency key reused with a different request",
					zap.String("idempotency_key", key),
					zap.String("route", pending.route),
				)
				AbortWithError(c, shared.ErrIdempotencyKeyReused)
				return
			}
			opts.Metrics.IdempotencyOutcome(ctx, telemetry.OutcomeReplay)
			c.Header(HeaderIdempotentReplayed, "true")
			c.Data(existing.StatusCode, "application/json", existing.ResponseBody)
			c.Abort()
			return
		case !errors.Is(err, shared.ErrNotFound):
			opts.Metrics.IdempotencyOutcome(ctx, telemetry.OutcomeStoreError)
			AbortWithError(c, err)
			return
		}

		if claims != nil {
			claimKey := "idem:" + tenantID + ":" + key
			claimed, err := claims.MarkProcessed(ctx, claimKey, cfg.ClaimTTL)
			if err != nil {
				// fall back to best effort
				log.Warn("Idempotency claim failed", zap.String("idempotency_key", key), zap.Error(err))
			} else if !claimed {
				opts.Metrics.IdempotencyOutcome(ctx, telemetry.OutcomeInFlight)
				AbortWithError(c, shared.ErrIdempotencyInFlight)
				return
			} else {
				defer func() {
					if err := claims.Release(context.WithoutCancel(ctx), claimKey); err != nil {
						log.Warn("Idempotency claim release failed", zap.String("idempotency_key", key), zap.Error(err))
					}
				}()
			}
		}

		opts.Metrics.IdempotencyOutcome(ctx, telemetry.OutcomeMiss)

		capture := &responseCapture{ResponseWriter: c.Writer}
		c.Writer = capture
		c.Next()
		c.Writer = capture.ResponseWriter

		status := capture.Status()
		if status >= http.StatusBadRequest {
			return
		}

		createdAt := now()
		record := &shared.IdempotencyRecord{
			ID:           uuid.NewString(),
			TenantID:     pending.tenantID,
			Key:          pending.key,
			Method:       pending.method,
			Path:         pending.route,
			RequestHash:  pending.requestHash,
			StatusCode:   status,
			ResponseBody: capture.body.Bytes(),
			ExpiresAt:    createdAt.Add(cfg.TTL),
			CreatedAt:    createdAt,
		}
		if err := opts.Records.Create(context.WithoutCancel(ctx), record); err != nil {
			if errors.Is(err, shared.ErrDuplicateKey) {
				log.Warn("Idempotency record already stored by a concurrent request",
					zap.String("idempotency_key", key),
					zap.String("route", pending.route),
				)
				return
			}
			opts.Metrics.IdempotencyOutcome(ctx, telemetry.OutcomeStoreError)
			log.Warn("Failed to store idempotency record",
				zap.String("idempotency_key", key),
				zap.String("route", pending.route),
				zap.Error(err),
			)
		}
	}
}

func isWriteMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// readBody drains the request body and puts it back for the handler
func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// RequestHash fingerprints a write as hex(sha256(method:route:canonicalBody)).
func RequestHash(method, route string, body []byte) string {
	sum := sha256.Sum256([]byte(method + ":" + route + ":" + string(CanonicalBody(body))))
	return hex.EncodeToString(sum[:])
}

// CanonicalBody re-encodes a JSON body with sorted keys and no insignificant
// whitespace. An empty body becomes null; a body that is not JSON is
// returned unchanged.
func CanonicalBody(body []byte) []byte {
	if len(bytes.TrimSpace(body)) == 0 {
		return []byte("null")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return body
	}
	if _, err := dec.Token(); err != io.EOF {
		return body
	}
	canonical, err := json.Marshal(v)
	if err != nil {
		return body
	}
	return canonical
}

// responseCapture buffers what the handler writes so it can be stored
type responseCapture struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *responseCapture) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseCapture) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
