package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tenantapi/backend/internal/domain/identity"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/auth"
	"github.com/tenantapi/backend/internal/infrastructure/logger"
	"github.com/tenantapi/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// TokenServiceConfig contains configuration for the token service
type TokenServiceConfig struct {
	RefreshTokenTTL time.Duration // lifetime of a refresh token (default 30 days)
	WriteTimeout    time.Duration // bound on rotation and revocation writes
}

// DefaultTokenServiceConfig returns default configuration
func DefaultTokenServiceConfig() TokenServiceConfig {
	return TokenServiceConfig{
		RefreshTokenTTL: 30 * 24 * time.Hour,
		WriteTimeout:    5 * time.Second,
	}
}

// TokenService issues access tokens and manages the refresh token chain.
type TokenService struct {
	jwt     *auth.JWTService
	tokens  identity.RefreshTokenRepository
	config  TokenServiceConfig
	metrics *telemetry.PipelineMetrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewTokenService creates a new token service. metrics may be nil.
func NewTokenService(
	jwtService *auth.JWTService,
	tokens identity.RefreshTokenRepository,
	config TokenServiceConfig,
	metrics *telemetry.PipelineMetrics,
	logger *zap.Logger,
) *TokenService {
	if config.RefreshTokenTTL <= 0 {
		config.RefreshTokenTTL = DefaultTokenServiceConfig().RefreshTokenTTL
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultTokenServiceConfig().WriteTimeout
	}
	return &TokenService{
		jwt:     jwtService,
		tokens:  tokens,
		config:  config,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// IssueAccessToken signs an access token for a complete identity.
func (s *TokenService) IssueAccessToken(id identity.Identity) (string, time.Time, error) {
	token, expiresAt, err := s.jwt.IssueAccessToken(id)
	if err != nil {
		if errors.Is(err, auth.ErrMissingClaims) {
			return "", time.Time{}, shared.ErrInvalidUser.WithCause(err)
		}
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return token, expiresAt, nil
}

// IssueRefreshToken creates and stores a new refresh token for the user.
// The raw value is returned once and cannot be recovered later.
func (s *TokenService) IssueRefreshToken(ctx context.Context, tenantID, userID string) (*IssuedRefreshToken, error) {
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	record := &identity.RefreshToken{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		UserID:    userID,
		TokenHash: hash,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.config.RefreshTokenTTL),
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &IssuedRefreshToken{Raw: raw, Record: record}, nil
}

// RotateRefreshToken exchanges a raw refresh token for a successor and the
// owner's current identity. Every refusal is reported as
// shared.ErrInvalidRefreshToken; presenting a revoked token is logged as reuse.
//
// The write runs on a context detached from the caller, so a client that
// disconnects mid-request cannot leave the chain half rotated.
func (s *TokenService) RotateRefreshToken(ctx context.Context, raw string) (*RotatedRefreshToken, error) {
	if raw == "" {
		return nil, shared.ErrInvalidRefreshToken
	}

	newRaw, newHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	next := &identity.RefreshToken{
		ID:        uuid.NewString(),
		TokenHash: newHash,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.config.RefreshTokenTTL),
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.WriteTimeout)
	defer cancel()

	result, err := s.tokens.Rotate(writeCtx, auth.HashRefreshToken(raw), next, now)
	if err != nil {
		return nil, s.rotationFailure(ctx, result, err)
	}

	s.metrics.RefreshRotated(ctx)
	return &RotatedRefreshToken{
		Raw:       newRaw,
		ExpiresAt: next.ExpiresAt,
		Identity:  result.Identity,
	}, nil
}

func (s *TokenService) rotationFailure(ctx context.Context, result *identity.RotationResult, err error) error {
	log := logger.Enrich(ctx, s.logger)
	fields := make([]zap.Field, 0, 4)
	if result != nil && result.Previous != nil {
		fields = append(fields,
			zap.String("tenant_id", result.Previous.TenantID),
			zap.String("user_id", result.Previous.UserID),
			zap.String("token_id", result.Previous.ID),
		)
	}

	switch {
	case errors.Is(err, identity.ErrRefreshTokenRevoked):
		var tenantID string
		if result != nil && result.Previous != nil {
			tenantID = result.Previous.TenantID
		}
		log.Warn("refresh token reuse detected", fields...)
		s.metrics.RefreshReuseDetected(ctx, tenantID)
	case errors.Is(err, identity.ErrRefreshTokenNotFound),
		errors.Is(err, identity.ErrRefreshTokenExpired),
		errors.Is(err, identity.ErrRefreshTokenOwnerMissing),
		errors.Is(err, identity.ErrRefreshTokenRaced):
		log.Info("Refresh token rejected", append(fields, zap.String("reason", err.Error()))...)
	default:
		log.Error("Refresh token rotation failed", append(fields, zap.Error(err))...)
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	return shared.ErrInvalidRefreshToken.WithCause(err)
}

// RevokeRefreshToken revokes a raw refresh token. Empty, unknown and already
// revoked tokens are not errors.
func (s *TokenService) RevokeRefreshToken(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.WriteTimeout)
	defer cancel()

	n, err := s.tokens.RevokeByHash(writeCtx, auth.HashRefreshToken(raw), s.now())
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	logger.Enrich(ctx, s.logger).Debug("Refresh token revoked", zap.Int64("rows", n))
	return nil
}
