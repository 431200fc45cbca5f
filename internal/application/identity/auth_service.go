package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/tenantapi/backend/internal/domain/identity"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/auth"
	"github.com/tenantapi/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuthService handles login, refresh and logout
type AuthService struct {
	users  identity.UserRepository
	hasher *auth.PasswordHasher
	tokens *TokenService
	logger *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users identity.UserRepository,
	hasher *auth.PasswordHasher,
	tokens *TokenService,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
	}
}

// Login verifies credentials within a tenant and opens a session.
// Unknown emails and wrong passwords return the same error, and both paths
// run a bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*SessionResult, error) {
	log := logger.Enrich(ctx, s.logger).With(zap.String("tenant_id", input.TenantID))

	user, err := s.users.FindByEmail(ctx, input.TenantID, identity.NormalizeEmail(input.Email))
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		_ = s.hasher.VerifyDummy(input.Password)
		log.Info("Login failed", zap.String("reason", "unknown_email"))
		return nil, shared.ErrInvalidCredentials
	}

	if err := s.hasher.Verify(user.PasswordHash, input.Password); err != nil {
		log.Info("Login failed", zap.String("reason", "password_mismatch"), zap.String("user_id", user.ID))
		return nil, shared.ErrInvalidCredentials
	}

	id := user.Identity()
	accessToken, accessExp, err := s.tokens.IssueAccessToken(id)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(ctx, id.TenantID, id.UserID)
	if err != nil {
		return nil, err
	}

	log.Info("User logged in", zap.String("user_id", id.UserID))
	return &SessionResult{
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  accessExp,
		RefreshToken:          refresh.Raw,
		RefreshTokenExpiresAt: refresh.Record.ExpiresAt,
		Identity:              id,
	}, nil
}

// Refresh rotates the presented refresh token and signs an access token for
// the owner's current role.
func (s *AuthService) Refresh(ctx context.Context, rawRefreshToken string) (*SessionResult, error) {
	if rawRefreshToken == "" {
		return nil, shared.ErrMissingRefreshToken
	}

	rotated, err := s.tokens.RotateRefreshToken(ctx, rawRefreshToken)
	if err != nil {
		return nil, err
	}

	accessToken, accessExp, err := s.tokens.IssueAccessToken(rotated.Identity)
	if err != nil {
		return nil, err
	}

	return &SessionResult{
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  accessExp,
		RefreshToken:          rotated.Raw,
		RefreshTokenExpiresAt: rotated.ExpiresAt,
		Identity:              rotated.Identity,
	}, nil
}

// Logout revokes the presented refresh token. It is safe to call repeatedly.
func (s *AuthService) Logout(ctx context.Context, rawRefreshToken string) error {
	return s.tokens.RevokeRefreshToken(ctx, rawRefreshToken)
}
