package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tenantapi/backend/internal/domain/identity"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/auth"
	"github.com/tenantapi/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "test-secret-key-that-is-long-enough-for-hs256"

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newTestTokenService(t *testing.T, repo identity.RefreshTokenRepository, log *zap.Logger) *TokenService {
	t.Helper()
	jwtService, err := auth.NewJWTService(config.JWTConfig{Secret: testSecret, Issuer: "tenantapi"})
	require.NoError(t, err)

	svc := NewTokenService(jwtService, repo, TokenServiceConfig{}, nil, log)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestTokenService_IssueAccessToken(t *testing.T) {
	svc := newTestTokenService(t, new(MockRefreshTokenRepository), zap.NewNop())

	id := identity.Identity{TenantID: "t1", UserID: "u1", RoleID: "r1"}
	token, expiresAt, err := svc.IssueAccessToken(id)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.False(t, expiresAt.IsZero())

	_, _, err = svc.IssueAccessToken(identity.Identity{TenantID: "t1", UserID: "u1"})
	assert.ErrorIs(t, err, shared.ErrInvalidUser)
}

func TestTokenService_IssueRefreshToken(t *testing.T) {
	repo := new(MockRefreshTokenRepository)
	svc := newTestTokenService(t, repo, zap.NewNop())

	var stored *identity.RefreshToken
	repo.On("Create", mock.Anything, mock.AnythingOfType("*identity.RefreshToken")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*identity.RefreshToken) }).
		Return(nil)

	issued, err := svc.IssueRefreshToken(context.Background(), "t1", "u1")
	require.NoError(t, err)

	require.NotNil(t, stored)
	assert.Equal(t, "t1", stored.TenantID)
	assert.Equal(t, "u1", stored.UserID)
	assert.Equal(t, auth.HashRefreshToken(issued.Raw), stored.TokenHash)
	assert.NotEqual(t, issued.Raw, stored.TokenHash)
	assert.Equal(t, fixedNow.Add(30*24*time.Hour), stored.ExpiresAt)
	repo.AssertExpectations(t)
}

func TestTokenService_RotateRefreshToken(t *testing.T) {
	repo := new(MockRefreshTokenRepository)
	svc := newTestTokenService(t, repo, zap.NewNop())

	owner := identity.Identity{TenantID: "t1", UserID: "u1", RoleID: "r2"}
	repo.On("Rotate", mock.Anything, auth.HashRefreshToken("old-raw"), mock.AnythingOfType("*identity.RefreshToken"), fixedNow).
		Return(&identity.RotationResult{Identity: owner}, nil)

	rotated, err := svc.RotateRefreshToken(context.Background(), "old-raw")
	require.NoError(t, err)
	assert.NotEqual(t, "old-raw", rotated.Raw)
	assert.Equal(t, owner, rotated.Identity)
	assert.Equal(t, fixedNow.Add(30*24*time.Hour), rotated.ExpiresAt)

	next := repo.Calls[0].Arguments.Get(2).(*identity.RefreshToken)
	assert.Equal(t, auth.HashRefreshToken(rotated.Raw), next.TokenHash)
}

func TestTokenService_RotateRefreshToken_IgnoresCallerCancellation(t *testing.T) {
	repo := new(MockRefreshTokenRepository)
	svc := newTestTokenService(t, repo, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo.On("Rotate", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }),
		mock.Anything, mock.Anything, mock.Anything).
		Return(&identity.RotationResult{Identity: identity.Identity{TenantID: "t1", UserID: "u1", RoleID: "r1"}}, nil)

	_, err := svc.RotateRefreshToken(ctx, "raw")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestTokenService_RotateRefreshToken_Refusals(t *testing.T) {
	prev := &identity.RefreshToken{ID: "rt1", TenantID: "t1", UserID: "u1"}

	tests := []struct {
		name string
		err  error
	}{
		{"not found", identity.ErrRefreshTokenNotFound},
		{"expired", identity.ErrRefreshTokenExpired},
		{"owner deleted", identity.ErrRefreshTokenOwnerMissing},
		{"concurrent rotation", identity.ErrRefreshTokenRaced},
		{"revoked", identity.ErrRefreshTokenRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRefreshTokenRepository)
			svc := newTestTokenService(t, repo, zap.NewNop())
			repo.On("Rotate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(&identity.RotationResult{Previous: prev}, tt.err)

			_, err := svc.RotateRefreshToken(context.Background(), "raw")
			assert.ErrorIs(t, err, shared.ErrInvalidRefreshToken)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestTokenService_RotateRefreshToken_LogsReuse(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	repo := new(MockRefreshTokenRepository)
	svc := newTestTokenService(t, repo, zap.New(core))

	prev := &identity.RefreshToken{ID: "rt1", TenantID: "t1", UserID: "u1"}
	repo.On("Rotate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&identity.RotationResult{Previous: prev}, identity.ErrRefreshTokenRevoked)

	_, err := svc.RotateRefreshToken(context.Background(), "stolen")
	require.Error(t, err)

	reuse := logs.FilterMessage("refresh token reuse detected").All()
	require.Len(t, reuse, 1)
	assert.Equal(t, zapcore.WarnLevel, reuse[0].Level)
	fields := reuse[0].ContextMap()
	assert.Equal(t, "t1", fields["tenant_id"])
	assert.Equal(t, "u1", fields["user_id"])
	assert.Equal(t, "rt1", fields["token_id"])
}

func TestTokenService_RotateRefreshToken_StorageError(t *testing.T) {
	repo := new(MockRefreshTokenRepository)
	svc := newTestTokenService(t, repo, zap.NewNop())

	dbErr := errors.New("connection reset")
	repo.On("Rotate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&identity.RotationResult{}, dbErr)

	_, err := svc.RotateRefreshToken(context.Background(), "raw")
	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, shared.ErrInvalidRefreshToken)
}

func TestTokenService_RotateRefreshToken_Empty(t *testing.T) {
	repo := new(MockRefreshTokenRepository)
	svc := newTestTokenService(t, repo, zap.NewNop())

	_, err := svc.RotateRefreshToken(context.Background(), "")
	assert.ErrorIs(t, err, shared.ErrInvalidRefreshToken)
	repo.AssertNotCalled(t, "Rotate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTokenService_RevokeRefreshToken(t *testing.T) {
	t.Run("empty token is a no-op", func(t *testing.T) {
		repo := new(MockRefreshTokenRepository)
		svc := newTestTokenService(t, repo, zap.NewNop())
		require.NoError(t, svc.RevokeRefreshToken(context.Background(), ""))
		repo.AssertNotCalled(t, "RevokeByHash", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown token succeeds", func(t *testing.T) {
		repo := new(MockRefreshTokenRepository)
		svc := newTestTokenService(t, repo, zap.NewNop())
		repo.On("RevokeByHash", mock.Anything, auth.HashRefreshToken("raw"), fixedNow).Return(int64(0), nil)
		require.NoError(t, svc.RevokeRefreshToken(context.Background(), "raw"))
	})

	t.Run("storage error is returned", func(t *testing.T) {
		repo := new(MockRefreshTokenRepository)
		svc := newTestTokenService(t, repo, zap.NewNop())
		repo.On("RevokeByHash", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errors.New("boom"))
		require.Error(t, svc.RevokeRefreshToken(context.Background(), "raw"))
	})
}
