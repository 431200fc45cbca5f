package identity

import (
	"errors"
	"time"
)

// Rotation failure reasons. Callers collapse all of them into one
// invalid_refresh_token response; they exist so the reasons can be logged apart.
var (
	ErrRefreshTokenNotFound     = errors.New("refresh token not found")
	ErrRefreshTokenRevoked      = errors.New("refresh token already revoked")
	ErrRefreshTokenExpired      = errors.New("refresh token expired")
	ErrRefreshTokenOwnerMissing = errors.New("refresh token owner no longer exists")
	ErrRefreshTokenRaced        = errors.New("refresh token rotated concurrently")
)

// RefreshToken is the persisted half of a login session. Only the hash of the
// raw token is stored.
type RefreshToken struct {
	ID           string
	TenantID     string
	UserID       string
	TokenHash    string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	RevokedAt    *time.Time
	ReplacedByID *string
}

// IsRevoked reports whether the token was revoked.
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsExpired reports whether the token is past its expiry at now.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsActive reports whether the token can still be rotated.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}

// RotationResult is what a successful or refused rotation knows about the chain.
type RotationResult struct {
	// Previous is the token that was presented. Set whenever it was found.
	Previous *RefreshToken
	// Successor is the newly stored token on success.
	Successor *RefreshToken
	// Identity is re-resolved from the owning user row on success.
	Identity Identity
}
