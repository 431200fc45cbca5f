package identity

import (
	"context"
	"time"
)

// UserRepository reads users. Deleted users are never returned.
type UserRepository interface {
	// FindByEmail finds a user by normalised email within a tenant
	FindByEmail(ctx context.Context, tenantID, email string) (*User, error)

	// FindByID finds a live user within a tenant
	FindByID(ctx context.Context, tenantID, userID string) (*User, error)
}

// RoleRepository resolves role permissions.
type RoleRepository interface {
	// FindPermissions returns the permission codes of a role within a tenant
	FindPermissions(ctx context.Context, tenantID, roleID string) ([]string, error)
}

// RefreshTokenRepository persists refresh tokens by hash.
type RefreshTokenRepository interface {
	// Create stores a new token
	Create(ctx context.Context, token *RefreshToken) error

	// FindByHash returns the token with the given hash, or shared.ErrNotFound
	FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)

	// Rotate revokes the token with tokenHash and stores next as its successor
	// in one transaction. The successor inherits tenant and user from the
	// revoked token and the identity is re-read from the user row. On refusal
	// the result still carries Previous when the token was found.
	Rotate(ctx context.Context, tokenHash string, next *RefreshToken, now time.Time) (*RotationResult, error)

	// RevokeByHash revokes an active token. Unknown or already revoked tokens
	// affect zero rows and are not an error.
	RevokeByHash(ctx context.Context, tokenHash string, now time.Time) (int64, error)

	// DeleteExpiredBefore removes tokens that expired before cutoff
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
