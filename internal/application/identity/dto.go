package identity

import (
	"time"

	"github.com/tenantapi/backend/internal/domain/identity"
)

// LoginInput contains the input for user login
type LoginInput struct {
	TenantID string
	Email    string
	Password string
}

// SessionResult is returned by login and refresh. RefreshToken is the raw
// value and is only ever handed to the client, never stored.
type SessionResult struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	Identity              identity.Identity
}

// IssuedRefreshToken is a freshly minted refresh token and its stored record.
type IssuedRefreshToken struct {
	Raw    string
	Record *identity.RefreshToken
}

// RotatedRefreshToken is the outcome of a successful rotation.
type RotatedRefreshToken struct {
	Raw       string
	ExpiresAt time.Time
	Identity  identity.Identity
}
