package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tenantapi/backend/internal/domain/identity"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/config"
)

// TokenTypeAccess marks access tokens so other HS256 tokens signed with the
// same key are not accepted as bearer credentials.
const TokenTypeAccess = "access"

// Validation errors. The auth middleware maps all of them to 401.
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrMissingClaims    = errors.New("token is missing identity claims")
)

// Claims is the access token payload.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"userId"`
	TenantID  string `json:"tenantId"`
	RoleID    string `json:"roleId"`
	TokenType string `json:"typ"`
}

// Identity returns the principal carried by the claims.
func (c *Claims) Identity() identity.Identity {
	return identity.Identity{TenantID: c.TenantID, UserID: c.UserID, RoleID: c.RoleID}
}

// JWTService signs and verifies HS256 access tokens.
type JWTService struct {
	secret     []byte
	expiration time.Duration
	issuer     string
	now        func() time.Time
}

// NewJWTService creates a JWT service. An empty secret is a configuration
// error reported as shared.ErrSigningKey.
func NewJWTService(cfg config.JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, shared.ErrSigningKey
	}
	exp := cfg.AccessTokenExpiration
	if exp <= 0 {
		exp = 15 * time.Minute
	}
	return &JWTService{
		secret:     []byte(cfg.Secret),
		expiration: exp,
		issuer:     cfg.Issuer,
		now:        time.Now,
	}, nil
}

// AccessTokenExpiration returns the configured access token lifetime
func (s *JWTService) AccessTokenExpiration() time.Duration {
	return s.expiration
}

// IssueAccessToken signs an access token for id. All three identity fields are required.
func (s *JWTService) IssueAccessToken(id identity.Identity) (string, time.Time, error) {
	if !id.IsComplete() {
		return "", time.Time{}, ErrMissingClaims
	}
	now := s.now()
	expiresAt := now.Add(s.expiration)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   id.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID:    id.UserID,
		TenantID:  id.TenantID,
		RoleID:    id.RoleID,
		TokenType: TokenTypeAccess,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, shared.ErrSigningKey.WithCause(err)
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken verifies signature, algorithm, issuer and expiry and
// requires a complete identity in the claims.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrInvalidTokenType
	}
	if !claims.Identity().IsComplete() {
		return nil, ErrMissingClaims
	}
	return claims, nil
}
