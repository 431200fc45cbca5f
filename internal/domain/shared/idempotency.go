package shared

import (
	"context"
	"time"
)

// IdempotencyRecord is the stored outcome of the first successful write made
// under a (tenant, key) pair. Once stored it never changes.
type IdempotencyRecord struct {
	ID           string
	TenantID     string
	Key          string
	Method       string
	Path         string
	RequestHash  string
	StatusCode   int
	ResponseBody []byte
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// Matches reports whether a new request fingerprint is the same request.
func (r *IdempotencyRecord) Matches(requestHash string) bool {
	return r.RequestHash == requestHash
}

// IdempotencyRepository persists replayable write responses.
type IdempotencyRepository interface {
	// Find returns the unexpired record for (tenantID, key) or ErrNotFound
	Find(ctx context.Context, tenantID, key string, now time.Time) (*IdempotencyRecord, error)

	// Create inserts a record, replacing an expired one with the same key.
	// A concurrent insert of the same (tenantID, key) returns ErrDuplicateKey.
	Create(ctx context.Context, record *IdempotencyRecord) error

	// DeleteExpired removes records whose expiry is before now
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// IdempotencyStore holds short-lived claims on keys that are being processed.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl.
	// Returns true if the key was newly claimed, false if someone already holds it
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if the key is currently claimed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release drops a claim before its TTL runs out
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotent write handling
type IdempotencyConfig struct {
	// TTL is how long a stored response stays replayable. Default: 24 hours
	TTL time.Duration

	// MinKeyLength is the minimum accepted Idempotency-Key length after trimming
	MinKeyLength int

	// ClaimInFlight enables the in-flight claim before handlers run
	ClaimInFlight bool

	// ClaimTTL bounds how long an in-flight claim is held
	ClaimTTL time.Duration
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:          24 * time.Hour,
		MinKeyLength: 8,
		ClaimTTL:     30 * time.Second,
	}
}
