package shared

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	cause := errors.New("pq: duplicate key")
	err := ErrDuplicateKey.WithMessage("sku taken").WithCause(cause)

	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "sku taken: pq: duplicate key", err.Error())

	// sentinel itself is untouched
	assert.Equal(t, "Resource with the same key already exists", ErrDuplicateKey.Message)
	assert.Nil(t, ErrDuplicateKey.Err)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(ErrNotFound))
	assert.Equal(t, CodeForbidden, CodeOf(fmt.Errorf("guard: %w", ErrForbidden)))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.Equal(t, CodeInternal, CodeOf(nil))
}

func TestIdempotencyRecord_Matches(t *testing.T) {
	r := &IdempotencyRecord{RequestHash: "abc"}
	assert.True(t, r.Matches("abc"))
	assert.False(t, r.Matches("abd"))
}

func TestDefaultIdempotencyConfig(t *testing.T) {
	cfg := DefaultIdempotencyConfig()
	assert.Equal(t, 24*time.Hour, cfg.TTL)
	assert.Equal(t, 8, cfg.MinKeyLength)
	assert.False(t, cfg.ClaimInFlight)
}
