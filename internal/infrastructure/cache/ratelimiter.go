package cache

import (
	"context"
	"time"
)

// RateDecision is the outcome of one rate limit check.
type RateDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter counts requests per key in fixed windows.
type RateLimiter interface {
	// Allow counts one request against key and reports whether it fits in limit.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateDecision, error)

	Close() error
}

// windowStart aligns now to the start of its fixed window.
func windowStart(now time.Time, window time.Duration) time.Time {
	return now.Truncate(window)
}

func decide(count int64, limit int, resetAt time.Time) RateDecision {
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return RateDecision{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
