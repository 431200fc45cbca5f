package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "ratelimit:"

// RedisRateLimiter is a fixed window counter shared by every instance.
// Each window gets its own key, so INCR and PEXPIRE can be pipelined
// without a read-modify-write.
type RedisRateLimiter struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

// NewRedisRateLimiter creates a limiter on an existing client
func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:    client,
		keyPrefix: rateLimitKeyPrefix,
		now:       time.Now,
	}
}

// Allow implements RateLimiter
func (l *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (RateDecision, error) {
	start := windowStart(l.now(), window)
	resetAt := start.Add(window)
	redisKey := l.keyPrefix + key + ":" + strconv.FormatInt(start.UnixMilli(), 10)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.PExpire(ctx, redisKey, window)
		return nil
	})
	if err != nil {
		return RateDecision{Allowed: true, Limit: limit, Remaining: limit, ResetAt: resetAt},
			fmt.Errorf("rate limit counter for %s: %w", key, err)
	}

	return decide(incr.Val(), limit, resetAt), nil
}

// Close is a no-op; the client is owned by the caller.
func (l *RedisRateLimiter) Close() error {
	return nil
}

var _ RateLimiter = (*RedisRateLimiter)(nil)
