package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Factory builds the Redis-backed shared-state components, or in-memory
// equivalents when Redis is disabled or unreachable.
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	client                *redis.Client
	ownsClient            bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// in-memory components. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// WithClient uses an existing Redis client instead of dialing one.
func WithClient(client *redis.Client) FactoryOption {
	return func(f *Factory) {
		f.client = client
	}
}

// NewFactory creates a factory. When Redis is enabled it connects
// immediately.
func NewFactory(ctx context.Context, cfg config.RedisConfig, opts ...FactoryOption) (*Factory, error) {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.client != nil || !cfg.Enabled {
		return f, nil
	}

	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory rate limiting and idempotency claims. "+
			"Limits and claims will not be shared across instances.",
			zap.Error(err),
		)
		return f, nil
	}

	f.logger.Info("connected to Redis", zap.String("addr", cfg.Addr()))
	f.client = client
	f.ownsClient = true
	return f, nil
}

// UsesRedis reports whether the factory has a live Redis client
func (f *Factory) UsesRedis() bool {
	return f.client != nil
}

// Client returns the Redis client, or nil when running in-memory
func (f *Factory) Client() *redis.Client {
	return f.client
}

// RateLimiter returns a rate limiter for the configured backend
func (f *Factory) RateLimiter() RateLimiter {
	if f.client != nil {
		return NewRedisRateLimiter(f.client)
	}
	return NewInMemoryRateLimiter()
}

// IdempotencyStore returns an in-flight claim store for the configured backend
func (f *Factory) IdempotencyStore() shared.IdempotencyStore {
	if f.client != nil {
		return NewRedisIdempotencyStore(f.client, idempotencyKeyPrefix)
	}
	return NewInMemoryIdempotencyStore()
}

// Ping checks Redis. Without Redis it always succeeds.
func (f *Factory) Ping(ctx context.Context) error {
	if f.client == nil {
		return nil
	}
	return f.client.Ping(ctx).Err()
}

// Close closes the Redis client if the factory owns one
func (f *Factory) Close() error {
	if !f.ownsClient {
		return nil
	}
	return f.client.Close()
}
