package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRateLimiter_Allow(t *testing.T) {
	l := NewInMemoryRateLimiter()
	defer l.Close()
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 10, 0, time.UTC)
	l.now = func() time.Time { return base }

	for i := 1; i <= 3; i++ {
		d, err := l.Allow(ctx, "tenant:t1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 3-i, d.Remaining)
		assert.Equal(t, 3, d.Limit)
		assert.Equal(t, time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC), d.ResetAt)
	}

	d, err := l.Allow(ctx, "tenant:t1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	other, err := l.Allow(ctx, "tenant:t2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	l.now = func() time.Time { return base.Add(time.Minute) }
	d, err = l.Allow(ctx, "tenant:t1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Remaining)
}

func TestInMemoryRateLimiter_Concurrent(t *testing.T) {
	l := NewInMemoryRateLimiter()
	defer l.Close()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.Allow(ctx, "ip:10.0.0.1", 10, time.Hour)
			if err == nil && d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}

func TestInMemoryRateLimiter_Cleanup(t *testing.T) {
	l := NewInMemoryRateLimiter()
	defer l.Close()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }
	_, _ = l.Allow(context.Background(), "a", 1, time.Minute)
	assert.Equal(t, 1, l.Size())

	l.now = func() time.Time { return base.Add(2 * time.Minute) }
	l.cleanup()
	assert.Equal(t, 0, l.Size())
}
