package cache

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	count   int64
	resetAt time.Time
}

// InMemoryRateLimiter keeps fixed window counters in process memory.
// Counts are not shared across instances.
type InMemoryRateLimiter struct {
	mu        sync.Mutex
	counters  map[string]*counter
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryRateLimiter creates a limiter and starts its cleanup loop.
func NewInMemoryRateLimiter() *InMemoryRateLimiter {
	l := &InMemoryRateLimiter{
		counters: make(map[string]*counter),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	l.wg.Add(1)
	go l.cleanupLoop(time.Minute)
	return l
}

// Allow implements RateLimiter
func (l *InMemoryRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (RateDecision, error) {
	now := l.now()
	resetAt := windowStart(now, window).Add(window)

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.counters[key]
	if !ok || !now.Before(c.resetAt) {
		c = &counter{resetAt: resetAt}
		l.counters[key] = c
	}
	c.count++

	return decide(c.count, limit, c.resetAt), nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (l *InMemoryRateLimiter) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

func (l *InMemoryRateLimiter) cleanupLoop(every time.Duration) {
	defer l.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *InMemoryRateLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, c := range l.counters {
		if !now.Before(c.resetAt) {
			delete(l.counters, key)
		}
	}
}

// Size returns the number of live counters (for testing)
func (l *InMemoryRateLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}

var _ RateLimiter = (*InMemoryRateLimiter)(nil)
