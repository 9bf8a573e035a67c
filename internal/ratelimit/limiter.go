package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter answers whether an action keyed by string may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type bucketLimiter struct {
	bucket *TokenBucket
	prefix string
	rate   float64
	burst  int
}

func (l *bucketLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.bucket.Allow(ctx, l.prefix+key, l.rate, l.burst)
}

// memoryLimiter is a per-process fixed-window fallback for deployments
// without Redis. Single instance only.
type memoryLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	seen   map[string][]time.Time
}

func newMemoryLimiter(max int, window time.Duration) *memoryLimiter {
	return &memoryLimiter{
		window: window,
		max:    max,
		seen:   make(map[string][]time.Time),
	}
}

func (l *memoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)
	kept := l.seen[key][:0]
	for _, t := range l.seen[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.max {
		l.seen[key] = kept
		return false, nil
	}
	l.seen[key] = append(kept, now)
	return true, nil
}
