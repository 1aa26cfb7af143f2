// Package ratelimit implements token-bucket admission control keyed by an
// opaque caller identity. Independent Limiter instances guard each endpoint
// class so auth endpoints can be throttled harder than searches.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default per-minute limits for the three endpoint classes.
const (
	DefaultSearchRate = 100
	DefaultAuthRate   = 10
	DefaultConfigRate = 20
)

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// Limiter is a thread-safe token-bucket limiter. Buckets are created lazily
// per key at full capacity and refill continuously (fractional tokens, no
// window-boundary bursts).
type Limiter struct {
	rate float64 // capacity, tokens per window
	per  time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
	logger  *zap.Logger
	now     func() time.Time
}

// NewLimiter creates a limiter admitting rate calls per window. Both values
// must be strictly positive.
func NewLimiter(rate int, per time.Duration, logger *zap.Logger) (*Limiter, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("rate must be positive, got %d", rate)
	}
	if per <= 0 {
		return nil, fmt.Errorf("time window must be positive, got %s", per)
	}
	return &Limiter{
		rate:    float64(rate),
		per:     per,
		buckets: map[string]*bucket{},
		logger:  logger.Named("ratelimit"),
		now:     time.Now,
	}, nil
}

// refillLocked brings the bucket for key current and returns it. Caller
// holds the lock.
func (l *Limiter) refillLocked(key string) *bucket {
	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.rate, lastRefill: now}
		l.buckets[key] = b
		return b
	}
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * (l.rate / l.per.Seconds())
	if b.tokens > l.rate {
		b.tokens = l.rate
	}
	b.lastRefill = now
	return b
}

// Allow reports whether a call of the given cost is admitted for key,
// deducting the cost when it is. A rejected call leaves the bucket
// untouched.
func (l *Limiter) Allow(key string, cost float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refillLocked(key)
	if b.tokens >= cost {
		b.tokens -= cost
		return true
	}
	l.logger.Debug("rate limit exceeded",
		zap.String("key", key),
		zap.Float64("available", b.tokens),
		zap.Float64("required", cost))
	return false
}

// WaitTime computes, without mutating bucket state, how long until Allow
// would succeed for the given cost. Zero means it would succeed now.
func (l *Limiter) WaitTime(key string, cost float64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	current := l.rate
	if b, ok := l.buckets[key]; ok {
		elapsed := now.Sub(b.lastRefill).Seconds()
		current = b.tokens + elapsed*(l.rate/l.per.Seconds())
		if current > l.rate {
			current = l.rate
		}
	}
	if current >= cost {
		return 0
	}
	needed := cost - current
	return time.Duration(needed * (l.per.Seconds() / l.rate) * float64(time.Second))
}

// Reset discards the bucket for key; the next access re-initializes it at
// full capacity.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.buckets[key]; ok {
		delete(l.buckets, key)
		l.logger.Info("rate limit reset", zap.String("key", key))
	}
}

// Stats returns the current token count for key and the refill rate in
// tokens per second, without mutating state.
func (l *Limiter) Stats(key string) (current float64, perSecond float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	current = l.rate
	if b, ok := l.buckets[key]; ok {
		elapsed := now.Sub(b.lastRefill).Seconds()
		current = b.tokens + elapsed*(l.rate/l.per.Seconds())
		if current > l.rate {
			current = l.rate
		}
	}
	return current, l.rate / l.per.Seconds()
}

// CleanupOld removes buckets untouched for longer than maxAge, bounding
// memory growth from an unbounded key set. Returns the count removed.
func (l *Limiter) CleanupOld(maxAge time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, b := range l.buckets {
		if now.Sub(b.lastRefill) > maxAge {
			delete(l.buckets, key)
			removed++
		}
	}
	if removed > 0 {
		l.logger.Info("cleaned up inactive rate limit buckets", zap.Int("count", removed))
	}
	return removed
}
