// Package ratelimit provides per-key token buckets.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedRateLimiter gives every key its own limiter. Limiters idle for longer
// than the idle window are dropped by Sweep.
type KeyedRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter allowing rps requests per second with the given burst per key.
func New(rps float64, burst int) *KeyedRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &KeyedRateLimiter{
		limiters: make(map[string]*entry),
		limit:    rate.Limit(rps),
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

// Allow reports whether a request for key may proceed now.
func (k *KeyedRateLimiter) Allow(key string) bool {
	k.mu.Lock()
	e, ok := k.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.limiters[key] = e
	}
	now := k.now()
	e.lastSeen = now
	k.mu.Unlock()
	return e.limiter.AllowN(now, 1)
}

// Sweep drops limiters not used within the idle window and returns how many were removed.
func (k *KeyedRateLimiter) Sweep() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	cutoff := k.now().Add(-k.idle)
	removed := 0
	for key, e := range k.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(k.limiters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.limiters)
}
