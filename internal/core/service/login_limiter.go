package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Login throttle defaults: a burst of 5 attempts, then one every 12s.
const (
	DefaultLoginBurst    = 5
	DefaultLoginInterval = 12 * time.Second
)

// LoginLimiter throttles login attempts per account email.
type LoginLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	clock    func() time.Time
}

// NewLoginLimiter creates a limiter allowing burst attempts and then one
// attempt per interval. A nil clock uses time.Now.
func NewLoginLimiter(burst int, interval time.Duration, clock func() time.Time) *LoginLimiter {
	if burst <= 0 {
		burst = DefaultLoginBurst
	}
	if interval <= 0 {
		interval = DefaultLoginInterval
	}
	if clock == nil {
		clock = time.Now
	}
	return &LoginLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(interval),
		burst:    burst,
		clock:    clock,
	}
}

// Allow consumes one attempt for key and reports whether it was allowed.
func (l *LoginLimiter) Allow(key string) bool {
	return l.getOrCreate(key).AllowN(l.clock(), 1)
}

func (l *LoginLimiter) getOrCreate(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[key]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.limiters[key]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(l.limit, l.burst)
	l.limiters[key] = limiter
	return limiter
}

// Sweep drops limiters that have refilled completely and returns how many
// were removed.
func (l *LoginLimiter) Sweep() int {
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, limiter := range l.limiters {
		if limiter.TokensAt(now) >= float64(l.burst) {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *LoginLimiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}
