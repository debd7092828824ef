package resilience

import (
	"sync"
	"time"
)

const (
	// DefaultMaxRequests is the admission cap per window.
	DefaultMaxRequests = 60
	// DefaultWindow is the sliding window length.
	DefaultWindow = time.Minute
)

// RateLimiter admits at most max requests in any window-long interval.
// Safe for concurrent use.
type RateLimiter struct {
	mu         sync.Mutex
	max        int
	window     time.Duration
	timestamps []time.Time
	now        func() time.Time
}

// LimiterOption configures a RateLimiter.
type LimiterOption func(*RateLimiter)

// WithClock replaces time.Now. Used by tests to move time explicitly.
func WithClock(now func() time.Time) LimiterOption {
	return func(r *RateLimiter) {
		r.now = now
	}
}

// NewRateLimiter creates a limiter. Non-positive arguments fall back to
// DefaultMaxRequests and DefaultWindow.
func NewRateLimiter(max int, window time.Duration, opts ...LimiterOption) *RateLimiter {
	if max <= 0 {
		max = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	r := &RateLimiter{
		max:        max,
		window:     window,
		timestamps: make([]time.Time, 0, max),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Allow records an admission and returns true when fewer than max requests
// were admitted in the trailing window. A refused call records nothing.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.purge(now)
	if len(r.timestamps) >= r.max {
		return false
	}
	r.timestamps = append(r.timestamps, now)
	return true
}

// RemainingTime returns how long until the next admission would succeed,
// or 0 if one would succeed now.
func (r *RateLimiter) RemainingTime() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.purge(now)
	if len(r.timestamps) < r.max {
		return 0
	}
	wait := r.timestamps[0].Add(r.window).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// Len returns the number of admissions inside the current window.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purge(r.now())
	return len(r.timestamps)
}

// purge drops timestamps at least one window old. Caller holds mu.
func (r *RateLimiter) purge(now time.Time) {
	i := 0
	for i < len(r.timestamps) && now.Sub(r.timestamps[i]) >= r.window {
		i++
	}
	if i > 0 {
		r.timestamps = append(r.timestamps[:0], r.timestamps[i:]...)
	}
}
