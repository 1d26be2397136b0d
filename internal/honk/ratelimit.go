package honk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrBudgetExhausted is returned when the daily fetch budget has been spent.
// Each fetch drives a real browser session against the portal, so the budget
// keeps a misconfigured interval from looking like an attack.
var ErrBudgetExhausted = errors.New("daily fetch budget exhausted")

// RateLimiter paces browser fetches with a token bucket and enforces a daily
// budget over a rolling 24-hour window.
type RateLimiter struct {
	limiter  *rate.Limiter
	maxDaily int64

	mu      sync.Mutex
	used    int64
	resetAt time.Time

	nowFunc func() time.Time
}

// RateLimiterOption configures the RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithNowFunc overrides the time source for testing.
func WithNowFunc(f func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) {
		r.nowFunc = f
	}
}

// NewRateLimiter creates a limiter allowing perMinute fetches with the given
// burst, capped at maxDaily fetches per rolling 24-hour window.
func NewRateLimiter(perMinute float64, burst int, maxDaily int64, opts ...RateLimiterOption) *RateLimiter {
	r := &RateLimiter{
		limiter:  rate.NewLimiter(rate.Limit(perMinute/60.0), burst),
		maxDaily: maxDaily,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.resetAt = r.nowFunc().Add(24 * time.Hour)
	return r
}

// Wait blocks until a fetch is allowed or ctx is canceled. Returns
// ErrBudgetExhausted once the daily budget is spent.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.consume(); err != nil {
		return err
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}

// Remaining returns the number of fetches left in the current window.
func (r *RateLimiter) Remaining() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollWindow()
	if remaining := r.maxDaily - r.used; remaining > 0 {
		return remaining
	}
	return 0
}

func (r *RateLimiter) consume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollWindow()
	if r.used >= r.maxDaily {
		return fmt.Errorf("%w (%d/%d)", ErrBudgetExhausted, r.used, r.maxDaily)
	}
	r.used++
	return nil
}

// rollWindow resets the budget once the 24-hour window has elapsed.
// Callers must hold mu.
func (r *RateLimiter) rollWindow() {
	now := r.nowFunc()
	if now.After(r.resetAt) {
		r.used = 0
		r.resetAt = now.Add(24 * time.Hour)
	}
}
