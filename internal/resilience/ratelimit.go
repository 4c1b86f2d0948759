package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
)

// Limit is a sliding-window budget.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of one limiter check.
type Decision struct {
	Allowed   bool
	Remaining int

	// Reset is how long until the oldest counted event leaves the window.
	Reset time.Duration
}

// RateLimiter is a sliding-window limiter over an injected CounterStore.
type RateLimiter struct {
	counters driven.CounterStore
	now      func() time.Time
}

// NewRateLimiter creates a limiter backed by counters.
func NewRateLimiter(counters driven.CounterStore) *RateLimiter {
	return &RateLimiter{counters: counters, now: time.Now}
}

// Check prunes expired events for key, then either records a new event and
// allows it, or rejects once the limit is reached inside the window.
func (r *RateLimiter) Check(ctx context.Context, key string, l Limit) (Decision, error) {
	if l.Limit <= 0 || l.Window <= 0 {
		return Decision{Allowed: true, Remaining: -1}, nil
	}

	now := r.now()
	if err := r.counters.Prune(ctx, key, now.Add(-l.Window)); err != nil {
		return Decision{}, fmt.Errorf("prune %s: %w", key, err)
	}
	events, err := r.counters.Get(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("get %s: %w", key, err)
	}

	if len(events) >= l.Limit {
		return Decision{
			Allowed:   false,
			Remaining: 0,
			Reset:     resetAfter(events[0], l.Window, now),
		}, nil
	}

	if err := r.counters.Increment(ctx, key, now); err != nil {
		return Decision{}, fmt.Errorf("increment %s: %w", key, err)
	}

	oldest := now
	if len(events) > 0 {
		oldest = events[0]
	}
	return Decision{
		Allowed:   true,
		Remaining: l.Limit - len(events) - 1,
		Reset:     resetAfter(oldest, l.Window, now),
	}, nil
}

// Enforce runs Check and converts a rejection into a rate_limited error
// carrying retryAfterMs.
func (r *RateLimiter) Enforce(ctx context.Context, key string, l Limit) error {
	d, err := r.Check(ctx, key, l)
	if err != nil {
		return MapError(err, "ratelimit.check")
	}
	if d.Allowed {
		return nil
	}
	e := domain.NewError(domain.KindRateLimited, "ratelimit.check",
		fmt.Sprintf("rate limit of %d per %s exceeded for %s", l.Limit, l.Window, key))
	e.Err = domain.ErrRateLimited
	return e.WithDetail("retryAfterMs", d.Reset.Milliseconds()).WithDetail("key", key)
}

func resetAfter(oldest time.Time, window time.Duration, now time.Time) time.Duration {
	d := oldest.Add(window).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
