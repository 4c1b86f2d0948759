package driven

import (
	"context"
	"time"
)

// CounterStore holds the event timestamps behind the sliding-window rate
// limiter. Swapping the implementation moves limiter state out of process
// without touching call sites.
type CounterStore interface {
	// Get returns the timestamps recorded for key, oldest first.
	Get(ctx context.Context, key string) ([]time.Time, error)

	// Increment records one event for key at t.
	Increment(ctx context.Context, key string, t time.Time) error

	// Prune drops every timestamp for key strictly before cutoff.
	Prune(ctx context.Context, key string, cutoff time.Time) error
}
