package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
	"github.com/custodia-labs/distill/internal/logger"
)

// Default policy values.
const (
	DefaultTimeout     = 8 * time.Second
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 250 * time.Millisecond
	DefaultMaxDelay    = 4 * time.Second
)

// Policy bounds a guarded call.
type Policy struct {
	// Timeout is the per-attempt budget.
	Timeout time.Duration

	// MaxAttempts caps the number of invocations, including the first.
	MaxAttempts int

	// BaseDelay is the backoff before the second attempt; it doubles per attempt.
	BaseDelay time.Duration

	// MaxDelay caps a single backoff.
	MaxDelay time.Duration
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:     DefaultTimeout,
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	return p
}

// backoff returns the delay after the given failed attempt (1-based).
func (p Policy) backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return d
}

// Retry invokes fn until it succeeds, fails terminally, or the attempt cap
// is reached. Parent cancellation stops retrying immediately.
func Retry[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	p = p.withDefaults()

	for attempt := 1; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return zero, err
		}
		if !IsTransient(err) {
			logger.Debug("%s terminal failure: %s", op, logger.KV("attempt", attempt, "err", err))
			return zero, err
		}
		if attempt >= p.MaxAttempts {
			logger.Warn("%s gave up: %s", op, logger.KV("attempts", attempt, "err", err))
			return zero, err
		}

		delay := p.backoff(attempt)
		logger.Debug("%s transient failure, retrying: %s", op, logger.KV("attempt", attempt, "delay", delay, "err", err))
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsTransient classifies an error as worth retrying: HTTP 5xx, 429,
// network failures and attempt timeouts. Everything else, including other
// 4xx statuses, parse failures and caller cancellation, is terminal.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var de *domain.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case domain.KindUpstreamTimeout, domain.KindRateLimited:
			return true
		case domain.KindUpstreamError:
			return de.UpstreamStatus == 0 || de.UpstreamStatus >= 500
		default:
			return false
		}
	}

	var se *driven.StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}

	if domain.IsParseError(err) {
		return false
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Call runs fn under p's per-attempt timeout and retry policy and maps any
// escaping failure onto the domain taxonomy.
func Call[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	v, err := Retry(ctx, p, op, func(ctx context.Context) (T, error) {
		return WithTimeout(ctx, p.Timeout, op, fn)
	})
	if err != nil {
		return v, MapError(err, op)
	}
	return v, nil
}
