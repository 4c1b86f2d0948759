package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/distill/internal/core/domain"
)

// WithTimeout races op against a timer. On expiry the op's context is
// cancelled and a labeled upstream_timeout error is returned. The op runs
// under a context derived from ctx, so parent cancellation always
// propagates into it; in that case the parent's error is returned.
// A non-positive timeout runs op directly.
func WithTimeout[T any](
	ctx context.Context, timeout time.Duration, label string, op func(context.Context) (T, error),
) (T, error) {
	var zero T
	if timeout <= 0 {
		return op(ctx)
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := op(opCtx)
		done <- result{value: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.value, r.err
	case <-timer.C:
		cancel()
		return zero, &domain.Error{
			Kind:    domain.KindUpstreamTimeout,
			Op:      label,
			Message: fmt.Sprintf("%s timed out after %s", label, timeout),
			Err:     context.DeadlineExceeded,
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
