package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

// WithTimeout runs fn on its own goroutine and stops waiting after timeout.
// fn receives a context that is cancelled at the deadline, but work that
// ignores it keeps running in the background; the caller only gets
// ErrTimeout back. A non-positive timeout calls fn directly.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		val, err := fn(timeoutCtx)
		done <- outcome{val, err}
	}()

	select {
	case out := <-done:
		return out.val, out.err
	case <-timeoutCtx.Done():
		var zero T
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
		}
		return zero, fmt.Errorf("%s after %v: %w", name, timeout, apperrors.ErrTimeout)
	}
}
