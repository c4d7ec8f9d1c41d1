package shared

import (
	"context"
)

// RetryPolicy bounds a [Retry] loop.
//
// ShouldRetry decides whether a failed attempt may be repeated. BeforeRetry runs between attempts and
// aborts the loop when it fails (e.g. a forced credential refresh).
type RetryPolicy struct {
	MaxAttempts int
	ShouldRetry func(err error) bool
	BeforeRetry func(ctx context.Context, attempt int, err error) error
}

// Retry invokes call until it succeeds, the policy rejects the error, or MaxAttempts is reached.
// The last error is returned unchanged. MaxAttempts below one is treated as one.
func Retry[T any](ctx context.Context, p RetryPolicy, call func(ctx context.Context) (T, error)) (T, error) {
	attempts := max(p.MaxAttempts, 1)

	var (
		res T
		err error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err = call(ctx)
		if err == nil {
			return res, nil
		}
		if attempt == attempts || p.ShouldRetry == nil || !p.ShouldRetry(err) {
			return res, err
		}
		if p.BeforeRetry != nil {
			if hookErr := p.BeforeRetry(ctx, attempt, err); hookErr != nil {
				var zero T
				return zero, hookErr
			}
		}
	}
	return res, err
}
