// Package retry resubmits failing tasks to a ThreadPool with exponential backoff.
//
// The pool itself never retries; this package layers retry on top of
// poolparty.Submit for callers that want it.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	poolparty "github.com/Swind/go-pool-party"
	"github.com/Swind/go-pool-party/core"
)

// Policy defines retry behavior for a submitted task.
type Policy struct {
	// MaxRetries is the maximum number of retry attempts (0 = no retry, 1 = one retry)
	MaxRetries int

	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration

	// BackoffRatio is the multiplier for delay after each retry (e.g., 2.0 for exponential)
	// For example, with InitialDelay=100ms and BackoffRatio=2.0:
	// - Retry 1 delay: 100ms
	// - Retry 2 delay: 200ms
	// - Retry 3 delay: 400ms (capped by MaxDelay)
	BackoffRatio float64

	// MaxElapsed bounds the total time spent retrying. Zero means no bound.
	MaxElapsed time.Duration

	// OnRetry, when set, is called before each retry with the 1-based retry
	// number, the error of the failed attempt and the delay before the retry.
	OnRetry func(retry int, err error, delay time.Duration)
}

// DefaultPolicy returns a sensible default retry policy
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		BackoffRatio: 2.0,
	}
}

// NoRetry returns a retry policy with no retries
func NoRetry() Policy {
	return Policy{
		MaxRetries:   0,
		BackoffRatio: 1.0,
	}
}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = max(p.InitialDelay, 0)
	b.RandomizationFactor = 0
	b.Multiplier = max(p.BackoffRatio, 1.0)
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	b.Reset()
	return b
}

// Submit runs fn on pool and waits for its result, resubmitting it after each
// failed attempt according to policy. Each attempt is a fresh task on the pool.
//
// Rejections (ErrPoolClosed, ErrNilTask) and task panics are not retried.
// The error of the last attempt is returned when retries run out, and the
// context error is returned when ctx is done first.
//
// Submit blocks; calling it from a task on a single-worker pool deadlocks.
func Submit[T any](ctx context.Context, pool *poolparty.ThreadPool, fn func() (T, error), policy Policy) (T, error) {
	retries := 0
	opts := []backoff.RetryOption{
		backoff.WithBackOff(policy.backOff()),
		backoff.WithMaxTries(uint(max(policy.MaxRetries, 0)) + 1),
		backoff.WithMaxElapsedTime(policy.MaxElapsed),
		backoff.WithNotify(func(err error, delay time.Duration) {
			retries++
			if policy.OnRetry != nil {
				policy.OnRetry(retries, err, delay)
			}
		}),
	}

	return backoff.Retry[T](ctx, func() (T, error) {
		return attempt(ctx, pool, fn)
	}, opts...)
}

func attempt[T any](ctx context.Context, pool *poolparty.ThreadPool, fn func() (T, error)) (T, error) {
	var zero T

	future, err := poolparty.Submit(pool, fn)
	if err != nil {
		return zero, backoff.Permanent(err)
	}

	value, err := future.GetContext(ctx)
	if err == nil {
		return value, nil
	}

	var execErr *core.TaskExecutionError
	if errors.As(err, &execErr) && execErr.Panicked() {
		return zero, backoff.Permanent(err)
	}
	if ctx.Err() != nil {
		return zero, backoff.Permanent(err)
	}
	return zero, err
}
