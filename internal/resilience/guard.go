package resilience

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// DefaultCallTimeout bounds a single external call attempt.
const DefaultCallTimeout = 30 * time.Second

// Guard applies the per-call policy for every search and model call: a
// circuit breaker per service, retries on transient errors, and a deadline
// on each attempt. A nil Guard still applies DefaultCallTimeout.
type Guard struct {
	Timeout  time.Duration
	Retry    RetryConfig
	Breakers *ServiceBreakers
}

// NewGuard builds a Guard from plain config values.
func NewGuard(timeout time.Duration, retry RetryConfig, breaker CircuitBreakerConfig) *Guard {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Guard{
		Timeout:  timeout,
		Retry:    retry,
		Breakers: NewServiceBreakers(breaker),
	}
}

// Call runs fn for service under g's policy.
func Call[T any](ctx context.Context, g *Guard, service, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	timeout := DefaultCallTimeout
	retry := RetryConfig{MaxAttempts: 1}
	var cb *CircuitBreaker
	if g != nil {
		if g.Timeout > 0 {
			timeout = g.Timeout
		}
		retry = g.Retry
		if g.Breakers != nil {
			cb = g.Breakers.Get(service)
		}
	}
	if retry.OnRetry == nil {
		retry.OnRetry = RetryLogger(service, operation)
	}
	// An open breaker will not close within this call.
	if retry.ShouldRetry == nil {
		retry.ShouldRetry = func(err error) bool {
			return !eris.Is(err, ErrCircuitOpen) && IsTransient(err)
		}
	}

	attempt := func(ctx context.Context) (T, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if cb == nil {
			return fn(ctx)
		}
		return ExecuteVal(ctx, cb, fn)
	}

	val, err := DoVal(ctx, retry, attempt)
	if err != nil {
		var zero T
		return zero, eris.Wrapf(err, "%s: %s", service, operation)
	}
	return val, nil
}
