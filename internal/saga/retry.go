package saga

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/imrishuroy/go-order-saga/internal/apperr"
)

// Retry defaults.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 200 * time.Millisecond
	DefaultMaxDelay    = 2 * time.Second

	// MaxRetryAttempts bounds configured attempt counts.
	MaxRetryAttempts = 20
)

// RetryPolicy re-runs a stage while its error is retryable. Delays double per
// attempt from BaseDelay, are capped at MaxDelay and then jittered.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      func(time.Duration) time.Duration
	Sleep       func(context.Context, time.Duration) error
	ShouldRetry func(error) bool
}

// DefaultRetryPolicy retries storage faults up to DefaultMaxAttempts times.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// Do calls fn until it succeeds, returns a non-retryable error, or the attempts
// run out. It returns the number of attempts made along with the last error.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) (int, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = apperr.Retryable
	}
	jitter := p.Jitter
	if jitter == nil {
		jitter = defaultJitter
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}
		err := fn()
		if err == nil {
			return attempt, nil
		}
		if attempt == attempts || !shouldRetry(err) {
			return attempt, err
		}

		if delay := jitter(p.backoff(attempt)); delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				return attempt, err
			}
		}
	}
	return attempts, nil
}

// backoff is the delay after the given failed attempt: BaseDelay doubled once per
// earlier attempt, saturating at MaxDelay (or the largest Duration when unset).
func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	if delay <= 0 {
		return 0
	}
	limit := p.MaxDelay
	if limit <= 0 {
		limit = time.Duration(math.MaxInt64)
	}
	for i := 1; i < attempt && delay < limit; i++ {
		if delay > limit/2 {
			return limit
		}
		delay *= 2
	}
	return min(delay, limit)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// defaultJitter picks a delay in [d/2, d].
func defaultJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + rand.N(half+1)
}
