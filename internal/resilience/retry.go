package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy is used for single-request retries (distinct from
// ReconnectPolicy, which governs re-establishing a dropped streaming
// connection).
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	Jitter         float64 // fraction of backoff, e.g. 0.2 = +/-20%
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialBackoff: 250 * time.Millisecond, MaxBackoff: 5 * time.Second, Multiplier: 2.0, Jitter: 0.2}
}

// Retry runs fn, retrying on error up to MaxAttempts with jittered
// exponential backoff, unless isRetryable returns false for the error.
func Retry(ctx context.Context, policy RetryPolicy, isRetryable func(error) bool, fn func() error) error {
	backoff := policy.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if isRetryable != nil && !isRetryable(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxAttempts {
			break
		}

		sleep := jittered(backoff, policy.Jitter)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}

		backoff = time.Duration(float64(backoff) * policy.Multiplier)
		if backoff > policy.MaxBackoff {
			backoff = policy.MaxBackoff
		}
	}
	return lastErr
}

func jittered(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	delta := float64(d) * frac
	return d + time.Duration(delta*(2*rand.Float64()-1))
}
