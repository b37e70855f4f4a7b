package resilience

import (
	"context"
	"fmt"
	"time"
)

// ReconnectPolicy describes an exponential backoff schedule with a cap on
// attempts, matching spec's "reconnect with exponential backoff (base 1s,
// cap 3 attempts for STT)".
type ReconnectPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	Multiplier  float64
	MaxBackoff  time.Duration
}

func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{MaxAttempts: 3, BaseBackoff: time.Second, Multiplier: 2.0, MaxBackoff: 30 * time.Second}
}

// Reconnect invokes fn until it succeeds, ctx is cancelled, or MaxAttempts
// is exhausted, sleeping an exponentially growing backoff between tries.
func Reconnect(ctx context.Context, policy ReconnectPolicy, fn func() error) error {
	backoff := policy.BaseBackoff
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * policy.Multiplier)
		if backoff > policy.MaxBackoff {
			backoff = policy.MaxBackoff
		}
	}

	return fmt.Errorf("reconnect exhausted after %d attempts: %w", policy.MaxAttempts, lastErr)
}
