// Package resilience implements the reconnect/backoff/circuit-breaker
// policies the IntegrationSupervisor (C10) applies to the STT and TTS
// links.
package resilience

import (
	"fmt"
	"sync"
	"time"
)

// BreakerState mirrors the classic three-state circuit breaker.
type BreakerState int

const (
	Closed BreakerState = iota
	Open
	HalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// CircuitBreaker trips after MaxFailures consecutive failures and refuses
// calls until ResetTimeout has elapsed, then allows one probe call through
// (half-open) before fully closing again.
type CircuitBreaker struct {
	Name         string
	MaxFailures  int
	ResetTimeout time.Duration

	mu           sync.Mutex
	state        BreakerState
	failureCount int
	lastFailure  time.Time
}

func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{Name: name, MaxFailures: maxFailures, ResetTimeout: resetTimeout}
}

// Call runs fn if the breaker permits it, recording the outcome.
func (b *CircuitBreaker) Call(fn func() error) error {
	if !b.allow() {
		return fmt.Errorf("circuit breaker %q open", b.Name)
	}
	err := fn()
	b.record(err == nil)
	return err
}

func (b *CircuitBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if time.Since(b.lastFailure) >= b.ResetTimeout {
			b.state = HalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

func (b *CircuitBreaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.state = Closed
		b.failureCount = 0
		return
	}

	b.failureCount++
	b.lastFailure = time.Now()
	if b.state == HalfOpen || b.failureCount >= b.MaxFailures {
		b.state = Open
	}
}

func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
