package orchestrator

import (
	"context"
	"time"

	"github.com/lokutor-ai/callgateway/internal/resilience"
)

// Supervisor is the IntegrationSupervisor (C10): it owns ServiceHealth for
// each external dependency and applies the shared reconnect/circuit-breaker
// policy when a streaming link (STT today, TTS's persistent link tomorrow)
// drops.
type Supervisor struct {
	logger Logger

	health   map[ServiceName]*ServiceHealth
	breakers map[ServiceName]*resilience.CircuitBreaker
	policy   resilience.ReconnectPolicy
}

func NewSupervisor(logger Logger) *Supervisor {
	return NewSupervisorWithPolicy(logger, resilience.DefaultReconnectPolicy())
}

// NewSupervisorWithPolicy builds a Supervisor with a caller-supplied
// reconnect policy, letting tests use a fast backoff schedule instead of
// the production default.
func NewSupervisorWithPolicy(logger Logger, policy resilience.ReconnectPolicy) *Supervisor {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	s := &Supervisor{
		logger:   logger,
		health:   make(map[ServiceName]*ServiceHealth),
		breakers: make(map[ServiceName]*resilience.CircuitBreaker),
		policy:   policy,
	}
	for _, name := range []ServiceName{ServiceSTT, ServiceTTS} {
		s.health[name] = NewServiceHealth()
		s.breakers[name] = resilience.NewCircuitBreaker(string(name), 5, 30*time.Second)
	}
	return s
}

func (s *Supervisor) Health(name ServiceName) *ServiceHealth {
	return s.health[name]
}

// Reconnect drives connect, applying the circuit breaker and reconnect
// backoff policy, updating the service's recorded health at every step.
func (s *Supervisor) Reconnect(ctx context.Context, name ServiceName, connect func(context.Context) error) error {
	h := s.health[name]
	breaker := s.breakers[name]

	h.setStatus(StatusReconnecting)
	err := resilience.Reconnect(ctx, s.policy, func() error {
		h.recordReconnectAttempt()
		cbErr := breaker.Call(func() error { return connect(ctx) })
		if cbErr != nil {
			h.recordError(cbErr)
			s.logger.Warn("reconnect attempt failed", "service", string(name), "error", cbErr)
		}
		return cbErr
	})

	if err != nil {
		h.setStatus(StatusFailed)
		return NewKindedError(ErrFatal, err)
	}
	h.setStatus(StatusConnected)
	h.recordReconnectSuccess()
	return nil
}
