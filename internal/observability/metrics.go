package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_active_calls",
		Help: "Number of in-progress call sessions.",
	})

	CallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_calls_total",
		Help: "Total call sessions started.",
	})

	CallDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_call_duration_seconds",
		Help:    "Call session duration.",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
	})

	TurnLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_turn_latency_seconds",
		Help:    "End-to-end latency of one user-utterance-to-first-tts-chunk turn.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	ServiceRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_service_requests_total",
		Help: "Requests to external STT/LLM/TTS services.",
	}, []string{"service", "status"})

	ToolInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_tool_invocations_total",
		Help: "Tool invocations by name and result status.",
	}, []string{"tool", "status"})

	BargeInSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_barge_in_suppressed_total",
		Help: "Transcript events discarded because the agent was speaking.",
	})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gateway_circuit_breaker_state",
		Help: "0=closed 1=open 2=half-open.",
	}, []string{"service"})

	ReconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_reconnects_total",
		Help: "Successful reconnects per service.",
	}, []string{"service"})
)
