package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// DependencyCheck probes one external dependency with a bounded timeout.
type DependencyCheck func(ctx context.Context) (bool, error)

type dependencyStatus struct {
	Healthy   bool   `json:"healthy"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type readinessReport struct {
	Ready        bool                         `json:"ready"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

// LivenessHandler reports process liveness unconditionally.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"alive"}`))
	}
}

// ReadinessHandler aggregates dependency checks, each bounded to 2s, and
// returns 503 if any dependency is unhealthy.
func ReadinessHandler(checks map[string]DependencyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := readinessReport{Ready: true, Dependencies: map[string]dependencyStatus{}}

		for name, check := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			start := time.Now()
			ok, err := check(ctx)
			cancel()

			status := dependencyStatus{Healthy: ok, LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				status.Error = err.Error()
			}
			report.Dependencies[name] = status
			if !ok {
				report.Ready = false
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if !report.Ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	}
}
