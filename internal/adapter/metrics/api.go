package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// APIMetrics implements api.Metrics.
type APIMetrics struct {
	RequestDuration    *prometheus.HistogramVec
	BreakerState       prometheus.Gauge
	BreakerTransitions *prometheus.CounterVec
}

// NewAPIMetrics creates and registers outbound API metrics on the given registry.
func NewAPIMetrics(reg prometheus.Registerer) *APIMetrics {
	m := &APIMetrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Duration of requests to the remote API in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "code"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "history_breaker_state",
			Help:      "History circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
		BreakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "history_breaker_transitions_total",
			Help:      "Total number of history circuit breaker state changes, by new state.",
		}, []string{"state"}),
	}

	reg.MustRegister(m.RequestDuration, m.BreakerState, m.BreakerTransitions)
	return m
}

func (m *APIMetrics) RequestCompleted(endpoint, code string, elapsed time.Duration) {
	m.RequestDuration.WithLabelValues(endpoint, code).Observe(elapsed.Seconds())
}

func (m *APIMetrics) BreakerStateChanged(state string) {
	m.BreakerTransitions.WithLabelValues(state).Inc()
	m.BreakerState.Set(breakerStateValue(state))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "closed":
		return 0
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return -1
	}
}
