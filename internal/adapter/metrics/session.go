package metrics

import "github.com/prometheus/client_golang/prometheus"

// SessionMetrics implements session.Metrics.
type SessionMetrics struct {
	AuthAttempts  *prometheus.CounterVec
	Invalidations prometheus.Counter
}

// NewSessionMetrics creates and registers session metrics on the given registry.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	m := &SessionMetrics{
		AuthAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "auth_attempts_total",
			Help:      "Total number of authentication attempts, by outcome.",
		}, []string{"outcome"}),
		Invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "invalidations_total",
			Help:      "Total number of sessions cleared because the server rejected the credential.",
		}),
	}

	reg.MustRegister(m.AuthAttempts, m.Invalidations)
	return m
}

func (m *SessionMetrics) AuthAttempt(outcome string) {
	m.AuthAttempts.WithLabelValues(outcome).Inc()
}

func (m *SessionMetrics) SessionInvalidated() {
	m.Invalidations.Inc()
}
