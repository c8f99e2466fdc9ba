package metrics

import "github.com/prometheus/client_golang/prometheus"

// JobMetrics implements reconciler.Metrics.
type JobMetrics struct {
	Fetches   *prometheus.CounterVec
	Submits   *prometheus.CounterVec
	PollTicks prometheus.Counter
	Pending   prometheus.Gauge
}

// NewJobMetrics creates and registers job reconciliation metrics on the given registry.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	m := &JobMetrics{
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "fetches_total",
			Help:      "Total number of history fetches, by outcome.",
		}, []string{"outcome"}),
		Submits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "submits_total",
			Help:      "Total number of document uploads, by outcome.",
		}, []string{"outcome"}),
		PollTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "poll_ticks_total",
			Help:      "Total number of polling timer ticks.",
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "pending",
			Help:      "Number of jobs currently PENDING in the local collection.",
		}),
	}

	reg.MustRegister(m.Fetches, m.Submits, m.PollTicks, m.Pending)
	return m
}

func (m *JobMetrics) FetchCompleted(outcome string) {
	m.Fetches.WithLabelValues(outcome).Inc()
}

func (m *JobMetrics) SubmitCompleted(outcome string) {
	m.Submits.WithLabelValues(outcome).Inc()
}

func (m *JobMetrics) PollTick() {
	m.PollTicks.Inc()
}

func (m *JobMetrics) PendingJobs(n int) {
	m.Pending.Set(float64(n))
}
