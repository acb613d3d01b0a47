package sink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit sink. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Enqueued        prometheus.Counter
	Dropped         prometheus.Counter
	Persisted       prometheus.Counter
	PersistFailures prometheus.Counter
	QueueDepth      prometheus.Gauge
	CircuitState    prometheus.Gauge
	PersistDuration prometheus.Histogram
}

// NewMetrics registers the audit sink metrics with reg, or with the default
// registry when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Enqueued: f.NewCounter(prometheus.CounterOpts{
			Name: "tiermask_audit_enqueued_total",
			Help: "Total number of audit records accepted by the sink",
		}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "tiermask_audit_dropped_total",
			Help: "Total number of audit records lost to queue overflow or shutdown",
		}),
		Persisted: f.NewCounter(prometheus.CounterOpts{
			Name: "tiermask_audit_persisted_total",
			Help: "Total number of audit records written to the store",
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "tiermask_audit_persist_failures_total",
			Help: "Total number of failed audit batch writes",
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "tiermask_audit_queue_depth",
			Help: "Audit records waiting to be persisted",
		}),
		CircuitState: f.NewGauge(prometheus.GaugeOpts{
			Name: "tiermask_audit_circuit_breaker_state",
			Help: "Audit store circuit breaker state (0=closed/healthy, 1=open/unhealthy)",
		}),
		PersistDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tiermask_audit_persist_duration_seconds",
			Help:    "Time spent writing one audit batch",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncEnqueued() {
	if m == nil {
		return
	}
	m.Enqueued.Inc()
}

func (m *Metrics) AddDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Dropped.Add(float64(n))
}

func (m *Metrics) AddPersisted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Persisted.Add(float64(n))
}

func (m *Metrics) IncPersistFailures() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

// SetCircuitState sets the circuit breaker state gauge.
func (m *Metrics) SetCircuitState(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitState.Set(1)
	} else {
		m.CircuitState.Set(0)
	}
}

func (m *Metrics) ObservePersistDuration(seconds float64) {
	if m == nil {
		return
	}
	m.PersistDuration.Observe(seconds)
}
