package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tiermask/pkg/domain"
)

const unknownLabel = "unknown"

// Metrics provides observability for the masking service.
type Metrics struct {
	// Masked values by data type and tier
	Masked *prometheus.CounterVec

	// Policy lookups that fell back to the most restrictive output, by reason
	PolicyFallbacks *prometheus.CounterVec

	// Values that did not parse as their declared data type
	Malformed *prometheus.CounterVec

	// Values returned unmodified to an admin viewer
	FullReveals *prometheus.CounterVec
}

// New registers the masking metrics with reg, or with the default registry
// when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Masked: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tiermask_masked_total",
			Help: "Total values masked by data type and viewer tier",
		}, []string{"data_type", "tier"}),

		PolicyFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tiermask_policy_fallbacks_total",
			Help: "Total lookups that fell back to the most restrictive output",
		}, []string{"reason"}), // reason: "unknown_tier", "unknown_data_type", "override_mismatch"

		Malformed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tiermask_malformed_total",
			Help: "Total values that did not parse as their data type",
		}, []string{"data_type"}),

		FullReveals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tiermask_full_reveals_total",
			Help: "Total values returned unmasked",
		}, []string{"data_type"}),
	}
}

// IncrementMasked records one masked value. Unknown label values collapse
// to "unknown" so caller input cannot grow the series count.
func (m *Metrics) IncrementMasked(dt domain.DataType, tier domain.ViewerTier) {
	if m != nil {
		m.Masked.WithLabelValues(dataTypeLabel(dt), tierLabel(tier)).Inc()
	}
}

// IncrementFallback records a fallback to the most restrictive output.
func (m *Metrics) IncrementFallback(reason string) {
	if m != nil {
		m.PolicyFallbacks.WithLabelValues(reason).Inc()
	}
}

// IncrementMalformed records a value that failed to parse.
func (m *Metrics) IncrementMalformed(dt domain.DataType) {
	if m != nil {
		m.Malformed.WithLabelValues(dataTypeLabel(dt)).Inc()
	}
}

// IncrementFullReveal records an unmasked value.
func (m *Metrics) IncrementFullReveal(dt domain.DataType) {
	if m != nil {
		m.FullReveals.WithLabelValues(dataTypeLabel(dt)).Inc()
	}
}

func dataTypeLabel(dt domain.DataType) string {
	if dt.IsValid() {
		return string(dt)
	}
	return unknownLabel
}

func tierLabel(t domain.ViewerTier) string {
	if t.IsValid() {
		return string(t)
	}
	return unknownLabel
}
