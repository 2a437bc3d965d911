package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Verdicts by result (verified/failed) and strategy
	Verdicts *prometheus.CounterVec

	// Pair comparisons by method and outcome
	Comparisons *prometheus.CounterVec

	// Samples that could not be extracted, by reason
	MissingSamples *prometheus.CounterVec

	// Wall time of one registration including the color-cast probe
	RegistrationDuration prometheus.Histogram
}

// New creates a Metrics instance registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "face_consistency_verdicts_total",
			Help: "Registration verdicts by result and preprocessing strategy",
		}, []string{"result", "strategy"}),

		Comparisons: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "face_consistency_comparisons_total",
			Help: "Pair comparisons by method and outcome",
		}, []string{"method", "verified"}),

		MissingSamples: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "face_consistency_missing_samples_total",
			Help: "Face samples that could not be extracted, by reason",
		}, []string{"reason"}),

		RegistrationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "face_consistency_registration_duration_seconds",
			Help:    "Duration of a full registration verification",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// IncrementVerdict records a registration verdict.
func (m *Metrics) IncrementVerdict(allVerified bool, strategy string) {
	if m == nil {
		return
	}
	result := "failed"
	if allVerified {
		result = "verified"
	}
	m.Verdicts.WithLabelValues(result, strategy).Inc()
}

// IncrementComparison records one pair comparison.
func (m *Metrics) IncrementComparison(method string, verified bool) {
	if m != nil {
		m.Comparisons.WithLabelValues(method, strconv.FormatBool(verified)).Inc()
	}
}

// IncrementMissing records a sample that could not be extracted.
func (m *Metrics) IncrementMissing(reason string) {
	if m != nil {
		m.MissingSamples.WithLabelValues(reason).Inc()
	}
}

// ObserveRegistration records the duration of one registration.
func (m *Metrics) ObserveRegistration(d time.Duration) {
	if m != nil {
		m.RegistrationDuration.Observe(d.Seconds())
	}
}
