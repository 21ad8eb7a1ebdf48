package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the record save orchestrator.
type Metrics struct {
	// Save outcomes by path and result
	SaveOutcome *prometheus.CounterVec

	// Latency of remote save round trips by path
	SaveLatency *prometheus.HistogramVec

	// Placeholder documents synthesized on the creation path
	PlaceholderDocuments prometheus.Counter
}

// New creates a new Metrics instance with all record module metrics registered.
func New() *Metrics {
	return &Metrics{
		SaveOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caseform_record_saves_total",
			Help: "Total save attempts by path and outcome",
		}, []string{"path", "outcome"}), // path: "create", "general", "action"

		SaveLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caseform_record_save_duration_seconds",
			Help:    "Duration of remote save round trips by path",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"path"}),

		PlaceholderDocuments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseform_record_placeholder_documents_total",
			Help: "Placeholder documents synthesized because a new case had none",
		}),
	}
}

// ObserveSave records one save attempt with its latency.
func (m *Metrics) ObserveSave(path, outcome string, d time.Duration) {
	if m != nil {
		m.SaveOutcome.WithLabelValues(path, outcome).Inc()
		m.SaveLatency.WithLabelValues(path).Observe(d.Seconds())
	}
}

// IncrementPlaceholderDocuments counts one synthesized placeholder document.
func (m *Metrics) IncrementPlaceholderDocuments() {
	if m != nil {
		m.PlaceholderDocuments.Inc()
	}
}
