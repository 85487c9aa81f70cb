package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Row outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// ImportMetrics captures roster import health. A nil *ImportMetrics is a
// valid no-op.
type ImportMetrics struct {
	rows          *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	duration      prometheus.Histogram
	notifications *prometheus.CounterVec
}

// NewImportMetrics registers the import collectors with registerer, or the
// default registerer when nil.
func NewImportMetrics(registerer prometheus.Registerer) *ImportMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_import_rows_total",
		Help: "Roster rows processed by outcome.",
	}, []string{"outcome"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_import_rejected_total",
		Help: "Whole uploads refused before any row was processed.",
	}, []string{"reason"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "roster_import_duration_seconds",
		Help:    "Wall time of one roster import.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_notifications_total",
		Help: "Invitation and reset messages by delivery result.",
	}, []string{"kind", "result"})

	registerer.MustRegister(rows, rejected, duration, notifications)

	return &ImportMetrics{
		rows:          rows,
		rejected:      rejected,
		duration:      duration,
		notifications: notifications,
	}
}

func (m *ImportMetrics) IncRow(outcome string) {
	if m == nil {
		return
	}
	m.rows.WithLabelValues(outcome).Inc()
}

func (m *ImportMetrics) IncRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *ImportMetrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

func (m *ImportMetrics) IncNotification(kind string, err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.notifications.WithLabelValues(kind, result).Inc()
}
