package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the dashboard queries.
// Tracks per-operation latency and store failures.
type Metrics struct {
	QueryDuration *prometheus.HistogramVec
	QueryFailures *prometheus.CounterVec
	RecordsServed prometheus.Counter
}

// New creates a Metrics instance registered on reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		QueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "compliance_query_duration_seconds",
			Help:    "Duration of dashboard query operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
		QueryFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_query_failures_total",
			Help: "Total number of dashboard queries that failed in the store",
		}, []string{"operation"}),
		RecordsServed: f.NewCounter(prometheus.CounterOpts{
			Name: "compliance_records_served_total",
			Help: "Total number of records returned by listing queries",
		}),
	}
}

// ObserveQuery records the duration and outcome of an operation.
// Call with time.Now() taken at the start of the operation. Safe on a nil receiver.
func (m *Metrics) ObserveQuery(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		m.QueryFailures.WithLabelValues(operation).Inc()
	}
}

// AddRecordsServed counts records returned to a client. Safe on a nil receiver.
func (m *Metrics) AddRecordsServed(n int) {
	if m == nil {
		return
	}
	m.RecordsServed.Add(float64(n))
}
