// Package metrics provides Prometheus metrics collection for cloudbill.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for cloudbill.
type Collector struct {
	// Report metrics
	ReportsTotal     *prometheus.CounterVec
	ReportDuration   *prometheus.HistogramVec
	ReportErrors     *prometheus.CounterVec
	ReportsInFlight  prometheus.Gauge

	// Price schedule metrics
	PricePeriods prometheus.Histogram

	// Store metrics
	IntervalsIngested prometheus.Counter
}

// New creates a new metrics collector with all metrics registered.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		ReportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cloudbill",
				Name:      "reports_total",
				Help:      "Total number of reports computed",
			},
			[]string{"kind", "level"},
		),
		ReportDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cloudbill",
				Name:      "report_duration_seconds",
				Help:      "Report computation duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"kind", "level"},
		),
		ReportErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cloudbill",
				Name:      "report_errors_total",
				Help:      "Total number of failed report computations",
			},
			[]string{"kind", "reason"},
		),
		ReportsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "cloudbill",
				Name:      "reports_in_flight",
				Help:      "Number of reports currently being computed",
			},
		),
		PricePeriods: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "cloudbill",
				Name:      "price_periods_per_report",
				Help:      "Number of price periods a cost report was split into",
				Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 55},
			},
		),
		IntervalsIngested: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cloudbill",
				Name:      "intervals_ingested_total",
				Help:      "Total number of server-state intervals recorded",
			},
		),
	}
}
