// Package observability holds the Prometheus instrumentation for the plotting
// service and figure export pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the service.
type Metrics struct {
	Operations        *prometheus.CounterVec   // labels: operation, status={ok,error}
	OperationDuration *prometheus.HistogramVec // labels: operation

	HierarchySites   prometheus.Gauge
	HierarchySamples prometheus.Gauge

	FigureExports *prometheus.CounterVec // labels: status={succeeded,failed}
	StyleLookups  *prometheus.CounterVec // labels: result={ok,not_found}
}

func newMetrics() *Metrics {
	return &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldplot",
			Name:      "operations_total",
			Help:      "Service operations by name and outcome.",
		}, []string{"operation", "status"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fieldplot",
			Name:      "operation_duration_seconds",
			Help:      "Service operation duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
		HierarchySites: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fieldplot",
			Name:      "hierarchy_sites",
			Help:      "Number of sites in the loaded hierarchy.",
		}),
		HierarchySamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fieldplot",
			Name:      "hierarchy_samples",
			Help:      "Number of samples in the loaded hierarchy.",
		}),
		FigureExports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldplot",
			Name:      "figure_exports_total",
			Help:      "Completed figure exports by final status.",
		}, []string{"status"}),
		StyleLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldplot",
			Name:      "style_lookups_total",
			Help:      "Style lookups by result.",
		}, []string{"result"}),
	}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Operations,
		m.OperationDuration,
		m.HierarchySites,
		m.HierarchySamples,
		m.FigureExports,
		m.StyleLookups,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// ObserveOperation records one service operation outcome with its duration.
func (m *Metrics) ObserveOperation(operation, status string, seconds float64) {
	m.Operations.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// SetHierarchySize updates the hierarchy gauges after an import or replace.
func (m *Metrics) SetHierarchySize(sites, samples int) {
	m.HierarchySites.Set(float64(sites))
	m.HierarchySamples.Set(float64(samples))
}

// ObserveStyleLookup counts one style lookup by result.
func (m *Metrics) ObserveStyleLookup(result string) {
	m.StyleLookups.WithLabelValues(result).Inc()
}

// ObserveExport counts one finished figure export.
func (m *Metrics) ObserveExport(status string) {
	m.FigureExports.WithLabelValues(status).Inc()
}
