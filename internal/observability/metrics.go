package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "seisreport"

// Metrics holds the Prometheus counters and histograms for a report run.
type Metrics struct {
	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeAPIDuration prometheus.Histogram

	// Design maps metrics.
	DesignMapsRequests    *prometheus.CounterVec // labels: outcome={success,error}
	DesignMapsAPIDuration prometheus.Histogram

	PromptRejections *prometheus.CounterVec // labels: field={address,risk_category,site_class}
	ReportsWritten   prometheus.Counter
	SpectrumPoints   prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates all metrics and registers them with a private registry
// that can later be exported with WriteTextfile.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(
		m.GeocodeRequests,
		m.GeocodeAPIDuration,
		m.DesignMapsRequests,
		m.DesignMapsAPIDuration,
		m.PromptRejections,
		m.ReportsWritten,
		m.SpectrumPoints,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

// Registry exposes the registry backing NewMetrics, or nil for test metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile exports all registered metrics in the node-exporter textfile
// collector format. It is a no-op for unregistered metrics.
func (m *Metrics) WriteTextfile(path string) error {
	if m.registry == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      help("Geocoding API requests by outcome."),
		}, []string{"outcome"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      help("MapQuest API request duration in seconds."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		DesignMapsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "designmaps_requests_total",
			Help:      help("USGS design maps requests by outcome."),
		}, []string{"outcome"}),
		DesignMapsAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "designmaps_api_duration_seconds",
			Help:      help("USGS design maps request duration in seconds."),
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		PromptRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prompt_rejections_total",
			Help:      help("Rejected interactive inputs by field."),
		}, []string{"field"}),
		ReportsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_written_total",
			Help:      help("Workbooks saved to disk."),
		}),
		SpectrumPoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "spectrum_points",
			Help:      help("Number of period/acceleration points per response spectrum."),
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500},
		}),
	}
}
