package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "avalanche_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL run.
type Metrics struct {
	Runs                *prometheus.CounterVec // labels: outcome={success,transport_error,normalize_error,publish_error}
	ForecastsFetched    prometheus.Counter
	ForecastsSkipped    prometheus.Counter
	NormalizeErrors     *prometheus.CounterVec // labels: kind
	ForecastsPublished  prometheus.Counter
	SizeFallbacks       prometheus.Counter
	PublishStatusCode   prometheus.Gauge
	RunDuration         prometheus.Histogram
	LastSuccessUnixTime prometheus.Gauge
	PipelineRunning     prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed runs by outcome.",
		}, []string{"outcome"}),
		ForecastsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_fetched_total",
			Help:      "Forecast documents fetched and parsed from the upstream API.",
		}),
		ForecastsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_skipped_total",
			Help:      "Upstream responses skipped because the body did not parse.",
		}),
		NormalizeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalize_errors_total",
			Help:      "Forecasts that failed normalization, by error kind.",
		}, []string{"kind"}),
		ForecastsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_published_total",
			Help:      "Canonical forecasts sent to the downstream endpoint.",
		}),
		SizeFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "size_fallback_total",
			Help:      "Unrecognized size codes mapped to the smallest size range.",
		}),
		PublishStatusCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "publish_status_code",
			Help:      "HTTP status code returned by the last publish.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch-normalize-publish run.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		LastSuccessUnixTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Runs,
		m.ForecastsFetched,
		m.ForecastsSkipped,
		m.NormalizeErrors,
		m.ForecastsPublished,
		m.SizeFallbacks,
		m.PublishStatusCode,
		m.RunDuration,
		m.LastSuccessUnixTime,
		m.PipelineRunning,
	}
}

// NewMetrics creates and registers all run metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the run metrics with reg. One-shot runs use a
// private registry so only these series reach the Pushgateway.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
