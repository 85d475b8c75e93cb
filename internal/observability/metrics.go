package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// polling service.
type Metrics struct {
	// Health probe metrics.
	ProbesTotal               *prometheus.CounterVec // labels: outcome={ok,slow,timeout,http_error,transport,decode_error,missing_data}
	ProbeDuration             prometheus.Histogram
	HealthStatus              prometheus.Gauge // 0 unknown, 1 healthy, 2 degraded, 3 unhealthy
	HealthConsecutiveFailures prometheus.Gauge
	HealthSuccessRate         prometheus.Gauge

	// Per-location fetch metrics.
	FetchesTotal         *prometheus.CounterVec   // labels: location, outcome={ok,skipped_unhealthy,timeout,http_error,transport,decode_error,missing_data}
	ForecastFetchesTotal *prometheus.CounterVec   // labels: location, outcome
	FetchDuration        *prometheus.HistogramVec // labels: location
	SensorsActive        prometheus.Gauge

	// Event publishing metrics.
	EventsPublished    *prometheus.CounterVec // labels: type={observation,health_transition}
	EventPublishErrors prometheus.Counter

	// History store metrics.
	HistoryWrites      *prometheus.CounterVec // labels: kind={observation,transition}
	HistoryWriteErrors prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ProbesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marine_weather",
			Name:      "probes_total",
			Help:      "Health probes against the upstream API by outcome.",
		}, []string{"outcome"}),
		ProbeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "marine_weather",
			Name:      "probe_duration_seconds",
			Help:      "Health probe round-trip duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		HealthStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marine_weather",
			Name:      "health_status",
			Help:      "Upstream health: 0 unknown, 1 healthy, 2 degraded, 3 unhealthy.",
		}),
		HealthConsecutiveFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marine_weather",
			Name:      "health_consecutive_failures",
			Help:      "Current consecutive probe failure streak.",
		}),
		HealthSuccessRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marine_weather",
			Name:      "health_success_rate",
			Help:      "Lifetime probe success percentage.",
		}),
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marine_weather",
			Name:      "fetches_total",
			Help:      "Marine data fetches by location and outcome.",
		}, []string{"location", "outcome"}),
		ForecastFetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marine_weather",
			Name:      "forecast_fetches_total",
			Help:      "Hourly forecast fetches by location and outcome.",
		}, []string{"location", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "marine_weather",
			Name:      "fetch_duration_seconds",
			Help:      "Marine data fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"location"}),
		SensorsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marine_weather",
			Name:      "sensors_active",
			Help:      "Registered sensor entities currently reporting as available.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marine_weather",
			Name:      "events_published_total",
			Help:      "Events written to the events topic by type.",
		}, []string{"type"}),
		EventPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marine_weather",
			Name:      "event_publish_errors_total",
			Help:      "Event publish failures.",
		}),
		HistoryWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marine_weather",
			Name:      "history_writes_total",
			Help:      "Rows written to the history store by kind.",
		}, []string{"kind"}),
		HistoryWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marine_weather",
			Name:      "history_write_errors_total",
			Help:      "History store write failures.",
		}),
	}

	prometheus.MustRegister(
		m.ProbesTotal,
		m.ProbeDuration,
		m.HealthStatus,
		m.HealthConsecutiveFailures,
		m.HealthSuccessRate,
		m.FetchesTotal,
		m.ForecastFetchesTotal,
		m.FetchDuration,
		m.SensorsActive,
		m.EventsPublished,
		m.EventPublishErrors,
		m.HistoryWrites,
		m.HistoryWriteErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, so
// tests can construct as many instances as they need.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ProbesTotal:               prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "marine_weather", Name: "probes_total"}, []string{"outcome"}),
		ProbeDuration:             prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "marine_weather", Name: "probe_duration_seconds"}),
		HealthStatus:              prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "marine_weather", Name: "health_status"}),
		HealthConsecutiveFailures: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "marine_weather", Name: "health_consecutive_failures"}),
		HealthSuccessRate:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "marine_weather", Name: "health_success_rate"}),
		FetchesTotal:              prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "marine_weather", Name: "fetches_total"}, []string{"location", "outcome"}),
		ForecastFetchesTotal:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "marine_weather", Name: "forecast_fetches_total"}, []string{"location", "outcome"}),
		FetchDuration:             prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "marine_weather", Name: "fetch_duration_seconds"}, []string{"location"}),
		SensorsActive:             prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "marine_weather", Name: "sensors_active"}),
		EventsPublished:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "marine_weather", Name: "events_published_total"}, []string{"type"}),
		EventPublishErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "marine_weather", Name: "event_publish_errors_total"}),
		HistoryWrites:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "marine_weather", Name: "history_writes_total"}, []string{"kind"}),
		HistoryWriteErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "marine_weather", Name: "history_write_errors_total"}),
	}
}
