// Package metrics exposes the Prometheus instrumentation for the HTTP
// surface and the ingestion pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors on a private registry so tests can create
// isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInFlight        prometheus.Gauge

	drawsInserted    prometheus.Counter
	drawsSkipped     prometheus.Counter
	fetchFailures    prometheus.Counter
	updateDuration   prometheus.Histogram
	lastUpdateUnixTS prometheus.Gauge
}

// New creates the metric set and registers it together with the standard Go
// and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lotterylab",
			Name:      "http_requests_total",
			Help:      "HTTP requests processed, by route, method and status code.",
		}, []string{"route", "method", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lotterylab",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lotterylab",
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
		drawsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lotterylab",
			Name:      "ingest_draws_inserted_total",
			Help:      "Draws written to storage by the ingestion pipeline.",
		}),
		drawsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lotterylab",
			Name:      "ingest_draws_skipped_total",
			Help:      "Feed lines skipped as duplicates or invalid.",
		}),
		fetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lotterylab",
			Name:      "ingest_fetch_failures_total",
			Help:      "Failed attempts to download the remote feed.",
		}),
		updateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lotterylab",
			Name:      "ingest_update_duration_seconds",
			Help:      "Wall time of one feed update cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		lastUpdateUnixTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lotterylab",
			Name:      "ingest_last_update_timestamp_seconds",
			Help:      "Unix time of the last successful feed update.",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpInFlight,
		m.drawsInserted,
		m.drawsSkipped,
		m.fetchFailures,
		m.updateDuration,
		m.lastUpdateUnixTS,
	)
	return m
}

// Handler serves the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveIngest records the outcome of one feed update cycle.
func (m *Metrics) ObserveIngest(inserted, skipped int, duration time.Duration) {
	m.drawsInserted.Add(float64(inserted))
	m.drawsSkipped.Add(float64(skipped))
	m.updateDuration.Observe(duration.Seconds())
	m.lastUpdateUnixTS.SetToCurrentTime()
}

// ObserveFetchFailure records a failed feed download.
func (m *Metrics) ObserveFetchFailure() {
	m.fetchFailures.Inc()
}

// InstrumentHandler wraps an HTTP handler with request counting, latency and
// in-flight tracking. The route label is the mux route template, not the raw
// URL, to keep cardinality bounded.
func (m *Metrics) InstrumentHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		m.httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(recorder.status)).Inc()
		m.httpRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
