// Package metrics exposes Prometheus counters for sources, searches and the
// HTTP API. All methods are safe on a nil *Recorder.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shopeasy/models"
)

type Recorder struct {
	registry       *prometheus.Registry
	sourceOutcomes *prometheus.CounterVec
	sourceDuration *prometheus.HistogramVec
	listings       *prometheus.CounterVec
	searches       *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates a Recorder on its own registry.
func New() *Recorder {
	m := &Recorder{
		registry: prometheus.NewRegistry(),
		sourceOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopeasy_source_requests_total",
			Help: "Source adapter calls by source and outcome.",
		}, []string{"source", "outcome"}),
		sourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shopeasy_source_duration_seconds",
			Help:    "Source adapter call durations.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		}, []string{"source"}),
		listings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopeasy_listings_total",
			Help: "Listings returned by sources, accepted or rejected by the normalizer.",
		}, []string{"source", "state"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopeasy_searches_total",
			Help: "Search requests by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.sourceOutcomes,
		m.sourceDuration,
		m.listings,
		m.searches,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// ObserveSource records one finished adapter task.
func (m *Recorder) ObserveSource(d models.SourceDiagnostic) {
	if m == nil {
		return
	}
	m.sourceOutcomes.WithLabelValues(d.Source, string(d.Outcome)).Inc()
	m.sourceDuration.WithLabelValues(d.Source).Observe(d.Duration.Seconds())
	m.listings.WithLabelValues(d.Source, "accepted").Add(float64(d.Accepted))
	m.listings.WithLabelValues(d.Source, "rejected").Add(float64(d.Raw - d.Accepted))
}

// ObserveSearch records a finished search: "ok", "empty" or "error".
func (m *Recorder) ObserveSearch(result string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts requests and their duration under route.
func (m *Recorder) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// Handler serves the registry in the Prometheus text format.
func (m *Recorder) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
