package service

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/mailbridge/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the sync loop.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	cycleDuration  prometheus.Histogram
	recordsTotal   *prometheus.CounterVec
	uploadsTotal   prometheus.Counter
	remoteFailures prometheus.Counter
	heartbeats     prometheus.Counter
}

// NewMetricsService registers the bridge collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	cycleDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_cycle_duration_seconds",
		Help:    "Duration of full sync cycles in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	recordsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_records_total",
		Help: "Records processed per classification",
	}, []string{"result"})

	uploadsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attachment_uploads_total",
		Help: "New attachment objects uploaded",
	})

	remoteFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "remote_write_failures_total",
		Help: "Per-record document store write failures",
	})

	heartbeats := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "heartbeats_published_total",
		Help: "Heartbeat publications to the remote config document",
	})

	registry.MustRegister(cycleDuration, recordsTotal, uploadsTotal, remoteFailures, heartbeats)

	return &MetricsService{
		registry:       registry,
		handler:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		cycleDuration:  cycleDuration,
		recordsTotal:   recordsTotal,
		uploadsTotal:   uploadsTotal,
		remoteFailures: remoteFailures,
		heartbeats:     heartbeats,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	return m.handler
}

// ObserveCycle records one finished cycle.
func (m *MetricsService) ObserveCycle(report models.CycleReport, seconds float64) {
	m.cycleDuration.Observe(seconds)
	m.recordsTotal.WithLabelValues("added").Add(float64(report.Stats.Added))
	m.recordsTotal.WithLabelValues("updated").Add(float64(report.Stats.Updated))
	m.recordsTotal.WithLabelValues("skipped").Add(float64(report.Stats.Skipped))
	m.recordsTotal.WithLabelValues("failed").Add(float64(report.Stats.Failed))
}

// IncUpload counts one new attachment upload.
func (m *MetricsService) IncUpload() {
	m.uploadsTotal.Inc()
}

// IncRemoteFailure counts one per-record remote write failure.
func (m *MetricsService) IncRemoteFailure() {
	m.remoteFailures.Inc()
}

// IncHeartbeat counts one heartbeat publication.
func (m *MetricsService) IncHeartbeat() {
	m.heartbeats.Inc()
}
