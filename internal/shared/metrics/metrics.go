package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the server.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	TasksCreated  *prometheus.CounterVec
	TasksFinished *prometheus.CounterVec
	TaskDuration  *prometheus.HistogramVec
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry: registry,
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blockreceipt_http_requests_total",
			Help: "Total HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blockreceipt_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		HTTPRequestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "blockreceipt_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		}),
		TasksCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blockreceipt_pipeline_tasks_created_total",
			Help: "Pipeline tasks created by type.",
		}, []string{"type"}),
		TasksFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blockreceipt_pipeline_tasks_finished_total",
			Help: "Pipeline tasks finished by type and terminal status.",
		}, []string{"type", "status"}),
		TaskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blockreceipt_pipeline_task_duration_seconds",
			Help:    "Time from task creation to terminal status.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"type"}),
	}
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordTaskCreated records a created pipeline task.
func (m *Metrics) RecordTaskCreated(taskType string) {
	m.TasksCreated.WithLabelValues(taskType).Inc()
}

// RecordTaskFinished records a task reaching a terminal status.
func (m *Metrics) RecordTaskFinished(taskType, status string, duration time.Duration) {
	m.TasksFinished.WithLabelValues(taskType, status).Inc()
	m.TaskDuration.WithLabelValues(taskType).Observe(duration.Seconds())
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
