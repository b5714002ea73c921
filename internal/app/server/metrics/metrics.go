// Package metrics метрики relay в формате Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gophistory"

type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	recordsUploaded prometheus.Counter
	recordsServed   prometheus.Counter
	uploadsRejected *prometheus.CounterVec
}

// New регистрирует метрики в собственном реестре
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by operation and status.",
		}, []string{"operation", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		recordsUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_uploaded_total",
			Help:      "Records accepted from clients.",
		}),
		recordsServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_served_total",
			Help:      "Records returned by next.",
		}),
		uploadsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_rejected_total",
			Help:      "Rejected upload batches by reason.",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.recordsUploaded,
		m.recordsServed,
		m.uploadsRejected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveRequest учитывает обработанный запрос
func (m *Metrics) ObserveRequest(operation string, status int, took time.Duration) {
	m.requests.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(took.Seconds())
}

func (m *Metrics) RecordsUploaded(n int) {
	m.recordsUploaded.Add(float64(n))
}

func (m *Metrics) RecordsServed(n int) {
	m.recordsServed.Add(float64(n))
}

func (m *Metrics) UploadRejected(reason string) {
	m.uploadsRejected.WithLabelValues(reason).Inc()
}

// Handler отдаёт метрики для /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
