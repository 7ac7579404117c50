// Package metrics exposes Prometheus instruments for calls made against the orchestration backend.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Backend records request counts and latencies by operation and response code.
type Backend struct {
	requestsTotal   *prometheus.CounterVec
	durationSeconds *prometheus.HistogramVec
	itemsReturned   prometheus.Histogram
}

// NewBackend creates the backend instruments and registers them with reg.
// Registration panics on duplicate names, like prometheus.MustRegister.
func NewBackend(namespace string, reg prometheus.Registerer) *Backend {
	m := &Backend{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_requests_total",
				Help:      "Requests sent to the orchestration backend.",
			},
			[]string{"operation", "code"},
		),
		durationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backend_request_duration_seconds",
				Help:      "Latency of requests sent to the orchestration backend.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		itemsReturned: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "process_list_page_items",
				Help:      "Number of processes returned per list page.",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
		),
	}

	reg.MustRegister(m.requestsTotal, m.durationSeconds, m.itemsReturned)

	return m
}

// ObserveRequest records one backend round trip. code is 0 for transport failures.
func (m *Backend) ObserveRequest(operation string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}

	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}

	m.requestsTotal.WithLabelValues(operation, label).Inc()
	m.durationSeconds.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObservePage records the size of a list page after the sentinel was removed.
func (m *Backend) ObservePage(items int) {
	if m == nil {
		return
	}

	m.itemsReturned.Observe(float64(items))
}
