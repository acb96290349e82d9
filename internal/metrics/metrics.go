// Package metrics exports the server's Prometheus metrics. Each Metrics value
// owns its own registry so tests can build isolated instances.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/kuitang/notebook/internal/obs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notebook"

// Metrics holds the server's collectors.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	requestTime   *prometheus.HistogramVec
	storeOps      *prometheus.CounterVec
	storeTime     *prometheus.HistogramVec
	slotBytes     *prometheus.GaugeVec
	RateLimited   prometheus.Counter
	NotModified   prometheus.Counter
	RejectedBytes prometheus.Counter
}

// New creates a Metrics with a fresh registry, including Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		requestTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		storeOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Key-value store operations by backend, operation and result.",
		}, []string{"backend", "op", "result"}),
		storeTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Key-value store latency by backend and operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "op"}),
		slotBytes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slot_bytes",
			Help:      "Size of the last value written to each slot.",
		}, []string{"key"}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
		NotModified: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "not_modified_total",
			Help:      "GET requests answered 304 from a matching ETag.",
		}),
		RejectedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_body_bytes_total",
			Help:      "Declared bytes of request bodies rejected as too large.",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStore records one store operation outcome.
func (m *Metrics) ObserveStore(_ context.Context, backend, op string, success bool, d time.Duration) {
	result := "error"
	if success {
		result = "success"
	}
	m.storeOps.WithLabelValues(backend, op, result).Inc()
	m.storeTime.WithLabelValues(backend, op).Observe(d.Seconds())
}

// SetSlotBytes records the size of the value last written to key.
func (m *Metrics) SetSlotBytes(key string, n int) {
	m.slotBytes.WithLabelValues(key).Set(float64(n))
}

// IncRateLimited counts one request rejected by the rate limiter.
func (m *Metrics) IncRateLimited() {
	m.RateLimited.Inc()
}

// IncNotModified counts one conditional GET answered 304.
func (m *Metrics) IncNotModified() {
	m.NotModified.Inc()
}

// AddRejectedBytes counts the declared size of a rejected body.
func (m *Metrics) AddRejectedBytes(n int64) {
	if n > 0 {
		m.RejectedBytes.Add(float64(n))
	}
}

// Middleware records request count and latency under a fixed route label.
// The route is the registered pattern, never the raw path, to keep label
// cardinality bounded.
func (m *Metrics) Middleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := obs.NewResponseRecorder(w)
		next.ServeHTTP(recorder, r)

		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(recorder.StatusCode())).Inc()
		m.requestTime.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
