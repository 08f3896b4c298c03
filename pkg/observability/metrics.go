package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application.
// Every method is safe to call on a nil *Collector.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Editor metrics
	PendingOperations prometheus.Gauge
	OperationsQueued  *prometheus.CounterVec
	Undos             *prometheus.CounterVec
	FilterRuns        *prometheus.CounterVec

	// Persistence metrics
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec
	BreakerState    *prometheus.GaugeVec
}

// NewCollector creates a collector on its own registry so tests can build
// as many as they like.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		PendingOperations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pending_operations",
				Help:      "Operations staged locally and not yet saved",
			},
		),
		OperationsQueued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_queued_total",
				Help:      "Operations appended to the pending log",
			},
			[]string{"type"},
		),
		Undos: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "undo_total",
				Help:      "Undo invocations by outcome",
			},
			[]string{"outcome"},
		),
		FilterRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "filter_runs_total",
				Help:      "Connectivity filter recomputations",
			},
			[]string{"active"},
		),
		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Calls to the persistence store",
			},
			[]string{"store", "operation", "status"},
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Persistence call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"store", "operation"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "store_breaker_state",
				Help:      "Circuit breaker state per store (0 closed, 1 half-open, 2 open)",
			},
			[]string{"store"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.PendingOperations,
		c.OperationsQueued,
		c.Undos,
		c.FilterRuns,
		c.StoreOperations,
		c.StoreDuration,
		c.BreakerState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry returns the registry backing this collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RecordHTTPRequest records one served request
func (c *Collector) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordOperation counts an appended pending operation
func (c *Collector) RecordOperation(kind string) {
	if c == nil {
		return
	}
	c.OperationsQueued.WithLabelValues(kind).Inc()
}

// SetPending updates the pending operations gauge
func (c *Collector) SetPending(n int) {
	if c == nil {
		return
	}
	c.PendingOperations.Set(float64(n))
}

// RecordUndo counts an undo by outcome
func (c *Collector) RecordUndo(outcome string) {
	if c == nil {
		return
	}
	c.Undos.WithLabelValues(outcome).Inc()
}

// RecordFilter counts a filter recomputation
func (c *Collector) RecordFilter(active bool) {
	if c == nil {
		return
	}
	label := "false"
	if active {
		label = "true"
	}
	c.FilterRuns.WithLabelValues(label).Inc()
}

// RecordStoreOperation records one persistence call
func (c *Collector) RecordStoreOperation(store, operation string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.StoreOperations.WithLabelValues(store, operation, status).Inc()
	c.StoreDuration.WithLabelValues(store, operation).Observe(duration.Seconds())
}

// SetBreakerState publishes the breaker state for a store
func (c *Collector) SetBreakerState(store string, state int) {
	if c == nil {
		return
	}
	c.BreakerState.WithLabelValues(store).Set(float64(state))
}
