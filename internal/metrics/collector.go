// Package metrics collects Prometheus metrics for the transfer service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns every metric the service exports. It implements
// transfer.Metrics for the orchestrator.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	transfersInitiated *prometheus.CounterVec
	transfersTerminal  *prometheus.CounterVec
	transferDuration   *prometheus.HistogramVec
	phaseTransitions   *prometheus.CounterVec
	summaryFallbacks   prometheus.Counter

	activeTransfers    prometheus.Gauge
	connectedOperators prometheus.Gauge
}

// NewCollector registers all metrics on a fresh registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	c := &Collector{registry: registry}

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.transfersInitiated = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_initiated_total",
			Help:      "Total number of transfers initiated",
		},
		[]string{"priority"},
	)
	c.transfersTerminal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_terminal_total",
			Help:      "Total number of transfers reaching a terminal phase",
		},
		[]string{"outcome"},
	)
	c.transferDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transfer_duration_seconds",
			Help:      "Wall time from initiation to terminal transition",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"outcome"},
	)
	c.phaseTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_phase_transitions_total",
			Help:      "Total state machine transitions by edge",
		},
		[]string{"from", "to"},
	)
	c.summaryFallbacks = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_fallbacks_total",
			Help:      "Summaries substituted by the local fallback",
		},
	)

	c.activeTransfers = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transfers_active",
			Help:      "Transfers currently in a non-terminal phase",
		},
	)
	c.connectedOperators = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "operators_connected",
			Help:      "Operators holding at least one notification connection",
		},
	)

	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for extra collectors.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// ObserveHTTP records one finished HTTP request.
func (c *Collector) ObserveHTTP(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TransferInitiated implements transfer.Metrics.
func (c *Collector) TransferInitiated(priority string) {
	c.transfersInitiated.WithLabelValues(priority).Inc()
}

// TransferTerminal implements transfer.Metrics.
func (c *Collector) TransferTerminal(outcome string, duration time.Duration) {
	c.transfersTerminal.WithLabelValues(outcome).Inc()
	c.transferDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// PhaseTransition implements transfer.Metrics.
func (c *Collector) PhaseTransition(from, to string) {
	c.phaseTransitions.WithLabelValues(from, to).Inc()
}

// SummaryFallback implements transfer.Metrics.
func (c *Collector) SummaryFallback() {
	c.summaryFallbacks.Inc()
}

// SetActiveTransfers updates the live working set gauge.
func (c *Collector) SetActiveTransfers(n int) {
	c.activeTransfers.Set(float64(n))
}

// SetConnectedOperators updates the notification connection gauge.
func (c *Collector) SetConnectedOperators(n int) {
	c.connectedOperators.Set(float64(n))
}
