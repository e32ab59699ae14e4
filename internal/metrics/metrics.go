// Package metrics registers the pipeline's Prometheus instruments
// against a private registry (not the global default) so tests can
// construct isolated engines without colliding on metric names.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the instruments the submission pipeline updates.
type Metrics struct {
	registry *prometheus.Registry

	OrdersSubmittedTotal  prometheus.Counter
	OrdersRejectedTotal   *prometheus.CounterVec
	TradesExecutedTotal   prometheus.Counter
	SubmissionDuration    prometheus.Histogram
	WSConnections         prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		OrdersSubmittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_submitted_total",
			Help: "Total orders submitted to the engine.",
		}),
		OrdersRejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_rejected_total",
			Help: "Total orders rejected, by pipeline source.",
		}, []string{"source"}),
		TradesExecutedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trades_executed_total",
			Help: "Total trades executed by the engine.",
		}),
		SubmissionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "order_submission_duration_seconds",
			Help:    "End-to-end latency of the order submission pipeline.",
			Buckets: prometheus.DefBuckets,
		}),
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Current number of open WebSocket connections.",
		}),
	}

	reg.MustRegister(m.OrdersSubmittedTotal, m.OrdersRejectedTotal, m.TradesExecutedTotal, m.SubmissionDuration, m.WSConnections)
	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
