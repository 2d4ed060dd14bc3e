package metrics

import (
	"context"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Collector owns a private registry so that concurrent tests and the Lambda
// runtime never collide on the default one.
type Collector struct {
	Registry *prometheus.Registry

	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration prometheus.Histogram

	PlatformRequestsTotal   *prometheus.CounterVec
	PlatformRequestDuration *prometheus.HistogramVec

	PairingsTotal      *prometheus.CounterVec
	FieldsWrittenTotal prometheus.Counter
}

func NewCollector(serviceName string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)
	namespace := strings.ReplaceAll(serviceName, "-", "_")

	return &Collector{
		Registry: reg,

		InvocationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invocation",
			Name:      "total",
			Help:      "Invocations by outcome (success, invalid_input, failure).",
		}, []string{"outcome"}),

		InvocationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "invocation",
			Name:      "duration_seconds",
			Help:      "End to end invocation latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}),

		PlatformRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "platform",
			Name:      "requests_total",
			Help:      "Commerce platform requests by method, resource, and status code.",
		}, []string{"method", "resource", "status"}),

		PlatformRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "platform",
			Name:      "request_duration_seconds",
			Help:      "Commerce platform request latency distribution.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"method", "resource"}),

		PairingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "pairings_total",
			Help:      "Order/cart item pairings by outcome (written, rejected, unresolved, failed).",
		}, []string{"outcome"}),

		FieldsWrittenTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "fields_written_total",
			Help:      "Custom fields copied onto order items.",
		}),
	}
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{Registry: c.Registry})
}

// Push sends the registry to a Prometheus Pushgateway. Short-lived functions
// have no scrape window, so this is the only way their metrics leave the box.
func (c *Collector) Push(ctx context.Context, gatewayURL, job string) error {
	return push.New(gatewayURL, job).Gatherer(c.Registry).PushContext(ctx)
}
