// Package metrics exposes Prometheus metrics for the HTTP surface, upstream
// calls and the classification cache.
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

const namespace = "snapstudio"

// Collector owns a private registry so tests and multiple servers in one
// process never collide. All methods are safe on a nil *Collector.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	upstreamRequestsTotal   *prometheus.CounterVec
	upstreamRequestDuration *prometheus.HistogramVec

	cacheLookups       *prometheus.CounterVec
	categoriesRepaired *prometheus.CounterVec
	categoriesAssigned *prometheus.CounterVec
	toolRunsTotal      *prometheus.CounterVec
}

// NewCollector creates a collector with Go runtime and process metrics
// registered alongside the application metrics.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 90},
			},
			[]string{"method", "route"},
		),

		upstreamRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Total number of upstream AI calls by outcome",
			},
			[]string{"service", "provider", "outcome"},
		),
		upstreamRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Upstream AI call duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
			},
			[]string{"service", "provider"},
		),

		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classification_cache_lookups_total",
				Help:      "Classification cache lookups by result",
			},
			[]string{"result"},
		),
		categoriesRepaired: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classification_repairs_total",
				Help:      "Category list repairs applied to model output",
			},
			[]string{"reason"},
		),
		categoriesAssigned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classification_categories_total",
				Help:      "Categories returned to callers",
			},
			[]string{"category"},
		),
		toolRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_tool_runs_total",
				Help:      "Image tool runs by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordUpstream records one upstream call. outcome is "ok" or an error kind.
func (c *Collector) RecordUpstream(service, provider, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.upstreamRequestsTotal.WithLabelValues(service, provider, outcome).Inc()
	c.upstreamRequestDuration.WithLabelValues(service, provider).Observe(duration.Seconds())
}

func (c *Collector) RecordCacheLookup(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

// RecordRepair counts n repairs of one kind: unknown, padded, trimmed or unparsed
func (c *Collector) RecordRepair(reason string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.categoriesRepaired.WithLabelValues(reason).Add(float64(n))
}

func (c *Collector) RecordCategory(category string) {
	if c == nil {
		return
	}
	c.categoriesAssigned.WithLabelValues(category).Inc()
}

func (c *Collector) RecordToolRun(tool, outcome string) {
	if c == nil {
		return
	}
	c.toolRunsTotal.WithLabelValues(tool, outcome).Inc()
}
