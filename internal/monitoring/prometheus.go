// Package monitoring - prometheus.go exposes the counters in Prometheus format.
//
// DESIGN: The atomic counters in MetricsCollector stay the source of truth.
// A custom collector reads them at scrape time as const metrics, so the
// stats endpoint and the scrape never disagree. Request latency is the only
// metric owned by Prometheus directly (a histogram per action).
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "edge_gateway"

// PrometheusExporter owns a private registry for the gateway's metrics.
type PrometheusExporter struct {
	registry *prometheus.Registry
	latency  *prometheus.HistogramVec
}

// NewPrometheusExporter registers mc and a latency histogram on a new registry.
func NewPrometheusExporter(mc *MetricsCollector) *PrometheusExporter {
	e := &PrometheusExporter{
		registry: prometheus.NewRegistry(),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "Time spent handling a request, by action.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
	}
	e.registry.MustRegister(newCounterCollector(mc), e.latency)
	return e
}

// ObserveRequest records how long a request took.
func (e *PrometheusExporter) ObserveRequest(action Action, d time.Duration) {
	e.latency.WithLabelValues(string(action)).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (e *PrometheusExporter) Registry() *prometheus.Registry { return e.registry }

// =============================================================================
// COUNTER COLLECTOR
// =============================================================================

type counterCollector struct {
	mc *MetricsCollector

	requests      *prometheus.Desc
	passFailures  *prometheus.Desc
	schema        *prometheus.Desc
	pixelInjected *prometheus.Desc
	analytics     *prometheus.Desc
	uptimeSeconds *prometheus.Desc
}

func newCounterCollector(mc *MetricsCollector) *counterCollector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "", name), help, labels, nil)
	}
	return &counterCollector{
		mc:            mc,
		requests:      desc("requests_total", "Requests handled, by action.", "action"),
		passFailures:  desc("pass_through_failures_total", "Vendor pass-through requests that produced no response."),
		schema:        desc("schema_total", "Schema splice attempts, by result.", "result"),
		pixelInjected: desc("pixel_injected_total", "Pages that received the tracking pixel."),
		analytics:     desc("analytics_reports_total", "Page-view reports, by outcome.", "outcome"),
		uptimeSeconds: desc("uptime_seconds", "Seconds since the gateway started."),
	}
}

func (c *counterCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requests
	ch <- c.passFailures
	ch <- c.schema
	ch <- c.pixelInjected
	ch <- c.analytics
	ch <- c.uptimeSeconds
}

func (c *counterCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.mc.FullStats()

	counter := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	counter(c.requests, s.Requests.Skipped, string(ActionSkipped))
	counter(c.requests, s.Requests.PassThrough, string(ActionPassThrough))
	counter(c.requests, s.Requests.NotHTML, string(ActionNotHTML))
	counter(c.requests, s.Requests.Encoded, string(ActionEncoded))
	counter(c.requests, s.Requests.TooLarge, string(ActionTooLarge))
	counter(c.requests, s.Requests.Rewritten, string(ActionRewritten))
	counter(c.requests, s.Requests.Deferred, string(ActionDeferred))
	counter(c.requests, s.Requests.Fallbacks, string(ActionFallback))

	counter(c.passFailures, s.PassThrough.Failures)

	counter(c.schema, s.Rewrite.SchemaInjected, "injected")
	counter(c.schema, s.Rewrite.SchemaSkipped, "skipped")
	counter(c.pixelInjected, s.Rewrite.PixelInjected)

	counter(c.analytics, s.Analytics.Queued, "queued")
	counter(c.analytics, s.Analytics.Dropped, "dropped")
	counter(c.analytics, s.Analytics.Sent, "sent")
	counter(c.analytics, s.Analytics.Failed, "failed")

	ch <- prometheus.MustNewConstMetric(c.uptimeSeconds, prometheus.GaugeValue, time.Since(c.mc.StartedAt()).Seconds())
}
