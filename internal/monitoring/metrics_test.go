package monitoring

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// COUNTERS
// =============================================================================

func TestMetrics_ZeroState(t *testing.T) {
	mc := NewMetricsCollector()
	stats := mc.Stats()

	for key, v := range stats {
		assert.Equal(t, int64(0), v, key)
	}
}

func TestMetrics_RecordRequestByAction(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordRequest(ActionRewritten)
	mc.RecordRequest(ActionRewritten)
	mc.RecordRequest(ActionPassThrough)
	mc.RecordRequest(ActionFallback)
	mc.RecordRequest(ActionNotHTML)

	s := mc.FullStats()
	assert.Equal(t, int64(5), s.Requests.Total)
	assert.Equal(t, int64(2), s.Requests.Rewritten)
	assert.Equal(t, int64(1), s.Requests.PassThrough)
	assert.Equal(t, int64(1), s.Requests.Fallbacks)
	assert.Equal(t, int64(1), s.Requests.NotHTML)
	assert.Equal(t, int64(1), s.PassThrough.Served)
}

func TestMetrics_RewriteAndAnalytics(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordSchema(true)
	mc.RecordSchema(false)
	mc.RecordSchema(false)
	mc.RecordPixelInjected()
	mc.RecordAnalyticsQueued()
	mc.RecordAnalyticsQueued()
	mc.RecordAnalyticsDropped()
	mc.RecordAnalyticsResult(true)
	mc.RecordAnalyticsResult(false)
	mc.RecordPassThroughFailure()

	s := mc.FullStats()
	assert.Equal(t, RewriteStats{SchemaInjected: 1, SchemaSkipped: 2, PixelInjected: 1}, s.Rewrite)
	assert.Equal(t, AnalyticsStats{Queued: 2, Dropped: 1, Sent: 1, Failed: 1}, s.Analytics)
	assert.Equal(t, int64(1), s.PassThrough.Failures)
}

func TestMetrics_FullStatsUptime(t *testing.T) {
	mc := NewMetricsCollector()
	s := mc.FullStats()

	assert.Equal(t, "0m", s.Uptime)
	assert.NotEmpty(t, s.StartedAt)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "0m"},
		{5 * time.Minute, "5m"},
		{2*time.Hour + 3*time.Minute, "2h 3m"},
		{50 * time.Hour, "2d 2h 0m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

// =============================================================================
// PROMETHEUS
// =============================================================================

func TestPrometheusExporter_ServesCounters(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordRequest(ActionRewritten)
	mc.RecordSchema(true)
	mc.RecordAnalyticsResult(true)

	e := NewPrometheusExporter(mc)
	e.ObserveRequest(ActionRewritten, 12*time.Millisecond)

	w := httptest.NewRecorder()
	e.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	text := string(body)

	assert.Contains(t, text, `edge_gateway_requests_total{action="rewritten"} 1`)
	assert.Contains(t, text, `edge_gateway_schema_total{result="injected"} 1`)
	assert.Contains(t, text, `edge_gateway_analytics_reports_total{outcome="sent"} 1`)
	assert.Contains(t, text, `edge_gateway_request_duration_seconds_count{action="rewritten"} 1`)
	assert.Contains(t, text, "edge_gateway_uptime_seconds")
}

func TestPrometheusExporter_ReflectsLiveCounters(t *testing.T) {
	mc := NewMetricsCollector()
	e := NewPrometheusExporter(mc)

	mc.RecordRequest(ActionPassThrough)
	mc.RecordRequest(ActionPassThrough)

	families, err := e.Registry().Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() != "edge_gateway_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == string(ActionPassThrough) {
					found = true
					assert.Equal(t, float64(2), m.GetCounter().GetValue())
				}
			}
		}
	}
	assert.True(t, found)
}
