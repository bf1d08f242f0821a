// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - requests:     Total requests, split by Action
//   - pass_through: Vendor-served requests and their failures
//   - rewrite:      Schema injected/skipped, pixel injected
//   - analytics:    Page views queued, dropped, sent, failed
//
// The same counters back /_gateway/stats (JSON) and /_gateway/metrics (Prometheus).
package monitoring

import (
	"fmt"
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	startedAt time.Time

	// Request counters
	requests    atomic.Int64
	skipped     atomic.Int64
	passThrough atomic.Int64
	notHTML     atomic.Int64
	encoded     atomic.Int64
	tooLarge    atomic.Int64
	rewritten   atomic.Int64
	deferred    atomic.Int64
	fallbacks   atomic.Int64

	passThroughFailures atomic.Int64

	// Rewrite counters
	schemaInjected atomic.Int64
	schemaSkipped  atomic.Int64 // Fetch failed or returned no usable JSON
	pixelInjected  atomic.Int64

	// Analytics counters
	analyticsQueued  atomic.Int64
	analyticsDropped atomic.Int64
	analyticsSent    atomic.Int64
	analyticsFailed  atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startedAt: time.Now(),
	}
}

// RecordRequest records a finished request by the action taken.
func (mc *MetricsCollector) RecordRequest(action Action) {
	mc.requests.Add(1)
	switch action {
	case ActionSkipped:
		mc.skipped.Add(1)
	case ActionPassThrough:
		mc.passThrough.Add(1)
	case ActionNotHTML:
		mc.notHTML.Add(1)
	case ActionEncoded:
		mc.encoded.Add(1)
	case ActionTooLarge:
		mc.tooLarge.Add(1)
	case ActionRewritten:
		mc.rewritten.Add(1)
	case ActionDeferred:
		mc.deferred.Add(1)
	case ActionFallback:
		mc.fallbacks.Add(1)
	}
}

// RecordPassThroughFailure records a vendor pass-through that returned no response.
func (mc *MetricsCollector) RecordPassThroughFailure() { mc.passThroughFailures.Add(1) }

// RecordSchema records whether a schema was spliced into a page.
func (mc *MetricsCollector) RecordSchema(injected bool) {
	if injected {
		mc.schemaInjected.Add(1)
	} else {
		mc.schemaSkipped.Add(1)
	}
}

// RecordPixelInjected records a pixel insertion.
func (mc *MetricsCollector) RecordPixelInjected() { mc.pixelInjected.Add(1) }

// RecordAnalyticsQueued records a page view accepted by the reporter.
func (mc *MetricsCollector) RecordAnalyticsQueued() { mc.analyticsQueued.Add(1) }

// RecordAnalyticsDropped records a page view the reporter could not accept.
func (mc *MetricsCollector) RecordAnalyticsDropped() { mc.analyticsDropped.Add(1) }

// RecordAnalyticsResult records the outcome of a delivered report.
func (mc *MetricsCollector) RecordAnalyticsResult(success bool) {
	if success {
		mc.analyticsSent.Add(1)
	} else {
		mc.analyticsFailed.Add(1)
	}
}

// StartedAt returns when the metrics collector was created.
func (mc *MetricsCollector) StartedAt() time.Time { return mc.startedAt }

// Stats returns current metrics as a flat map.
func (mc *MetricsCollector) Stats() map[string]int64 {
	return map[string]int64{
		"requests":        mc.requests.Load(),
		"pass_through":    mc.passThrough.Load(),
		"rewritten":       mc.rewritten.Load(),
		"deferred":        mc.deferred.Load(),
		"fallbacks":       mc.fallbacks.Load(),
		"schema_injected": mc.schemaInjected.Load(),
		"pixel_injected":  mc.pixelInjected.Load(),
	}
}

// FullStats returns all metrics in a structured format for the stats endpoint.
func (mc *MetricsCollector) FullStats() StatsResponse {
	uptime := time.Since(mc.startedAt)

	return StatsResponse{
		Uptime:        formatDuration(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		StartedAt:     mc.startedAt.Format(time.RFC3339),
		Requests: RequestStats{
			Total:       mc.requests.Load(),
			Skipped:     mc.skipped.Load(),
			PassThrough: mc.passThrough.Load(),
			NotHTML:     mc.notHTML.Load(),
			Encoded:     mc.encoded.Load(),
			TooLarge:    mc.tooLarge.Load(),
			Rewritten:   mc.rewritten.Load(),
			Deferred:    mc.deferred.Load(),
			Fallbacks:   mc.fallbacks.Load(),
		},
		PassThrough: PassThroughStats{
			Served:   mc.passThrough.Load(),
			Failures: mc.passThroughFailures.Load(),
		},
		Rewrite: RewriteStats{
			SchemaInjected: mc.schemaInjected.Load(),
			SchemaSkipped:  mc.schemaSkipped.Load(),
			PixelInjected:  mc.pixelInjected.Load(),
		},
		Analytics: AnalyticsStats{
			Queued:  mc.analyticsQueued.Load(),
			Dropped: mc.analyticsDropped.Load(),
			Sent:    mc.analyticsSent.Load(),
			Failed:  mc.analyticsFailed.Load(),
		},
	}
}

// StatsResponse is the structured response for the stats endpoint.
type StatsResponse struct {
	Uptime        string           `json:"uptime"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	StartedAt     string           `json:"started_at"`
	Requests      RequestStats     `json:"requests"`
	PassThrough   PassThroughStats `json:"pass_through"`
	Rewrite       RewriteStats     `json:"rewrite"`
	Analytics     AnalyticsStats   `json:"analytics"`
	RecentErrors  []FallbackEntry  `json:"recent_errors,omitempty"`
}

// RequestStats holds request counts by action.
type RequestStats struct {
	Total       int64 `json:"total"`
	Skipped     int64 `json:"skipped"`
	PassThrough int64 `json:"pass_through"`
	NotHTML     int64 `json:"not_html"`
	Encoded     int64 `json:"encoded"`
	TooLarge    int64 `json:"too_large"`
	Rewritten   int64 `json:"rewritten"`
	Deferred    int64 `json:"deferred"`
	Fallbacks   int64 `json:"fallbacks"`
}

// PassThroughStats holds vendor pass-through metrics.
type PassThroughStats struct {
	Served   int64 `json:"served"`
	Failures int64 `json:"failures"`
}

// RewriteStats holds HTML rewrite metrics.
type RewriteStats struct {
	SchemaInjected int64 `json:"schema_injected"`
	SchemaSkipped  int64 `json:"schema_skipped"`
	PixelInjected  int64 `json:"pixel_injected"`
}

// AnalyticsStats holds page-view reporting metrics.
type AnalyticsStats struct {
	Queued  int64 `json:"queued"`
	Dropped int64 `json:"dropped"`
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
