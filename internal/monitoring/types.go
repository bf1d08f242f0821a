// Package monitoring - types.go defines shared types.
//
// DESIGN: These types are used by both gateway/ and monitoring/ packages.
// Defined here ONCE to avoid duplication and circular imports.
//
// TYPES:
//   - Action:        How the gateway handled a request
//   - RequestEvent:  Telemetry data for each request
//   - InitEvent:     Startup configuration snapshot
package monitoring

import "time"

// =============================================================================
// ACTIONS - Used by router and telemetry
// =============================================================================

// Action identifies which path a request took through the gateway.
type Action string

const (
	ActionSkipped     Action = "skipped"      // outside the route scope
	ActionPassThrough Action = "pass_through" // served from the vendor
	ActionNotHTML     Action = "not_html"     // origin response left untouched
	ActionEncoded     Action = "encoded"      // compressed HTML, cannot splice
	ActionTooLarge    Action = "too_large"    // HTML over the buffer limit, forwarded as-is
	ActionRewritten   Action = "rewritten"    // schema and/or pixel spliced in
	ActionDeferred    Action = "deferred"     // streamed with client-side schema loader
	ActionFallback    Action = "fallback"     // failure, original response served
)

// =============================================================================
// EVENT TYPES - Structured data for telemetry recording
// =============================================================================

// RequestEvent captures a request through the gateway.
type RequestEvent struct {
	RequestID        string    `json:"request_id"`
	Timestamp        time.Time `json:"timestamp"`
	Method           string    `json:"method"`
	Host             string    `json:"host"`
	Path             string    `json:"path"`
	ClientIP         string    `json:"client_ip,omitempty"`
	Action           Action    `json:"action"`
	StatusCode       int       `json:"status_code"`
	OriginBodySize   int       `json:"origin_body_size,omitempty"`
	ResponseBodySize int       `json:"response_body_size,omitempty"`
	SchemaInjected   bool      `json:"schema_injected"`
	PixelInjected    bool      `json:"pixel_injected"`
	AnalyticsQueued  bool      `json:"analytics_queued"`
	Error            string    `json:"error,omitempty"`
	SchemaLatencyMs  int64     `json:"schema_latency_ms,omitempty"`
	OriginLatencyMs  int64     `json:"origin_latency_ms,omitempty"`
	TotalLatencyMs   int64     `json:"total_latency_ms"`
}

// InitEvent captures gateway startup configuration.
type InitEvent struct {
	Timestamp        time.Time `json:"timestamp"`
	Event            string    `json:"event"`
	ServerPort       int       `json:"server_port"`
	OriginURL        string    `json:"origin_url,omitempty"`
	VendorDomain     string    `json:"vendor_domain,omitempty"`
	VendorBaseURL    string    `json:"vendor_base_url,omitempty"`
	RewriteMode      string    `json:"rewrite_mode"`
	AnalyticsEnabled bool      `json:"analytics_enabled"`
	AnalyticsFilter  string    `json:"analytics_filter,omitempty"`
	AnalyticsWorkers int       `json:"analytics_workers"`
	SkipPattern      string    `json:"skip_pattern,omitempty"`
	TelemetryPath    string    `json:"telemetry_path,omitempty"`
}

// =============================================================================
// CONFIG TYPES
// =============================================================================

// TelemetryConfig contains telemetry configuration.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	LogPath     string `yaml:"log_path"`
	LogToStdout bool   `yaml:"log_to_stdout"`
}
