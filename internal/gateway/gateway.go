// Package gateway is the edge request transformer.
//
// DESIGN: One Gateway wraps an origin http.Handler. Per request:
//   - out of route scope:  origin serves it directly
//   - /llms.txt, *.md:     vendor CDN serves it (router.go)
//   - everything else:     analytics report queued, origin response intercepted
//     and HTML spliced (transform.go)
//
// Every step runs inside a fail-open boundary: on error or panic the client
// gets the original origin response. Operational endpoints live under /_gateway/.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lunalift/edge-gateway/internal/analytics"
	"github.com/lunalift/edge-gateway/internal/config"
	"github.com/lunalift/edge-gateway/internal/monitoring"
	"github.com/lunalift/edge-gateway/internal/rewrite"
	"github.com/lunalift/edge-gateway/internal/vendor"
)

// HeaderRequestID carries a caller-supplied request ID.
const HeaderRequestID = "X-Request-ID"

// Operational endpoints.
const (
	PathHealth  = "/_gateway/health"
	PathStats   = "/_gateway/stats"
	PathMetrics = "/_gateway/metrics"
)

// Failure stages, recorded on fallback.
const (
	stagePassThrough = "pass_through"
	stageAnalytics   = "analytics"
	stageOrigin      = "origin"
	stageSchema      = "schema"
	stageRewrite     = "rewrite"
)

// Gateway transforms requests between clients and the origin site.
type Gateway struct {
	config *config.Config
	origin http.Handler
	vendor *vendor.Client

	filter   *analytics.Filter
	reporter *analytics.Reporter
	skip     *regexp.Regexp
	pixel    rewrite.Pixel

	metrics   *monitoring.MetricsCollector
	exporter  *monitoring.PrometheusExporter
	tracker   *monitoring.Tracker
	fallbacks *monitoring.FallbackLog

	server *http.Server
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithVendorClient replaces the vendor client built from config.
func WithVendorClient(c *vendor.Client) Option {
	return func(g *Gateway) {
		g.vendor = c
	}
}

// WithTracker replaces the telemetry tracker built from config.
func WithTracker(t *monitoring.Tracker) Option {
	return func(g *Gateway) {
		g.tracker = t
	}
}

// New creates a gateway in front of origin.
func New(cfg *config.Config, origin http.Handler, opts ...Option) *Gateway {
	g := &Gateway{
		config:    cfg,
		origin:    origin,
		filter:    analytics.FilterByName(cfg.Analytics.Filter),
		pixel:     rewrite.Pixel{ScriptURL: cfg.Vendor.PixelScriptURL, Marker: cfg.Vendor.PixelMarker},
		metrics:   monitoring.NewMetricsCollector(),
		fallbacks: monitoring.NewFallbackLog(),
	}
	g.exporter = monitoring.NewPrometheusExporter(g.metrics)

	for _, opt := range opts {
		opt(g)
	}

	if g.vendor == nil {
		g.vendor = vendor.NewClientFromConfig(cfg.Vendor)
	}
	if g.tracker == nil {
		tracker, err := monitoring.NewTracker(monitoring.TelemetryConfig{
			Enabled:     cfg.Monitoring.TelemetryEnabled,
			LogPath:     cfg.Monitoring.TelemetryPath,
			LogToStdout: cfg.Monitoring.LogToStdout,
		})
		if err != nil {
			log.Warn().Err(err).Msg("telemetry disabled")
			tracker, _ = monitoring.NewTracker(monitoring.TelemetryConfig{})
		}
		g.tracker = tracker
	}
	if cfg.Routes.SkipPattern != "" {
		// Validated by config.Validate.
		g.skip = regexp.MustCompile(cfg.Routes.SkipPattern)
	}
	if cfg.Analytics.Enabled {
		g.reporter = analytics.NewReporter(g.vendor, cfg.Analytics,
			analytics.WithResultFunc(g.recordReportResult))
	}

	g.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           g.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	g.tracker.RecordInit(buildInitEvent(cfg))
	return g
}

// Handler returns the full HTTP handler: operational endpoints plus the transformer.
// Paths are matched exactly and never cleaned, so the origin sees every
// other request path byte for byte.
func (g *Gateway) Handler() http.Handler {
	metrics := g.exporter.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case PathHealth:
			g.handleHealth(w, r)
		case PathStats:
			g.handleStats(w, r)
		case PathMetrics:
			metrics.ServeHTTP(w, r)
		default:
			g.ServeHTTP(w, r)
		}
	})
}

// Metrics exposes the collector (tests, embedding).
func (g *Gateway) Metrics() *monitoring.MetricsCollector { return g.metrics }

// ServeHTTP runs the transformer for one request.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := g.newRequestState(r)

	if g.skip != nil && g.skip.MatchString(r.URL.Path) {
		st.action = monitoring.ActionSkipped
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		g.origin.ServeHTTP(rec, r)
		st.status = rec.status
		g.finishRequest(st)
		return
	}

	defer g.finishRequest(st)
	defer g.recoverBoundary(w, r, st)

	if vendor.IsPassThrough(st.path) {
		if err := g.servePassThrough(w, r, st); err != nil {
			g.fallback(w, r, st, err)
		}
		return
	}

	st.stage = stageAnalytics
	g.reportPageView(r, st)

	g.serveTransformed(w, r, st)
}

// recoverBoundary turns panics in transformation code into a fallback.
// Panics raised by the origin handler itself are not ours and propagate.
func (g *Gateway) recoverBoundary(w http.ResponseWriter, r *http.Request, st *requestState) {
	p := recover()
	if p == nil {
		return
	}
	if p == http.ErrAbortHandler {
		panic(p)
	}
	inOrigin := st.stage == stageOrigin
	if inOrigin && (st.intercept == nil || !st.intercept.transforming) {
		panic(p)
	}
	err := fmt.Errorf("panic: %v", p)
	if inOrigin {
		// Raised by the interceptor inside an origin Write. The origin never
		// finished, so the capture is incomplete: rerun it if the client has
		// seen nothing yet.
		st.stage = stageRewrite
		if !st.intercept.forwarded {
			st.intercept = nil
			g.fallback(w, r, st, err)
			return
		}
	}
	if st.intercept != nil && st.intercept.forwarded && !st.intercept.buffered() {
		// Part of the response is already on the wire; the only safe move is to abort.
		log.Error().Err(err).Str("request_id", st.id).Str("stage", st.stage).Msg("gateway: panic after response started")
		g.recordFallback(st, err)
		panic(http.ErrAbortHandler)
	}
	g.fallback(w, r, st, err)
}

// fallback serves the original response after a failure.
func (g *Gateway) fallback(w http.ResponseWriter, r *http.Request, st *requestState, err error) {
	log.Warn().Err(err).Str("request_id", st.id).Str("path", st.path).Str("stage", st.stage).Msg("gateway: serving original response")
	g.recordFallback(st, err)

	if st.intercept != nil {
		st.intercept.writeCaptured()
		st.status = st.intercept.status
		return
	}
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	g.origin.ServeHTTP(rec, r)
	st.status = rec.status
}

func (g *Gateway) recordFallback(st *requestState, err error) {
	st.action = monitoring.ActionFallback
	st.err = err
	g.fallbacks.Record(monitoring.FallbackEntry{
		Timestamp: time.Now(),
		RequestID: st.id,
		Path:      st.path,
		Stage:     st.stage,
		Error:     err.Error(),
	})
}

func (g *Gateway) recordReportResult(_ vendor.PageMeta, outcome analytics.Outcome, _ error) {
	switch outcome {
	case analytics.OutcomeSent:
		g.metrics.RecordAnalyticsResult(true)
	case analytics.OutcomeFailed:
		g.metrics.RecordAnalyticsResult(false)
	case analytics.OutcomeDropped:
		g.metrics.RecordAnalyticsDropped()
	}
}

// =============================================================================
// SERVER LIFECYCLE
// =============================================================================

// Start listens on the configured port. It blocks until the server stops and
// returns nil after a clean Shutdown.
func (g *Gateway) Start() error {
	log.Info().Int("port", g.config.Server.Port).Str("mode", g.config.Rewrite.Mode).Msg("gateway listening")
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("gateway server: %w", err)
	}
	return nil
}

// Shutdown stops the server, then drains queued analytics reports.
func (g *Gateway) Shutdown(ctx context.Context) error {
	var errs []error
	if err := g.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if g.reporter != nil {
		if err := g.reporter.Shutdown(ctx); err != nil && !errors.Is(err, analytics.ErrReporterClosed) {
			errs = append(errs, fmt.Errorf("analytics drain: %w", err))
		}
	}
	if err := g.tracker.Close(); err != nil {
		errs = append(errs, err)
	}
	log.Info().Interface("stats", g.metrics.Stats()).Msg("gateway stopped")
	return errors.Join(errs...)
}
