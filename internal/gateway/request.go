// Request utilities - per-request state, client metadata and telemetry.
//
// DESIGN:
//   - newRequestState(): request ID, path and vendor PageMeta, built once
//   - clientIP():        configured proxy headers first, RemoteAddr last
//   - finishRequest():   metrics, Prometheus latency and telemetry event
package gateway

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lunalift/edge-gateway/internal/monitoring"
	"github.com/lunalift/edge-gateway/internal/vendor"
)

// requestState is owned by a single request goroutine.
type requestState struct {
	id     string
	start  time.Time
	method string
	host   string
	path   string // escaped path, as a browser would report location.pathname
	meta   vendor.PageMeta

	stage     string
	action    monitoring.Action
	status    int
	err       error
	intercept *responseInterceptor

	schemaInjected  bool
	pixelInjected   bool
	analyticsQueued bool
	responseBytes   int
	schemaLatency   time.Duration
	originLatency   time.Duration
}

func (g *Gateway) newRequestState(r *http.Request) *requestState {
	return &requestState{
		id:     g.getRequestID(r),
		start:  time.Now(),
		method: r.Method,
		host:   r.Host,
		path:   r.URL.EscapedPath(),
		meta: vendor.PageMeta{
			PageURL:   pageURL(r),
			ClientIP:  clientIP(r, g.config.Vendor.ClientIPHeaders),
			UserAgent: r.Header.Get("User-Agent"),
			Referer:   r.Header.Get("Referer"),
		},
	}
}

// getRequestID gets or generates a request ID.
func (g *Gateway) getRequestID(r *http.Request) string {
	if id := r.Header.Get(HeaderRequestID); id != "" {
		return id
	}
	return uuid.New().String()
}

// pageURL reconstructs the public href of the request.
func pageURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	} else if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	uri := r.URL.RequestURI()
	if r.RequestURI != "" {
		uri = r.RequestURI
	}
	return scheme + "://" + r.Host + uri
}

// clientIP returns the first non-empty configured header, the leftmost entry
// for X-Forwarded-For, then RemoteAddr without its port.
func clientIP(r *http.Request, headers []string) string {
	for _, h := range headers {
		v := strings.TrimSpace(r.Header.Get(h))
		if v == "" {
			continue
		}
		if strings.EqualFold(h, "X-Forwarded-For") {
			v = strings.TrimSpace(strings.Split(v, ",")[0])
		}
		if v != "" {
			return v
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// isLoopback reports whether a RemoteAddr belongs to the local machine.
func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// copyHeaders copies HTTP headers from source to destination.
func copyHeaders(w http.ResponseWriter, src http.Header) {
	for k, v := range src {
		w.Header()[k] = v
	}
}

// statusRecorder remembers the status written by a handler we do not intercept.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wrote && code >= 200 {
		s.status = code
		s.wrote = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	s.wrote = true
	return s.ResponseWriter.Write(p)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// =============================================================================
// TELEMETRY HELPERS
// =============================================================================

// finishRequest records metrics and the telemetry event for a request.
func (g *Gateway) finishRequest(st *requestState) {
	elapsed := time.Since(st.start)
	if st.action == "" {
		st.action = monitoring.ActionNotHTML
	}

	g.metrics.RecordRequest(st.action)
	g.exporter.ObserveRequest(st.action, elapsed)

	event := &monitoring.RequestEvent{
		RequestID:        st.id,
		Timestamp:        st.start,
		Method:           st.method,
		Host:             st.host,
		Path:             st.path,
		ClientIP:         st.meta.ClientIP,
		Action:           st.action,
		StatusCode:       st.status,
		ResponseBodySize: st.responseBytes,
		SchemaInjected:   st.schemaInjected,
		PixelInjected:    st.pixelInjected,
		AnalyticsQueued:  st.analyticsQueued,
		SchemaLatencyMs:  st.schemaLatency.Milliseconds(),
		OriginLatencyMs:  st.originLatency.Milliseconds(),
		TotalLatencyMs:   elapsed.Milliseconds(),
	}
	if st.intercept != nil {
		event.OriginBodySize = st.intercept.origBytes
	}
	if st.err != nil {
		event.Error = st.err.Error()
	}
	g.tracker.RecordRequest(event)

	log.Debug().
		Str("request_id", st.id).
		Str("path", st.path).
		Str("action", string(st.action)).
		Int("status", st.status).
		Dur("latency", elapsed).
		Msg("request handled")
}
