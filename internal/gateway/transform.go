// Package gateway - transform.go rewrites HTML responses from the origin.
//
// DESIGN: Two ways to splice, chosen by rewrite.mode:
//   - server:   buffer the whole document, await the schema fetch, replace
//     JSON-LD before </head> and add the pixel before </body>
//   - deferred: stream the body through a Splicer that adds the pixel and a
//     client-side schema loader; nothing waits on the vendor
//
// Only uncompressed text/html bodies are touched. Everything else is
// forwarded as the origin wrote it.
package gateway

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lunalift/edge-gateway/internal/config"
	"github.com/lunalift/edge-gateway/internal/monitoring"
	"github.com/lunalift/edge-gateway/internal/rewrite"
)

// Insert positions in the deferred splicer.
const (
	deferredLoaderInsert = 0
	deferredPixelInsert  = 1
)

// reportPageView queues the analytics report for trackable requests.
func (g *Gateway) reportPageView(r *http.Request, st *requestState) {
	if g.reporter == nil || !g.filter.ShouldTrack(st.path, r.URL.RawQuery) {
		return
	}
	if g.reporter.Report(st.meta) {
		st.analyticsQueued = true
		g.metrics.RecordAnalyticsQueued()
	}
}

// serveTransformed runs the origin through the interceptor and rewrites HTML.
// Failures past this point panic into the boundary, which still holds the
// captured response.
func (g *Gateway) serveTransformed(w http.ResponseWriter, r *http.Request, st *requestState) {
	canAwait := g.config.Rewrite.CanAwaitDuringBodyTransform()
	ri := newResponseInterceptor(w, config.MaxHTMLBodySize, g.classifier(r, st, canAwait))
	st.intercept = ri

	st.stage = stageOrigin
	originStart := time.Now()
	g.origin.ServeHTTP(ri, r)
	st.originLatency = time.Since(originStart)

	st.stage = stageRewrite
	err := ri.finish()
	st.status = ri.status

	switch {
	case ri.overflowed:
		st.action = monitoring.ActionTooLarge
		log.Debug().Str("request_id", st.id).Int("bytes", ri.origBytes).Msg("html too large to rewrite, forwarded as-is")
	case ri.mode == modeSplice:
		if err != nil {
			log.Debug().Err(err).Str("request_id", st.id).Msg("deferred rewrite: client write failed")
		}
		if ri.splicer.Applied(deferredPixelInsert) {
			st.pixelInjected = true
			g.metrics.RecordPixelInjected()
		}
	}
	st.responseBytes = ri.origBytes

	if ri.buffered() {
		g.rewriteBuffered(r, st, ri)
	}
}

// classifier decides, once the origin commits its response, how to handle it.
func (g *Gateway) classifier(r *http.Request, st *requestState, canAwait bool) classifyFunc {
	return func(status int, h http.Header) (interceptMode, []rewrite.Insert) {
		switch {
		case !isHTML(h.Get("Content-Type")), r.Method == http.MethodHead, !bodyAllowed(status):
			st.action = monitoring.ActionNotHTML
			return modeDirect, nil
		case isEncoded(h.Get("Content-Encoding")):
			st.action = monitoring.ActionEncoded
			return modeDirect, nil
		case canAwait:
			st.action = monitoring.ActionRewritten
			return modeBuffer, nil
		}

		st.action = monitoring.ActionDeferred
		if cc := g.config.Rewrite.HTMLCacheControl; cc != "" {
			h.Set("Cache-Control", cc)
		}
		inserts := make([]rewrite.Insert, 2)
		inserts[deferredLoaderInsert] = rewrite.SchemaLoaderInsert(g.vendor.SchemaURL(r.Host, st.path))
		inserts[deferredPixelInsert] = rewrite.PixelInsert(g.pixel)
		return modeSplice, inserts
	}
}

// rewriteBuffered fetches the schema and splices it and the pixel into a
// private copy of the captured document.
func (g *Gateway) rewriteBuffered(r *http.Request, st *requestState, ri *responseInterceptor) {
	html := ri.body.String()

	st.stage = stageSchema
	schemaStart := time.Now()
	schemaJSON, err := g.vendor.FetchSchema(r.Context(), r.Host, st.path)
	st.schemaLatency = time.Since(schemaStart)

	if err != nil {
		log.Debug().Err(err).Str("request_id", st.id).Str("path", st.path).Msg("schema injection skipped")
		g.metrics.RecordSchema(false)
	} else {
		html = rewrite.ReplaceSchema(html, schemaJSON)
		st.schemaInjected = strings.Contains(html, rewrite.SchemaTag(schemaJSON))
		g.metrics.RecordSchema(st.schemaInjected)
	}

	st.stage = stageRewrite
	if out := rewrite.InjectPixel(html, g.pixel); len(out) != len(html) {
		html = out
		st.pixelInjected = true
		g.metrics.RecordPixelInjected()
	}

	ri.writeBody(html, g.config.Rewrite.HTMLCacheControl)
	st.responseBytes = len(html)
}

// writeBody sends a rewritten document with a recomputed Content-Length.
func (ri *responseInterceptor) writeBody(body, cacheControl string) {
	ri.header.Set("Content-Length", strconv.Itoa(len(body)))
	if cacheControl != "" {
		ri.header.Set("Cache-Control", cacheControl)
	}
	ri.forward()
	_, _ = io.WriteString(ri.w, body)
}

func isHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}

func isEncoded(contentEncoding string) bool {
	enc := strings.TrimSpace(contentEncoding)
	return enc != "" && !strings.EqualFold(enc, "identity")
}

// bodyAllowed mirrors net/http: 1xx, 204 and 304 carry no body.
func bodyAllowed(status int) bool {
	if status >= 100 && status <= 199 {
		return false
	}
	return status != http.StatusNoContent && status != http.StatusNotModified
}
