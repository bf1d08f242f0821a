// Package gateway - router.go serves vendor-hosted documents.
//
// /llms.txt and *.md are fetched from the customer's vendor base and copied
// to the client verbatim. No schema fetch, no splice, no analytics report.
package gateway

import (
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/lunalift/edge-gateway/internal/monitoring"
)

// servePassThrough proxies one request to the vendor CDN. A returned error
// means nothing was written and the caller may fall back to the origin.
func (g *Gateway) servePassThrough(w http.ResponseWriter, r *http.Request, st *requestState) error {
	st.stage = stagePassThrough

	resp, err := g.vendor.PassThrough(r.Context(), r.Host, st.path, st.meta)
	if err != nil {
		g.metrics.RecordPassThroughFailure()
		return fmt.Errorf("vendor pass-through: %w", err)
	}
	defer resp.Body.Close()

	st.action = monitoring.ActionPassThrough
	st.status = resp.StatusCode

	copyHeaders(w, resp.Header)
	w.WriteHeader(resp.StatusCode)

	n, err := io.Copy(w, resp.Body)
	st.responseBytes = int(n)
	if err != nil {
		// Headers are on the wire; a short body is all we can do.
		log.Debug().Err(err).Str("request_id", st.id).Str("path", st.path).Msg("pass-through body copy interrupted")
	}
	return nil
}
