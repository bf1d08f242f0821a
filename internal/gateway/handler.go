// Operational HTTP handlers for the gateway.
//
// DESIGN: Everything under /_gateway/ is answered by the gateway itself and
// never reaches the origin:
//   - handleHealth(): liveness plus analytics queue depth; a full analytics
//     queue is reported but never fails the check (reports are fire-and-forget)
//   - handleStats():  counters as JSON, loopback only (stats.go)
//   - metrics:        Prometheus exposition (monitoring.PrometheusExporter)
package gateway

import (
	"encoding/json"
	"net/http"
	"time"
)

// Version is reported by the health endpoint.
var Version = "dev"

// writeError writes a JSON error response.
func (g *Gateway) writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{"message": msg, "type": "gateway_error"},
	})
}

// handleHealth returns gateway health status.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		g.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]interface{}{
		"status":  "ok",
		"time":    time.Now().Format(time.RFC3339),
		"version": Version,
		"mode":    g.config.Rewrite.Mode,
	}
	if g.reporter != nil {
		pending := g.reporter.Pending()
		health["analytics_pending"] = pending
		health["analytics"] = "ok"
		if pending >= g.reporter.Capacity() {
			health["analytics"] = "saturated"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	_ = json.NewEncoder(w).Encode(health)
}
