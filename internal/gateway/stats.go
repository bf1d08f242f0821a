// Package gateway - stats.go exposes aggregated metrics as JSON.
//
// GET /_gateway/stats returns request, rewrite and analytics counters plus
// the most recent fallbacks.
package gateway

import (
	"encoding/json"
	"net/http"
)

// recentErrorsInStats is how many fallback entries the stats endpoint includes.
const recentErrorsInStats = 20

// handleStats returns aggregated metrics as JSON.
// Restricted to localhost to prevent external access to operational metrics.
func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if r.Method != http.MethodGet {
		g.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := g.metrics.FullStats()
	resp.RecentErrors = g.fallbacks.Recent(recentErrorsInStats)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	_ = json.NewEncoder(w).Encode(resp)
}
