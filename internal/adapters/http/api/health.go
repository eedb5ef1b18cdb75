package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/glwatch/pkg/metrics"
)

type healthResponse struct {
	Status string         `json:"status"`
	Stats  map[string]any `json:"stats,omitempty"`
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.stats != nil {
		resp.Stats = s.stats.GetStats()
		if started, ok := resp.Stats["started"].(bool); ok && !started {
			resp.Status = "stopped"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleMetrics serves the custom Prometheus registry.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
