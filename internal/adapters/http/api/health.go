package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/budgetgm/internal/domain/challenge"
	"github.com/okian/budgetgm/pkg/metrics"
)

type healthResponse struct {
	Status  string `json:"status"`
	Players int    `json:"players"`
}

// handleHealth handles GET /healthz. The service is healthy once the
// canonical pool has loaded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	pool, err := s.pools.Pool(r.Context())
	if err != nil {
		s.writeError(w, r, WrapKind("api.health", challenge.ErrPoolUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Players: pool.Len()})
}

// metricsHandler serves the custom registry.
func metricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
