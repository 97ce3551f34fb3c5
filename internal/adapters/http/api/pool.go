package api

import (
	"net/http"

	"github.com/okian/budgetgm/internal/domain/challenge"
)

// handlePlayerPool handles GET /api/player_pool: the canonical pool keyed
// by cost tier.
func (s *Server) handlePlayerPool(w http.ResponseWriter, r *http.Request) {
	const op = "api.player_pool"
	pool, err := s.pools.Pool(r.Context())
	if err != nil {
		s.writeError(w, r, WrapKind(op, challenge.ErrPoolUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, pool.ByTier())
}

// handleSimulate handles POST /api/simulate. Nothing is recorded.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	const op = "api.simulate"
	var req rosterRequest
	if err := s.decode(w, r, op, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.challenges.Simulate(r.Context(), req.names())
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
