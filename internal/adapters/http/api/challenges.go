package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/budgetgm/internal/domain/model"
)

type challengeResponse struct {
	Date        string                 `json:"date"`
	PlayerPool  map[int][]model.Player `json:"player_pool"`
	Submissions int                    `json:"submissions"`
	CreatedAt   time.Time              `json:"created_at"`
}

// handleListChallenges handles GET /api/challenges.
func (s *Server) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	dates, err := s.challenges.Dates(r.Context())
	if err != nil {
		s.writeError(w, r, Wrap("api.list_challenges", err))
		return
	}
	writeJSON(w, http.StatusOK, dates)
}

// handleGetChallenge handles GET /api/challenges/{date}, generating the
// day's pool on first access.
func (s *Server) handleGetChallenge(w http.ResponseWriter, r *http.Request) {
	doc, err := s.challenges.GetOrCreate(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		s.writeError(w, r, Wrap("api.get_challenge", err))
		return
	}
	writeJSON(w, http.StatusOK, challengeResponse{
		Date:        doc.Date,
		PlayerPool:  doc.PlayerPool,
		Submissions: len(doc.Submissions),
		CreatedAt:   doc.CreatedAt,
	})
}

// handleSubmit handles POST /api/challenges/{date}/submissions.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit"
	var req rosterRequest
	if err := s.decode(w, r, op, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sub, err := s.challenges.SubmitNames(r.Context(), chi.URLParam(r, "date"), req.PlayerName, req.names())
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// handleGetSubmission handles GET /api/challenges/{date}/submissions/{identity}.
func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_submission"
	identity := chi.URLParam(r, "identity")
	sub, found, err := s.challenges.Submission(r.Context(), chi.URLParam(r, "date"), identity)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	if !found {
		s.writeError(w, r, NewKind(op, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// handleLeaderboard handles GET /api/challenges/{date}/leaderboard?limit=N.
// Without a limit the whole board is returned.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.leaderboard"
	limit, err := s.parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	board, err := s.challenges.Leaderboard(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	if limit > 0 && len(board) > limit {
		board = board[:limit]
	}
	writeJSON(w, http.StatusOK, board)
}

func (s *Server) parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	if n > s.maxLimit {
		return 0, fmt.Errorf("limit %d exceeds %d", n, s.maxLimit)
	}
	return n, nil
}
