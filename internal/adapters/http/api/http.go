// Package api exposes the daily challenge over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/okian/budgetgm/internal/adapters/http/swagger"
	"github.com/okian/budgetgm/internal/domain/model"
	"github.com/okian/budgetgm/internal/domain/rating"
	"github.com/okian/budgetgm/pkg/logger"
)

const (
	defaultMaxLimit     = 1000
	defaultMaxBodyBytes = 1 << 20
)

// Challenges is the challenge manager as seen by the handlers.
type Challenges interface {
	GetOrCreate(ctx context.Context, date string) (*model.Challenge, error)
	SubmitNames(ctx context.Context, date, identity string, names []string) (model.Submission, error)
	Leaderboard(ctx context.Context, date string) ([]model.Standing, error)
	Submission(ctx context.Context, date, identity string) (model.Submission, bool, error)
	Dates(ctx context.Context) ([]string, error)
	Simulate(ctx context.Context, names []string) (model.SimulationResult, error)
}

// PoolProvider returns the canonical rated pool.
type PoolProvider interface {
	Pool(ctx context.Context) (*rating.Pool, error)
}

// Server wires HTTP routes for the challenge API.
type Server struct {
	challenges   Challenges
	pools        PoolProvider
	logger       logger.Logger
	maxLimit     int
	maxBodyBytes int64
	docs         bool
}

// NewServer creates a new API server.
func NewServer(challenges Challenges, pools PoolProvider, opts ...Option) *Server {
	s := &Server{
		challenges:   challenges,
		pools:        pools,
		logger:       logger.Get().Named("api"),
		maxLimit:     defaultMaxLimit,
		maxBodyBytes: defaultMaxBodyBytes,
		docs:         true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the router.
//
//	GET  /healthz
//	GET  /metrics
//	GET  /api/player_pool
//	POST /api/simulate
//	GET  /api/challenges
//	GET  /api/challenges/{date}
//	POST /api/challenges/{date}/submissions
//	GET  /api/challenges/{date}/submissions/{identity}
//	GET  /api/challenges/{date}/leaderboard
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metricsHandler())
	if s.docs {
		swagger.Register(r)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/player_pool", s.handlePlayerPool)
		r.Post("/simulate", s.handleSimulate)

		r.Route("/challenges", func(r chi.Router) {
			r.Get("/", s.handleListChallenges)
			r.Route("/{date}", func(r chi.Router) {
				r.Get("/", s.handleGetChallenge)
				r.Post("/submissions", s.handleSubmit)
				r.Get("/submissions/{identity}", s.handleGetSubmission)
				r.Get("/leaderboard", s.handleLeaderboard)
			})
		})
	})
	return r
}

// playerRef is a roster entry in request bodies. Stats are accepted for
// compatibility and ignored; the day's pool is authoritative.
type playerRef struct {
	Name  string          `json:"name"`
	Stats json.RawMessage `json:"stats,omitempty"`
}

// rosterRequest is the body of POST /api/simulate and submissions.
type rosterRequest struct {
	Players    []playerRef `json:"players"`
	PlayerName string      `json:"player_name"`
}

func (req rosterRequest) names() []string {
	names := make([]string, 0, len(req.Players))
	for _, p := range req.Players {
		names = append(names, p.Name)
	}
	return names
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, op string, v any) error {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, fmt.Errorf("decode body: %w", err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and code. Server-side failures are
// logged and their details hidden from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", chiMiddleware.GetReqID(r.Context())),
			logger.Int("status", status),
			logger.Error(err))
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
