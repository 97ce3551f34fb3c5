package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/budgetgm/internal/adapters/http/api"
	"github.com/okian/budgetgm/internal/adapters/mq/queue"
	"github.com/okian/budgetgm/internal/adapters/repository"
	"github.com/okian/budgetgm/internal/domain/challenge"
	"github.com/okian/budgetgm/internal/domain/model"
	"github.com/okian/budgetgm/internal/domain/rating"
	"github.com/okian/budgetgm/internal/domain/roster"
	"github.com/okian/budgetgm/internal/domain/simulation"
	"github.com/okian/budgetgm/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const day = "2024-03-01"

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

type staticPool struct {
	pool *rating.Pool
	err  error
}

func (s staticPool) Pool(context.Context) (*rating.Pool, error) { return s.pool, s.err }

func testPool() *rating.Pool {
	lines := make([]model.PlayerLine, 100)
	for i := range lines {
		lines[i] = model.PlayerLine{
			Name:     fmt.Sprintf("player-%03d", i),
			Position: model.Positions[i%len(model.Positions)],
			Team:     "TST",
			Stats:    model.StatLine{Points: float64(i) / 3, Rebounds: 4, Assists: 3, FieldGoalPct: 46, GamesPlayed: 246},
		}
	}
	return rating.NewRater().BuildPool(lines)
}

// validNames picks one player per tier, which costs exactly the budget.
func validNames(doc *model.Challenge) []string {
	r := roster.New()
	for tier := rating.MaxTier; tier >= rating.MinTier; tier-- {
		for _, p := range doc.PlayerPool[tier] {
			if r.Add(p) == nil {
				break
			}
		}
	}
	names := []string{}
	for _, p := range r.Players() {
		names = append(names, p.Name)
	}
	return names
}

func rosterBody(identity string, names []string) string {
	players := make([]map[string]any, 0, len(names))
	for _, n := range names {
		players = append(players, map[string]any{"name": n, "stats": map[string]float64{"pts": 99}})
	}
	b, _ := json.Marshal(map[string]any{"player_name": identity, "players": players})
	return string(b)
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader = http.NoBody
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var e struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	return e.Code
}

func TestServer_Routes(t *testing.T) {
	Convey("Given the API over a real challenge manager", t, func() {
		pools := staticPool{pool: testPool()}
		manager := challenge.NewManager(repository.NewMemoryStore(), pools, simulation.New())
		h := api.NewServer(manager, pools, api.WithMaxLimit(10)).Routes()

		doc, err := manager.GetOrCreate(context.Background(), day)
		So(err, ShouldBeNil)
		names := validNames(doc)
		So(names, ShouldHaveLength, 5)

		Convey("When checking health", func() {
			w := do(h, http.MethodGet, "/healthz", "")

			Convey("Then it reports the pool size", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"players":100`)
			})
		})

		Convey("When scraping metrics", func() {
			_ = do(h, http.MethodGet, "/healthz", "")
			w := do(h, http.MethodGet, "/metrics", "")

			Convey("Then the request counter is exposed by route", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `endpoint="/healthz"`)
			})
		})

		Convey("When fetching the canonical pool", func() {
			w := do(h, http.MethodGet, "/api/player_pool", "")
			var byTier map[string][]model.Player
			So(json.Unmarshal(w.Body.Bytes(), &byTier), ShouldBeNil)

			Convey("Then players are keyed by tier", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(byTier["5"], ShouldHaveLength, 5)
				So(byTier["1"], ShouldHaveLength, 30)
			})
		})

		Convey("When fetching a challenge", func() {
			w := do(h, http.MethodGet, "/api/challenges/"+day, "")
			var body struct {
				Date       string                    `json:"date"`
				PlayerPool map[string][]model.Player `json:"player_pool"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)

			Convey("Then the day's pool is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body.Date, ShouldEqual, day)
				So(body.PlayerPool, ShouldHaveLength, 5)
			})
		})

		Convey("When the date is malformed", func() {
			w := do(h, http.MethodGet, "/api/challenges/yesterday", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "invalid_date")
		})

		Convey("When a valid roster is submitted", func() {
			w := do(h, http.MethodPost, "/api/challenges/"+day+"/submissions", rosterBody("alice", names))
			var sub model.Submission
			So(json.Unmarshal(w.Body.Bytes(), &sub), ShouldBeNil)

			Convey("Then it is recorded at the top", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(sub.Identity, ShouldEqual, "alice")
				So(sub.Record.Wins+sub.Record.Losses, ShouldEqual, 82)
				So(sub.Percentile, ShouldEqual, 100)
			})

			Convey("Then it can be read back", func() {
				w := do(h, http.MethodGet, "/api/challenges/"+day+"/submissions/alice", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, sub.ID)
			})

			Convey("Then it appears on the leaderboard", func() {
				w := do(h, http.MethodGet, "/api/challenges/"+day+"/leaderboard?limit=5", "")
				var board []model.Standing
				So(json.Unmarshal(w.Body.Bytes(), &board), ShouldBeNil)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(board, ShouldHaveLength, 1)
				So(board[0].Rank, ShouldEqual, 1)
			})

			Convey("Then the date is listed", func() {
				w := do(h, http.MethodGet, "/api/challenges", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, `["2024-03-01"]`)
			})
		})

		Convey("When reading an entry nobody made", func() {
			w := do(h, http.MethodGet, "/api/challenges/"+day+"/submissions/ghost", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(w), ShouldEqual, "not_found")
		})

		Convey("When the leaderboard limit is out of range", func() {
			So(do(h, http.MethodGet, "/api/challenges/"+day+"/leaderboard?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodGet, "/api/challenges/"+day+"/leaderboard?limit=11", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the body is not JSON", func() {
			w := do(h, http.MethodPost, "/api/challenges/"+day+"/submissions", "{")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "bad_request")
		})

		Convey("When the player name is blank", func() {
			w := do(h, http.MethodPost, "/api/challenges/"+day+"/submissions", rosterBody(" ", names))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "invalid_identity")
		})

		Convey("When the roster is over budget", func() {
			var stars []string
			for _, p := range doc.PlayerPool[5] {
				stars = append(stars, p.Name)
			}
			w := do(h, http.MethodPost, "/api/challenges/"+day+"/submissions", rosterBody("bob", stars))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "budget_exceeded")
		})

		Convey("When a player is not in the day's pool", func() {
			w := do(h, http.MethodPost, "/api/challenges/"+day+"/submissions", rosterBody("carol", append(names[:4:4], "ghost")))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "player_not_in_pool")
		})

		Convey("When the roster is short", func() {
			w := do(h, http.MethodPost, "/api/challenges/"+day+"/submissions", rosterBody("dave", names[:2]))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "incomplete_roster")
		})

		Convey("When previewing a season", func() {
			w := do(h, http.MethodPost, "/api/simulate", rosterBody("", names))
			var res model.SimulationResult
			So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)

			Convey("Then a full season comes back and nothing is recorded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(res.Games(), ShouldEqual, 82)
				So(res.PlayerLines, ShouldHaveLength, 5)
				board, err := manager.Leaderboard(context.Background(), day)
				So(err, ShouldBeNil)
				So(board, ShouldBeEmpty)
			})
		})

		Convey("When the docs are requested", func() {
			So(do(h, http.MethodGet, "/openapi.yaml", "").Code, ShouldEqual, http.StatusOK)
		})
	})
}

// failingChallenges returns err from every call.
type failingChallenges struct{ err error }

func (f failingChallenges) GetOrCreate(context.Context, string) (*model.Challenge, error) {
	return nil, f.err
}
func (f failingChallenges) SubmitNames(context.Context, string, string, []string) (model.Submission, error) {
	return model.Submission{}, f.err
}
func (f failingChallenges) Leaderboard(context.Context, string) ([]model.Standing, error) {
	return nil, f.err
}
func (f failingChallenges) Submission(context.Context, string, string) (model.Submission, bool, error) {
	return model.Submission{}, false, f.err
}
func (f failingChallenges) Dates(context.Context) ([]string, error) { return nil, f.err }
func (f failingChallenges) Simulate(context.Context, []string) (model.SimulationResult, error) {
	return model.SimulationResult{}, f.err
}

func TestServer_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("enqueue: %w", queue.ErrBackpressure), http.StatusTooManyRequests, "backpressure"},
		{fmt.Errorf("save: %w: dial tcp", challenge.ErrStoreUnavailable), http.StatusServiceUnavailable, "unavailable"},
		{challenge.ErrVersionConflict, http.StatusConflict, "conflict"},
		{fmt.Errorf("simulate: %w", simulation.ErrIncompleteRoster), http.StatusBadRequest, "incomplete_roster"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	Convey("Given a manager that fails", t, func() {
		for _, tc := range cases {
			h := api.NewServer(failingChallenges{err: tc.err}, staticPool{pool: testPool()}, api.WithoutDocs()).Routes()

			Convey("When it fails with "+tc.err.Error(), func() {
				w := do(h, http.MethodPost, "/api/challenges/"+day+"/submissions", rosterBody("x", []string{"a"}))

				Convey("Then the response carries the mapped status and code", func() {
					So(w.Code, ShouldEqual, tc.status)
					So(errorCode(w), ShouldEqual, tc.code)
					if tc.status >= http.StatusInternalServerError {
						So(w.Body.String(), ShouldNotContainSubstring, "dial tcp")
					}
				})
			})
		}
	})

	Convey("Given a pool that cannot load", t, func() {
		h := api.NewServer(failingChallenges{}, staticPool{err: errors.New("no file")}).Routes()

		Convey("Then health reports unavailable", func() {
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(errorCode(w), ShouldEqual, "unavailable")
		})
	})

	Convey("Given an oversized body", t, func() {
		h := api.NewServer(failingChallenges{}, staticPool{pool: testPool()}, api.WithMaxBodyBytes(16)).Routes()
		body := bytes.Repeat([]byte("a"), 64)

		Convey("Then it is rejected as a bad request", func() {
			w := do(h, http.MethodPost, "/api/simulate", `{"player_name":"`+string(body)+`"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestError(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		cause := errors.New("unexpected EOF")
		err := api.WrapKind("api.submit", api.ErrBadRequest, cause)

		Convey("Then both kind and cause match", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.submit: bad request: unexpected EOF")
		})

		Convey("Then NewKind and Wrap read naturally", func() {
			So(api.NewKind("api.get", api.ErrNotFound).Error(), ShouldEqual, "api.get: not found")
			So(api.Wrap("api.get", cause).Error(), ShouldEqual, "api.get: unexpected EOF")
			So(api.Wrap("api.get", nil), ShouldBeNil)
		})
	})
}
