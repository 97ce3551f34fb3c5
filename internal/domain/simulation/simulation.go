// Package simulation estimates a roster's season record with a team-quality
// logistic model and independent Bernoulli games.
package simulation

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/okian/budgetgm/internal/domain/model"
	"github.com/okian/budgetgm/internal/domain/roster"
)

// Default simulation configuration constants.
const (
	defaultGames     = 82
	defaultSteepness = 5.0
	defaultBaseMin   = 0.1
	defaultBaseMax   = 0.9
	defaultGameMin   = 0.05
	defaultGameMax   = 0.95
	defaultJitter    = 0.1
)

// Reference is a league-average value and its share of team quality.
// Counting references are per team; Percent references are averaged.
type Reference struct {
	Name    string
	Value   float64
	Weight  float64
	Percent bool
}

func (r Reference) value(s model.StatLine) float64 {
	switch r.Name {
	case "points":
		return s.Points
	case "rebounds":
		return s.Rebounds
	case "assists":
		return s.Assists
	case "steals":
		return s.Steals
	case "blocks":
		return s.Blocks
	case "fg_pct":
		return s.FieldGoalPct
	case "ts_pct":
		return s.TrueShooting
	case "ft_pct":
		return s.FreeThrowPct
	case "3pt_pct":
		return s.ThreePointPct
	case "turnovers":
		return s.Turnovers
	default:
		return 0
	}
}

// DefaultReferences returns the league-average table. Weights sum to 1.
func DefaultReferences() []Reference {
	return []Reference{
		{Name: "points", Value: 110, Weight: 0.30},
		{Name: "rebounds", Value: 44, Weight: 0.15},
		{Name: "assists", Value: 24, Weight: 0.15},
		{Name: "steals", Value: 7.5, Weight: 0.10},
		{Name: "blocks", Value: 5, Weight: 0.10},
		{Name: "fg_pct", Value: 46, Weight: 0.10, Percent: true},
		{Name: "ft_pct", Value: 78, Weight: 0.05, Percent: true},
		{Name: "3pt_pct", Value: 36, Weight: 0.05, Percent: true},
	}
}

// per-game standard deviation of simulated player counting stats
const (
	sigmaPoints   = 5.0
	sigmaRebounds = 2.0
	sigmaAssists  = 2.0
	sigmaSteals   = 0.5
	sigmaBlocks   = 0.5
)

// Simulator runs season simulations. It holds no mutable state and is safe
// for concurrent use as long as each call gets its own *rand.Rand.
type Simulator struct {
	games       int
	steepness   float64
	baseMin     float64
	baseMax     float64
	gameMin     float64
	gameMax     float64
	jitter      float64
	refs        []Reference
	playerLines bool
}

// New creates a simulator with configuration options.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		games:       defaultGames,
		steepness:   defaultSteepness,
		baseMin:     defaultBaseMin,
		baseMax:     defaultBaseMax,
		gameMin:     defaultGameMin,
		gameMax:     defaultGameMax,
		jitter:      defaultJitter,
		refs:        DefaultReferences(),
		playerLines: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Games returns the configured season length.
func (s *Simulator) Games() int { return s.games }

// Simulate plays a season for a complete roster using rng for every draw.
func (s *Simulator) Simulate(ctx context.Context, r *roster.Roster, rng *rand.Rand) (model.SimulationResult, error) {
	if r == nil || !r.IsComplete() {
		return model.SimulationResult{}, ErrIncompleteRoster
	}
	if rng == nil {
		return model.SimulationResult{}, ErrNilRand
	}
	players := r.Players()
	team := TeamStats(players)
	q := s.Quality(team, len(players))
	p := s.WinProbability(q)

	res := model.SimulationResult{
		WinProbability: p,
		TeamQuality:    q,
		TeamStats:      team,
	}
	totals := make([]model.PlayerSeason, len(players))
	for i, pl := range players {
		totals[i].Name = pl.Name
	}

	for g := 0; g < s.games; g++ {
		if err := ctx.Err(); err != nil {
			return model.SimulationResult{}, fmt.Errorf("simulation cancelled: %w", err)
		}
		pg := clamp(p+(rng.Float64()*2-1)*s.jitter, s.gameMin, s.gameMax)
		if rng.Float64() < pg {
			res.Wins++
		} else {
			res.Losses++
		}
		if s.playerLines {
			for i, pl := range players {
				st := pl.Stats
				totals[i].Points += draw(rng, st.Points, sigmaPoints)
				totals[i].Rebounds += draw(rng, st.Rebounds, sigmaRebounds)
				totals[i].Assists += draw(rng, st.Assists, sigmaAssists)
				totals[i].Steals += draw(rng, st.Steals, sigmaSteals)
				totals[i].Blocks += draw(rng, st.Blocks, sigmaBlocks)
				totals[i].GamesPlayed++
			}
		}
	}

	if s.playerLines && s.games > 0 {
		n := float64(s.games)
		for i := range totals {
			totals[i].Points /= n
			totals[i].Rebounds /= n
			totals[i].Assists /= n
			totals[i].Steals /= n
			totals[i].Blocks /= n
		}
		res.PlayerLines = totals
	}
	return res, nil
}

// TeamStats averages every stat across players. Percentages are averaged
// directly, not weighted by minutes.
func TeamStats(players []model.Player) model.StatLine {
	var t model.StatLine
	if len(players) == 0 {
		return t
	}
	for _, p := range players {
		s := p.Stats.Normalized()
		t.Points += s.Points
		t.Rebounds += s.Rebounds
		t.Assists += s.Assists
		t.Steals += s.Steals
		t.Blocks += s.Blocks
		t.FieldGoalPct += s.FieldGoalPct
		t.TrueShooting += s.TrueShooting
		t.ThreePointPct += s.ThreePointPct
		t.FreeThrowPct += s.FreeThrowPct
		t.Turnovers += s.Turnovers
		t.GamesPlayed += s.GamesPlayed
	}
	n := float64(len(players))
	t.Points /= n
	t.Rebounds /= n
	t.Assists /= n
	t.Steals /= n
	t.Blocks /= n
	t.FieldGoalPct /= n
	t.TrueShooting /= n
	t.ThreePointPct /= n
	t.FreeThrowPct /= n
	t.Turnovers /= n
	t.GamesPlayed /= n
	return t
}

// Quality scores mean team stats against league references. Counting stats
// are scaled back up to team totals so a league-average lineup scores 1.
func (s *Simulator) Quality(team model.StatLine, size int) float64 {
	q := 0.0
	for _, ref := range s.refs {
		if ref.Value <= 0 {
			continue
		}
		v := ref.value(team)
		if !ref.Percent {
			v *= float64(size)
		}
		q += ref.Weight * v / ref.Value
	}
	return q
}

// WinProbability maps quality onto the clipped logistic curve centered at q=1.
func (s *Simulator) WinProbability(q float64) float64 {
	p := 1 / (1 + math.Exp(-s.steepness*(q-1)))
	return clamp(p, s.baseMin, s.baseMax)
}

func draw(rng *rand.Rand, mean, sigma float64) float64 {
	return math.Max(0, rng.NormFloat64()*sigma+mean)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
