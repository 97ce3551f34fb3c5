// Package rating turns raw stat lines into normalized ratings and cost tiers.
package rating

import (
	"math"

	"github.com/okian/budgetgm/internal/domain/model"
)

// Default rating configuration constants.
const (
	defaultReferenceGames = 246 // three regular seasons
	lowSampleCutoff       = 0.5
	lowSampleSlope        = 0.7
	highSampleBase        = 0.5
	highSampleSlope       = 0.8

	minNormalized   = 1.0
	maxNormalized   = 100.0
	equalNormalized = 50.0
)

// Stat names a single stat used by weights and bonuses.
type Stat string

// Rated stats.
const (
	StatPoints       Stat = "points"
	StatAssists      Stat = "assists"
	StatRebounds     Stat = "rebounds"
	StatSteals       Stat = "steals"
	StatBlocks       Stat = "blocks"
	StatFieldGoalPct Stat = "fg_pct"
	StatTrueShooting Stat = "ts_pct"
)

func (s Stat) value(line model.StatLine) float64 {
	switch s {
	case StatPoints:
		return line.Points
	case StatAssists:
		return line.Assists
	case StatRebounds:
		return line.Rebounds
	case StatSteals:
		return line.Steals
	case StatBlocks:
		return line.Blocks
	case StatFieldGoalPct:
		return line.FieldGoalPct
	case StatTrueShooting:
		return line.TrueShooting
	default:
		return 0
	}
}

// Weight scales one stat's contribution.
type Weight struct {
	Stat  Stat
	Value float64
}

// Bonus adds Points when Stat reaches Threshold.
type Bonus struct {
	Stat      Stat
	Threshold float64
	Points    float64
}

// DefaultWeights returns the per-stat weight table.
func DefaultWeights() []Weight {
	return []Weight{
		{Stat: StatPoints, Value: 1.0},
		{Stat: StatAssists, Value: 1.0},
		{Stat: StatRebounds, Value: 0.8},
		{Stat: StatSteals, Value: 0.7},
		{Stat: StatBlocks, Value: 0.7},
		{Stat: StatFieldGoalPct, Value: 0.5},
		{Stat: StatTrueShooting, Value: 0.5},
	}
}

// DefaultBonuses returns the elite single-stat bonuses. All applicable bonuses stack.
func DefaultBonuses() []Bonus {
	return []Bonus{
		{Stat: StatPoints, Threshold: 25, Points: 10},
		{Stat: StatAssists, Threshold: 8, Points: 8},
		{Stat: StatRebounds, Threshold: 10, Points: 8},
		{Stat: StatSteals, Threshold: 2, Points: 5},
		{Stat: StatBlocks, Threshold: 2, Points: 5},
	}
}

// Rater computes player ratings and builds rated pools.
type Rater struct {
	weights        []Weight
	bonuses        []Bonus
	referenceGames float64
	policy         TierPolicy
}

// NewRater creates a rater with configuration options.
func NewRater(opts ...Option) *Rater {
	r := &Rater{
		weights:        DefaultWeights(),
		bonuses:        DefaultBonuses(),
		referenceGames: defaultReferenceGames,
		policy:         DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the tier policy used by BuildPool.
func (r *Rater) Policy() TierPolicy { return r.policy }

// Rate returns the raw (pre-normalization) rating of a stat line.
// Missing fields count as zero; the result is never negative.
func (r *Rater) Rate(line model.StatLine) float64 {
	line = line.Normalized()

	score := 0.0
	for _, w := range r.weights {
		score += w.Value * w.Stat.value(line)
	}
	for _, b := range r.bonuses {
		if b.Stat.value(line) >= b.Threshold {
			score += b.Points
		}
	}

	score *= r.Reliability(line.GamesPlayed)
	return math.Max(0, score)
}

// Reliability returns the participation factor for a games-played total.
// Players under half the reference window are penalized more than proportionally.
func (r *Rater) Reliability(gamesPlayed float64) float64 {
	if r.referenceGames <= 0 {
		return 1
	}
	p := math.Min(math.Max(gamesPlayed, 0)/r.referenceGames, 1)
	if p < lowSampleCutoff {
		return p * lowSampleSlope
	}
	return highSampleBase + (p-lowSampleCutoff)*highSampleSlope
}

// Normalize rescales scores linearly onto [1,100]. When every score is equal
// (including a single score) everyone gets 50.
func Normalize(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	span := hi - lo
	for i, s := range scores {
		if span == 0 {
			out[i] = equalNormalized
			continue
		}
		out[i] = minNormalized + (s-lo)/span*(maxNormalized-minNormalized)
	}
	return out
}

// BuildPool rates, normalizes and tiers every line, preserving input order.
func (r *Rater) BuildPool(lines []model.PlayerLine) *Pool {
	raw := make([]float64, len(lines))
	for i, l := range lines {
		raw[i] = r.Rate(l.Stats)
	}
	ratings := Normalize(raw)
	tiers := r.policy.Tiers(ratings)

	players := make([]model.Player, len(lines))
	for i, l := range lines {
		players[i] = model.Player{
			Name:     l.Name,
			Position: model.ParsePosition(string(l.Position)),
			Team:     l.Team,
			Stats:    l.Stats.Normalized(),
			Rating:   ratings[i],
			Cost:     tiers[i],
		}
	}
	return NewPool(players)
}
