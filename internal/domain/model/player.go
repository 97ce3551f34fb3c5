// Package model contains domain models passed between layers.
package model

import (
	"math"
	"strings"
)

// Position is one of the five basketball positions.
type Position string

// Known positions.
const (
	PointGuard    Position = "PG"
	ShootingGuard Position = "SG"
	SmallForward  Position = "SF"
	PowerForward  Position = "PF"
	Center        Position = "C"
)

// Positions lists the known positions in lineup order.
var Positions = []Position{PointGuard, ShootingGuard, SmallForward, PowerForward, Center} //nolint:gochecknoglobals // read-only table

// ParsePosition normalizes free-form position labels ("pg", " C ").
// Unknown labels are returned upper-cased and are never capped by rosters.
func ParsePosition(s string) Position {
	return Position(strings.ToUpper(strings.TrimSpace(s)))
}

// Known reports whether p is one of the five positions.
func (p Position) Known() bool {
	for _, k := range Positions {
		if p == k {
			return true
		}
	}
	return false
}

// StatLine is a per-player statistical line. Percentages are in [0,100].
type StatLine struct {
	Points        float64 `json:"pts"`
	Rebounds      float64 `json:"reb"`
	Assists       float64 `json:"ast"`
	Steals        float64 `json:"stl"`
	Blocks        float64 `json:"blk"`
	FieldGoalPct  float64 `json:"fg_pct"`
	TrueShooting  float64 `json:"ts_pct"`
	ThreePointPct float64 `json:"3pt_pct"`
	FreeThrowPct  float64 `json:"ft_pct"`
	Turnovers     float64 `json:"tov"`
	GamesPlayed   float64 `json:"gp"`
}

// Normalized returns a copy with negative or non-finite values zeroed. A line
// whose shooting percentages are all fractions (<= 1) is scaled to percent
// units; a line with any value above 1 is already in percent units.
func (s StatLine) Normalized() StatLine {
	scale := 1.0
	if s.fractional() {
		scale = 100
	}
	return StatLine{
		Points:        nonNegative(s.Points),
		Rebounds:      nonNegative(s.Rebounds),
		Assists:       nonNegative(s.Assists),
		Steals:        nonNegative(s.Steals),
		Blocks:        nonNegative(s.Blocks),
		FieldGoalPct:  percent(s.FieldGoalPct, scale),
		TrueShooting:  percent(s.TrueShooting, scale),
		ThreePointPct: percent(s.ThreePointPct, scale),
		FreeThrowPct:  percent(s.FreeThrowPct, scale),
		Turnovers:     nonNegative(s.Turnovers),
		GamesPlayed:   nonNegative(s.GamesPlayed),
	}
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func (s StatLine) fractional() bool {
	seen := false
	for _, v := range []float64{s.FieldGoalPct, s.TrueShooting, s.ThreePointPct, s.FreeThrowPct} {
		v = nonNegative(v)
		if v > 1 {
			return false
		}
		if v > 0 {
			seen = true
		}
	}
	return seen
}

func percent(v, scale float64) float64 {
	return math.Min(nonNegative(v)*scale, 100)
}

// PlayerLine is a raw player record as delivered by a pool source.
type PlayerLine struct {
	Name     string   `json:"name"`
	Position Position `json:"position"`
	Team     string   `json:"team"`
	Stats    StatLine `json:"stats"`
}

// Player is a rated, priced member of a pool snapshot.
type Player struct {
	Name     string   `json:"name"`
	Position Position `json:"position"`
	Team     string   `json:"team"`
	Stats    StatLine `json:"stats"`
	Rating   float64  `json:"rating"`
	Cost     int      `json:"cost"`
}
