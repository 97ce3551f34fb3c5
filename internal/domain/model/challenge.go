package model

import "time"

// DateLayout is the ISO date format used to key daily challenges.
const DateLayout = "2006-01-02"

// PlayerSeason is one player's simulated per-game averages.
type PlayerSeason struct {
	Name        string  `json:"name"`
	Points      float64 `json:"points"`
	Rebounds    float64 `json:"rebounds"`
	Assists     float64 `json:"assists"`
	Steals      float64 `json:"steals"`
	Blocks      float64 `json:"blocks"`
	GamesPlayed int     `json:"games_played"`
}

// SimulationResult is the outcome of a simulated season.
type SimulationResult struct {
	Wins           int            `json:"wins"`
	Losses         int            `json:"losses"`
	WinProbability float64        `json:"win_probability"`
	TeamQuality    float64        `json:"team_quality"`
	TeamStats      StatLine       `json:"team_stats"`
	PlayerLines    []PlayerSeason `json:"player_stats,omitempty"`
}

// Games returns the number of simulated games.
func (r SimulationResult) Games() int { return r.Wins + r.Losses }

// Record is a season win/loss record.
type Record struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

// Better reports whether r ranks ahead of o: more wins, then fewer losses.
func (r Record) Better(o Record) bool {
	if r.Wins != o.Wins {
		return r.Wins > o.Wins
	}
	return r.Losses < o.Losses
}

// RosterSlot is a player reference stored with a submission.
type RosterSlot struct {
	Name     string   `json:"name"`
	Position Position `json:"position"`
	Team     string   `json:"team"`
	Cost     int      `json:"cost"`
	Rating   float64  `json:"rating"`
}

// Submission is one identity's entry for a daily challenge.
type Submission struct {
	ID             string       `json:"id"`
	Identity       string       `json:"player_name"`
	Players        []RosterSlot `json:"players"`
	Record         Record       `json:"record"`
	WinProbability float64      `json:"win_probability"`
	Percentile     float64      `json:"percentile"`
	SubmittedAt    time.Time    `json:"timestamp"`
}

// Standing is a leaderboard row.
type Standing struct {
	Rank       int        `json:"rank"`
	Percentile float64    `json:"percentile"`
	Submission Submission `json:"submission"`
}

// Challenge is the persisted daily challenge document.
type Challenge struct {
	Date        string                `json:"date"`
	PlayerPool  map[int][]Player      `json:"player_pool"`
	Submissions map[string]Submission `json:"submissions"`
	Version     int64                 `json:"version"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// Clone returns a deep copy so stores never share maps with callers.
func (c *Challenge) Clone() *Challenge {
	if c == nil {
		return nil
	}
	out := *c
	out.PlayerPool = make(map[int][]Player, len(c.PlayerPool))
	for tier, players := range c.PlayerPool {
		out.PlayerPool[tier] = append([]Player(nil), players...)
	}
	out.Submissions = make(map[string]Submission, len(c.Submissions))
	for id, s := range c.Submissions {
		s.Players = append([]RosterSlot(nil), s.Players...)
		out.Submissions[id] = s
	}
	return &out
}

// Lookup finds a player in the challenge pool by name.
func (c *Challenge) Lookup(name string) (Player, bool) {
	for _, players := range c.PlayerPool {
		for _, p := range players {
			if p.Name == name {
				return p, true
			}
		}
	}
	return Player{}, false
}
