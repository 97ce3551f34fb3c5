package loadtest

import (
	"time"

	"github.com/okian/budgetgm/internal/domain/model"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL       string        // Base URL of the service
	Date          string        // Challenge date or "today"
	Entrants      int           // Number of distinct player names
	ResubmitEvery int           // Every Nth entrant submits a second roster; 0 disables
	Workers       int           // Number of concurrent submitters
	Timeout       time.Duration // HTTP request timeout
	Seed          int64         // Roster generation seed
	OutputFile    string        // Where to write the generated entries; empty skips it
	Verbose       bool
}

// Entry is one entrant and the rosters it submits, in order.
type Entry struct {
	Identity string     `json:"player_name"`
	Rosters  [][]string `json:"rosters"`
}

// Stats holds run statistics.
type Stats struct {
	Entrants        int
	Submitted       int
	Successful      int
	Rejected        int
	Failed          int
	LeaderboardSize int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

type challengeResponse struct {
	Date        string                 `json:"date"`
	PlayerPool  map[int][]model.Player `json:"player_pool"`
	Submissions int                    `json:"submissions"`
}

type playerRef struct {
	Name string `json:"name"`
}

type rosterRequest struct {
	PlayerName string      `json:"player_name"`
	Players    []playerRef `json:"players"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
