package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/budgetgm/internal/domain/model"
	"github.com/okian/budgetgm/pkg/logger"
)

const (
	directoryPermission = 0750
	filePermission      = 0600
	percentMultiplier   = 100
)

// Run submits generated rosters concurrently and verifies the resulting
// leaderboard. It returns the run statistics even on verification failure.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("loadtest")
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("date", cfg.Date),
		logger.Int("entrants", cfg.Entrants),
		logger.Int("workers", cfg.Workers))

	if err := client.getJSON(ctx, "/healthz", nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	var ch challengeResponse
	if err := client.getJSON(ctx, "/api/challenges/"+url.PathEscape(cfg.Date), &ch); err != nil {
		return stats, fmt.Errorf("fetch challenge: %w", err)
	}
	// later calls use the resolved date so a run across midnight stays on one day
	date := ch.Date

	entries, err := generateEntries(cfg, ch.PlayerPool)
	if err != nil {
		return stats, fmt.Errorf("roster generation failed: %w", err)
	}
	stats.Entrants = len(entries)

	final := submitEntries(ctx, cfg, client, date, entries, stats)

	var board []model.Standing
	if err := client.getJSON(ctx, "/api/challenges/"+date+"/leaderboard", &board); err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.LeaderboardSize = len(board)

	if cfg.OutputFile != "" {
		if err := saveEntries(cfg.OutputFile, entries); err != nil {
			log.Warn(ctx, "failed to save entries", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logStats(ctx, log, stats)

	if err := verifyLeaderboard(board, final); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}
	log.Info(ctx, "leaderboard verified", logger.Int("entries", len(board)))
	return stats, nil
}

// submitEntries fans entries out to cfg.Workers submitters. An entrant's
// rosters go out in order from one worker; the returned map holds the last
// accepted submission per identity.
func submitEntries(ctx context.Context, cfg *Config, client *httpClient, date string, entries []Entry, stats *Stats) map[string]model.Submission {
	log := logger.Get().Named("loadtest")
	var submitted, successful, rejected, failed atomic.Int64

	var mu sync.Mutex
	final := make(map[string]model.Submission, len(entries))

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan Entry, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range jobs {
				for _, names := range e.Rosters {
					if ctx.Err() != nil {
						return
					}
					sub, err := submit(ctx, client, date, e.Identity, names)
					submitted.Add(1)
					var se *StatusError
					switch {
					case err == nil:
						successful.Add(1)
						mu.Lock()
						final[e.Identity] = sub
						mu.Unlock()
					case errors.As(err, &se) && se.Status < 500:
						rejected.Add(1)
						if cfg.Verbose {
							log.Debug(ctx, "submission rejected", logger.String("identity", e.Identity), logger.String("code", se.Code))
						}
					default:
						failed.Add(1)
						if cfg.Verbose {
							log.Debug(ctx, "submission failed", logger.String("identity", e.Identity), logger.Error(err))
						}
					}
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, e := range entries {
			select {
			case <-ctx.Done():
				return
			case jobs <- e:
			}
		}
	}()
	wg.Wait()

	stats.Submitted = int(submitted.Load())
	stats.Successful = int(successful.Load())
	stats.Rejected = int(rejected.Load())
	stats.Failed = int(failed.Load())
	return final
}

func submit(ctx context.Context, client *httpClient, date, identity string, names []string) (model.Submission, error) {
	req := rosterRequest{PlayerName: identity, Players: make([]playerRef, len(names))}
	for i, n := range names {
		req.Players[i] = playerRef{Name: n}
	}
	var sub model.Submission
	err := client.postJSON(ctx, "/api/challenges/"+date+"/submissions", req, &sub)
	return sub, err
}

// saveEntries writes the generated entries as a JSON array.
func saveEntries(filename string, entries []Entry) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entries: %w", err)
	}
	return os.WriteFile(filename, b, filePermission)
}

func logStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Successful) / float64(stats.Submitted) * percentMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("entrants", stats.Entrants),
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("leaderboard", stats.LeaderboardSize),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("submissionsPerSecond", perSecond))
}
