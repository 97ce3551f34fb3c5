// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // timezone names resolve without a system zoneinfo

	"github.com/okian/budgetgm/internal/domain/rating"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr            string        `koanf:"addr"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// MaxLeaderboardLimit caps the leaderboard limit query parameter.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// Timezone resolves the "today" date alias.
	Timezone string `koanf:"timezone"`
	// PoolFile is the canonical player pool JSON; empty uses the bundled pool.
	PoolFile string `koanf:"pool_file"`

	StoreDriver     string        `koanf:"store_driver"`
	DataDir         string        `koanf:"data_dir"`
	DatabaseURL     string        `koanf:"database_url"`
	DatabaseDebug   bool          `koanf:"database_debug"`
	StoreAttempts   int           `koanf:"store_attempts"`
	StoreBackoff    time.Duration `koanf:"store_backoff"`
	StoreTimeout    time.Duration `koanf:"store_timeout"`
	ConflictRetries int           `koanf:"conflict_retries"`

	// QueueSize bounds pending simulations; WorkerCount 0 means one per CPU.
	QueueSize   int `koanf:"queue_size"`
	WorkerCount int `koanf:"worker_count"`

	Budget         int       `koanf:"budget"`
	PositionCap    int       `koanf:"position_cap"`
	PlayersPerTier int       `koanf:"players_per_tier"`
	SeasonGames    int       `koanf:"season_games"`
	TierCuts       []float64 `koanf:"tier_cuts"`

	// PregenerateCron schedules creating the day's challenge; empty disables it.
	PregenerateCron string `koanf:"pregenerate_cron"`
	// PoolRefresh reloads the pool file periodically; 0 disables it.
	PoolRefresh time.Duration `koanf:"pool_refresh"`
	// SystemMetricsInterval samples runtime stats; 0 disables it.
	SystemMetricsInterval time.Duration `koanf:"system_metrics_interval"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":8080",
		RequestTimeout:        10 * time.Second,
		ShutdownTimeout:       15 * time.Second,
		MaxLeaderboardLimit:   1000,
		Timezone:              "UTC",
		StoreDriver:           StoreMemory,
		DataDir:               "data",
		StoreAttempts:         3,
		StoreBackoff:          50 * time.Millisecond,
		StoreTimeout:          2 * time.Second,
		ConflictRetries:       3,
		QueueSize:             1024,
		Budget:                15,
		PositionCap:           2,
		PlayersPerTier:        5,
		SeasonGames:           82,
		TierCuts:              rating.DefaultPolicy().Cuts,
		PregenerateCron:       "1 0 * * *",
		PoolRefresh:           time.Hour,
		SystemMetricsInterval: 10 * time.Second,
	}
}

// Location returns the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %w", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// TierPolicy returns the tier policy built from TierCuts.
func (c *Config) TierPolicy() rating.TierPolicy {
	return rating.TierPolicy{Cuts: append([]float64(nil), c.TierCuts...)}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Budget <= 0:
		return fmt.Errorf("%w: budget must be positive", ErrInvalidConfig)
	case c.PositionCap < 0:
		return fmt.Errorf("%w: position_cap must not be negative", ErrInvalidConfig)
	case c.PlayersPerTier <= 0:
		return fmt.Errorf("%w: players_per_tier must be positive", ErrInvalidConfig)
	case c.SeasonGames <= 0:
		return fmt.Errorf("%w: season_games must be positive", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount < 0:
		return fmt.Errorf("%w: worker_count must not be negative", ErrInvalidConfig)
	case c.StoreAttempts <= 0:
		return fmt.Errorf("%w: store_attempts must be positive", ErrInvalidConfig)
	case c.ConflictRetries < 0:
		return fmt.Errorf("%w: conflict_retries must not be negative", ErrInvalidConfig)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}

	switch c.StoreDriver {
	case StoreMemory:
	case StoreFile:
		if strings.TrimSpace(c.DataDir) == "" {
			return fmt.Errorf("%w: data_dir is required for the file store", ErrInvalidConfig)
		}
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("%w: database_url is required for the postgres store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}

	if err := c.TierPolicy().Validate(); err != nil {
		return fmt.Errorf("%w: tier_cuts: %w", ErrInvalidConfig, err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
