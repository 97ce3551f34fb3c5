package challenge

import (
	"math/rand"
	"time"

	"github.com/okian/budgetgm/internal/domain/roster"
	"github.com/okian/budgetgm/pkg/logger"
)

// Default manager configuration constants.
const (
	defaultConflictRetries = 3
	defaultCreateTimeout   = 30 * time.Second
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithLogger sets a custom logger for the manager.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock sets the time source used for timestamps and "today".
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLocation sets the timezone that defines a challenge day.
func WithLocation(loc *time.Location) Option {
	return func(m *Manager) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// WithRandSource sets the factory for per-simulation random sources.
func WithRandSource(newRand func() *rand.Rand) Option {
	return func(m *Manager) {
		if newRand != nil {
			m.newRand = newRand
		}
	}
}

// WithSamplerSeed overrides the date-derived seed for daily pool sampling.
func WithSamplerSeed(seed func(date string) int64) Option {
	return func(m *Manager) {
		if seed != nil {
			m.samplerSeed = seed
		}
	}
}

// WithIDGenerator sets the submission id generator.
func WithIDGenerator(next func() string) Option {
	return func(m *Manager) {
		if next != nil {
			m.nextID = next
		}
	}
}

// WithConflictRetries bounds how often a submission is retried after a
// version conflict.
func WithConflictRetries(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.conflictRetries = n
		}
	}
}

// WithCreateTimeout bounds generating a new day's pool, independent of the
// callers waiting on it.
func WithCreateTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.createTimeout = d
		}
	}
}

// WithRosterOptions sets the rules applied to submitted rosters.
func WithRosterOptions(opts ...roster.Option) Option {
	return func(m *Manager) {
		m.rosterOpts = append([]roster.Option(nil), opts...)
	}
}

// WithPerTier sets how many players per tier a daily pool offers.
func WithPerTier(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.perTier = n
		}
	}
}
