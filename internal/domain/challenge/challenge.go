// Package challenge runs the daily budget challenge: lazy pool generation,
// transactional submission upserts and percentile leaderboards.
package challenge

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/okian/budgetgm/internal/domain/model"
	"github.com/okian/budgetgm/internal/domain/roster"
	"github.com/okian/budgetgm/pkg/logger"
	"github.com/okian/budgetgm/pkg/metrics"
)

// Today is the date alias resolved in the manager's timezone.
const Today = "today"

// Manager coordinates challenge generation, submissions and standings.
// It is safe for concurrent use.
type Manager struct {
	store     Store
	pools     PoolProvider
	simulator Simulator

	logger          logger.Logger
	now             func() time.Time
	loc             *time.Location
	newRand         func() *rand.Rand
	samplerSeed     func(date string) int64
	nextID          func() string
	conflictRetries int
	createTimeout   time.Duration
	rosterOpts      []roster.Option
	perTier         int

	locks   *keyedMutex
	creates singleflight.Group
}

// NewManager creates a manager with configuration options.
func NewManager(store Store, pools PoolProvider, simulator Simulator, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		pools:     pools,
		simulator: simulator,
		logger:    logger.Get().Named("challenge"),
		now:       time.Now,
		loc:       time.UTC,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // game simulation, not security
		},
		samplerSeed:     DateSeed,
		nextID:          uuid.NewString,
		conflictRetries: defaultConflictRetries,
		createTimeout:   defaultCreateTimeout,
		perTier:         PlayersPerTier,
		locks:           newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ResolveDate validates a date key and expands Today.
func (m *Manager) ResolveDate(date string) (string, error) {
	date = strings.TrimSpace(date)
	if strings.EqualFold(date, Today) {
		return m.now().In(m.loc).Format(model.DateLayout), nil
	}
	t, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return t.Format(model.DateLayout), nil
}

// GetOrCreate returns the challenge for date, generating its pool on first
// access. Concurrent first access for one date produces a single document.
func (m *Manager) GetOrCreate(ctx context.Context, date string) (*model.Challenge, error) {
	date, err := m.ResolveDate(date)
	if err != nil {
		return nil, err
	}
	doc, err := m.store.Load(ctx, date)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, m.storeFailure(ctx, "load challenge", date, err)
	}

	// The shared create outlives any single caller; each caller still stops
	// waiting when its own ctx ends.
	ch := m.creates.DoChan(date, func() (interface{}, error) {
		createCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.createTimeout)
		defer cancel()
		return m.create(createCtx, date)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Challenge).Clone(), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("create challenge %s: %w", date, ctx.Err())
	}
}

func (m *Manager) create(ctx context.Context, date string) (*model.Challenge, error) {
	pool, err := m.pools.Pool(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPoolUnavailable, err)
	}
	rng := rand.New(rand.NewSource(m.samplerSeed(date))) //nolint:gosec // reproducible daily sampling
	players, short := Sample(pool, m.perTier, rng)
	for _, tier := range short {
		m.logger.Warn(ctx, "tier has fewer players than a daily pool needs",
			logger.String("date", date), logger.Int("tier", tier), logger.Int("want", m.perTier))
	}

	now := m.now()
	doc := &model.Challenge{
		Date:        date,
		PlayerPool:  players,
		Submissions: map[string]model.Submission{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = m.store.Save(ctx, doc)
	switch {
	case err == nil:
		metrics.RecordChallengeGenerated()
		m.logger.Info(ctx, "challenge generated", logger.String("date", date), logger.Int("players", pool.Len()))
		return doc, nil
	case errors.Is(err, ErrVersionConflict):
		// another process created it first
		metrics.RecordVersionConflict()
		winner, lerr := m.store.Load(ctx, date)
		if lerr != nil {
			return nil, m.storeFailure(ctx, "reload challenge", date, lerr)
		}
		return winner, nil
	default:
		return nil, m.storeFailure(ctx, "save challenge", date, err)
	}
}

// Submit validates, simulates and records identity's roster for date,
// replacing any earlier entry from the same identity.
func (m *Manager) Submit(ctx context.Context, date, identity string, r *roster.Roster) (model.Submission, error) {
	started := m.now()
	sub, err := m.submit(ctx, date, identity, r)
	metrics.RecordSubmission(outcome(err))
	metrics.RecordSubmissionLatency(float64(m.now().Sub(started).Milliseconds()))
	return sub, err
}

func (m *Manager) submit(ctx context.Context, date, identity string, r *roster.Roster) (model.Submission, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return model.Submission{}, ErrInvalidIdentity
	}
	if r == nil {
		return model.Submission{}, roster.ErrIncomplete
	}
	if err := r.Validate(); err != nil {
		return model.Submission{}, err
	}
	doc, err := m.GetOrCreate(ctx, date)
	if err != nil {
		return model.Submission{}, err
	}

	// rebuild from the day's pool so costs and stats are authoritative
	names := make([]string, 0, r.Len())
	for _, p := range r.Players() {
		names = append(names, p.Name)
	}
	team, err := roster.FromNames(doc.Lookup, names, m.rosterOpts...)
	if err != nil {
		return model.Submission{}, err
	}
	if err := team.Validate(); err != nil {
		return model.Submission{}, err
	}

	result, err := m.simulator.Simulate(ctx, team, m.newRand())
	if err != nil {
		return model.Submission{}, fmt.Errorf("simulate season: %w", err)
	}

	sub := model.Submission{
		ID:             m.nextID(),
		Identity:       identity,
		Players:        team.Slots(),
		Record:         model.Record{Wins: result.Wins, Losses: result.Losses},
		WinProbability: result.WinProbability,
	}
	return m.upsert(ctx, doc.Date, sub)
}

// upsert writes sub under the per-date lock, retrying on version conflicts
// from writers outside this process.
func (m *Manager) upsert(ctx context.Context, date string, sub model.Submission) (model.Submission, error) {
	unlock := m.locks.Lock(date)
	defer unlock()

	var lastErr error
	for attempt := 0; attempt <= m.conflictRetries; attempt++ {
		doc, err := m.store.Load(ctx, date)
		if err != nil {
			return model.Submission{}, m.storeFailure(ctx, "load challenge", date, err)
		}
		existing := make([]model.Submission, 0, len(doc.Submissions))
		for _, s := range doc.Submissions {
			existing = append(existing, s)
		}
		sub.SubmittedAt = m.now()
		sub.Percentile = Percentile(existing, sub)

		if doc.Submissions == nil {
			doc.Submissions = map[string]model.Submission{}
		}
		doc.Submissions[sub.Identity] = sub
		doc.UpdatedAt = sub.SubmittedAt

		err = m.store.Save(ctx, doc)
		if err == nil {
			m.logger.Debug(ctx, "submission recorded",
				logger.String("date", date), logger.String("identity", sub.Identity),
				logger.Int("wins", sub.Record.Wins), logger.Float64("percentile", sub.Percentile))
			return sub, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return model.Submission{}, m.storeFailure(ctx, "save submission", date, err)
		}
		metrics.RecordVersionConflict()
		lastErr = err
	}
	return model.Submission{}, fmt.Errorf("save submission for %s after %d attempts: %w", date, m.conflictRetries+1, lastErr)
}

// SubmitNames resolves names against the day's pool and submits the roster.
func (m *Manager) SubmitNames(ctx context.Context, date, identity string, names []string) (model.Submission, error) {
	if strings.TrimSpace(identity) == "" {
		metrics.RecordSubmission(outcome(ErrInvalidIdentity))
		return model.Submission{}, ErrInvalidIdentity
	}
	doc, err := m.GetOrCreate(ctx, date)
	if err != nil {
		metrics.RecordSubmission(outcome(err))
		return model.Submission{}, err
	}
	r, err := roster.FromNames(doc.Lookup, names, m.rosterOpts...)
	if err != nil {
		metrics.RecordSubmission(outcome(err))
		return model.Submission{}, err
	}
	return m.Submit(ctx, doc.Date, identity, r)
}

// Leaderboard returns ranked standings for date. A date nobody has opened
// yields an empty board.
func (m *Manager) Leaderboard(ctx context.Context, date string) ([]model.Standing, error) {
	date, err := m.ResolveDate(date)
	if err != nil {
		return nil, err
	}
	doc, err := m.store.Load(ctx, date)
	if errors.Is(err, ErrNotFound) {
		return []model.Standing{}, nil
	}
	if err != nil {
		return nil, m.storeFailure(ctx, "load leaderboard", date, err)
	}
	return Standings(doc.Submissions), nil
}

// Submission returns identity's entry for date, if any.
func (m *Manager) Submission(ctx context.Context, date, identity string) (model.Submission, bool, error) {
	date, err := m.ResolveDate(date)
	if err != nil {
		return model.Submission{}, false, err
	}
	doc, err := m.store.Load(ctx, date)
	if errors.Is(err, ErrNotFound) {
		return model.Submission{}, false, nil
	}
	if err != nil {
		return model.Submission{}, false, m.storeFailure(ctx, "load submission", date, err)
	}
	sub, ok := doc.Submissions[strings.TrimSpace(identity)]
	return sub, ok, nil
}

// Dates lists stored challenge dates, newest first.
func (m *Manager) Dates(ctx context.Context) ([]string, error) {
	dates, err := m.store.Dates(ctx)
	if err != nil {
		return nil, m.storeFailure(ctx, "list dates", "", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// Simulate previews a season for names drawn from the canonical pool
// without recording anything.
func (m *Manager) Simulate(ctx context.Context, names []string) (model.SimulationResult, error) {
	pool, err := m.pools.Pool(ctx)
	if err != nil {
		return model.SimulationResult{}, fmt.Errorf("%w: %w", ErrPoolUnavailable, err)
	}
	r, err := roster.FromNames(pool.Lookup, names, m.rosterOpts...)
	if err != nil {
		return model.SimulationResult{}, err
	}
	if err := r.Validate(); err != nil {
		return model.SimulationResult{}, err
	}
	res, err := m.simulator.Simulate(ctx, r, m.newRand())
	if err != nil {
		return model.SimulationResult{}, fmt.Errorf("simulate season: %w", err)
	}
	return res, nil
}

func (m *Manager) storeFailure(ctx context.Context, op, date string, err error) error {
	m.logger.Error(ctx, "challenge store failure",
		logger.String("op", op), logger.String("date", date), logger.Error(err))
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, roster.ErrInvalidRoster), errors.Is(err, roster.ErrPlayerNotFound),
		errors.Is(err, ErrInvalidIdentity), errors.Is(err, ErrInvalidDate):
		return "rejected"
	default:
		return "failed"
	}
}
