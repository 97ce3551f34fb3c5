package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/budgetgm/internal/domain/challenge"
	"github.com/okian/budgetgm/internal/domain/rating"
	"github.com/okian/budgetgm/pkg/logger"
	"github.com/okian/budgetgm/pkg/metrics"
)

var _ challenge.PoolProvider = (*Catalog)(nil)

// Catalog rates a Source and caches the resulting pool until Refresh.
type Catalog struct {
	source Source
	rater  *rating.Rater
	logger logger.Logger

	mu      sync.RWMutex
	current *rating.Pool
}

// Option applies a configuration option to the Catalog.
type Option func(*Catalog)

// WithLogger sets a custom logger for the catalog.
func WithLogger(l logger.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRater sets the rater used to price players.
func WithRater(r *rating.Rater) Option {
	return func(c *Catalog) {
		if r != nil {
			c.rater = r
		}
	}
}

// NewCatalog creates a catalog over source.
func NewCatalog(source Source, opts ...Option) *Catalog {
	c := &Catalog{
		source: source,
		rater:  rating.NewRater(),
		logger: logger.Get().Named("pool"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Pool returns the cached pool, loading it on first use.
func (c *Catalog) Pool(ctx context.Context) (*rating.Pool, error) {
	c.mu.RLock()
	p := c.current
	c.mu.RUnlock()
	if p != nil {
		return p, nil
	}
	return c.Refresh(ctx)
}

// Refresh reloads the source and re-rates every player. Source tiers are
// discarded so costs always reflect the current pool.
func (c *Catalog) Refresh(ctx context.Context) (*rating.Pool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byTier, err := c.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pool: %w", err)
	}
	lines := Flatten(byTier)
	if len(lines) == 0 {
		return nil, ErrEmptyPool
	}
	p := c.rater.BuildPool(lines)
	c.current = p

	metrics.UpdatePoolSize(p.Len())
	for tier, players := range p.ByTier() {
		metrics.UpdatePoolTierSize(tier, len(players))
	}
	c.logger.Info(ctx, "player pool rated", logger.Int("players", p.Len()))
	return p, nil
}
