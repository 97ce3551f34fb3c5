package challenge

import (
	"context"
	"math/rand"

	"github.com/okian/budgetgm/internal/domain/model"
	"github.com/okian/budgetgm/internal/domain/rating"
	"github.com/okian/budgetgm/internal/domain/roster"
)

// Store persists daily challenge documents.
type Store interface {
	// Load returns the document for date or ErrNotFound.
	Load(ctx context.Context, date string) (*model.Challenge, error)

	// Save writes doc if the stored version still equals doc.Version (0 when
	// the date is new) and bumps doc.Version on success. A stale version
	// returns ErrVersionConflict.
	Save(ctx context.Context, doc *model.Challenge) error

	// Dates lists every stored challenge date.
	Dates(ctx context.Context) ([]string, error)
}

// PoolProvider supplies the current canonical rated pool.
type PoolProvider interface {
	Pool(ctx context.Context) (*rating.Pool, error)
}

// Simulator plays a season for a complete roster.
type Simulator interface {
	Simulate(ctx context.Context, r *roster.Roster, rng *rand.Rand) (model.SimulationResult, error)
}
