package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/okian/budgetgm/internal/adapters/repository/postgres"
	"github.com/okian/budgetgm/internal/domain/challenge"
	"github.com/okian/budgetgm/internal/domain/model"
)

func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in -short mode")
	}
	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("budgetgm_test"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := postgres.Open(dsn, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Ping(ctx))
	return store
}

func testDoc(date string) *model.Challenge {
	return &model.Challenge{
		Date: date,
		PlayerPool: map[int][]model.Player{
			3: {{Name: "wing", Position: model.SmallForward, Team: "BOS", Cost: 3, Rating: 61.5,
				Stats: model.StatLine{Points: 18, FieldGoalPct: 47}}},
		},
		Submissions: map[string]model.Submission{},
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

func TestStore_CreateLoadUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Load(ctx, "2024-03-01")
	assert.ErrorIs(t, err, challenge.ErrNotFound)

	doc := testDoc("2024-03-01")
	require.NoError(t, store.Save(ctx, doc))
	assert.Equal(t, int64(1), doc.Version)

	assert.ErrorIs(t, store.Save(ctx, testDoc("2024-03-01")), challenge.ErrVersionConflict)

	got, err := store.Load(ctx, "2024-03-01")
	require.NoError(t, err)
	require.Len(t, got.PlayerPool[3], 1)
	assert.Equal(t, "wing", got.PlayerPool[3][0].Name)
	assert.InDelta(t, 47.0, got.PlayerPool[3][0].Stats.FieldGoalPct, 1e-9)

	got.Submissions["alice"] = model.Submission{ID: "s1", Identity: "alice", Record: model.Record{Wins: 60, Losses: 22}}
	require.NoError(t, store.Save(ctx, got))
	assert.Equal(t, int64(2), got.Version)

	stale := testDoc("2024-03-01")
	stale.Version = 1
	assert.ErrorIs(t, store.Save(ctx, stale), challenge.ErrVersionConflict)

	reloaded, err := store.Load(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 60, reloaded.Submissions["alice"].Record.Wins)
}

func TestStore_ConcurrentWriters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testDoc("2024-03-02")))

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, err := store.Load(ctx, "2024-03-02")
			if err != nil {
				return
			}
			doc.Submissions[string(rune('a'+i))] = model.Submission{Identity: string(rune('a' + i))}
			if store.Save(ctx, doc) == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	got, err := store.Load(ctx, "2024-03-02")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, succeeded, 1)
	assert.Len(t, got.Submissions, succeeded)
	assert.Equal(t, int64(1+succeeded), got.Version)
}

func TestStore_Dates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, d := range []string{"2024-03-03", "2024-03-01", "2024-03-02"} {
		require.NoError(t, store.Save(ctx, testDoc(d)))
	}
	dates, err := store.Dates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-01", "2024-03-02", "2024-03-03"}, dates)
}
