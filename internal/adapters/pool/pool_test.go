package pool_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/budgetgm/internal/adapters/pool"
	"github.com/okian/budgetgm/internal/domain/model"
	"github.com/okian/budgetgm/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type countingSource struct {
	lines map[int][]model.PlayerLine
	err   error
	loads int
}

func (s *countingSource) Load(context.Context) (map[int][]model.PlayerLine, error) {
	s.loads++
	return s.lines, s.err
}

func TestDecode(t *testing.T) {
	convey.Convey("Given a pool file with dollar tier keys and fractional percentages", t, func() {
		raw := []byte(`{
			"$1": [{"name": "Bench Guy", "position": "pg", "team": "IND", "stats": {"pts": 8.5, "fg_pct": 0.546, "gp": 76}}],
			"$5": [{"name": "Star", "position": "C", "team": "DEN", "stats": {"pts": 26.4, "reb": 12.4}}, {"name": " "}]
		}`)

		convey.Convey("When decoded", func() {
			byTier, err := pool.Decode(raw)

			convey.Convey("Then tiers, positions and percentages are normalized", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(byTier[1], convey.ShouldHaveLength, 1)
				convey.So(byTier[1][0].Position, convey.ShouldEqual, model.PointGuard)
				convey.So(byTier[1][0].Stats.FieldGoalPct, convey.ShouldAlmostEqual, 54.6, 1e-9)
				convey.So(byTier[5], convey.ShouldHaveLength, 1)
			})
		})
	})

	convey.Convey("Given a pool file with a bad tier key", t, func() {
		_, err := pool.Decode([]byte(`{"gold": []}`))
		convey.So(errors.Is(err, pool.ErrInvalidTier), convey.ShouldBeTrue)
	})
}

func TestFileSource(t *testing.T) {
	convey.Convey("Given the bundled pool", t, func() {
		byTier, err := pool.NewFileSource("").Load(context.Background())

		convey.Convey("Then it holds one hundred players across five tiers", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(pool.Flatten(byTier), convey.ShouldHaveLength, 100)
			convey.So(byTier, convey.ShouldHaveLength, 5)
		})
	})

	convey.Convey("Given a pool file on disk", t, func() {
		path := filepath.Join(t.TempDir(), "pool.json")
		convey.So(os.WriteFile(path, []byte(`{"3": [{"name": "Wing", "position": "SF", "stats": {"pts": 15}}]}`), 0o600), convey.ShouldBeNil)

		convey.Convey("Then it is read instead of the bundled pool", func() {
			byTier, err := pool.NewFileSource(path).Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(byTier[3][0].Name, convey.ShouldEqual, "Wing")
		})
	})

	convey.Convey("Given a missing pool file", t, func() {
		_, err := pool.NewFileSource("/nonexistent/pool.json").Load(context.Background())
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestCatalog(t *testing.T) {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		t.Fatalf("init logger: %v", err)
	}

	convey.Convey("Given a catalog over the bundled pool", t, func() {
		c := pool.NewCatalog(pool.NewFileSource(""))

		convey.Convey("When the pool is requested", func() {
			p, err := c.Pool(context.Background())

			convey.Convey("Then players are re-rated into canonical tiers", func() {
				convey.So(err, convey.ShouldBeNil)
				byTier := p.ByTier()
				convey.So(byTier[5], convey.ShouldHaveLength, 5)
				convey.So(byTier[4], convey.ShouldHaveLength, 15)
				convey.So(byTier[3], convey.ShouldHaveLength, 20)
				convey.So(byTier[2], convey.ShouldHaveLength, 30)
				convey.So(byTier[1], convey.ShouldHaveLength, 30)
			})
		})
	})

	convey.Convey("Given a counting source", t, func() {
		src := &countingSource{lines: map[int][]model.PlayerLine{
			5: {{Name: "high", Position: model.Center, Stats: model.StatLine{Points: 30, GamesPlayed: 246}}},
			1: {{Name: "low", Position: model.PointGuard, Stats: model.StatLine{Points: 4, GamesPlayed: 246}}},
		}}
		c := pool.NewCatalog(src)

		convey.Convey("Then the pool is cached until refreshed", func() {
			_, err := c.Pool(context.Background())
			convey.So(err, convey.ShouldBeNil)
			_, err = c.Pool(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(src.loads, convey.ShouldEqual, 1)

			p, err := c.Refresh(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(src.loads, convey.ShouldEqual, 2)
			convey.So(p.Rating("high"), convey.ShouldAlmostEqual, 100, 1e-9)
			convey.So(p.Rating("low"), convey.ShouldAlmostEqual, 1, 1e-9)
		})
	})

	convey.Convey("Given a source with no players", t, func() {
		c := pool.NewCatalog(&countingSource{lines: map[int][]model.PlayerLine{}})

		convey.Convey("Then the catalog reports an empty pool", func() {
			_, err := c.Pool(context.Background())
			convey.So(errors.Is(err, pool.ErrEmptyPool), convey.ShouldBeTrue)
		})
	})
}
