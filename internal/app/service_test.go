package service_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	service "github.com/okian/budgetgm/internal/app"
	"github.com/okian/budgetgm/internal/config"
	"github.com/okian/budgetgm/internal/domain/model"
	"github.com/okian/budgetgm/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

func fixedClock() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

// failingSource never yields a pool.
type failingSource struct{}

func (failingSource) Load(context.Context) (map[int][]model.PlayerLine, error) {
	return nil, errors.New("pool feed down")
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.WorkerCount = 2
	cfg.SystemMetricsInterval = 10 * time.Millisecond
	return cfg
}

func TestService_New(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New(nil)

		Convey("Then accessors report it", func() {
			_, err := svc.Manager()
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Catalog()
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Handler()
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(errors.Is(svc.RefreshPool(context.Background()), service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Then stopping it is a no-op", func() {
			So(svc.Stop(context.Background()), ShouldBeNil)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a service over the bundled pool and a memory store", t, func() {
		svc := service.New(testConfig(), service.WithClock(fixedClock))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		Convey("When today's challenge is pregenerated", func() {
			So(svc.Pregenerate(ctx), ShouldBeNil)

			Convey("Then the date is listed", func() {
				m, err := svc.Manager()
				So(err, ShouldBeNil)
				dates, err := m.Dates(ctx)
				So(err, ShouldBeNil)
				So(dates, ShouldResemble, []string{"2024-03-01"})
			})
		})

		Convey("When the pool is refreshed", func() {
			So(svc.RefreshPool(ctx), ShouldBeNil)

			Convey("Then the catalog still serves players", func() {
				c, err := svc.Catalog()
				So(err, ShouldBeNil)
				p, err := c.Pool(ctx)
				So(err, ShouldBeNil)
				So(p.Len(), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the handler is probed", func() {
			h, err := svc.Handler()
			So(err, ShouldBeNil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			Convey("Then it is healthy", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When stopped", func() {
			So(svc.Stop(context.Background()), ShouldBeNil)

			Convey("Then a second stop is a no-op", func() {
				So(svc.Stop(context.Background()), ShouldBeNil)
			})
		})
	})

	Convey("Given the pool cannot be loaded", t, func() {
		svc := service.New(testConfig(), service.WithPoolSource(failingSource{}))

		Convey("Then start fails and nothing is served", func() {
			err := svc.Start(context.Background())
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "load player pool")
			_, err = svc.Manager()
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})

	Convey("Given an invalid configuration", t, func() {
		cfg := testConfig()
		cfg.Addr = ""
		svc := service.New(cfg)

		Convey("Then start refuses it", func() {
			So(errors.Is(svc.Start(context.Background()), config.ErrInvalidConfig), ShouldBeTrue)
		})
	})

	Convey("Given an unparseable pregeneration schedule", t, func() {
		cfg := testConfig()
		cfg.PregenerateCron = "not a cron"
		svc := service.New(cfg)

		Convey("Then start fails", func() {
			So(svc.Start(context.Background()), ShouldNotBeNil)
		})
	})
}
