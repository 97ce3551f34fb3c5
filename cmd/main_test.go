package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/budgetgm/internal/config"
	"github.com/okian/budgetgm/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func TestNewHTTPServer(t *testing.T) {
	convey.Convey("Given a handler slower than the request timeout", t, func() {
		cfg := config.New()
		cfg.RequestTimeout = 20 * time.Millisecond
		slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
		})
		srv := newHTTPServer(cfg, slow)

		convey.Convey("Then the caller gets a timeout error body", func() {
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			convey.So(rec.Code, convey.ShouldEqual, http.StatusServiceUnavailable)
			convey.So(rec.Body.String(), convey.ShouldContainSubstring, `"timeout"`)
			convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
		})
	})
}

func TestNewHTTPServerWithoutTimeout(t *testing.T) {
	convey.Convey("Given request timeouts are disabled", t, func() {
		cfg := config.New()
		cfg.RequestTimeout = 0
		slow := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(30 * time.Millisecond)
			w.WriteHeader(http.StatusNoContent)
		})
		srv := newHTTPServer(cfg, slow)

		convey.Convey("Then no write deadline is set and slow handlers finish", func() {
			convey.So(srv.WriteTimeout, convey.ShouldEqual, time.Duration(0))
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			convey.So(rec.Code, convey.ShouldEqual, http.StatusNoContent)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given the server running on a free port", t, func() {
		cfg := config.New()
		cfg.Addr = freeAddr(t)
		cfg.WorkerCount = 1
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- run(ctx, cfg) }()

		var resp *http.Response
		var err error
		for i := 0; i < 100; i++ {
			resp, err = http.Get("http://" + cfg.Addr + "/healthz")
			if err == nil {
				break
			}
			time.Sleep(20 * time.Millisecond)
		}

		convey.Convey("Then health is served and shutdown is clean", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			_ = resp.Body.Close()

			cancel()
			select {
			case err := <-done:
				convey.So(err, convey.ShouldBeNil)
			case <-time.After(5 * time.Second):
				t.Fatal("run did not return")
			}
		})
	})

	convey.Convey("Given an invalid configuration", t, func() {
		cfg := config.New()
		cfg.Budget = 0

		convey.Convey("Then run fails before serving", func() {
			convey.So(run(context.Background(), cfg), convey.ShouldNotBeNil)
		})
	})
}
