package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	app "github.com/okian/motionplay/internal/app"
	"github.com/okian/motionplay/internal/config"
	"github.com/okian/motionplay/pkg/logger"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When configuration comes from the environment", func() {
			_ = os.Setenv("MOTION_ADDR", ":8080")
			_ = os.Setenv("MOTION_QUEUE_SIZE", "1000")
			_ = os.Setenv("MOTION_WORKER_COUNT", "4")
			defer func() {
				_ = os.Unsetenv("MOTION_ADDR")
				_ = os.Unsetenv("MOTION_QUEUE_SIZE")
				_ = os.Unsetenv("MOTION_WORKER_COUNT")
			}()

			convey.Convey("Then it loads, validates and builds a service", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Validate(), convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)

				opts, err := app.FromConfig(cfg, logger.Nop())
				convey.So(err, convey.ShouldBeNil)
				convey.So(app.New(opts...), convey.ShouldNotBeNil)
			})
		})
	})
}

func TestHandler(t *testing.T) {
	convey.Convey("Given the full HTTP handler over a started service", t, func() {
		ctx := context.Background()
		svc := app.New(app.WithLogger(logger.Nop()))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(newHandler(ctx, svc))
		defer srv.Close()

		convey.Convey("Then a session can be created over HTTP", func() {
			resp, err := http.Post(srv.URL+"/sessions", "application/json",
				strings.NewReader(`{"duration_seconds":10,"exercise_kind":"boxing"}`))
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusCreated)
		})

		convey.Convey("And the docs and health routes are served", func() {
			for _, path := range []string{"/openapi.yaml", "/api-docs", "/healthz", "/stats"} {
				resp, err := http.Get(srv.URL + path)
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("And unknown routes are not found", func() {
			resp, err := http.Get(srv.URL + "/leaderboard")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServiceMetricsUpdater(t *testing.T) {
	convey.Convey("Given a service metrics updater", t, func() {
		svc := app.New(app.WithLogger(logger.Nop()))

		convey.Convey("Then it returns once its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startServiceMetricsUpdater(ctx, svc)
			}, convey.ShouldNotPanic)
		})
	})
}
