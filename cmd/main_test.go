package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/okian/storepulse/internal/config"
	"github.com/okian/storepulse/pkg/logger"
	"github.com/okian/storepulse/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func sqliteConfig() *config.Config {
	cfg := config.New()
	cfg.DBBackend = "sqlite"
	cfg.DBDSN = ""
	cfg.Addr = "127.0.0.1:0"
	cfg.APIKey = "k3y"
	return cfg
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("STOREPULSE_ADDR", ":8080")
			_ = os.Setenv("STOREPULSE_DB_BACKEND", "sqlite")
			defer func() {
				_ = os.Unsetenv("STOREPULSE_ADDR")
				_ = os.Unsetenv("STOREPULSE_DB_BACKEND")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DBBackend, convey.ShouldEqual, "sqlite")
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				manager := metrics.NewManager()
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestBusinessTimezone(t *testing.T) {
	convey.Convey("Given a host without a zoneinfo database", t, func() {
		t.Setenv("ZONEINFO", t.TempDir())
		cfg := sqliteConfig()
		cfg.BusinessTimezone = "America/New_York"

		convey.Convey("Then the business timezone still loads", func() {
			loc, err := cfg.Location()
			convey.So(err, convey.ShouldBeNil)
			convey.So(loc.String(), convey.ShouldEqual, "America/New_York")

			_, offset := time.Date(2024, time.March, 31, 23, 0, 0, 0, loc).Zone()
			convey.So(offset, convey.ShouldEqual, -4*60*60)
		})

		convey.Convey("Then the service builds with it", func() {
			a, err := build(context.Background(), cfg, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			defer a.close(context.Background(), logger.Get())
			convey.So(a.svc.GetStats()["timezone"], convey.ShouldEqual, "America/New_York")
		})
	})
}

func TestBuild(t *testing.T) {
	convey.Convey("Given an in-memory SQLite configuration", t, func() {
		ctx := context.Background()
		cfg := sqliteConfig()

		a, err := build(ctx, cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		defer a.close(ctx, logger.Get())

		serve := func(target string, headers ...string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
			for i := 0; i+1 < len(headers); i += 2 {
				req.Header.Set(headers[i], headers[i+1])
			}
			w := httptest.NewRecorder()
			a.handler.ServeHTTP(w, req)
			return w
		}

		convey.Convey("Then /health reports a connected database", func() {
			w := serve("/health")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"database":"Connected"`)
		})

		convey.Convey("Then the API docs are served", func() {
			convey.So(serve("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then protected routes require the configured key", func() {
			convey.So(serve("/carts", "X-API-Key", "wrong").Code, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("Then the version payload comes from configuration", func() {
			w := serve("/version")
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"version":"1.2.0"`)
		})

		convey.Convey("Then the backup route reports backups disabled", func() {
			convey.So(a.backups, convey.ShouldBeNil)
			convey.So(serve("/backup").Code, convey.ShouldEqual, http.StatusServiceUnavailable)
		})
	})

	convey.Convey("Given backups enabled on a backend without a dump tool", t, func() {
		ctx := context.Background()
		cfg := sqliteConfig()
		cfg.BackupEnabled = true

		a, err := build(ctx, cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		defer a.close(ctx, logger.Get())

		convey.Convey("Then the service starts with backups off", func() {
			convey.So(a.backups, convey.ShouldBeNil)
			convey.So(a.svc.GetStats()["backupsEnabled"], convey.ShouldEqual, false)
		})
	})

	convey.Convey("Given an unreachable MySQL DSN", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		cfg := config.New()
		cfg.DBDSN = "not a dsn"

		_, err := build(ctx, cfg, logger.Get())
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a running application", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- run(ctx, sqliteConfig(), logger.Get()) }()

		convey.Convey("When the context is canceled it shuts down cleanly", func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
			select {
			case err := <-done:
				convey.So(err, convey.ShouldBeNil)
			case <-time.After(5 * time.Second):
				convey.So("run did not return", convey.ShouldBeEmpty)
			}
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then an update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the updater returns when its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})
	})
}
