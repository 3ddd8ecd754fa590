package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/storepulse/internal/adapters/http/api"
	service "github.com/okian/storepulse/internal/app"
	"github.com/okian/storepulse/internal/domain/baseline"
	"github.com/okian/storepulse/internal/domain/calendar"
	"github.com/okian/storepulse/internal/domain/model"
	"github.com/okian/storepulse/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type mockAnalytics struct {
	healthy    bool
	err        error
	backup     service.BackupResult
	backupErr  error
	salesKinds []calendar.Kind
	current    []bool
}

func (m *mockAnalytics) GetBaselineComparison(_ context.Context, current bool) (service.BaselineReport, error) {
	m.current = append(m.current, current)
	if m.err != nil {
		return service.BaselineReport{}, m.err
	}
	days := map[string]baseline.DayBucket{
		"Thursday": {Probability: 0.5, BusyHours: baseline.HourProfile{{Hour: 9, Label: baseline.HourLabel(9), Value: 1}}},
	}
	report := service.BaselineReport{Available: true, Days: days}
	if current {
		report.Current = &service.Comparison{
			Day:                 "Thursday",
			BaselineAvailable:   true,
			ActualProbability:   0.0833,
			ExpectedProbability: 0.5,
			ActualBusyHours:     baseline.HourProfile{{Hour: 9, Label: baseline.HourLabel(9), Value: 2}},
			ExpectedBusyHours:   days["Thursday"].BusyHours,
		}
	}
	return report, nil
}

func (m *mockAnalytics) GetLiveStatus(context.Context) (service.LiveStatus, error) {
	if m.err != nil {
		return service.LiveStatus{}, m.err
	}
	return service.LiveStatus{
		LastActive:       "2024-02-15 06:45:00",
		LastActiveSource: "item",
		ElapsedIdle:      "00:00:00",
		ActiveIdle:       "00:15:00",
		IsActive:         true,
	}, nil
}

func (m *mockAnalytics) GetSales(_ context.Context, kind calendar.Kind) (service.Sales, error) {
	m.salesKinds = append(m.salesKinds, kind)
	if m.err != nil {
		return service.Sales{}, m.err
	}
	return service.Sales{Window: kind, StartDate: "2024-02-12", EndDate: "2024-02-18", TotalSales: "$1,244.55"}, nil
}

func (m *mockAnalytics) ActiveCarts(context.Context) ([]model.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	at := time.Date(2024, time.February, 15, 9, 0, 0, 0, time.UTC)
	return []model.Cart{{ProfileID: "10", CreatedAt: at, UpdatedAt: at}}, nil
}

func (m *mockAnalytics) ActiveAccounts(context.Context) ([]model.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []model.Account{{ID: "10", Email: "a@example.com", NumPurchases: 1, RecentlyOrdered: true}}, nil
}

func (m *mockAnalytics) Healthy(context.Context) bool { return m.healthy }

func (m *mockAnalytics) TriggerBackup(context.Context) (service.BackupResult, error) {
	return m.backup, m.backupErr
}

func (m *mockAnalytics) GetStats() map[string]interface{} {
	return map[string]interface{}{"baselineAvailable": true}
}

func newMux(svc api.Analytics, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(svc, opts...).Register(context.Background(), mux)
	return mux
}

func get(mux http.Handler, target string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestHealthAndVersion(t *testing.T) {
	Convey("Given a server", t, func() {
		svc := &mockAnalytics{healthy: true}
		mux := newMux(svc, api.WithVersion(api.VersionInfo{Version: "1.2.0", DownloadURL: "/updates/YourApp-1.2.0.zip"}))

		Convey("/health reports a connected database", func() {
			w := get(mux, "/health")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w), ShouldResemble, map[string]any{"status": "OK", "database": "Connected"})
		})

		Convey("/health still answers 200 when the database is down", func() {
			svc.healthy = false
			w := get(mux, "/health")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w), ShouldResemble, map[string]any{"status": "Error", "database": "Not Connected"})
		})

		Convey("/version returns the configured payload", func() {
			w := get(mux, "/version")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w), ShouldResemble, map[string]any{"version": "1.2.0", "downloadURL": "/updates/YourApp-1.2.0.zip"})
		})

		Convey("/healthz, /stats and /metrics are served", func() {
			So(get(mux, "/healthz").Code, ShouldEqual, http.StatusOK)

			w := get(mux, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			stats := decode(w)
			So(stats["baselineAvailable"], ShouldEqual, true)
			So(stats["version"], ShouldEqual, "1.2.0")
			backup, ok := stats["rateLimits"].(map[string]any)["backup"].(map[string]any)
			So(ok, ShouldBeTrue)
			So(backup["limit"], ShouldEqual, float64(2))
			So(backup["per"], ShouldEqual, "1h0m0s")

			w = get(mux, "/metrics")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "storepulse_analytics_http_requests_total")
		})

		Convey("Non-GET methods are rejected", func() {
			req := httptest.NewRequest(http.MethodPost, "/health", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestAPIKey(t *testing.T) {
	Convey("Given a server with an API key", t, func() {
		mux := newMux(&mockAnalytics{}, api.WithAPIKey("k3y"))

		for _, path := range []string{"/probability", "/carts", "/accounts"} {
			Convey("A missing key is refused on "+path, func() {
				w := get(mux, path)
				So(w.Code, ShouldEqual, http.StatusForbidden)
			})

			Convey("A wrong key is a bad request on "+path, func() {
				w := get(mux, path, "X-API-Key", "nope")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "invalid_api_key")
			})

			Convey("The right key is accepted on "+path, func() {
				w := get(mux, path, "X-API-Key", "k3y")
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		}

		Convey("Unprotected routes ignore the key", func() {
			So(get(mux, "/activity").Code, ShouldEqual, http.StatusOK)
			So(get(mux, "/sales").Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestProbability(t *testing.T) {
	Convey("Given a server", t, func() {
		svc := &mockAnalytics{}
		mux := newMux(svc)

		Convey("Without current the whole baseline is returned", func() {
			w := get(mux, "/probability")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldEqual,
				`{"Thursday":{"probability":0.5,"busy_hours":{"09:00 - 10:00":1}}}`+"\n")
			So(svc.current, ShouldResemble, []bool{false})
		})

		Convey("With current=true today's comparison is returned", func() {
			w := get(mux, "/probability?current=true")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["actual_day"], ShouldEqual, "Thursday")
			So(body["actual_probability"], ShouldEqual, 0.0833)
			So(body["expected_probability"], ShouldEqual, 0.5)
			So(body["actual_busy_hours"], ShouldResemble, map[string]any{"09:00 - 10:00": float64(2)})
		})

		Convey("An invalid flag is a bad request", func() {
			w := get(mux, "/probability?current=maybe")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(svc.current, ShouldBeEmpty)
		})
	})
}

func TestActivityAndSales(t *testing.T) {
	Convey("Given a server", t, func() {
		svc := &mockAnalytics{}
		mux := newMux(svc)

		Convey("/activity returns the live status", func() {
			w := get(mux, "/activity")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["last_active"], ShouldEqual, "2024-02-15 06:45:00")
			So(body["active_idle"], ShouldEqual, "00:15:00")
			So(body["is_active"], ShouldEqual, true)
		})

		Convey("/sales defaults to the current week", func() {
			w := get(mux, "/sales")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["totalSales"], ShouldEqual, "$1,244.55")
			So(svc.salesKinds, ShouldResemble, []calendar.Kind{calendar.CurrentWeek})
		})

		Convey("/sales honours flag priority", func() {
			get(mux, "/sales?year=true&lastmonth=1")
			So(svc.salesKinds, ShouldResemble, []calendar.Kind{calendar.PriorMonth})
		})

		Convey("/sales accepts an explicit window", func() {
			get(mux, "/sales?window=priorQuarter")
			get(mux, "/sales?window=fortnight")
			So(svc.salesKinds, ShouldResemble, []calendar.Kind{calendar.PriorQuarter, calendar.CurrentWeek})
		})

		Convey("/sales rejects a malformed flag", func() {
			w := get(mux, "/sales?month=sometimes")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestCollaboratorFailure(t *testing.T) {
	Convey("Given a failing data source", t, func() {
		cause := fmt.Errorf("%w: sales_sum: %w", service.ErrDataSourceUnavailable, errors.New("dial tcp 10.0.0.5:3306: i/o timeout"))
		mux := newMux(&mockAnalytics{err: cause})

		for _, path := range []string{"/probability", "/activity", "/sales", "/carts", "/accounts"} {
			Convey("A generic 500 is returned on "+path, func() {
				w := get(mux, path)
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(decode(w)["code"], ShouldEqual, "internal_error")
				So(w.Body.String(), ShouldNotContainSubstring, "10.0.0.5")
			})
		}
	})
}

func TestCartsAndAccounts(t *testing.T) {
	Convey("Given a server", t, func() {
		mux := newMux(&mockAnalytics{})

		Convey("/carts lists today's carts", func() {
			w := get(mux, "/carts")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"profileId":"10"`)
			So(w.Body.String(), ShouldContainSubstring, `"updatedAt":"2024-02-15T09:00:00Z"`)
		})

		Convey("/accounts lists active accounts", func() {
			w := get(mux, "/accounts")
			So(w.Code, ShouldEqual, http.StatusOK)
			var out []map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
			So(len(out), ShouldEqual, 1)
			So(out[0]["recentlyOrdered"], ShouldEqual, true)
			So(out[0]["hasCartItems"], ShouldEqual, false)
		})
	})
}

func TestBackupRoute(t *testing.T) {
	Convey("Given a backup trigger", t, func() {
		svc := &mockAnalytics{backup: service.BackupResult{Started: true, Message: "Backup process started"}}
		mux := newMux(svc, api.WithRateLimits(map[string]int{"backup": 10}))

		Convey("A started backup is reported", func() {
			w := get(mux, "/backup")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w), ShouldResemble, map[string]any{"message": "Backup process started"})
		})

		Convey("Disabled backups answer 503", func() {
			svc.backupErr = service.ErrBackupDisabled
			w := get(mux, "/backup")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decode(w)["code"], ShouldEqual, "backup_disabled")
		})
	})

	Convey("Given the default backup budget", t, func() {
		mux := newMux(&mockAnalytics{backup: service.BackupResult{Message: "ok"}})

		So(get(mux, "/backup").Code, ShouldEqual, http.StatusOK)
		So(get(mux, "/backup").Code, ShouldEqual, http.StatusOK)

		w := get(mux, "/backup")
		So(w.Code, ShouldEqual, http.StatusTooManyRequests)
		So(w.Header().Get("Retry-After"), ShouldNotBeEmpty)
	})
}

func TestRateLimitAndRequestID(t *testing.T) {
	Convey("Given a budget of two sales requests per minute", t, func() {
		mux := newMux(&mockAnalytics{}, api.WithRateLimits(map[string]int{"sales": 2}))

		So(get(mux, "/sales").Code, ShouldEqual, http.StatusOK)
		So(get(mux, "/sales").Code, ShouldEqual, http.StatusOK)

		w := get(mux, "/sales")
		So(w.Code, ShouldEqual, http.StatusTooManyRequests)
		So(decode(w)["code"], ShouldEqual, "rate_limited")

		Convey("Other routes keep their own budget", func() {
			So(get(mux, "/activity").Code, ShouldEqual, http.StatusOK)
		})
	})

	Convey("Given requests with and without an id", t, func() {
		mux := newMux(&mockAnalytics{})

		w := get(mux, "/activity", "X-Request-ID", "req-123")
		So(w.Header().Get("X-Request-ID"), ShouldEqual, "req-123")

		w = get(mux, "/activity")
		id := w.Header().Get("X-Request-ID")
		So(len(id), ShouldEqual, 36)
		So(strings.Count(id, "-"), ShouldEqual, 4)
	})
}
