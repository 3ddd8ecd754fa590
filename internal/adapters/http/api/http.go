// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	service "github.com/okian/storepulse/internal/app"
	"github.com/okian/storepulse/internal/domain/calendar"
	"github.com/okian/storepulse/internal/domain/model"
	"github.com/okian/storepulse/pkg/logger"
	"github.com/okian/storepulse/pkg/metrics"
)

// Analytics is the service surface the handlers expose. Keeping it an
// interface lets tests drive the routes without a database.
type Analytics interface {
	GetBaselineComparison(ctx context.Context, current bool) (service.BaselineReport, error)
	GetLiveStatus(ctx context.Context) (service.LiveStatus, error)
	GetSales(ctx context.Context, kind calendar.Kind) (service.Sales, error)
	ActiveCarts(ctx context.Context) ([]model.Cart, error)
	ActiveAccounts(ctx context.Context) ([]model.Account, error)
	Healthy(ctx context.Context) bool
	TriggerBackup(ctx context.Context) (service.BackupResult, error)
	StatsProvider
}

// VersionInfo is served verbatim on /version.
type VersionInfo struct {
	Version     string `json:"version"`
	DownloadURL string `json:"downloadURL"`
}

// Server wires HTTP routes for the business API.
type Server struct {
	svc      Analytics
	apiKey   string
	version  VersionInfo
	limits   map[string]limitSpec
	limiters map[string]*rate.Limiter
	logger   logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(svc Analytics, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		limits: map[string]limitSpec{"backup": {n: 2, per: time.Hour}},
		logger: logger.Get().Named("http"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.limiters = make(map[string]*rate.Limiter, len(s.limits))
	for name, spec := range s.limits {
		s.limiters[name] = spec.limiter()
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	s.route(mux, "GET /health", "health", false, s.handleHealth)
	s.route(mux, "GET /version", "version", false, s.handleVersion)
	s.route(mux, "GET /probability", "probability", true, s.handleProbability)
	s.route(mux, "GET /activity", "activity", false, s.handleActivity)
	s.route(mux, "GET /sales", "sales", false, s.handleSales)
	s.route(mux, "GET /carts", "carts", true, s.handleCarts)
	s.route(mux, "GET /accounts", "accounts", true, s.handleAccounts)
	s.route(mux, "GET /backup", "backup", false, s.handleBackup)

	s.route(mux, "GET /stats", "stats", false, s.handleStats)
	s.route(mux, "GET /healthz", "healthz", false, handleLiveness)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}

// route applies, outermost first: request id, metrics, rate limit, api key.
func (s *Server) route(mux *http.ServeMux, pattern, name string, protected bool, h http.HandlerFunc) {
	if protected {
		h = s.requireAPIKey(h)
	}
	h = s.rateLimit(name, h)
	mux.HandleFunc(pattern, RequestIDMiddleware(MetricsMiddleware(h, name)))
}

// fail logs err and answers with a generic 500 that never leaks the cause.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.Error(r.Context(), "request failed", logger.String("op", op), logger.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", ErrInternal)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
