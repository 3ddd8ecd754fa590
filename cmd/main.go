package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"
	_ "time/tzdata" // zone database for minimal images

	"github.com/okian/storepulse/internal/adapters/backup"
	"github.com/okian/storepulse/internal/adapters/http/api"
	"github.com/okian/storepulse/internal/adapters/http/swagger"
	"github.com/okian/storepulse/internal/adapters/repository"
	app "github.com/okian/storepulse/internal/app"
	"github.com/okian/storepulse/internal/config"
	"github.com/okian/storepulse/internal/domain/liveness"
	"github.com/okian/storepulse/pkg/logger"
	"github.com/okian/storepulse/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, loggerInstance); err != nil {
		loggerInstance.Error(ctx, "storepulse stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

// application holds the wired components of one process.
type application struct {
	store   *repository.SQLStore
	svc     *app.Service
	backups *backup.Scheduler
	handler http.Handler
}

// build opens the database and wires the service, the optional backup
// scheduler, and the HTTP routes.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (*application, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, err := repository.Open(ctx, repository.Config{
		Backend:         cfg.DBBackend,
		DSN:             cfg.DBDSN,
		Schema:          cfg.DBSchema,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetimeSec) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	source := repository.NewGuarded(store,
		repository.WithBreakerName("datasource"),
		repository.WithMaxFailures(cfg.BreakerMaxFailures),
		repository.WithOpenTimeout(time.Duration(cfg.BreakerOpenTimeoutSec)*time.Second),
	)

	a := &application{store: store}
	opts := []app.Option{
		app.WithLogger(log),
		app.WithLocation(loc),
		app.WithQueryTimeout(cfg.QueryTimeout()),
		app.WithMonitor(liveness.NewMonitor(
			liveness.WithItemThreshold(cfg.ItemIdleThreshold()),
			liveness.WithCartThreshold(cfg.CartIdleThreshold()),
			liveness.WithTrailingWindow(cfg.TrailingWindow()),
		)),
	}

	if cfg.BackupEnabled {
		job, err := newBackupJob(ctx, cfg, source)
		switch {
		case errors.Is(err, backup.ErrBackupUnsupported):
			log.Warn(ctx, "backups disabled: backend has no dump tool", logger.String("backend", cfg.DBBackend))
		case err != nil:
			_ = store.Close()
			return nil, err
		default:
			a.backups = backup.NewScheduler(job,
				backup.WithInterval(time.Duration(cfg.BackupCheckIntervalMin)*time.Minute),
				backup.WithMinGap(time.Duration(cfg.BackupMinGapMin)*time.Minute),
				backup.WithLocation(loc),
			)
			opts = append(opts, app.WithBackupTrigger(a.backups))
		}
	}

	a.svc = app.New(source, opts...)

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(a.svc,
		api.WithAPIKey(cfg.APIKey),
		api.WithVersion(api.VersionInfo{Version: cfg.Version, DownloadURL: cfg.DownloadURL}),
		api.WithRateLimits(cfg.RateLimits),
	).Register(ctx, mux)
	a.handler = mux

	return a, nil
}

func newBackupJob(ctx context.Context, cfg *config.Config, tables backup.TableLister) (*backup.Dumper, error) {
	opts := []backup.DumperOption{
		backup.WithBinary(cfg.MysqldumpPath),
		backup.WithRoot(cfg.BackupDir),
	}
	if cfg.BackupS3Bucket != "" {
		up, err := backup.NewS3Uploader(ctx, cfg.BackupS3Region, cfg.BackupS3Bucket, cfg.BackupS3Prefix)
		if err != nil {
			return nil, err
		}
		opts = append(opts, backup.WithUploader(up))
	}
	return backup.NewDumper(cfg.DBBackend, cfg.DBDSN, tables, opts...)
}

// close stops the scheduler and releases the database.
func (a *application) close(ctx context.Context, log logger.Logger) {
	if a.backups != nil {
		if err := a.backups.Shutdown(ctx); err != nil {
			log.Error(ctx, "backup scheduler shutdown failed", logger.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		log.Error(ctx, "database close failed", logger.Error(err))
	}
}

// run serves HTTP until ctx is canceled, then shuts everything down.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	a, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}

	go startSystemMetricsUpdater(ctx)
	if a.backups != nil {
		go a.backups.Run(ctx)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			a.close(shutdownCtx, log)
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	a.close(shutdownCtx, log)

	log.Info(ctx, "server stopped")
	return nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		// Calculate average GC pause time
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
