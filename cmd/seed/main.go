package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"
	_ "time/tzdata" // zone database for minimal images

	"github.com/okian/storepulse/internal/adapters/repository"
	"github.com/okian/storepulse/internal/config"
	"github.com/okian/storepulse/internal/seed"
	"github.com/okian/storepulse/pkg/logger"
)

// Default configuration constants.
const (
	defaultDays     = 56
	defaultProfiles = 200
	defaultWorkers  = 2 // multiplier for runtime.NumCPU()
	defaultTimeout  = 30 * time.Second
	defaultRunLimit = 10 * time.Minute
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunLimit)
	defer cancel()

	// Database and key defaults come from the service configuration.
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	var (
		backend  = flag.String("backend", cfg.DBBackend, "Database backend: mysql, postgres or sqlite")
		dsn      = flag.String("dsn", cfg.DBDSN, "Database DSN")
		days     = flag.Int("days", defaultDays, "Days of history to generate, today included")
		profiles = flag.Int("profiles", defaultProfiles, "Number of shopper profiles")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent day generators")
		baseURL  = flag.String("url", "http://localhost"+cfg.Addr, "Base URL of the running service")
		apiKey   = flag.String("api-key", cfg.APIKey, "X-API-Key for protected routes")
		verify   = flag.Bool("verify", false, "Query the running service after loading")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
	)
	flag.Parse()

	loc, err := cfg.Location()
	if err != nil {
		os.Stderr.WriteString("invalid business timezone: " + err.Error() + "\n")
		os.Exit(1)
	}

	store, err := repository.Open(ctx, repository.Config{Backend: *backend, DSN: *dsn, Schema: cfg.DBSchema})
	if err != nil {
		os.Stderr.WriteString("failed to open database: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer store.Close()

	_, err = seed.Run(ctx, &seed.Config{
		Days:     *days,
		Profiles: *profiles,
		Workers:  *workers,
		Location: loc,
		BaseURL:  *baseURL,
		APIKey:   *apiKey,
		Timeout:  *timeout,
		Verify:   *verify,
	}, store)
	if err != nil {
		logger.Get().Error(ctx, "seed failed", logger.Error(err))
		return
	}
}
