package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/storepulse/internal/adapters/repository"
	"github.com/okian/storepulse/pkg/logger"
)

// Loader writes a fixture into the storefront tables.
type Loader interface {
	CreateSchema(ctx context.Context) error
	Load(ctx context.Context, f repository.Fixture) error
}

// Run generates activity, loads it through store and, when cfg.Verify is
// set, checks the running service against it.
func Run(ctx context.Context, cfg *Config, store Loader) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	if err := cfg.Validate(); err != nil {
		return stats, err
	}

	logger.Get().Info(ctx, "starting storepulse seed",
		logger.Int("days", cfg.Days),
		logger.Int("profiles", cfg.Profiles),
		logger.Int("workers", cfg.Workers),
		logger.String("location", cfg.Location.String()),
		logger.Bool("verify", cfg.Verify))

	// Step 1: Generate activity
	fixture, err := Generate(ctx, cfg, stats)
	if err != nil {
		return stats, fmt.Errorf("generation failed: %w", err)
	}

	// Step 2: Load it
	if err := store.CreateSchema(ctx); err != nil {
		return stats, fmt.Errorf("schema creation failed: %w", err)
	}
	if err := store.Load(ctx, fixture); err != nil {
		return stats, fmt.Errorf("load failed: %w", err)
	}
	stats.RowsLoaded = fixture.Len()

	// Step 3: Verify the service
	if cfg.Verify {
		if err := verifyService(ctx, cfg, stats); err != nil {
			return stats, fmt.Errorf("service verification failed: %w", err)
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	logger.Get().Info(ctx, "seed completed successfully")
	return stats, nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var rowsPerSecond float64
	if stats.Duration > 0 {
		rowsPerSecond = float64(stats.RowsLoaded) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("profilesGenerated", stats.ProfilesGenerated),
		logger.Int("cartsGenerated", stats.CartsGenerated),
		logger.Int("itemsGenerated", stats.ItemsGenerated),
		logger.Int("ordersGenerated", stats.OrdersGenerated),
		logger.Int("ordersCompleted", stats.OrdersCompleted),
		logger.Int("rowsLoaded", stats.RowsLoaded),
		logger.Int("endpointsChecked", stats.EndpointsChecked),
		logger.Int("endpointsFailed", stats.EndpointsFailed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("rowsPerSecond", rowsPerSecond))
}
