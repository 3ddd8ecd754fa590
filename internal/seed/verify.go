package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/storepulse/pkg/logger"
)

// ErrServiceUnhealthy is returned when the service cannot reach its database.
var ErrServiceUnhealthy = errors.New("service unhealthy")

type healthReply struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

type activityReply struct {
	LastActive string `json:"last_active"`
	IsActive   bool   `json:"is_active"`
}

type salesReply struct {
	Window     string `json:"window"`
	TotalSales string `json:"totalSales"`
}

type comparisonReply struct {
	Day               string  `json:"actual_day"`
	BaselineAvailable bool    `json:"baseline_available"`
	Actual            float64 `json:"actual_probability"`
	Expected          float64 `json:"expected_probability"`
}

type accountReply struct {
	ID string `json:"id"`
}

// checkServiceHealth verifies the service is running and connected.
func checkServiceHealth(ctx context.Context, c *Client) error {
	logger.Get().Info(ctx, "checking service health")

	var h healthReply
	if err := c.Get(ctx, "/health", &h); err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if h.Database != "Connected" {
		return fmt.Errorf("%w: database %s", ErrServiceUnhealthy, h.Database)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// verifyService queries every analytics route once. A failing route does not
// stop the others; all failures are returned together.
func verifyService(ctx context.Context, cfg *Config, stats *Stats) error {
	c := NewClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout)
	if err := checkServiceHealth(ctx, c); err != nil {
		stats.EndpointsFailed++
		return err
	}
	stats.EndpointsChecked++

	var (
		activity   activityReply
		sales      salesReply
		comparison comparisonReply
		accounts   []accountReply
	)
	probes := []struct {
		path string
		out  any
	}{
		{"/activity", &activity},
		{"/sales?window=currentWeek", &sales},
		{"/probability?current=true", &comparison},
		{"/accounts", &accounts},
	}

	var errs []error
	for _, p := range probes {
		if err := c.Get(ctx, p.path, p.out); err != nil {
			stats.EndpointsFailed++
			logger.Get().Warn(ctx, "endpoint check failed", logger.String("path", p.path), logger.Error(err))
			errs = append(errs, err)
			continue
		}
		stats.EndpointsChecked++
	}

	logger.Get().Info(ctx, "service responses",
		logger.Bool("isActive", activity.IsActive),
		logger.String("lastActive", activity.LastActive),
		logger.String("weekSales", sales.TotalSales),
		logger.String("day", comparison.Day),
		logger.Bool("baselineAvailable", comparison.BaselineAvailable),
		logger.Float64("actualProbability", comparison.Actual),
		logger.Float64("expectedProbability", comparison.Expected),
		logger.Int("activeAccounts", len(accounts)))

	return errors.Join(errs...)
}
