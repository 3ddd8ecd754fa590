package seed

import (
	"errors"
	"fmt"
	"time"
)

// Config drives one seeding run.
type Config struct {
	Days     int            // Days of history to generate, today included
	Profiles int            // Number of shopper profiles
	Workers  int            // Concurrent day generators
	Now      time.Time      // End of the generated window; zero means time.Now
	Location *time.Location // Calendar used for day boundaries
	BaseURL  string         // Service to verify after loading
	APIKey   string         // X-API-Key for protected routes
	Timeout  time.Duration  // HTTP request timeout
	Verify   bool           // Query the running service after loading
}

// Stats holds seeding statistics.
type Stats struct {
	ProfilesGenerated int
	CartsGenerated    int
	ItemsGenerated    int
	OrdersGenerated   int
	OrdersCompleted   int
	RowsLoaded        int
	EndpointsChecked  int
	EndpointsFailed   int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid seed config")

// Validate fills defaults and rejects unusable values.
func (c *Config) Validate() error {
	if c.Days < 1 {
		return fmt.Errorf("%w: days must be at least 1", ErrInvalidConfig)
	}
	if c.Profiles < 1 {
		return fmt.Errorf("%w: profiles must be at least 1", ErrInvalidConfig)
	}
	if c.Verify && c.BaseURL == "" {
		return fmt.Errorf("%w: verify needs a base url", ErrInvalidConfig)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.Now.IsZero() {
		c.Now = time.Now()
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return nil
}
