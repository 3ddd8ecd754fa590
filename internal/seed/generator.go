package seed

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/storepulse/internal/adapters/repository"
	"github.com/okian/storepulse/pkg/logger"
)

const (
	randomFloatDivisor = 1000000

	visitRate      = 0.35 // chance a profile opens a cart on a full-weight day
	orderRate      = 0.4  // chance a cart turns into an order
	customerRate   = 0.7  // share of profiles with a payment customer id
	maxItems       = 3
	maxCartMinutes = 90
	maxPayMinutes  = 45
	minAmount      = 500
	amountRange    = 49500

	statusCompleted = "COMPLETED"
	statusPending   = "PENDING"
)

// Relative traffic per weekday, Sunday first.
var weekdayWeights = [7]float64{0.6, 0.8, 0.85, 0.9, 1.0, 0.95, 0.7} //nolint:gochecknoglobals // demand curve

// Relative traffic per hour of day.
var hourWeights = [24]float64{ //nolint:gochecknoglobals // demand curve
	0.1, 0.05, 0.05, 0.05, 0.05, 0.1, 0.3, 0.6,
	0.9, 1.0, 0.9, 0.8, 0.9, 0.8, 0.7, 0.7,
	0.8, 0.9, 1.0, 1.0, 0.9, 0.7, 0.4, 0.2,
}

var firstNames = []string{"Ann", "Bob", "Cy", "Di", "Ed", "Flo", "Gus", "Hal", "Ivy", "Jo"} //nolint:gochecknoglobals // sample names

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// randomInt returns a random int in [0, n).
func randomInt(n int) int {
	if n <= 0 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// pickHour samples an hour of day from hourWeights.
func pickHour() int {
	var total float64
	for _, w := range hourWeights {
		total += w
	}
	target := getRandomFloat() * total
	for h, w := range hourWeights {
		if target < w {
			return h
		}
		target -= w
	}
	return len(hourWeights) - 1
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

func clampTime(t, limit time.Time) time.Time {
	if t.After(limit) {
		return limit
	}
	return t
}

// cartDraft is one shopping session before ids are assigned.
type cartDraft struct {
	cart  repository.CartRow
	items []repository.CartItemRow
	order *repository.OrderRow
}

// generateDay draws the sessions of the day starting at start. Nothing is
// placed after now.
func generateDay(start, now time.Time, profiles int) []cartDraft {
	var out []cartDraft
	rate := visitRate * weekdayWeights[start.Weekday()]
	for p := 1; p <= profiles; p++ {
		if getRandomFloat() >= rate {
			continue
		}
		created := start.Add(time.Duration(pickHour())*time.Hour + minutes(randomInt(60)))
		if created.After(now) {
			continue
		}
		updated := clampTime(created.Add(minutes(randomInt(maxCartMinutes))), now)
		d := cartDraft{cart: repository.CartRow{ProfileID: int64(p), CreatedAt: created, UpdatedAt: updated}}

		for i := randomInt(maxItems + 1); i > 0; i-- {
			touched := clampTime(created.Add(minutes(randomInt(maxCartMinutes))), now)
			d.items = append(d.items, repository.CartItemRow{UpdatedAt: touched})
		}

		if getRandomFloat() < orderRate {
			placed := clampTime(updated.Add(minutes(randomInt(maxPayMinutes))), now)
			o := repository.OrderRow{
				ProfileID: int64(p),
				Status:    statusPending,
				Amount:    int64(minAmount + randomInt(amountRange)),
				CreatedAt: placed,
			}
			if done := placed.Add(minutes(1 + randomInt(maxPayMinutes))); !done.After(now) {
				o.Status = statusCompleted
				o.CompletedAt = done
			}
			d.order = &o
		}
		out = append(out, d)
	}
	return out
}

// Generate builds a fixture of cfg.Profiles shoppers and cfg.Days of
// storefront sessions ending at cfg.Now. Days are drawn concurrently.
func Generate(ctx context.Context, cfg *Config, stats *Stats) (repository.Fixture, error) {
	if err := cfg.Validate(); err != nil {
		return repository.Fixture{}, err
	}
	logger.Get().Info(ctx, "generating storefront activity",
		logger.Int("days", cfg.Days),
		logger.Int("profiles", cfg.Profiles))

	now := cfg.Now.In(cfg.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, cfg.Location)

	type dayResult struct {
		index int
		carts []cartDraft
	}

	jobs := make(chan int)
	results := make(chan dayResult, cfg.Days)
	var wg sync.WaitGroup
	for w := 0; w < min(cfg.Workers, cfg.Days); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				start := today.AddDate(0, 0, i-cfg.Days+1)
				results <- dayResult{index: i, carts: generateDay(start, now, cfg.Profiles)}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for i := 0; i < cfg.Days; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	days := make([][]cartDraft, cfg.Days)
	for r := range results {
		days[r.index] = r.carts
	}
	if err := ctx.Err(); err != nil {
		return repository.Fixture{}, fmt.Errorf("context cancelled during generation: %w", err)
	}

	var f repository.Fixture
	for p := 1; p <= cfg.Profiles; p++ {
		row := repository.ProfileRow{
			ID:    int64(p),
			Email: "shopper" + strconv.Itoa(p) + "@example.com",
			Name:  firstNames[(p-1)%len(firstNames)],
		}
		if getRandomFloat() < customerRate {
			row.CustomerID = uuid.NewString()
		}
		f.Profiles = append(f.Profiles, row)
	}
	for _, drafts := range days {
		for _, d := range drafts {
			d.cart.ID = int64(len(f.Carts) + 1)
			f.Carts = append(f.Carts, d.cart)
			for _, it := range d.items {
				it.ID = int64(len(f.CartItems) + 1)
				it.CartID = d.cart.ID
				f.CartItems = append(f.CartItems, it)
			}
			if d.order != nil {
				o := *d.order
				o.ID = int64(len(f.Orders) + 1)
				f.Orders = append(f.Orders, o)
				if o.Status == statusCompleted {
					stats.OrdersCompleted++
				}
			}
		}
	}

	stats.ProfilesGenerated = len(f.Profiles)
	stats.CartsGenerated = len(f.Carts)
	stats.ItemsGenerated = len(f.CartItems)
	stats.OrdersGenerated = len(f.Orders)
	logger.Get().Info(ctx, "generated storefront activity",
		logger.Int("carts", stats.CartsGenerated),
		logger.Int("items", stats.ItemsGenerated),
		logger.Int("orders", stats.OrdersGenerated))
	return f, nil
}
