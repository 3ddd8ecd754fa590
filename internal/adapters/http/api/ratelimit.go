package api

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/storepulse/pkg/metrics"
)

// limitSpec allows n requests per period, refilled evenly.
type limitSpec struct {
	n   int
	per time.Duration
}

func (l limitSpec) limiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(l.per/time.Duration(l.n)), l.n)
}

// rateLimit rejects requests over the route budget with 429 and a
// Retry-After hint. Budgets are global per route, not per client.
func (s *Server) rateLimit(name string, next http.HandlerFunc) http.HandlerFunc {
	lim, ok := s.limiters[name]
	if !ok {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		res := lim.Reserve()
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			metrics.RecordRateLimited(name)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "rate_limited", ErrRateLimited)
			return
		}
		next(w, r)
	}
}
