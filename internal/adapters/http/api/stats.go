package api

import (
	"math"
	"net/http"
)

// StatsProvider reports service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

type budget struct {
	Limit     int    `json:"limit"`
	Per       string `json:"per"`
	Available int    `json:"available"`
}

// handleStats serves the service statistics together with the API version
// and what is left of every route budget.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.svc.GetStats()
	if stats == nil {
		stats = make(map[string]interface{})
	}
	stats["version"] = s.version.Version

	budgets := make(map[string]budget, len(s.limits))
	for name, l := range s.limits {
		budgets[name] = budget{
			Limit:     l.n,
			Per:       l.per.String(),
			Available: int(math.Floor(s.limiters[name].Tokens())),
		}
	}
	stats["rateLimits"] = budgets
	writeJSON(w, http.StatusOK, stats)
}
