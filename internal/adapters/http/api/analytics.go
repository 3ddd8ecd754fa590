package api

import (
	"net/http"

	"github.com/okian/storepulse/internal/domain/calendar"
)

// handleProbability handles GET /probability. With current=true it returns
// today's comparison, otherwise the full weekly baseline keyed by weekday.
func (s *Server) handleProbability(w http.ResponseWriter, r *http.Request) {
	current, err := flag(r.URL.Query(), "current")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	report, err := s.svc.GetBaselineComparison(r.Context(), current)
	if err != nil {
		s.fail(w, r, "probability", err)
		return
	}
	if current && report.Current != nil {
		writeJSON(w, http.StatusOK, report.Current)
		return
	}
	writeJSON(w, http.StatusOK, report.Days)
}

// handleActivity handles GET /activity requests.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.GetLiveStatus(r.Context())
	if err != nil {
		s.fail(w, r, "activity", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleSales handles GET /sales. The window is chosen by ?window=<kind> or,
// failing that, by the legacy boolean flags.
func (s *Server) handleSales(w http.ResponseWriter, r *http.Request) {
	kind, err := salesWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	sales, err := s.svc.GetSales(r.Context(), kind)
	if err != nil {
		s.fail(w, r, "sales", err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func salesWindow(r *http.Request) (calendar.Kind, error) {
	q := r.URL.Query()
	if w := q.Get("window"); w != "" {
		return calendar.ParseKind(w), nil
	}

	var sel calendar.Selector
	for name, dst := range map[string]*bool{
		"prior":        &sel.Prior,
		"month":        &sel.Month,
		"lastmonth":    &sel.LastMonth,
		"quarter":      &sel.Quarter,
		"priorquarter": &sel.PriorQuarter,
		"year":         &sel.Year,
		"prioryear":    &sel.PriorYear,
	} {
		v, err := flag(q, name)
		if err != nil {
			return "", err
		}
		*dst = v
	}
	return sel.Kind(), nil
}
