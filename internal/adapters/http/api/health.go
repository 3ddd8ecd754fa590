package api

import (
	"net/http"
)

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// handleHealth handles GET /health. It always answers 200 and reports the
// data source state in the body.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.svc.Healthy(r.Context()) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "OK", Database: "Connected"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "Error", Database: "Not Connected"})
}

// handleVersion handles GET /version requests.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.version)
}

// handleLiveness handles GET /healthz; it never touches the data source.
func handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
