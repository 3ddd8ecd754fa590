package api

import (
	"errors"
	"net/http"

	service "github.com/okian/storepulse/internal/app"
)

// handleBackup handles GET /backup, the manual backup trigger.
func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.TriggerBackup(r.Context())
	switch {
	case errors.Is(err, service.ErrBackupDisabled):
		writeError(w, http.StatusServiceUnavailable, "backup_disabled", ErrBackupDisabled)
	case err != nil:
		s.fail(w, r, "backup", err)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}
