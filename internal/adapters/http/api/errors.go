package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrInvalidAPIKey    = errors.New("invalid api key")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrInternal         = errors.New("internal server error")
	ErrBackupDisabled   = errors.New("backups are disabled")
)
