package repository

import "errors"

// Sentinel errors for the SQL data source.
var (
	ErrUnknownBackend = errors.New("unknown database backend")
	ErrBreakerOpen    = errors.New("data source circuit breaker open")
)
