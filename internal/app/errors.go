package service

import "errors"

var (
	// ErrDataSourceUnavailable wraps every failed or timed-out data source call.
	ErrDataSourceUnavailable = errors.New("data source unavailable")
	// ErrBackupDisabled is returned by TriggerBackup when no backup job is wired.
	ErrBackupDisabled = errors.New("backup disabled")
)
