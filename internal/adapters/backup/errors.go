package backup

import "errors"

var (
	// ErrBackupUnsupported is returned for database backends that have no dump tool wired.
	ErrBackupUnsupported = errors.New("backup unsupported for backend")
	// ErrAlreadyExists reports that the target directory of a run is already present.
	ErrAlreadyExists = errors.New("backup already exists")
	// ErrSchedulerClosed is returned by Trigger after Shutdown.
	ErrSchedulerClosed = errors.New("backup scheduler closed")
	// ErrInvalidTable rejects table names that would escape the backup directory.
	ErrInvalidTable = errors.New("invalid table name")
)
