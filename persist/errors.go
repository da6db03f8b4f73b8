package persist

import "errors"

// Sentinel errors for file persistence.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrIO              = errors.New("io failure")
	ErrFileInUse       = errors.New("file in use by another process")
)

// errBusy marks a single attempt that failed because the file is in use.
// It never leaves the package; exhausted retries surface ErrFileInUse.
var errBusy = errors.New("busy")
