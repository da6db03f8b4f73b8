package store

import (
	"errors"

	"github.com/tailored-agentic-units/datastore/persist"
)

// Sentinel errors for store operations. I/O failures surface as
// persist.ErrIO, and as persist.ErrFileInUse when contention outlasts the
// retry timeout.
var (
	ErrInvalidArgument = persist.ErrInvalidArgument
	ErrDuplicateKey    = errors.New("duplicate key")
	ErrNotFound        = errors.New("key not found")
	ErrAmbiguousResult = errors.New("more than one entity matches")
	ErrTypeMismatch    = errors.New("snapshot belongs to another store")
	ErrClosed          = errors.New("store closed")
)
