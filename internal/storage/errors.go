package storage

import "errors"

var (
	// ErrNotFound is returned when a key has never been written
	ErrNotFound = errors.New("not found")

	// ErrQuotaExceeded is returned when a value does not fit in the medium's quota
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrWriteFailure wraps any other failure to persist a value
	ErrWriteFailure = errors.New("storage write failed")

	// ErrClosed is returned by operations on a closed medium
	ErrClosed = errors.New("storage closed")
)
