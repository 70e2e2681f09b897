package record

import "errors"

var (
	// ErrRecordNotFound indicates the record doesn't exist.
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidInput indicates invalid input for record operations.
	ErrInvalidInput = errors.New("invalid record input")
	// ErrInvalidQuery indicates a search filter expression that cannot be compiled or run.
	ErrInvalidQuery = errors.New("invalid record query")
)
