package codec

import "errors"

var (
	// ErrInvalidFormat indicates the import document is not {version: 1, records: [...]}.
	ErrInvalidFormat = errors.New("invalid import format")
	// ErrNoValidRecords indicates no entry survived sanitization.
	ErrNoValidRecords = errors.New("no valid records to import")

	errNothingToWrite = errors.New("nothing to write")
)
