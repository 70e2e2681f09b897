package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/notebox/internal/codec"
	"github.com/rpggio/notebox/internal/domain/record"
	"github.com/rpggio/notebox/internal/snapshot"
	"github.com/rpggio/notebox/internal/storage"
)

// ErrUnknownCollection is returned for a collection name the server does not serve.
var ErrUnknownCollection = errors.New("unknown collection")

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes. Errors it does not know
// yield nil. Import errors wrap snapshot.ErrDecode, so they are matched first.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, record.ErrRecordNotFound):
		return &APIError{Code: "RECORD_NOT_FOUND", Message: "record not found", RecoveryHint: "List records to find a valid id"}
	case errors.Is(err, record.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), RecoveryHint: "Provide a non-empty title"}
	case errors.Is(err, record.ErrInvalidQuery):
		return &APIError{Code: "INVALID_QUERY", Message: err.Error(), RecoveryHint: "Check the where expression"}
	case errors.Is(err, storage.ErrQuotaExceeded):
		return &APIError{Code: "QUOTA_EXCEEDED", Message: "storage quota exceeded", RecoveryHint: "Delete or shorten records"}
	case errors.Is(err, storage.ErrWriteFailure):
		return &APIError{Code: "WRITE_FAILED", Message: err.Error()}
	case errors.Is(err, codec.ErrInvalidFormat):
		return &APIError{Code: "INVALID_FORMAT", Message: err.Error(), RecoveryHint: "Expected {\"version\": 1, \"records\": [...]}"}
	case errors.Is(err, codec.ErrNoValidRecords):
		return &APIError{Code: "NO_VALID_RECORDS", Message: "the document contains no valid records"}
	case errors.Is(err, snapshot.ErrDecode):
		return &APIError{Code: "LOAD_FAILED", Message: err.Error(), RecoveryHint: "Stored data is unreadable; import a backup"}
	case errors.Is(err, ErrUnknownCollection):
		return &APIError{Code: "UNKNOWN_COLLECTION", Message: err.Error()}
	default:
		return nil
	}
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
