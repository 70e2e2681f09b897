package storage

import "context"

// Medium is a persistent key/value store shared by one or more contexts.
// Each handle returned by a medium constructor is one context.
type Medium interface {
	// Get returns the stored bytes for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value for key. Quota failures return ErrQuotaExceeded,
	// other failures wrap ErrWriteFailure.
	Set(ctx context.Context, key string, value []byte) error
	// Watch registers fn to run when key is changed by another context.
	// Writes made through this handle never trigger fn.
	Watch(key string, fn func()) (cancel func())
	Close() error
}
