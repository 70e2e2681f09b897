// Package codec exports a record collection as a portable document and merges
// imported documents back into it.
package codec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/notebox/internal/domain/record"
	"github.com/rpggio/notebox/internal/snapshot"
)

// Collection is the part of record.Repository the codec needs.
type Collection interface {
	List() []record.Record
	Apply(ctx context.Context, fn func(current []record.Record) ([]record.Record, error)) error
}

// Codec exports and imports one collection.
type Codec struct {
	records Collection
	clock   record.Clock
	newID   func() string
	logger  *slog.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time used for missing timestamps.
func WithClock(clock record.Clock) Option {
	return func(c *Codec) { c.clock = clock }
}

// WithIDGenerator overrides id generation for new or colliding ids.
func WithIDGenerator(fn func() string) Option {
	return func(c *Codec) { c.newID = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Codec) { c.logger = logger }
}

// New creates a codec over records.
func New(records Collection, opts ...Option) *Codec {
	c := &Codec{
		records: records,
		clock:   record.SystemClock{},
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Export renders the collection, most recently updated first, as an indented
// document.
func (c *Codec) Export() ([]byte, error) {
	data, err := snapshot.EncodeIndent(record.NewSnapshot(c.records.List()))
	if err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}
	return data, nil
}

// Import merges data into the collection and persists the result. Nothing is
// written when the document is invalid or every entry already exists.
func (c *Codec) Import(ctx context.Context, data []byte) (Result, error) {
	var result Result
	err := c.records.Apply(ctx, func(current []record.Record) ([]record.Record, error) {
		merged, res, err := Merge(data, current, c.now(), c.newID)
		result = res
		if err != nil {
			return nil, err
		}
		if res.Added == 0 {
			return nil, errNothingToWrite
		}
		return merged, nil
	})

	switch {
	case errors.Is(err, errNothingToWrite):
		return result, nil
	case errors.Is(err, ErrInvalidFormat), errors.Is(err, ErrNoValidRecords):
		return result, err
	case err != nil:
		result = Result{Message: fmt.Sprintf("failed to save imported records: %v", err)}
		return result, fmt.Errorf("importing records: %w", err)
	}

	if c.logger != nil {
		c.logger.Info("imported records", "added", result.Added, "skipped", result.Skipped)
	}
	return result, nil
}

// FileName names an export of collection taken at now.
func FileName(collection string, now time.Time) string {
	return fmt.Sprintf("%s-export-%s.json", collection, now.UTC().Format("20060102-150405"))
}

func (c *Codec) now() time.Time {
	return c.clock.Now().UTC().Truncate(time.Millisecond)
}
