package record

import "log/slog"

// UpdateRequest lists the fields to change. Nil fields are left as they are.
type UpdateRequest struct {
	Title *string
	Body  *string
}

// Query filters the collection.
type Query struct {
	// Text matches title or body, ignoring case and Unicode width forms.
	Text string
	// Where is an optional boolean expression over id, title, body,
	// createdAt and updatedAt.
	Where string
	// Limit caps the result size when positive.
	Limit int
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(r *Repository) { r.clock = clock }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(fn func() string) Option {
	return func(r *Repository) { r.newID = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) { r.logger = logger }
}
