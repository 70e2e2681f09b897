package record

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository is the in-memory, sorted view of one snapshot store. Every
// mutation goes through the store; every store change reloads the view.
type Repository struct {
	store  SnapshotStore
	clock  Clock
	newID  func() string
	logger *slog.Logger

	mu      sync.RWMutex
	records []Record
	loading bool
	err     error

	closeOnce   sync.Once
	unsubscribe func()
}

// NewRepository subscribes to store changes and loads the current snapshot.
// A failed first load leaves the repository empty with Err set.
func NewRepository(ctx context.Context, store SnapshotStore, opts ...Option) *Repository {
	r := &Repository{
		store:   store,
		clock:   SystemClock{},
		newID:   uuid.NewString,
		loading: true,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.unsubscribe = store.Subscribe(r.onChange)
	_ = r.Load(ctx)
	return r
}

// Close stops reacting to store changes.
func (r *Repository) Close() {
	r.closeOnce.Do(func() {
		if r.unsubscribe != nil {
			r.unsubscribe()
		}
	})
}

// Load replaces the view with the persisted snapshot. On failure the view is
// emptied and the error is kept in Err; persisted bytes are not touched.
func (r *Repository) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.store.Read(ctx)
	r.loading = false
	if err != nil {
		r.records = nil
		r.err = fmt.Errorf("loading records: %w", err)
		r.logError("failed to load records", err)
		return r.err
	}

	records := cloneRecords(snap.Records)
	SortByUpdatedDesc(records)
	r.records = records
	r.err = nil
	return nil
}

// Create adds a record with a fresh id. Nothing changes if the write fails.
func (r *Repository) Create(ctx context.Context, title, body string) (*Record, error) {
	title, err := NormalizeTitle(title)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	rec := Record{
		ID:        r.newID(),
		Title:     title,
		Body:      strings.TrimSpace(body),
		CreatedAt: now,
		UpdatedAt: now,
	}

	next := append(cloneRecords(r.records), rec)
	if err := r.commit(ctx, next); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update merges the given fields into the record and refreshes UpdatedAt,
// even when no value changes.
func (r *Repository) Update(ctx context.Context, id string, req UpdateRequest) (*Record, error) {
	var title string
	if req.Title != nil {
		var err error
		if title, err = NormalizeTitle(*req.Title); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return nil, ErrRecordNotFound
	}

	updated := r.records[idx]
	if req.Title != nil {
		updated.Title = title
	}
	if req.Body != nil {
		updated.Body = *req.Body
	}
	now := r.now()
	if now.Before(updated.UpdatedAt) {
		now = updated.UpdatedAt
	}
	updated.UpdatedAt = now

	next := cloneRecords(r.records)
	next[idx] = updated
	if err := r.commit(ctx, next); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the record with id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return ErrRecordNotFound
	}

	next := make([]Record, 0, len(r.records)-1)
	next = append(next, r.records[:idx]...)
	next = append(next, r.records[idx+1:]...)
	return r.commit(ctx, next)
}

// Apply computes the next collection from the current one and persists it.
// fn receives a copy; the view only changes if the write succeeds.
func (r *Repository) Apply(ctx context.Context, fn func(current []Record) ([]Record, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := fn(cloneRecords(r.records))
	if err != nil {
		return err
	}
	return r.commit(ctx, next)
}

// Get looks a record up in the current view.
func (r *Repository) Get(id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return Record{}, false
	}
	return r.records[idx], true
}

// List returns a copy of the view, most recently updated first.
func (r *Repository) List() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneRecords(r.records)
}

// Err returns the last load or write error, nil after a later success.
func (r *Repository) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// IsLoading reports whether the first load has not finished yet.
func (r *Repository) IsLoading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loading
}

// commit sorts next, writes it and adopts it. Caller holds r.mu.
func (r *Repository) commit(ctx context.Context, next []Record) error {
	SortByUpdatedDesc(next)
	if err := r.store.Write(ctx, NewSnapshot(next)); err != nil {
		r.err = fmt.Errorf("saving records: %w", err)
		r.logError("failed to save records", err)
		return r.err
	}
	r.records = next
	r.err = nil
	return nil
}

func (r *Repository) onChange(src ChangeSource) {
	if r.logger != nil {
		r.logger.Debug("reloading records", "source", src.String())
	}
	_ = r.Load(context.Background())
}

func (r *Repository) indexOf(id string) int {
	for i := range r.records {
		if r.records[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Repository) now() time.Time {
	return r.clock.Now().UTC().Truncate(time.Millisecond)
}

func (r *Repository) logError(msg string, err error) {
	if r.logger != nil {
		r.logger.Error(msg, "error", err)
	}
}
