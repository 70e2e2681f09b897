package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/notebox/internal/storage"
)

// KVStore implements storage.Medium on the kv table. Each KVStore is one
// context; changes written by other KVStores on the same database file are
// detected by polling revisions.
type KVStore struct {
	db       *DB
	writer   string
	quota    int
	interval time.Duration
	logger   *slog.Logger
	watchers storage.Watchers

	mu   sync.Mutex
	seen map[string]int64

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// KVOption configures a KVStore.
type KVOption func(*KVStore)

// WithQuota limits the total bytes stored across all keys. Zero disables it.
func WithQuota(bytes int) KVOption {
	return func(s *KVStore) { s.quota = bytes }
}

// WithPollInterval starts a background poller for external changes.
// Zero disables it; callers may then call Poll directly.
func WithPollInterval(d time.Duration) KVOption {
	return func(s *KVStore) { s.interval = d }
}

// WithLogger sets the logger used by the poller.
func WithLogger(logger *slog.Logger) KVOption {
	return func(s *KVStore) { s.logger = logger }
}

// NewKVStore creates a new KVStore
func NewKVStore(db *DB, opts ...KVOption) *KVStore {
	s := &KVStore{
		db:     db,
		writer: uuid.NewString(),
		seen:   make(map[string]int64),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.interval > 0 {
		go s.pollLoop()
	} else {
		close(s.done)
	}
	return s
}

var _ storage.Medium = (*KVStore)(nil)

// Writer returns the id this handle stamps on its writes.
func (s *KVStore) Writer() string {
	return s.writer
}

// Get retrieves the value stored under key
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return value, nil
}

// Set replaces the value under key, enforcing the quota inside one transaction
func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", storage.ErrWriteFailure, err)
	}
	defer func() { _ = tx.Rollback() }()

	if s.quota > 0 {
		var used int64
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0) FROM kv WHERE key != ?`, key,
		).Scan(&used)
		if err != nil {
			return fmt.Errorf("%w: measure usage: %w", storage.ErrWriteFailure, err)
		}
		if used+int64(len(key)+len(value)) > int64(s.quota) {
			return storage.ErrQuotaExceeded
		}
	}

	query := `
		INSERT INTO kv (key, value, revision, writer, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			revision = kv.revision + 1,
			writer = excluded.writer,
			updated_at = excluded.updated_at
	`
	if _, err := tx.ExecContext(ctx, query, key, value, s.writer, time.Now().UTC()); err != nil {
		return wrapWriteError(err)
	}

	var revision int64
	if err := tx.QueryRowContext(ctx, `SELECT revision FROM kv WHERE key = ?`, key).Scan(&revision); err != nil {
		return fmt.Errorf("%w: read revision: %w", storage.ErrWriteFailure, err)
	}

	if err := tx.Commit(); err != nil {
		return wrapWriteError(err)
	}

	s.mu.Lock()
	s.seen[key] = revision
	s.mu.Unlock()
	return nil
}

// Watch registers fn for changes to key written by other handles
func (s *KVStore) Watch(key string, fn func()) func() {
	s.mu.Lock()
	if _, ok := s.seen[key]; !ok {
		if rev, _, err := s.revision(context.Background(), key); err == nil {
			s.seen[key] = rev
		}
	}
	s.mu.Unlock()
	return s.watchers.Add(key, fn)
}

// Poll checks every watched key once and notifies watchers of keys changed by
// other writers since the last check.
func (s *KVStore) Poll(ctx context.Context) error {
	for _, key := range s.watchers.Keys() {
		rev, writer, err := s.revision(ctx, key)
		if err != nil {
			return err
		}

		s.mu.Lock()
		changed := rev != s.seen[key]
		s.seen[key] = rev
		s.mu.Unlock()

		if changed && writer != s.writer {
			s.watchers.Notify(key)
		}
	}
	return nil
}

// Close stops the poller. The underlying DB is owned by the caller.
func (s *KVStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
		s.watchers.Clear()
	})
	return nil
}

func (s *KVStore) pollLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.Poll(context.Background()); err != nil && s.logger != nil {
				s.logger.Warn("kv poll failed", "error", err)
			}
		}
	}
}

// revision returns 0 and an empty writer for keys that were never written.
func (s *KVStore) revision(ctx context.Context, key string) (int64, string, error) {
	var (
		rev    int64
		writer string
	)
	err := s.db.QueryRowContext(ctx, `SELECT revision, writer FROM kv WHERE key = ?`, key).Scan(&rev, &writer)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("failed to read revision for %s: %w", key, err)
	}
	return rev, writer, nil
}

func wrapWriteError(err error) error {
	switch {
	case isDiskFull(err):
		return fmt.Errorf("%w: %w", storage.ErrQuotaExceeded, err)
	case isBusy(err):
		return fmt.Errorf("%w: database locked by another writer: %w", storage.ErrWriteFailure, err)
	default:
		return fmt.Errorf("%w: %w", storage.ErrWriteFailure, err)
	}
}
