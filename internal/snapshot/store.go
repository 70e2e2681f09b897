// Package snapshot stores a whole record collection as one value under one
// key of a storage medium, and tells subscribers when that value changes.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rpggio/notebox/internal/domain/record"
	"github.com/rpggio/notebox/internal/storage"
)

// Store reads and writes one snapshot key.
type Store struct {
	medium storage.Medium
	key    string
	hub    *Hub
	logger *slog.Logger

	closeOnce   sync.Once
	cancelWatch func()
}

// NewStore binds a store to key on medium and starts forwarding the
// medium's external change signal to subscribers.
func NewStore(medium storage.Medium, key string, logger *slog.Logger) *Store {
	s := &Store{
		medium: medium,
		key:    key,
		hub:    NewHub(),
		logger: logger,
	}
	s.cancelWatch = medium.Watch(key, func() {
		s.hub.Broadcast(record.SourceExternal)
	})
	return s
}

var _ record.SnapshotStore = (*Store)(nil)

// Key returns the medium key this store owns.
func (s *Store) Key() string {
	return s.key
}

// Read returns the stored snapshot. A key that was never written is
// initialized with an empty snapshot, which is returned.
func (s *Store) Read(ctx context.Context) (*record.Snapshot, error) {
	data, err := s.medium.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		empty := record.NewSnapshot(nil)
		if err := s.put(ctx, empty); err != nil {
			return nil, fmt.Errorf("initializing %s: %w", s.key, err)
		}
		return empty, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.key, err)
	}

	snap, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.key, err)
	}
	return snap, nil
}

// Write replaces the stored snapshot and notifies subscribers of this store.
func (s *Store) Write(ctx context.Context, snap *record.Snapshot) error {
	if err := s.put(ctx, snap); err != nil {
		return err
	}
	s.hub.Broadcast(record.SourceLocal)
	return nil
}

// Subscribe registers fn for local and external changes.
func (s *Store) Subscribe(fn func(record.ChangeSource)) func() {
	return s.hub.Subscribe(fn)
}

// Close stops watching the medium and drops all subscribers. The medium
// itself stays open.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.cancelWatch()
		s.hub.Close()
	})
}

func (s *Store) put(ctx context.Context, snap *record.Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %w", storage.ErrWriteFailure, s.key, err)
	}
	if err := s.medium.Set(ctx, s.key, data); err != nil {
		if s.logger != nil {
			s.logger.Warn("snapshot write rejected", "key", s.key, "bytes", len(data), "error", err)
		}
		if errors.Is(err, storage.ErrQuotaExceeded) || errors.Is(err, storage.ErrWriteFailure) {
			return err
		}
		return fmt.Errorf("%w: %w", storage.ErrWriteFailure, err)
	}
	return nil
}
