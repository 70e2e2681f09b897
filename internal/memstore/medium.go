// Package memstore is an in-process storage medium. A Shared value plays the
// role of the persistent medium and every Open handle is one context, so tests
// can model several contexts writing the same key.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/rpggio/notebox/internal/storage"
)

// Shared holds the values visible to every handle.
type Shared struct {
	mu       sync.RWMutex
	data     map[string][]byte
	quota    int
	writeErr error
	handles  map[*Medium]struct{}
}

// NewShared creates an empty medium. A quota of zero or less disables the
// size limit; otherwise the sum of all stored values may not exceed quota
// bytes.
func NewShared(quota int) *Shared {
	return &Shared{
		data:    make(map[string][]byte),
		quota:   quota,
		handles: make(map[*Medium]struct{}),
	}
}

// Open returns a new context handle on the shared medium.
func (s *Shared) Open() *Medium {
	m := &Medium{shared: s}
	s.mu.Lock()
	s.handles[m] = struct{}{}
	s.mu.Unlock()
	return m
}

// FailWrites makes every subsequent Set return err. Pass nil to restore.
func (s *Shared) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// Raw returns the stored bytes for key without going through a handle.
func (s *Shared) Raw(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

// Put stores value as if written by a context outside this process: every
// handle's watchers fire.
func (s *Shared) Put(key string, value []byte) {
	s.mu.Lock()
	s.data[key] = append([]byte(nil), value...)
	handles := s.handleList(nil)
	s.mu.Unlock()

	for _, h := range handles {
		h.watchers.Notify(key)
	}
}

func (s *Shared) handleList(except *Medium) []*Medium {
	list := make([]*Medium, 0, len(s.handles))
	for h := range s.handles {
		if h != except {
			list = append(list, h)
		}
	}
	return list
}

func (s *Shared) usedWithout(key string) int {
	total := 0
	for k, v := range s.data {
		if k != key {
			total += len(k) + len(v)
		}
	}
	return total
}

// Medium is one context's handle on a Shared medium.
type Medium struct {
	shared   *Shared
	watchers storage.Watchers

	mu     sync.Mutex
	closed bool
}

var _ storage.Medium = (*Medium)(nil)

// Get returns a copy of the value for key.
func (m *Medium) Get(_ context.Context, key string) ([]byte, error) {
	if m.isClosed() {
		return nil, storage.ErrClosed
	}
	v, ok := m.shared.Raw(key)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return v, nil
}

// Set stores value and notifies the other handles.
func (m *Medium) Set(_ context.Context, key string, value []byte) error {
	if m.isClosed() {
		return fmt.Errorf("%w: %w", storage.ErrWriteFailure, storage.ErrClosed)
	}

	s := m.shared
	s.mu.Lock()
	if s.writeErr != nil {
		err := s.writeErr
		s.mu.Unlock()
		return err
	}
	if s.quota > 0 && s.usedWithout(key)+len(key)+len(value) > s.quota {
		s.mu.Unlock()
		return storage.ErrQuotaExceeded
	}
	s.data[key] = append([]byte(nil), value...)
	others := s.handleList(m)
	s.mu.Unlock()

	for _, h := range others {
		h.watchers.Notify(key)
	}
	return nil
}

// Watch registers fn for changes made through other handles.
func (m *Medium) Watch(key string, fn func()) func() {
	return m.watchers.Add(key, fn)
}

// Close detaches the handle from the shared medium.
func (m *Medium) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.shared.mu.Lock()
	delete(m.shared.handles, m)
	m.shared.mu.Unlock()
	m.watchers.Clear()
	return nil
}

func (m *Medium) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
