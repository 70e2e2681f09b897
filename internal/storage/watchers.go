package storage

import "sync"

// Watchers is a per-key registry of change callbacks shared by medium
// implementations.
type Watchers struct {
	mu    sync.Mutex
	next  int
	byKey map[string]map[int]func()
}

// Add registers fn for key and returns a function that removes it.
func (w *Watchers) Add(key string, fn func()) func() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.byKey == nil {
		w.byKey = make(map[string]map[int]func())
	}
	if w.byKey[key] == nil {
		w.byKey[key] = make(map[int]func())
	}
	id := w.next
	w.next++
	w.byKey[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.byKey[key], id)
			if len(w.byKey[key]) == 0 {
				delete(w.byKey, key)
			}
		})
	}
}

// Notify runs every callback registered for key. Callbacks run outside the
// registry lock so they may add or cancel watches.
func (w *Watchers) Notify(key string) {
	w.mu.Lock()
	fns := make([]func(), 0, len(w.byKey[key]))
	for _, fn := range w.byKey[key] {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Keys returns the keys that currently have at least one watcher.
func (w *Watchers) Keys() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	keys := make([]string, 0, len(w.byKey))
	for key := range w.byKey {
		keys = append(keys, key)
	}
	return keys
}

// Clear drops every registration.
func (w *Watchers) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.byKey = nil
}
