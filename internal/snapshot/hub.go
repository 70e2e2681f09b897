package snapshot

import (
	"sync"

	"github.com/rpggio/notebox/internal/domain/record"
)

// queueSize bounds pending notifications per subscriber. When full, new
// notifications are dropped: a queued reload already reads the latest state.
const queueSize = 8

type subscriber struct {
	ch   chan record.ChangeSource
	stop chan struct{}
}

// Hub fans change notifications out to subscribers. Each subscriber runs its
// callback on its own goroutine, one notification at a time.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	closed      bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[*subscriber]struct{})}
}

// Subscribe registers fn and returns a function that removes it. The
// returned function does not wait for a running callback, so it is safe to
// call from inside fn.
func (h *Hub) Subscribe(fn func(record.ChangeSource)) func() {
	sub := &subscriber{
		ch:   make(chan record.ChangeSource, queueSize),
		stop: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return func() {}
	}
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()

	go func() {
		for {
			select {
			case <-sub.stop:
				return
			case src := <-sub.ch:
				fn(src)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			_, ok := h.subscribers[sub]
			delete(h.subscribers, sub)
			h.mu.Unlock()
			if ok {
				close(sub.stop)
			}
		})
	}
}

// Broadcast queues src for every subscriber without blocking.
func (h *Hub) Broadcast(src record.ChangeSource) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers {
		select {
		case sub.ch <- src:
		default:
		}
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close stops every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subscribers {
		close(sub.stop)
	}
	h.subscribers = nil
}
