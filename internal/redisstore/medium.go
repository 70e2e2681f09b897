// Package redisstore implements storage.Medium on Redis. Values live under a
// key prefix; every write publishes a change message so that other handles,
// in this or another process, can reload.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rpggio/notebox/internal/storage"
)

const defaultPrefix = "notebox:"

type changeMessage struct {
	Key    string `json:"key"`
	Writer string `json:"writer"`
}

// Store is one context's handle on a Redis medium.
type Store struct {
	rdb      *redis.Client
	prefix   string
	quota    int
	writer   string
	logger   *slog.Logger
	watchers storage.Watchers

	sub       *redis.PubSub
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix namespaces keys and the change channel.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithQuota rejects values larger than bytes. Zero disables the check.
func WithQuota(bytes int) Option {
	return func(s *Store) { s.quota = bytes }
}

// WithLogger sets the logger for subscription errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New subscribes to the change channel and returns a ready Store. The client
// stays owned by the caller.
func New(ctx context.Context, rdb *redis.Client, opts ...Option) (*Store, error) {
	s := &Store{
		rdb:    rdb,
		prefix: defaultPrefix,
		writer: uuid.NewString(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.sub = rdb.Subscribe(ctx, s.channel())
	if _, err := s.sub.Receive(ctx); err != nil {
		_ = s.sub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", s.channel(), err)
	}

	go s.listen(s.sub.Channel())
	return s, nil
}

var _ storage.Medium = (*Store)(nil)

// Get returns the value for key
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return b, nil
}

// Set stores value and publishes a change message
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if s.quota > 0 && len(value) > s.quota {
		return storage.ErrQuotaExceeded
	}

	if err := s.rdb.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		if isOutOfMemory(err) {
			return fmt.Errorf("%w: %w", storage.ErrQuotaExceeded, err)
		}
		return fmt.Errorf("%w: %w", storage.ErrWriteFailure, err)
	}

	msg, err := json.Marshal(changeMessage{Key: key, Writer: s.writer})
	if err != nil {
		return fmt.Errorf("encode change message: %w", err)
	}
	// The value is already stored; a failed publish only delays other contexts.
	if err := s.rdb.Publish(ctx, s.channel(), msg).Err(); err != nil && s.logger != nil {
		s.logger.Warn("publish change failed", "key", key, "error", err)
	}
	return nil
}

// Watch registers fn for changes to key made by other handles
func (s *Store) Watch(key string, fn func()) func() {
	return s.watchers.Add(key, fn)
}

// Close unsubscribes and waits for the listener to stop
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.sub.Close()
		<-s.done
		s.watchers.Clear()
	})
	return err
}

func (s *Store) listen(ch <-chan *redis.Message) {
	defer close(s.done)

	for msg := range ch {
		var change changeMessage
		if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
			if s.logger != nil {
				s.logger.Warn("ignoring malformed change message", "error", err)
			}
			continue
		}
		if change.Writer == s.writer {
			continue
		}
		s.watchers.Notify(change.Key)
	}
}

func (s *Store) channel() string {
	return s.prefix + "changes"
}

func isOutOfMemory(err error) bool {
	var rerr redis.Error
	if errors.As(err, &rerr) {
		return strings.HasPrefix(rerr.Error(), "OOM")
	}
	return false
}
