package store

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"threadstream/pkg/models"
)

var (
	// ErrThreadNotFound is returned when no thread has the requested id.
	ErrThreadNotFound = errors.New("thread not found")
	// ErrThreadInactive is returned when appending to a thread that no longer accepts messages.
	ErrThreadInactive = errors.New("thread is inactive")
)

// Store owns every thread and message record for the lifetime of the process.
//
// The thread collection is guarded by mu. Each message carries its own lock so
// a long-running stream only ever synchronises on the record it extends, never
// on the whole store.
type Store struct {
	mu      sync.RWMutex
	threads []*thread
	byID    map[int64]*thread

	threadSeq  atomic.Int64
	messageSeq atomic.Int64

	now func() time.Time
}

type thread struct {
	id        int64
	title     string
	messages  []*message
	createdAt int64
	updatedAt int64
	isActive  bool
	// streams counts in-flight streams writing into this thread.
	streams int
}

type message struct {
	mu  sync.Mutex
	rec models.Message
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		byID: make(map[int64]*thread),
		now:  time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NowMillis returns the store clock as epoch milliseconds.
func (s *Store) NowMillis() int64 {
	return s.now().UnixMilli()
}

// NextThreadID reserves the next thread id.
func (s *Store) NextThreadID() int64 {
	return s.threadSeq.Add(1)
}

// NextMessageID reserves the next message id. Ids are unique across all threads.
func (s *Store) NextMessageID() int64 {
	return s.messageSeq.Add(1)
}

// lookup must be called with mu held.
func (s *Store) lookup(id int64) (*thread, error) {
	t, ok := s.byID[id]
	if !ok {
		return nil, ErrThreadNotFound
	}
	return t, nil
}

// snapshot copies t. The caller holds at least a read lock on mu; message
// bodies are copied under their own locks.
func (t *thread) snapshot() models.Thread {
	out := models.Thread{
		ID:        t.id,
		Title:     t.title,
		CreatedAt: t.createdAt,
		UpdatedAt: t.updatedAt,
		IsActive:  t.isActive,
		Messages:  snapshotMessages(t.messages),
	}
	return out
}

func snapshotMessages(msgs []*message) []models.Message {
	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.load())
	}
	return out
}

func (m *message) load() models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec
}
