package store

import (
	"fmt"

	"threadstream/pkg/models"
)

// ListThreads returns a snapshot of every thread in creation order.
func (s *Store) ListThreads() []models.Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Thread, 0, len(s.threads))
	for _, t := range s.threads {
		out = append(out, t.snapshot())
	}
	return out
}

// GetThread returns a snapshot of one thread.
func (s *Store) GetThread(id int64) (models.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.lookup(id)
	if err != nil {
		return models.Thread{}, err
	}
	return t.snapshot(), nil
}

// IsActive reports whether the thread still accepts messages.
func (s *Store) IsActive(id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	return t.isActive, nil
}

// CreateThread creates an active thread seeded with one user message.
func (s *Store) CreateThread(title, firstMessage string) models.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.NowMillis()
	t := &thread{
		id:        s.NextThreadID(),
		title:     title,
		createdAt: now,
		updatedAt: now,
		isActive:  true,
	}
	t.messages = append(t.messages, &message{rec: models.Message{
		ID:        s.NextMessageID(),
		Text:      firstMessage,
		Sender:    models.SenderUser,
		Timestamp: now,
	}})
	s.threads = append(s.threads, t)
	s.byID[t.id] = t
	return t.snapshot()
}

// Touch moves the thread's updatedAt forward to ts. It never moves it backwards
// or before createdAt.
func (s *Store) Touch(id int64, ts int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(id)
	if err != nil {
		return err
	}
	t.touch(ts)
	return nil
}

func (t *thread) touch(ts int64) {
	if ts > t.updatedAt {
		t.updatedAt = ts
	}
}

// Deactivate marks a thread inactive. Deactivating an inactive thread is a no-op.
func (s *Store) Deactivate(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(id)
	if err != nil {
		return err
	}
	t.isActive = false
	return nil
}

// DeactivateIfIdle marks a thread inactive only if it is still active, has no
// stream in progress and was last updated before cutoff. It reports whether
// the thread was deactivated.
func (s *Store) DeactivateIfIdle(id int64, cutoff int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	if !t.idle(cutoff) {
		return false, nil
	}
	t.isActive = false
	return true, nil
}

func (t *thread) idle(cutoff int64) bool {
	return t.isActive && t.streams == 0 && t.updatedAt < cutoff
}

// IdleThreads returns ids of active threads last updated before cutoff
// (epoch millis) that have no stream in progress.
func (s *Store) IdleThreads(cutoff int64) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for _, t := range s.threads {
		if t.idle(cutoff) {
			ids = append(ids, t.id)
		}
	}
	return ids
}

// Stats is a cheap summary used by readiness and the startup banner.
type Stats struct {
	Threads       int
	ActiveThreads int
	Messages      int
	Streams       int
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st Stats
	st.Threads = len(s.threads)
	for _, t := range s.threads {
		if t.isActive {
			st.ActiveThreads++
		}
		st.Messages += len(t.messages)
		st.Streams += t.streams
	}
	return st
}

func (s Stats) String() string {
	return fmt.Sprintf("threads=%d active=%d messages=%d streams=%d", s.Threads, s.ActiveThreads, s.Messages, s.Streams)
}
