package store

import (
	"sync"

	"threadstream/pkg/models"
)

// ListMessages returns a snapshot of a thread's messages. A message that is
// being streamed shows the prefix committed so far.
func (s *Store) ListMessages(threadID int64) ([]models.Message, error) {
	s.mu.RLock()
	t, err := s.lookup(threadID)
	if err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	msgs := make([]*message, len(t.messages))
	copy(msgs, t.messages)
	s.mu.RUnlock()

	return snapshotMessages(msgs), nil
}

// AppendMessage appends a fully populated message and touches the thread.
func (s *Store) AppendMessage(threadID int64, sender models.Sender, text string) (models.Message, error) {
	m, err := s.appendMessage(threadID, sender, text, false)
	if err != nil {
		return models.Message{}, err
	}
	return m.rec, nil
}

func (s *Store) appendMessage(threadID int64, sender models.Sender, text string, streaming bool) (*message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(threadID)
	if err != nil {
		return nil, err
	}
	if !t.isActive {
		return nil, ErrThreadInactive
	}
	now := s.NowMillis()
	m := &message{rec: models.Message{
		ID:        s.NextMessageID(),
		Text:      text,
		Sender:    sender,
		Timestamp: now,
	}}
	t.messages = append(t.messages, m)
	t.touch(now)
	if streaming {
		t.streams++
	}
	return m, nil
}

// BeginStream appends an empty assistant message to an active thread and
// returns a handle granting write access to its text. The thread's updatedAt
// is advanced once, to the stream start. The caller must Release the handle.
func (s *Store) BeginStream(threadID int64) (*MessageHandle, error) {
	m, err := s.appendMessage(threadID, models.SenderAssistant, "", true)
	if err != nil {
		return nil, err
	}
	return &MessageHandle{store: s, threadID: threadID, msg: m}, nil
}

// MessageHandle is the single-writer view of one message under streaming.
type MessageHandle struct {
	store    *Store
	threadID int64
	msg      *message
	once     sync.Once
	released bool
}

// Message returns a snapshot of the record.
func (h *MessageHandle) Message() models.Message {
	return h.msg.load()
}

// ThreadID is the id of the thread owning the message.
func (h *MessageHandle) ThreadID() int64 { return h.threadID }

// Commit sets the message text to text, then runs emit. Only the text update
// holds the message lock; a stalled client never blocks readers of the
// record. The text stays set when emit fails. Commit after Release is a no-op.
func (h *MessageHandle) Commit(text string, emit func() error) error {
	h.msg.mu.Lock()
	if h.released {
		h.msg.mu.Unlock()
		return nil
	}
	h.msg.rec.Text = text
	h.msg.mu.Unlock()
	return emit()
}

// Release ends write access. Further Commits do nothing.
func (h *MessageHandle) Release() {
	h.once.Do(func() {
		h.msg.mu.Lock()
		h.released = true
		h.msg.mu.Unlock()

		h.store.mu.Lock()
		if t, ok := h.store.byID[h.threadID]; ok && t.streams > 0 {
			t.streams--
		}
		h.store.mu.Unlock()
	})
}
