package store

import (
	"threadstream/pkg/models"
)

const (
	hour = int64(3600000)
	day  = 24 * hour
)

// Seed loads the demo conversations: two active threads and one inactive
// thread, message ids 1..8. It is meant for an empty store.
func (s *Store) Seed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.NowMillis()
	add := func(title string, createdAgo int64, active bool, msgs ...seedMessage) {
		t := &thread{
			id:        s.NextThreadID(),
			title:     title,
			createdAt: now - createdAgo,
			isActive:  active,
		}
		t.updatedAt = t.createdAt
		for _, sm := range msgs {
			ts := now - sm.ago
			t.messages = append(t.messages, &message{rec: models.Message{
				ID:        s.NextMessageID(),
				Text:      sm.text,
				Sender:    sm.sender,
				Timestamp: ts,
			}})
			t.touch(ts)
		}
		s.threads = append(s.threads, t)
		s.byID[t.id] = t
	}

	add("Discussing AI technology", hour, true,
		seedMessage{models.SenderUser, "What do you think about recent progress in generative AI?", hour},
		seedMessage{models.SenderAssistant, "Generative AI has developed in fascinating ways. Language understanding and generation in particular have improved dramatically.", hour - 10000},
	)
	add("Planning a trip", day, true,
		seedMessage{models.SenderUser, "Can you recommend places to visit in Kyoto?", day},
		seedMessage{models.SenderAssistant, "Kyoto has many wonderful sights. Arashiyama, Kinkaku-ji and Fushimi Inari Taisha are must-sees.", day - 10000},
		seedMessage{models.SenderUser, "Any food recommendations?", day - 20000},
		seedMessage{models.SenderAssistant, "Try traditional Kyoto cuisine such as yudofu, obanzai and Kyoto-style sukiyaki.", day - 30000},
	)
	add("Programming question", 2*day, false,
		seedMessage{models.SenderUser, "How do I process lists efficiently in Python?", 2 * day},
		seedMessage{models.SenderAssistant, "List comprehensions, map/filter, or libraries such as NumPy and pandas are good options for efficient list processing.", 2*day - 10000},
	)
}

type seedMessage struct {
	sender models.Sender
	text   string
	ago    int64
}
