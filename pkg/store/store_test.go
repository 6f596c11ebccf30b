package store

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadstream/pkg/models"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestSeed(t *testing.T) {
	s := New(WithClock(fixedClock(1_000_000_000)))
	s.Seed()

	threads := s.ListThreads()
	require.Len(t, threads, 3)
	assert.True(t, threads[0].IsActive)
	assert.True(t, threads[1].IsActive)
	assert.False(t, threads[2].IsActive)

	var ids []int64
	for _, th := range threads {
		assert.GreaterOrEqual(t, th.UpdatedAt, th.CreatedAt)
		for _, m := range th.Messages {
			ids = append(ids, m.ID)
		}
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8}, ids)
	assert.Equal(t, int64(1_000_000_000-3590000), threads[0].UpdatedAt)

	// counters continue after the seed
	assert.Equal(t, int64(4), s.NextThreadID())
	assert.Equal(t, int64(9), s.NextMessageID())
}

func TestCreateThread(t *testing.T) {
	s := New(WithClock(fixedClock(5000)))
	s.Seed()

	th := s.CreateThread("hello", "first")
	assert.Equal(t, int64(4), th.ID)
	assert.True(t, th.IsActive)
	assert.Equal(t, int64(5000), th.CreatedAt)
	assert.Equal(t, th.CreatedAt, th.UpdatedAt)
	require.Len(t, th.Messages, 1)
	assert.Equal(t, int64(9), th.Messages[0].ID)
	assert.Equal(t, models.SenderUser, th.Messages[0].Sender)
	assert.Equal(t, "first", th.Messages[0].Text)

	got, err := s.GetThread(4)
	require.NoError(t, err)
	assert.Equal(t, th, got)
}

func TestGetThreadNotFound(t *testing.T) {
	s := New()
	_, err := s.GetThread(999)
	assert.ErrorIs(t, err, ErrThreadNotFound)

	_, err = s.ListMessages(999)
	assert.ErrorIs(t, err, ErrThreadNotFound)

	_, err = s.AppendMessage(999, models.SenderUser, "x")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestAppendMessage(t *testing.T) {
	now := int64(1000)
	s := New(WithClock(func() time.Time { return time.UnixMilli(now) }))
	th := s.CreateThread("t", "a")

	now = 2000
	m, err := s.AppendMessage(th.ID, models.SenderAssistant, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.ID)
	assert.Equal(t, models.SenderAssistant, m.Sender)
	assert.Equal(t, int64(2000), m.Timestamp)

	msgs, err := s.ListMessages(th.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].Text)
	assert.Equal(t, "b", msgs[1].Text)

	got, err := s.GetThread(th.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.UpdatedAt)
}

func TestAppendToInactiveThread(t *testing.T) {
	s := New()
	s.Seed()
	before, err := s.ListMessages(3)
	require.NoError(t, err)

	_, err = s.AppendMessage(3, models.SenderUser, "nope")
	require.True(t, errors.Is(err, ErrThreadInactive))

	_, err = s.BeginStream(3)
	require.ErrorIs(t, err, ErrThreadInactive)

	after, err := s.ListMessages(3)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestTouchNeverMovesBackwards(t *testing.T) {
	s := New(WithClock(fixedClock(5000)))
	th := s.CreateThread("t", "a")

	require.NoError(t, s.Touch(th.ID, 4000))
	got, _ := s.GetThread(th.ID)
	assert.Equal(t, int64(5000), got.UpdatedAt)

	require.NoError(t, s.Touch(th.ID, 9000))
	got, _ = s.GetThread(th.ID)
	assert.Equal(t, int64(9000), got.UpdatedAt)

	assert.ErrorIs(t, s.Touch(42, 1), ErrThreadNotFound)
}

func TestBeginStreamAndCommit(t *testing.T) {
	s := New(WithClock(fixedClock(7000)))
	th := s.CreateThread("t", "a")

	h, err := s.BeginStream(th.ID)
	require.NoError(t, err)
	assert.Equal(t, th.ID, h.ThreadID())
	m := h.Message()
	assert.Equal(t, "", m.Text)
	assert.Equal(t, models.SenderAssistant, m.Sender)
	assert.Equal(t, 1, s.Stats().Streams)

	var emitted []string
	require.NoError(t, h.Commit("h", func() error { emitted = append(emitted, "h"); return nil }))
	require.NoError(t, h.Commit("hi", func() error { emitted = append(emitted, "i"); return nil }))

	boom := errors.New("closed")
	err = h.Commit("hi!", func() error { return boom })
	assert.ErrorIs(t, err, boom)

	msgs, _ := s.ListMessages(th.ID)
	assert.Equal(t, "hi!", msgs[1].Text, "text set before a failed emit is kept")
	assert.Equal(t, []string{"h", "i"}, emitted)

	h.Release()
	h.Release()
	assert.Equal(t, 0, s.Stats().Streams)

	called := false
	require.NoError(t, h.Commit("after", func() error { called = true; return nil }))
	assert.False(t, called)
	msgs, _ = s.ListMessages(th.ID)
	assert.Equal(t, "hi!", msgs[1].Text)
}

func TestIdleThreadsAndDeactivate(t *testing.T) {
	now := int64(10_000)
	s := New(WithClock(func() time.Time { return time.UnixMilli(now) }))
	a := s.CreateThread("a", "x")
	now = 20_000
	b := s.CreateThread("b", "y")
	assert.Equal(t, []int64{a.ID}, s.IdleThreads(15_000))

	// starting a stream touches a and excludes it while in flight
	h, err := s.BeginStream(a.ID)
	require.NoError(t, err)
	assert.Empty(t, s.IdleThreads(15_000))
	assert.Equal(t, []int64{b.ID}, s.IdleThreads(30_000))
	h.Release()
	assert.ElementsMatch(t, []int64{a.ID, b.ID}, s.IdleThreads(30_000))

	require.NoError(t, s.Deactivate(a.ID))
	active, err := s.IsActive(a.ID)
	require.NoError(t, err)
	assert.False(t, active)
	assert.Equal(t, []int64{b.ID}, s.IdleThreads(30_000))
	assert.ErrorIs(t, s.Deactivate(404), ErrThreadNotFound)
}

func TestConcurrentAppendsKeepIdsUnique(t *testing.T) {
	s := New()
	th := s.CreateThread("t", "a")

	const writers = 16
	const perWriter = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				_, err := s.AppendMessage(th.ID, models.SenderUser, strings.Repeat("x", j))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	msgs, err := s.ListMessages(th.ID)
	require.NoError(t, err)
	require.Len(t, msgs, writers*perWriter+1)
	for i := 1; i < len(msgs); i++ {
		assert.Greater(t, msgs[i].ID, msgs[i-1].ID, "ids must follow append order")
	}
}

func TestDeactivateIfIdle(t *testing.T) {
	s := New(WithClock(fixedClock(10_000)))
	th := s.CreateThread("t", "x")

	ok, err := s.DeactivateIfIdle(th.ID, 5_000)
	require.NoError(t, err)
	assert.False(t, ok, "updated after cutoff")

	h, err := s.BeginStream(th.ID)
	require.NoError(t, err)
	ok, err = s.DeactivateIfIdle(th.ID, 20_000)
	require.NoError(t, err)
	assert.False(t, ok, "stream in flight")
	h.Release()

	ok, err = s.DeactivateIfIdle(th.ID, 20_000)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.AppendMessage(th.ID, models.SenderUser, "late")
	assert.ErrorIs(t, err, ErrThreadInactive)

	_, err = s.DeactivateIfIdle(999, 20_000)
	assert.ErrorIs(t, err, ErrThreadNotFound)
}
