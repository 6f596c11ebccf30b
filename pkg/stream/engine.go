package stream

import (
	"context"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"threadstream/pkg/logger"
)

// DefaultDuration is the wall-clock window a reply is spread over.
const DefaultDuration = 10 * time.Second

// State of a single stream.
type State int32

const (
	StateIdle State = iota
	StateEmitting
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEmitting:
		return "emitting"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Target is the message record extended by a stream. Commit stores text and
// then runs emit; text stays stored when emit fails.
type Target interface {
	Commit(text string, emit func() error) error
}

// Sink delivers chunks to the client. An error means the client is gone.
type Sink interface {
	Emit(chunk string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(chunk string) error

func (f SinkFunc) Emit(chunk string) error { return f(chunk) }

// Engine paces replies over a fixed duration.
type Engine struct {
	duration time.Duration
}

// NewEngine returns an engine spreading every reply over d. A non-positive d
// falls back to DefaultDuration.
func NewEngine(d time.Duration) *Engine {
	if d <= 0 {
		d = DefaultDuration
	}
	return &Engine{duration: d}
}

// Duration returns the configured window.
func (e *Engine) Duration() time.Duration { return e.duration }

// Result summarises a finished stream.
type Result struct {
	State   State
	Emitted int
	Total   int
	Elapsed time.Duration
}

// Stream is one emission of a reply into one target.
type Stream struct {
	engine  *Engine
	reply   string
	total   int
	state   atomic.Int32
	emitted atomic.Int64
}

// NewStream prepares a stream in the Idle state.
func (e *Engine) NewStream(reply string) *Stream {
	return &Stream{engine: e, reply: reply, total: utf8.RuneCountInString(reply)}
}

// State returns the current state.
func (s *Stream) State() State { return State(s.state.Load()) }

// Total returns the number of characters in the reply.
func (s *Stream) Total() int { return s.total }

// Emitted returns the number of characters delivered so far.
func (s *Stream) Emitted() int { return int(s.emitted.Load()) }

// Delay is the per-character spacing, zero for an empty reply.
func (s *Stream) Delay() time.Duration {
	if s.total == 0 {
		return 0
	}
	return time.Duration(float64(s.engine.duration) / float64(s.total))
}

// Run streams reply into target and sink, one character per step: the prefix
// ending at the character is stored, then the character is emitted. Run returns
// when the reply is exhausted, ctx is cancelled, or the sink fails; the last
// two end in StateCancelled with the partial text left in place. Run may be
// called once.
func (e *Engine) Run(ctx context.Context, target Target, reply string, sink Sink) Result {
	return e.NewStream(reply).Run(ctx, target, sink)
}

// Run executes the stream. See Engine.Run.
func (s *Stream) Run(ctx context.Context, target Target, sink Sink) Result {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateEmitting)) {
		return s.result(0)
	}
	start := time.Now()
	streamsStarted.Inc()
	streamsActive.Inc()
	defer streamsActive.Dec()

	if s.total == 0 {
		return s.finish(StateCompleted, start)
	}

	n := float64(s.total)
	window := float64(s.engine.duration)
	i := 0
	for off := 0; off < len(s.reply); i++ {
		if ctx.Err() != nil {
			return s.finish(StateCancelled, start)
		}
		_, size := utf8.DecodeRuneInString(s.reply[off:])
		end := off + size
		chunk := s.reply[off:end]
		if err := target.Commit(s.reply[:end], func() error { return sink.Emit(chunk) }); err != nil {
			logger.Debug("stream_emit_failed", "emitted", s.Emitted(), "error", err)
			return s.finish(StateCancelled, start)
		}
		s.emitted.Add(1)
		chunksEmitted.Inc()
		off = end

		if i+1 == s.total {
			break
		}
		// absolute deadlines keep write overhead from stretching the window
		deadline := start.Add(time.Duration(window * float64(i+1) / n))
		if !sleepUntil(ctx, deadline) {
			return s.finish(StateCancelled, start)
		}
	}
	return s.finish(StateCompleted, start)
}

func (s *Stream) finish(st State, start time.Time) Result {
	s.state.Store(int32(st))
	elapsed := time.Since(start)
	streamsFinished.WithLabelValues(st.String()).Inc()
	streamSeconds.Observe(elapsed.Seconds())
	logger.Info("stream_finished", "state", st.String(), "emitted", s.Emitted(), "total", s.total, "elapsed", elapsed)
	return s.result(elapsed)
}

func (s *Stream) result(elapsed time.Duration) Result {
	return Result{State: s.State(), Emitted: s.Emitted(), Total: s.total, Elapsed: elapsed}
}

// sleepUntil waits for deadline. It returns false if ctx ends first.
func sleepUntil(ctx context.Context, deadline time.Time) bool {
	wait := time.Until(deadline)
	if wait <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
