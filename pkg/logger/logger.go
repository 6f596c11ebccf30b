package logger

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Log is the process logger. Nil until Init or InitWriter; the helpers below
// are no-ops until then.
var Log *slog.Logger

const (
	queueSize     = 10000
	flushInterval = time.Second
)

// asyncSink queues formatted records and writes them from one goroutine, so a
// slow terminal or disk never stalls a request. Records are dropped, not
// blocked on, when the queue is full.
type asyncSink struct {
	ch      chan []byte
	stop    chan struct{}
	done    chan struct{}
	dropped atomic.Int64
}

func newAsyncSink(w io.Writer, closer io.Closer) *asyncSink {
	s := &asyncSink{
		ch:   make(chan []byte, queueSize),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.run(bufio.NewWriterSize(w, 8192), closer)
	return s
}

func (s *asyncSink) Write(p []byte) (int, error) {
	cp := append([]byte(nil), p...)
	select {
	case s.ch <- cp:
	default:
		s.dropped.Add(1)
	}
	return len(p), nil
}

func (s *asyncSink) run(buf *bufio.Writer, closer io.Closer) {
	defer close(s.done)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	for {
		select {
		case b := <-s.ch:
			buf.Write(b)
		case <-ticker.C:
			buf.Flush()
		case <-s.stop:
			for len(s.ch) > 0 {
				buf.Write(<-s.ch)
			}
			buf.Flush()
			if closer != nil {
				closer.Close()
			}
			return
		}
	}
}

func (s *asyncSink) close() int64 {
	close(s.stop)
	<-s.done
	return s.dropped.Load()
}

var (
	mu   sync.Mutex
	sink *asyncSink
)

// openSink resolves THREADSTREAM_LOG_SINK: "stderr", "file:<path>", or
// stdout when unset. A file that cannot be opened falls back to stdout.
func openSink(dest string) (io.Writer, io.Closer) {
	switch {
	case dest == "stderr":
		return os.Stderr, nil
	case strings.HasPrefix(dest, "file:"):
		path := strings.TrimPrefix(dest, "file:")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log sink %s unavailable, using stdout: %v\n", path, err)
			return os.Stdout, nil
		}
		return f, f
	default:
		return os.Stdout, nil
	}
}

// ParseLevel maps a level name to a slog level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init installs the process logger. An empty level falls back to
// THREADSTREAM_LOG_LEVEL. Call Sync before exit.
func Init(level string) {
	if strings.TrimSpace(level) == "" {
		level = os.Getenv("THREADSTREAM_LOG_LEVEL")
	}
	w, closer := openSink(strings.TrimSpace(os.Getenv("THREADSTREAM_LOG_SINK")))

	mu.Lock()
	defer mu.Unlock()
	if sink != nil {
		sink.close()
	}
	sink = newAsyncSink(w, closer)
	Log = slog.New(slog.NewTextHandler(sink, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// InitWriter installs a synchronous logger writing to w, for tests.
func InitWriter(w io.Writer, level string) {
	Log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// Sync drains queued records and stops the background writer.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if sink == nil {
		return
	}
	if n := sink.close(); n > 0 {
		fmt.Fprintf(os.Stderr, "logger: dropped %d records under load\n", n)
	}
	sink = nil
}

func emit(level slog.Level, msg string, args []any) {
	if Log == nil {
		return
	}
	Log.Log(context.Background(), level, msg, args...)
}

func Debug(msg string, args ...any) { emit(slog.LevelDebug, msg, args) }

func Info(msg string, args ...any) { emit(slog.LevelInfo, msg, args) }

func Warn(msg string, args ...any) { emit(slog.LevelWarn, msg, args) }

func Error(msg string, args ...any) { emit(slog.LevelError, msg, args) }
