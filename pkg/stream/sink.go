package stream

import (
	"bufio"
)

// WriterSink writes every chunk to a buffered writer and flushes it at once,
// so each character leaves the process as its own piece of the body. A failed
// flush is how a disconnected client shows up.
type WriterSink struct {
	w *bufio.Writer
}

func NewWriterSink(w *bufio.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Emit(chunk string) error {
	if _, err := s.w.WriteString(chunk); err != nil {
		return err
	}
	return s.w.Flush()
}
