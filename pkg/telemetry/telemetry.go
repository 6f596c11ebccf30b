package telemetry

import (
	"sync/atomic"
	"time"

	"threadstream/pkg/logger"
)

const defaultSlowThreshold = 200 * time.Millisecond

type Step struct {
	Name     string  `json:"name"`
	Duration float64 `json:"duration_ms"`
}

// Trace times one request as a series of marked steps.
type Trace struct {
	Name     string    `json:"name"`
	Start    time.Time `json:"start"`
	Steps    []Step    `json:"steps"`
	TotalMS  float64   `json:"total_ms"`
	lastMark time.Time
	done     bool
}

var slowThreshold atomic.Int64

func init() {
	slowThreshold.Store(int64(defaultSlowThreshold))
}

// SetSlowThreshold sets the total above which a finished trace is logged as
// slow. Zero or less restores the default.
func SetSlowThreshold(d time.Duration) {
	if d <= 0 {
		d = defaultSlowThreshold
	}
	slowThreshold.Store(int64(d))
}

// Track starts a new trace.
func Track(name string) *Trace {
	now := time.Now()
	return &Trace{Name: name, Start: now, lastMark: now}
}

// Mark records the elapsed duration since last mark.
func (tr *Trace) Mark(label string) {
	now := time.Now()
	tr.Steps = append(tr.Steps, Step{Name: label, Duration: now.Sub(tr.lastMark).Seconds() * 1000})
	tr.lastMark = now
}

// Finish finalizes the trace and logs it. Slow traces are logged at warn.
// Safe to call multiple times or via defer.
func (tr *Trace) Finish() {
	if tr == nil || tr.done {
		return
	}
	tr.done = true
	total := time.Since(tr.Start)
	tr.TotalMS = total.Seconds() * 1000

	var sum float64
	for _, s := range tr.Steps {
		sum += s.Duration
	}
	if remaining := tr.TotalMS - sum; remaining > 0.001 {
		tr.Steps = append(tr.Steps, Step{Name: "unmarked", Duration: remaining})
	}

	if total > time.Duration(slowThreshold.Load()) {
		logger.Warn("slow_request", "op", tr.Name, "total_ms", tr.TotalMS, "steps", tr.Steps)
		return
	}
	logger.Debug("trace", "op", tr.Name, "total_ms", tr.TotalMS)
}
