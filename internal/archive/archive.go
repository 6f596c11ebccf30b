package archive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/prometheus/client_golang/prometheus"

	"threadstream/pkg/logger"
	"threadstream/pkg/store"
)

var threadsArchived = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "threadstream_threads_archived_total",
	Help: "Threads marked inactive by the idle-thread archiver.",
})

func init() {
	prometheus.MustRegister(threadsArchived)
}

// Config controls when the archiver runs and what counts as idle.
type Config struct {
	Cron      string
	IdleAfter time.Duration
}

// Report summarises one archiver run.
type Report struct {
	Scanned  int
	Archived []int64
}

// Archiver marks threads inactive once they have been idle for IdleAfter.
// Threads with a stream in flight are never archived.
type Archiver struct {
	store *store.Store
	cfg   Config
	now   func() time.Time

	mu      sync.Mutex
	running bool
}

// New validates cfg and returns an archiver over st.
func New(st *store.Store, cfg Config) (*Archiver, error) {
	if !gronx.New().IsValid(cfg.Cron) {
		return nil, fmt.Errorf("invalid archive cron %q", cfg.Cron)
	}
	if cfg.IdleAfter <= 0 {
		return nil, errors.New("archive idle_after must be positive")
	}
	return &Archiver{store: st, cfg: cfg, now: time.Now}, nil
}

// Start runs the schedule loop until ctx ends or the returned cancel is called.
func (a *Archiver) Start(ctx context.Context) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	logger.Info("archive_enabled", "cron", a.cfg.Cron, "idle_after", a.cfg.IdleAfter)
	go a.scheduleLoop(ctx)
	return cancel
}

func (a *Archiver) scheduleLoop(ctx context.Context) {
	for {
		next, err := gronx.NextTickAfter(a.cfg.Cron, a.now(), false)
		if err != nil {
			logger.Error("archive_nexttick_failed", "cron", a.cfg.Cron, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		t := time.NewTimer(time.Until(next))
		select {
		case <-t.C:
			a.runJob(ctx)
		case <-ctx.Done():
			t.Stop()
			return
		}
	}
}

func (a *Archiver) runJob(ctx context.Context) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return
	}
	a.running = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	if _, err := a.RunOnce(ctx); err != nil {
		logger.Error("archive_run_error", "error", err)
	}
}

// RunOnce archives every thread idle since before now-IdleAfter.
func (a *Archiver) RunOnce(ctx context.Context) (Report, error) {
	cutoff := a.now().Add(-a.cfg.IdleAfter).UnixMilli()
	ids := a.store.IdleThreads(cutoff)
	rep := Report{Scanned: len(ids)}
	logger.Info("archive_run_start", "candidates", len(ids), "cutoff", cutoff)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		// a stream may have started since the scan
		ok, err := a.store.DeactivateIfIdle(id, cutoff)
		if err != nil {
			logger.Error("archive_thread_failed", "thread_id", id, "error", err)
			continue
		}
		if !ok {
			continue
		}
		rep.Archived = append(rep.Archived, id)
		threadsArchived.Inc()
		logger.Info("thread_archived", "thread_id", id)
	}
	logger.Info("archive_run_complete", "scanned", rep.Scanned, "archived", len(rep.Archived))
	return rep, nil
}
