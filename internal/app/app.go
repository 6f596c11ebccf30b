package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"threadstream/internal/archive"
	"threadstream/pkg/auth"
	"threadstream/pkg/config"
	"threadstream/pkg/logger"
	"threadstream/pkg/state/sensor"
	"threadstream/pkg/store"
	"threadstream/pkg/stream"
)

const shutdownGrace = 5 * time.Second

// App groups server state and components.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	store    *store.Store
	engine   *stream.Engine
	streams  *stream.Group
	resolver auth.Resolver
	gateway  *auth.Gateway
	archiver *archive.Archiver
	hwSensor *sensor.Sensor

	archiveCancel context.CancelFunc
	srvFast       *fasthttp.Server

	mu    sync.Mutex
	state string
}

// New builds every component from an already validated config. It does not
// listen; call Run or Serve for that.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	cfg := eff.Config
	if cfg == nil {
		return nil, errors.New("effective config is nil")
	}

	st := store.New()
	if cfg.Seed.IsEnabled() {
		st.Seed()
	}

	a := &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		store:     st,
		engine:    stream.NewEngine(cfg.Stream.Duration.Duration()),
		streams:   stream.NewGroup(context.Background()),
		resolver:  auth.NewCookieResolver(cfg.Security.Cookie.Name),
		hwSensor: sensor.NewSensor(sensor.MonitorConfig{
			PollInterval:   cfg.Sensor.PollInterval.Duration(),
			MemHigh:        uint64(cfg.Sensor.MemHigh.Int64()),
			RecoveryWindow: cfg.Sensor.RecoveryWindow.Duration(),
		}),
		state: "initialized",
	}

	if cfg.Archive.Enabled {
		arc, err := archive.New(st, archive.Config{Cron: cfg.Archive.Cron, IdleAfter: cfg.Archive.IdleAfter.Duration()})
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		a.archiver = arc
	}

	a.srvFast = a.newServer()
	return a, nil
}

// Store exposes the backing store.
func (a *App) Store() *store.Store { return a.store }

// State returns the lifecycle state name.
func (a *App) State() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *App) setState(s string) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
	logger.Debug("app_state", "state", s)
}

// Run prints the banner, starts the archiver and serves on the configured
// address until ctx ends, then shuts down.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	ln, err := net.Listen("tcp4", a.eff.Config.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.eff.Config.Addr(), err)
	}
	logger.Info("http_listening", "addr", ln.Addr().String())

	errCh := a.Serve(ctx, ln)
	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return a.Shutdown(sctx)
	case err := <-errCh:
		return err
	}
}

// Serve starts background jobs and serves HTTP on ln. Server errors are
// delivered on the returned channel.
func (a *App) Serve(ctx context.Context, ln net.Listener) <-chan error {
	if a.archiver != nil {
		a.archiveCancel = a.archiver.Start(ctx)
	}
	a.hwSensor.Start()
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.srvFast.Serve(ln)
	}()
	a.setState("running")
	return errCh
}

// Shutdown cancels in-flight streams, waits for them to return, then stops
// the server and background jobs.
func (a *App) Shutdown(ctx context.Context) error {
	a.setState("shutting_down")
	logger.Info("shutdown: requested", "streams", a.streams.Active())

	a.streams.Close()
	if err := a.streams.Wait(ctx); err != nil {
		logger.Warn("shutdown: streams still running", "error", err)
	}

	if a.archiveCancel != nil {
		logger.Info("shutdown: stopping archiver")
		a.archiveCancel()
	}
	a.hwSensor.Stop()
	if a.gateway != nil {
		a.gateway.Close()
	}

	done := make(chan error, 1)
	go func() { done <- a.srvFast.Shutdown() }()
	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown: fasthttp shutdown error", "error", err)
			return err
		}
	case <-ctx.Done():
		return fmt.Errorf("shutdown: %w", ctx.Err())
	}

	a.setState("stopped")
	logger.Info("shutdown: complete", "store", a.store.Stats().String())
	return nil
}
