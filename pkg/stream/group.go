package stream

import (
	"context"
	"sync"
)

// Group tracks in-flight streams so shutdown can cancel them and wait for
// their handlers to return.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	active int
	wg     sync.WaitGroup
}

// NewGroup returns a group whose streams end when parent ends or Close is
// called.
func NewGroup(parent context.Context) *Group {
	ctx, cancel := context.WithCancel(parent)
	return &Group{ctx: ctx, cancel: cancel}
}

// Begin registers a stream. The returned done func must be called when the
// stream returns. ok is false once the group is closed.
func (g *Group) Begin() (ctx context.Context, done func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, nil, false
	}
	g.active++
	g.wg.Add(1)
	var once sync.Once
	return g.ctx, func() {
		once.Do(func() {
			g.mu.Lock()
			g.active--
			g.mu.Unlock()
			g.wg.Done()
		})
	}, true
}

// Active returns the number of streams in flight.
func (g *Group) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Close refuses new streams and cancels running ones.
func (g *Group) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.cancel()
}

// Wait blocks until every stream has returned or ctx ends.
func (g *Group) Wait(ctx context.Context) error {
	ch := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(ch)
	}()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
