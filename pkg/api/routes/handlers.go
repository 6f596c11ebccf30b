package routes

import (
	"time"

	"threadstream/pkg/store"
	"threadstream/pkg/stream"
)

// Handlers serves the chat API out of one store. Streams run under the
// lifecycle group so shutdown can cancel them.
type Handlers struct {
	store   *store.Store
	engine  *stream.Engine
	streams *stream.Group

	cookieName   string
	cookieMaxAge time.Duration
}

// Options configures the identity cookie issued by set-cookie.
type Options struct {
	CookieName   string
	CookieMaxAge time.Duration
}

// New returns handlers over st.
func New(st *store.Store, engine *stream.Engine, streams *stream.Group, opts Options) *Handlers {
	if opts.CookieName == "" {
		opts.CookieName = "user_id"
	}
	if opts.CookieMaxAge <= 0 {
		opts.CookieMaxAge = 30 * 24 * time.Hour
	}
	return &Handlers{
		store:        st,
		engine:       engine,
		streams:      streams,
		cookieName:   opts.CookieName,
		cookieMaxAge: opts.CookieMaxAge,
	}
}
