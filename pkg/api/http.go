package api

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	apirouter "threadstream/pkg/api/router"
	"threadstream/pkg/api/routes"
	"threadstream/pkg/auth"
	"threadstream/pkg/models"
	"threadstream/pkg/router"
)

// RegisterRoutes wires the chat API onto r. Routes other than the user list
// and set-cookie require an identity from res.
func RegisterRoutes(r *router.Router, h *routes.Handlers, res auth.Resolver) {
	open := func(method, path string, fn fasthttp.RequestHandler) {
		add(r, method, path, instrument(path, fn))
	}
	secured := func(method, path string, fn fasthttp.RequestHandler) {
		add(r, method, path, instrument(path, auth.RequireIdentity(res, fn)))
	}

	// users
	open("GET", "/users", h.ListUsers)
	open("GET", "/users/set-cookie", h.SetCookie)
	secured("GET", "/users/me", h.Me)

	// threads
	secured("GET", "/threads", h.ListThreads)
	secured("POST", "/threads", h.CreateThread)
	secured("GET", "/threads/{id}", h.GetThread)

	// messages
	secured("GET", "/messages/{threadId}", h.ListMessages("threadId"))
	secured("POST", "/messages/{threadId}", h.CreateMessage("threadId", models.SenderUser))
	secured("POST", "/messages/{threadId}/assistant", h.CreateMessage("threadId", models.SenderAssistant))
	secured("POST", "/messages/{threadId}/assistant/stream", h.StreamAssistantMessage("threadId"))

	// thread-scoped aliases
	secured("GET", "/threads/{id}/messages", h.ListMessages("id"))
	secured("POST", "/threads/{id}/messages", h.CreateMessage("id", models.SenderUser))

	r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))

	r.NotFound(func(ctx *fasthttp.RequestCtx) {
		apirouter.WriteJSONError(ctx, fasthttp.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(ctx *fasthttp.RequestCtx) {
		apirouter.WriteJSONError(ctx, fasthttp.StatusMethodNotAllowed, "Method Not Allowed")
	})
}

func add(r *router.Router, method, path string, fn fasthttp.RequestHandler) {
	switch method {
	case fasthttp.MethodGet:
		r.GET(path, fn)
	case fasthttp.MethodPost:
		r.POST(path, fn)
	}
}
