package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

func serve(r *Router, method, path string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	r.Handler(&ctx)
	return &ctx
}

func TestRouterParams(t *testing.T) {
	r := New()
	var got string
	r.GET("/messages/{threadId}", func(ctx *fasthttp.RequestCtx) {
		got, _ = ctx.UserValue("threadId").(string)
		ctx.SetStatusCode(fasthttp.StatusOK)
	})
	r.POST("/messages/{threadId}/assistant/stream", func(ctx *fasthttp.RequestCtx) {
		got = "stream:" + ctx.UserValue("threadId").(string)
	})

	ctx := serve(r, "GET", "/messages/42")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "42", got)

	serve(r, "POST", "/messages/7/assistant/stream")
	assert.Equal(t, "stream:7", got)
}

func TestRouterTrailingSlashAndRoot(t *testing.T) {
	r := New()
	hits := 0
	r.GET("/threads", func(ctx *fasthttp.RequestCtx) { hits++ })
	r.GET("/", func(ctx *fasthttp.RequestCtx) { hits += 10 })

	serve(r, "GET", "/threads/")
	serve(r, "GET", "/threads")
	serve(r, "GET", "/")
	assert.Equal(t, 12, hits)
}

func TestRouterNotFoundAndMethodNotAllowed(t *testing.T) {
	r := New()
	r.GET("/threads/{id}", func(ctx *fasthttp.RequestCtx) {})
	r.POST("/threads", func(ctx *fasthttp.RequestCtx) {})
	r.GET("/threads", func(ctx *fasthttp.RequestCtx) {})

	ctx := serve(r, "GET", "/nope")
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())

	ctx = serve(r, "DELETE", "/threads")
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, ctx.Response.StatusCode())
	assert.Equal(t, "GET, POST", string(ctx.Response.Header.Peek("Allow")))

	ctx = serve(r, "GET", "/threads/1/extra")
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())

	called := false
	r.NotFound(func(ctx *fasthttp.RequestCtx) { called = true })
	serve(r, "GET", "/nope")
	assert.True(t, called)
}

func TestRoutes(t *testing.T) {
	r := New()
	r.POST("/threads", nil)
	r.GET("/threads", nil)
	r.GET("/threads/{id}", nil)
	assert.Equal(t, []string{"GET /threads", "GET /threads/{id}", "POST /threads"}, r.Routes())
}
