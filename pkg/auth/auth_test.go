package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"threadstream/pkg/models"
)

func TestCookieResolver(t *testing.T) {
	r := NewCookieResolver("")

	var req fasthttp.Request
	_, err := r.Resolve(&req)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	req.Header.SetCookie("user_id", "  ")
	_, err = r.Resolve(&req)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	req.Header.SetCookie("user_id", "default_user")
	id, err := r.Resolve(&req)
	require.NoError(t, err)
	assert.Equal(t, models.Identity{ID: "default_user", Name: "User 1", Email: "user1@example.com", Role: models.RoleAdmin}, id)
}

func TestRequireIdentity(t *testing.T) {
	var seen models.Identity
	h := RequireIdentity(NewCookieResolver("user_id"), func(ctx *fasthttp.RequestCtx) {
		seen, _ = IdentityFrom(ctx)
	})

	var anon fasthttp.RequestCtx
	h(&anon)
	assert.Equal(t, fasthttp.StatusUnauthorized, anon.Response.StatusCode())
	assert.Equal(t, "Bearer", string(anon.Response.Header.Peek("WWW-Authenticate")))
	assert.JSONEq(t, `{"detail":"Not authenticated. A user_id cookie is required."}`, string(anon.Response.Body()))

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetCookie("user_id", "abc")
	h(&ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "abc", seen.ID)
}

func TestLimiterPool(t *testing.T) {
	now := time.Unix(1000, 0)
	p := newLimiterPool(1, 2)
	p.now = func() time.Time { return now }

	assert.True(t, p.Allow("a"))
	assert.True(t, p.Allow("a"))
	assert.False(t, p.Allow("a"), "burst exhausted")
	assert.True(t, p.Allow("b"), "keys are independent")

	now = now.Add(time.Second)
	assert.True(t, p.Allow("a"), "refilled")

	now = now.Add(11 * time.Minute)
	assert.Equal(t, 2, p.sweep())
}

func newCtx(method, path, origin string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if origin != "" {
		ctx.Request.Header.Set("Origin", origin)
	}
	return &ctx
}

func TestGatewayCORSAndRequestID(t *testing.T) {
	g := NewGateway(GatewayConfig{AllowedOrigins: []string{"http://localhost:5173"}, RPS: 100, Burst: 100})
	defer g.Close()
	called := 0
	h := g.Wrap(func(ctx *fasthttp.RequestCtx) {
		called++
		assert.NotEmpty(t, RequestID(ctx))
	})

	ctx := newCtx("GET", "/threads", "http://localhost:5173")
	h(ctx)
	assert.Equal(t, 1, called)
	assert.Equal(t, "http://localhost:5173", string(ctx.Response.Header.Peek("Access-Control-Allow-Origin")))
	assert.Equal(t, "true", string(ctx.Response.Header.Peek("Access-Control-Allow-Credentials")))
	assert.Len(t, string(ctx.Response.Header.Peek(HeaderRequestID)), 36)

	ctx = newCtx("GET", "/threads", "http://evil.test")
	ctx.Request.Header.Set(HeaderRequestID, "req-1")
	h(ctx)
	assert.Empty(t, ctx.Response.Header.Peek("Access-Control-Allow-Origin"))
	assert.Equal(t, "req-1", string(ctx.Response.Header.Peek(HeaderRequestID)))

	pre := newCtx("OPTIONS", "/threads", "http://localhost:5173")
	pre.Request.Header.Set("Access-Control-Request-Method", "POST")
	pre.Request.Header.Set("Access-Control-Request-Headers", "content-type")
	h(pre)
	assert.Equal(t, 2, called, "preflight does not reach the router")
	assert.Equal(t, fasthttp.StatusNoContent, pre.Response.StatusCode())
	assert.Equal(t, "600", string(pre.Response.Header.Peek("Access-Control-Max-Age")))
	assert.Equal(t, "content-type", string(pre.Response.Header.Peek("Access-Control-Allow-Headers")))
}

func TestGatewayRateLimit(t *testing.T) {
	g := NewGateway(GatewayConfig{RPS: 0.001, Burst: 1, Exempt: []string{"/healthz"}})
	defer g.Close()
	h := g.Wrap(func(ctx *fasthttp.RequestCtx) {})

	first := newCtx("GET", "/threads", "")
	h(first)
	assert.Equal(t, fasthttp.StatusOK, first.Response.StatusCode())

	second := newCtx("GET", "/threads", "")
	h(second)
	assert.Equal(t, fasthttp.StatusTooManyRequests, second.Response.StatusCode())
	assert.JSONEq(t, `{"detail":"rate limit exceeded"}`, string(second.Response.Body()))

	health := newCtx("GET", "/healthz", "")
	h(health)
	assert.Equal(t, fasthttp.StatusOK, health.Response.StatusCode())
}
