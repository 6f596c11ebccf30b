package auth

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"threadstream/pkg/api/router"
	"threadstream/pkg/logger"
	"threadstream/pkg/telemetry"
)

const HeaderRequestID = "X-Request-Id"

// GatewayConfig holds the cross-cutting request policy.
type GatewayConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	// Exempt paths skip rate limiting.
	Exempt []string
}

// Gateway applies request ids, logging, CORS and rate limiting in front of
// the router.
type Gateway struct {
	cfg      GatewayConfig
	limiters *limiterPool
	exempt   map[string]struct{}
	stop     chan struct{}
	once     sync.Once
}

// NewGateway builds a gateway and starts its limiter sweeper. Call Close to
// stop it.
func NewGateway(cfg GatewayConfig) *Gateway {
	g := &Gateway{
		cfg:      cfg,
		limiters: newLimiterPool(cfg.RPS, cfg.Burst),
		exempt:   make(map[string]struct{}, len(cfg.Exempt)),
		stop:     make(chan struct{}),
	}
	for _, p := range cfg.Exempt {
		g.exempt[p] = struct{}{}
	}
	go g.limiters.run(time.Minute, g.stop)
	return g
}

// Close stops background work.
func (g *Gateway) Close() {
	g.once.Do(func() { close(g.stop) })
}

const requestIDKey = "threadstream.request_id"

// RequestID returns the id assigned to the request by the gateway.
func RequestID(ctx *fasthttp.RequestCtx) string {
	id, _ := ctx.UserValue(requestIDKey).(string)
	return id
}

// Wrap returns next behind the gateway.
func (g *Gateway) Wrap(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		tr := telemetry.Track(string(ctx.Method()) + " " + string(ctx.Path()))
		defer tr.Finish()

		reqID := requestID(ctx)
		ctx.SetUserValue(requestIDKey, reqID)
		ctx.Response.Header.Set(HeaderRequestID, reqID)
		logger.LogRequestFast(ctx, reqID)

		preflight := g.applyCORS(ctx)
		tr.Mark("cors")
		if preflight {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		if _, ok := g.exempt[string(ctx.Path())]; !ok {
			if !g.limiters.Allow(clientIP(ctx)) {
				logger.Warn("rate_limited", "req_id", reqID, "path", string(ctx.Path()), "remote", clientIP(ctx))
				router.WriteJSONError(ctx, fasthttp.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		tr.Mark("rate_limit")

		next(ctx)
		tr.Mark("handler")
	}
}

// applyCORS sets CORS headers for allowed origins and reports whether the
// request is a preflight that should be answered without routing.
func (g *Gateway) applyCORS(ctx *fasthttp.RequestCtx) bool {
	origin := string(ctx.Request.Header.Peek(fasthttp.HeaderOrigin))
	isPreflight := string(ctx.Method()) == fasthttp.MethodOptions &&
		len(ctx.Request.Header.Peek(fasthttp.HeaderAccessControlRequestMethod)) > 0
	if origin == "" || !originAllowed(origin, g.cfg.AllowedOrigins) {
		return isPreflight
	}
	h := &ctx.Response.Header
	h.Set(fasthttp.HeaderAccessControlAllowOrigin, origin)
	h.Set(fasthttp.HeaderAccessControlAllowCredentials, "true")
	h.Set(fasthttp.HeaderVary, "Origin")
	h.Set(fasthttp.HeaderAccessControlExposeHeaders, HeaderRequestID)
	if isPreflight {
		h.Set(fasthttp.HeaderAccessControlAllowMethods, "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		if req := ctx.Request.Header.Peek(fasthttp.HeaderAccessControlRequestHeaders); len(req) > 0 {
			h.SetBytesV(fasthttp.HeaderAccessControlAllowHeaders, req)
		}
		h.Set(fasthttp.HeaderAccessControlMaxAge, "600")
	}
	return isPreflight
}

func requestID(ctx *fasthttp.RequestCtx) string {
	if v := strings.TrimSpace(string(ctx.Request.Header.Peek(HeaderRequestID))); v != "" && len(v) <= 128 {
		return v
	}
	return uuid.NewString()
}

func clientIP(ctx *fasthttp.RequestCtx) string {
	host := ctx.RemoteAddr().String()
	h, _, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	return h
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}
