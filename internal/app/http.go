package app

import (
	"encoding/json"

	"github.com/valyala/fasthttp"

	"threadstream/pkg/api"
	"threadstream/pkg/api/routes"
	"threadstream/pkg/auth"
	"threadstream/pkg/config/banner"
	"threadstream/pkg/router"
)

func (a *App) printBanner() {
	ver := a.version
	if a.commit != "" && a.commit != "none" {
		ver += " (" + a.commit + ")"
	}
	if a.buildDate != "" && a.buildDate != "unknown" {
		ver += " @ " + a.buildDate
	}
	banner.PrintWithEff(a.eff, ver, a.store.Stats().Threads)
}

func writeStatus(ctx *fasthttp.RequestCtx, status int, body map[string]interface{}) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	_ = json.NewEncoder(ctx).Encode(body)
}

// healthzHandlerFast reports liveness.
func (a *App) healthzHandlerFast(ctx *fasthttp.RequestCtx) {
	writeStatus(ctx, fasthttp.StatusOK, map[string]interface{}{"status": "ok"})
}

// readyzHandlerFast reports whether the app is accepting work.
func (a *App) readyzHandlerFast(ctx *fasthttp.RequestCtx) {
	if s := a.State(); s == "shutting_down" || s == "stopped" {
		writeStatus(ctx, fasthttp.StatusServiceUnavailable, map[string]interface{}{"status": "not ready", "state": s})
		return
	}
	if a.hwSensor.Pressure() {
		writeStatus(ctx, fasthttp.StatusServiceUnavailable, map[string]interface{}{"status": "not ready", "reason": "memory_pressure"})
		return
	}
	ver := a.version
	if ver == "" {
		ver = "dev"
	}
	st := a.store.Stats()
	writeStatus(ctx, fasthttp.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": ver,
		"threads": st.Threads,
		"streams": a.streams.Active(),
	})
}

// Handler builds the full request pipeline: gateway, router and API routes.
func (a *App) Handler() fasthttp.RequestHandler {
	cfg := a.eff.Config

	r := router.New()
	r.GET("/healthz", a.healthzHandlerFast)
	r.GET("/readyz", a.readyzHandlerFast)

	h := routes.New(a.store, a.engine, a.streams, routes.Options{
		CookieName:   cfg.Security.Cookie.Name,
		CookieMaxAge: cfg.Security.Cookie.MaxAge.Duration(),
	})
	api.RegisterRoutes(r, h, a.resolver)

	if a.gateway == nil {
		a.gateway = auth.NewGateway(auth.GatewayConfig{
			AllowedOrigins: append([]string{}, cfg.Security.CORS.AllowedOrigins...),
			RPS:            cfg.Security.RateLimit.RPS,
			Burst:          cfg.Security.RateLimit.Burst,
			Exempt:         []string{"/healthz", "/readyz", "/metrics"},
		})
	}
	return a.gateway.Wrap(r.Handler)
}

func (a *App) newServer() *fasthttp.Server {
	cfg := a.eff.Config
	return &fasthttp.Server{
		Handler:            a.Handler(),
		Name:               "threadstream",
		ReadBufferSize:     16 * 1024,
		MaxRequestBodySize: int(cfg.Server.MaxBodySize.Int64()),
		ReadTimeout:        cfg.Server.ReadTimeout.Duration(),
		// zero unless configured longer than the stream window
		WriteTimeout:    cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:     cfg.Server.IdleTimeout.Duration(),
		CloseOnShutdown: true,
	}
}
