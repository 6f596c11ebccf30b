package routes

import (
	"github.com/valyala/fasthttp"

	"threadstream/pkg/api/router"
	"threadstream/pkg/auth"
	"threadstream/pkg/logger"
	"threadstream/pkg/models"
)

// DefaultUserID is the value set-cookie hands out.
const DefaultUserID = "default_user"

var users = []models.User{
	{ID: 1, Name: "User 1", Email: "user1@example.com"},
	{ID: 2, Name: "User 2", Email: "user2@example.com"},
	{ID: 3, Name: "User 3", Email: "user3@example.com"},
}

// ListUsers returns the fixed user list. No identity required.
func (h *Handlers) ListUsers(ctx *fasthttp.RequestCtx) {
	router.WriteJSON(ctx, fasthttp.StatusOK, users)
}

// Me returns the resolved identity.
func (h *Handlers) Me(ctx *fasthttp.RequestCtx) {
	id, _ := auth.IdentityFrom(ctx)
	router.WriteJSON(ctx, fasthttp.StatusOK, id)
}

// SetCookie issues the identity cookie.
func (h *Handlers) SetCookie(ctx *fasthttp.RequestCtx) {
	c := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(c)
	c.SetKey(h.cookieName)
	c.SetValue(DefaultUserID)
	c.SetPath("/")
	c.SetMaxAge(int(h.cookieMaxAge.Seconds()))
	c.SetHTTPOnly(true)
	c.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	ctx.Response.Header.SetCookie(c)

	logger.Info("identity_cookie_set", "cookie", h.cookieName, "req_id", auth.RequestID(ctx))
	router.WriteJSON(ctx, fasthttp.StatusOK, map[string]string{"message": "User ID cookie has been set"})
}
