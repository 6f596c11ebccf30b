package auth

import (
	"errors"
	"strings"

	"github.com/valyala/fasthttp"

	"threadstream/pkg/api/router"
	"threadstream/pkg/logger"
	"threadstream/pkg/models"
)

// DetailUnauthenticated is the 401 detail returned when no identity resolves.
const DetailUnauthenticated = "Not authenticated. A user_id cookie is required."

// ErrUnauthenticated means the request carried no usable credential.
var ErrUnauthenticated = errors.New("unauthenticated")

// Resolver maps an inbound request to the caller's identity.
type Resolver interface {
	Resolve(req *fasthttp.Request) (models.Identity, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(req *fasthttp.Request) (models.Identity, error)

func (f ResolverFunc) Resolve(req *fasthttp.Request) (models.Identity, error) { return f(req) }

// CookieResolver trusts the value of a named cookie as the caller id. Every
// caller is presented as the same demo admin user.
type CookieResolver struct {
	Cookie string
}

// NewCookieResolver returns a resolver reading the named cookie.
func NewCookieResolver(cookie string) *CookieResolver {
	if cookie == "" {
		cookie = "user_id"
	}
	return &CookieResolver{Cookie: cookie}
}

func (r *CookieResolver) Resolve(req *fasthttp.Request) (models.Identity, error) {
	id := strings.TrimSpace(string(req.Header.Cookie(r.Cookie)))
	if id == "" {
		return models.Identity{}, ErrUnauthenticated
	}
	return models.Identity{
		ID:    id,
		Name:  "User 1",
		Email: "user1@example.com",
		Role:  models.RoleAdmin,
	}, nil
}

// user value key for the resolved identity
const identityKey = "threadstream.identity"

// RequireIdentity resolves the caller before next runs. Unresolved callers
// get 401 with a Bearer challenge.
func RequireIdentity(res Resolver, next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, err := res.Resolve(&ctx.Request)
		if err != nil {
			logger.Warn("request_unauthorized", "path", string(ctx.Path()), "remote", ctx.RemoteAddr().String(), "error", err)
			ctx.Response.Header.Set(fasthttp.HeaderWWWAuthenticate, "Bearer")
			router.WriteJSONError(ctx, fasthttp.StatusUnauthorized, DetailUnauthenticated)
			return
		}
		ctx.SetUserValue(identityKey, id)
		next(ctx)
	}
}

// IdentityFrom returns the identity attached by RequireIdentity.
func IdentityFrom(ctx *fasthttp.RequestCtx) (models.Identity, bool) {
	id, ok := ctx.UserValue(identityKey).(models.Identity)
	return id, ok
}
