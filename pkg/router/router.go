package router

import (
	"sort"
	"strings"

	"github.com/valyala/fasthttp"
)

// Router dispatches by method and path. Paths may contain {name} segments
// whose values are stored as user values on the request context. A path that
// matches under another method answers 405 with an Allow header.
type Router struct {
	routes           map[string][]route
	notFound         fasthttp.RequestHandler
	methodNotAllowed fasthttp.RequestHandler
}

type route struct {
	pattern  string
	segments []segment
	handler  fasthttp.RequestHandler
}

type segment struct {
	name    string
	isParam bool
}

// New constructs a new Router.
func New() *Router {
	return &Router{routes: make(map[string][]route)}
}

// Handler satisfies the fasthttp.Server handler interface.
func (r *Router) Handler(ctx *fasthttp.RequestCtx) {
	parts := split(string(ctx.Path()))
	if rt, ok := r.lookup(string(ctx.Method()), parts); ok {
		rt.bind(ctx, parts)
		rt.handler(ctx)
		return
	}
	if allowed := r.allowed(parts); len(allowed) > 0 {
		ctx.Response.Header.Set("Allow", strings.Join(allowed, ", "))
		if r.methodNotAllowed != nil {
			r.methodNotAllowed(ctx)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		return
	}
	if r.notFound != nil {
		r.notFound(ctx)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNotFound)
}

// GET registers a GET handler.
func (r *Router) GET(path string, h fasthttp.RequestHandler) {
	r.add(fasthttp.MethodGet, path, h)
}

// POST registers a POST handler.
func (r *Router) POST(path string, h fasthttp.RequestHandler) {
	r.add(fasthttp.MethodPost, path, h)
}

// OPTIONS registers an OPTIONS handler.
func (r *Router) OPTIONS(path string, h fasthttp.RequestHandler) {
	r.add(fasthttp.MethodOptions, path, h)
}

// NotFound registers a handler for unmatched routes.
func (r *Router) NotFound(h fasthttp.RequestHandler) {
	r.notFound = h
}

// MethodNotAllowed registers a handler for paths known under other methods.
func (r *Router) MethodNotAllowed(h fasthttp.RequestHandler) {
	r.methodNotAllowed = h
}

// Routes lists registered "METHOD /pattern" pairs in registration order per
// method, methods sorted.
func (r *Router) Routes() []string {
	methods := make([]string, 0, len(r.routes))
	for m := range r.routes {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	var out []string
	for _, m := range methods {
		for _, rt := range r.routes[m] {
			out = append(out, m+" "+rt.pattern)
		}
	}
	return out
}

func (r *Router) add(method, path string, h fasthttp.RequestHandler) {
	r.routes[method] = append(r.routes[method], route{pattern: path, segments: parse(path), handler: h})
}

func (r *Router) lookup(method string, parts []string) (route, bool) {
	for _, rt := range r.routes[method] {
		if rt.matches(parts) {
			return rt, true
		}
	}
	return route{}, false
}

func (r *Router) allowed(parts []string) []string {
	var out []string
	for m, list := range r.routes {
		for _, rt := range list {
			if rt.matches(parts) {
				out = append(out, m)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

func parse(path string) []segment {
	parts := split(path)
	segs := make([]segment, len(parts))
	for i, part := range parts {
		if len(part) > 2 && strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			segs[i] = segment{name: part[1 : len(part)-1], isParam: true}
		} else {
			segs[i] = segment{name: part}
		}
	}
	return segs
}

// split drops the leading and any trailing slash, so "/threads/" and
// "/threads" are the same route.
func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func (rt route) matches(parts []string) bool {
	if len(parts) != len(rt.segments) {
		return false
	}
	for i, seg := range rt.segments {
		if seg.isParam {
			if parts[i] == "" {
				return false
			}
			continue
		}
		if seg.name != parts[i] {
			return false
		}
	}
	return true
}

func (rt route) bind(ctx *fasthttp.RequestCtx, parts []string) {
	for i, seg := range rt.segments {
		if seg.isParam {
			ctx.SetUserValue(seg.name, parts[i])
		}
	}
}
