package logger

import (
	"context"
	"log/slog"
	"strings"

	"github.com/valyala/fasthttp"
)

// headers whose values never reach the log
var sensitive = map[string]struct{}{
	"authorization": {},
	"cookie":        {},
	"set-cookie":    {},
	"x-api-key":     {},
}

func redact(name string, value []byte) string {
	if _, ok := sensitive[strings.ToLower(name)]; ok && len(value) > 0 {
		return "<redacted>"
	}
	return string(value)
}

// SafeHeadersFast renders the request headers as "k=v; k=v" with credentials
// redacted.
func SafeHeadersFast(ctx *fasthttp.RequestCtx) string {
	var b strings.Builder
	ctx.Request.Header.VisitAll(func(k, v []byte) {
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		name := string(k)
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(redact(name, v))
	})
	return b.String()
}

// LogRequestFast logs one debug line per inbound request.
func LogRequestFast(ctx *fasthttp.RequestCtx, reqID string) {
	if Log == nil || !Log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	Debug("incoming_request",
		"req_id", reqID,
		"method", string(ctx.Method()),
		"path", string(ctx.Path()),
		"remote", ctx.RemoteAddr().String(),
		"headers", SafeHeadersFast(ctx),
	)
}
