package router

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/valyala/fasthttp"

	"threadstream/pkg/logger"
	"threadstream/pkg/store"
)

const (
	DetailThreadNotFound  = "Thread not found"
	DetailInactiveThread  = "Cannot add message to inactive thread"
	DetailInvalidThreadID = "Invalid thread id"
	DetailInvalidBody     = "Invalid request body"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// WriteJSON writes v with the given status.
func WriteJSON(ctx *fasthttp.RequestCtx, status int, v interface{}) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		logger.Error("encode_response_failed", "path", string(ctx.Path()), "error", err)
	}
}

// WriteJSONError writes {"detail": detail} with the given status.
func WriteJSONError(ctx *fasthttp.RequestCtx, status int, detail string) {
	ctx.ResetBody()
	WriteJSON(ctx, status, ErrorBody{Detail: detail})
}

// WriteStoreError maps store errors onto HTTP statuses. Unknown errors are
// logged and answered with 500.
func WriteStoreError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, store.ErrThreadNotFound):
		WriteJSONError(ctx, fasthttp.StatusNotFound, DetailThreadNotFound)
	case errors.Is(err, store.ErrThreadInactive):
		WriteJSONError(ctx, fasthttp.StatusBadRequest, DetailInactiveThread)
	default:
		logger.Error("request_failed", "path", string(ctx.Path()), "error", err)
		WriteJSONError(ctx, fasthttp.StatusInternalServerError, "Internal server error")
	}
}

// PathParam returns a path parameter bound by the router.
func PathParam(ctx *fasthttp.RequestCtx, param string) string {
	if v, ok := ctx.UserValue(param).(string); ok {
		return v
	}
	return ""
}

// ThreadIDOrFail parses the named path parameter as a thread id, writing a
// 422 when it is not an integer.
func ThreadIDOrFail(ctx *fasthttp.RequestCtx, param string) (int64, bool) {
	id, err := strconv.ParseInt(PathParam(ctx, param), 10, 64)
	if err != nil {
		WriteJSONError(ctx, fasthttp.StatusUnprocessableEntity, DetailInvalidThreadID)
		return 0, false
	}
	return id, true
}

// DecodeBodyOrFail unmarshals the JSON body into dst, writing a 400 on
// malformed input.
func DecodeBodyOrFail(ctx *fasthttp.RequestCtx, dst interface{}) bool {
	if err := json.Unmarshal(ctx.PostBody(), dst); err != nil {
		WriteJSONError(ctx, fasthttp.StatusBadRequest, DetailInvalidBody)
		return false
	}
	return true
}
