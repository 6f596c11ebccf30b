package routes

import (
	"bufio"
	"strconv"

	"github.com/valyala/fasthttp"

	"threadstream/pkg/api/router"
	"threadstream/pkg/auth"
	"threadstream/pkg/logger"
	"threadstream/pkg/models"
	"threadstream/pkg/stream"
)

type messageCreateRequest struct {
	Text *string `json:"text"`
}

func decodeMessage(ctx *fasthttp.RequestCtx) (string, bool) {
	var req messageCreateRequest
	if !router.DecodeBodyOrFail(ctx, &req) {
		return "", false
	}
	if req.Text == nil {
		router.WriteJSONError(ctx, fasthttp.StatusUnprocessableEntity, "text is required")
		return "", false
	}
	return *req.Text, true
}

// ListMessages returns the messages of the thread named by param. A message
// being streamed shows its current prefix.
func (h *Handlers) ListMessages(param string) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, ok := router.ThreadIDOrFail(ctx, param)
		if !ok {
			return
		}
		msgs, err := h.store.ListMessages(id)
		if err != nil {
			router.WriteStoreError(ctx, err)
			return
		}
		router.WriteJSON(ctx, fasthttp.StatusOK, msgs)
	}
}

// CreateMessage appends a complete message from sender to the thread named
// by param.
func (h *Handlers) CreateMessage(param string, sender models.Sender) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		threadID, ok := router.ThreadIDOrFail(ctx, param)
		if !ok {
			return
		}
		text, ok := decodeMessage(ctx)
		if !ok {
			return
		}
		msg, err := h.store.AppendMessage(threadID, sender, text)
		if err != nil {
			router.WriteStoreError(ctx, err)
			return
		}
		id, _ := auth.IdentityFrom(ctx)
		logger.Info("message_created", "thread_id", threadID, "message_id", msg.ID, "sender", sender, "user", id.ID, "req_id", auth.RequestID(ctx))
		router.WriteJSON(ctx, fasthttp.StatusCreated, msg)
	}
}

// StreamAssistantMessage appends an empty assistant message and streams the
// request text into it one character at a time. Thread preconditions are
// checked before the 200 is committed.
func (h *Handlers) StreamAssistantMessage(param string) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		threadID, ok := router.ThreadIDOrFail(ctx, param)
		if !ok {
			return
		}
		text, ok := decodeMessage(ctx)
		if !ok {
			return
		}

		sctx, done, ok := h.streams.Begin()
		if !ok {
			router.WriteJSONError(ctx, fasthttp.StatusServiceUnavailable, "server shutting down")
			return
		}
		handle, err := h.store.BeginStream(threadID)
		if err != nil {
			done()
			router.WriteStoreError(ctx, err)
			return
		}

		id, _ := auth.IdentityFrom(ctx)
		reqID := auth.RequestID(ctx)
		msg := handle.Message()
		st := h.engine.NewStream(text)
		logger.Info("stream_started", "thread_id", threadID, "message_id", msg.ID, "chars", st.Total(), "delay", st.Delay(), "user", id.ID, "req_id", reqID)

		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.Response.Header.Set("Cache-Control", "no-cache")
		ctx.Response.Header.Set("X-Message-Id", strconv.FormatInt(msg.ID, 10))
		ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
			defer done()
			defer handle.Release()
			res := st.Run(sctx, handle, stream.NewWriterSink(w))
			if res.State == stream.StateCancelled {
				logger.Info("stream_cancelled", "thread_id", threadID, "message_id", msg.ID, "emitted", res.Emitted, "total", res.Total, "req_id", reqID)
			}
		})
	}
}
