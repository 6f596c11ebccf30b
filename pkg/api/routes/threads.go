package routes

import (
	"github.com/valyala/fasthttp"

	"threadstream/pkg/api/router"
	"threadstream/pkg/auth"
	"threadstream/pkg/logger"
)

type threadCreateRequest struct {
	Title        *string `json:"title"`
	FirstMessage *string `json:"first_message"`
}

// ListThreads returns every thread with its messages.
func (h *Handlers) ListThreads(ctx *fasthttp.RequestCtx) {
	router.WriteJSON(ctx, fasthttp.StatusOK, h.store.ListThreads())
}

// CreateThread creates a thread seeded with the caller's first message.
func (h *Handlers) CreateThread(ctx *fasthttp.RequestCtx) {
	var req threadCreateRequest
	if !router.DecodeBodyOrFail(ctx, &req) {
		return
	}
	if req.Title == nil || req.FirstMessage == nil {
		router.WriteJSONError(ctx, fasthttp.StatusUnprocessableEntity, "title and first_message are required")
		return
	}
	th := h.store.CreateThread(*req.Title, *req.FirstMessage)

	id, _ := auth.IdentityFrom(ctx)
	logger.Info("thread_created", "thread_id", th.ID, "user", id.ID, "req_id", auth.RequestID(ctx))
	router.WriteJSON(ctx, fasthttp.StatusCreated, th)
}

// GetThread returns one thread.
func (h *Handlers) GetThread(ctx *fasthttp.RequestCtx) {
	id, ok := router.ThreadIDOrFail(ctx, "id")
	if !ok {
		return
	}
	th, err := h.store.GetThread(id)
	if err != nil {
		router.WriteStoreError(ctx, err)
		return
	}
	router.WriteJSON(ctx, fasthttp.StatusOK, th)
}
