package router

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"

	"threadstream/pkg/store"
)

func TestWriteStoreError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{store.ErrThreadNotFound, 404, `{"detail":"Thread not found"}`},
		{fmt.Errorf("append: %w", store.ErrThreadInactive), 400, `{"detail":"Cannot add message to inactive thread"}`},
		{fmt.Errorf("boom"), 500, `{"detail":"Internal server error"}`},
	}
	for _, tc := range cases {
		var ctx fasthttp.RequestCtx
		WriteStoreError(&ctx, tc.err)
		assert.Equal(t, tc.status, ctx.Response.StatusCode())
		assert.JSONEq(t, tc.body, string(ctx.Response.Body()))
		assert.Equal(t, "application/json", string(ctx.Response.Header.ContentType()))
	}
}

func TestThreadIDOrFail(t *testing.T) {
	var ctx fasthttp.RequestCtx
	ctx.SetUserValue("id", "12")
	id, ok := ThreadIDOrFail(&ctx, "id")
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)

	var bad fasthttp.RequestCtx
	bad.SetUserValue("id", "abc")
	_, ok = ThreadIDOrFail(&bad, "id")
	assert.False(t, ok)
	assert.Equal(t, fasthttp.StatusUnprocessableEntity, bad.Response.StatusCode())
}

func TestDecodeBodyOrFail(t *testing.T) {
	var ctx fasthttp.RequestCtx
	ctx.Request.SetBodyString(`{"text":"hi"}`)
	var dst struct{ Text string }
	assert.True(t, DecodeBodyOrFail(&ctx, &dst))
	assert.Equal(t, "hi", dst.Text)

	var bad fasthttp.RequestCtx
	bad.Request.SetBodyString(`{"text":`)
	assert.False(t, DecodeBodyOrFail(&bad, &dst))
	assert.Equal(t, fasthttp.StatusBadRequest, bad.Response.StatusCode())
	assert.JSONEq(t, `{"detail":"Invalid request body"}`, string(bad.Response.Body()))
}
