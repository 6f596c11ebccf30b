package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestSafeHeadersRedactsCredentials(t *testing.T) {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set("Cookie", "user_id=secret")
	ctx.Request.Header.Set("Authorization", "Bearer secret")
	ctx.Request.Header.Set("X-Request-Id", "abc")

	out := SafeHeadersFast(&ctx)
	assert.NotContains(t, out, "secret")
	assert.Contains(t, out, "<redacted>")
	assert.Contains(t, out, "abc")
}

func TestInitWriterCapturesOutput(t *testing.T) {
	prev := Log
	defer func() { Log = prev }()

	var buf bytes.Buffer
	InitWriter(&buf, "warn")
	Info("hidden_event")
	Warn("visible_event", "k", "v")

	assert.NotContains(t, buf.String(), "hidden_event")
	assert.Contains(t, buf.String(), "visible_event")
	assert.Contains(t, buf.String(), "k=v")
}

func TestInitFileSinkFlushesOnSync(t *testing.T) {
	prev := Log
	defer func() { Log = prev }()

	path := filepath.Join(t.TempDir(), "threadstream.log")
	t.Setenv("THREADSTREAM_LOG_SINK", "file:"+path)
	Init("debug")
	for i := 0; i < 100; i++ {
		Debug("queued_event", "i", i)
	}
	Sync()
	Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 100, bytes.Count(b, []byte("queued_event")))
}

func TestHelpersBeforeInit(t *testing.T) {
	prev := Log
	defer func() { Log = prev }()
	Log = nil
	assert.NotPanics(t, func() {
		Info("nothing")
		LogRequestFast(&fasthttp.RequestCtx{}, "id")
	})
}
