package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMiddlewareLogsRequest(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := log
	log = zap.New(core)
	t.Cleanup(func() { log = prev })

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/products", nil), rec)
	c.Response().Header().Set(echo.HeaderXRequestID, "req-1")

	err := Middleware()(func(c echo.Context) error {
		assert.NotSame(t, GetLogger(), FromEcho(c))
		c.Set("tenant_code", "BISTRO")
		c.Set("user_id", int64(7))
		return echo.ErrNotFound
	})(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	entries := logs.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "BISTRO", fields["tenant"])
	assert.Equal(t, int64(7), fields["user_id"])
	assert.Equal(t, int64(http.StatusNotFound), fields["status"])
}

func TestFallbacksUseGlobalLogger(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Same(t, GetLogger(), FromEcho(c))
	assert.Same(t, GetLogger(), FromContext(context.Background()))

	l := zap.NewNop()
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
}

func TestInitLoggerAcceptsUnknownLevel(t *testing.T) {
	prev := log
	t.Cleanup(func() {
		log = prev
		zap.ReplaceGlobals(prev)
	})
	require.NoError(t, InitLogger(&LogConfig{Level: "loud", Environment: "production", ServiceName: "restaurant-pos"}))
	assert.True(t, GetLogger().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, GetLogger().Core().Enabled(zapcore.DebugLevel))
}
