package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPRateLimiter_PerAddressBuckets(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(RateLimitConfig{Requests: 60, Window: time.Minute, Burst: 2}, zerolog.Nop())
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"), "burst spent")
	assert.True(t, l.Allow("10.0.0.2"), "other addresses have their own bucket")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"), "one token per second refills")
	assert.False(t, l.Allow("10.0.0.1"))
}

func TestIPRateLimiter_SweepsIdleVisitors(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(RateLimitConfig{Requests: 10, Window: time.Minute, Burst: 1}, zerolog.Nop())
	l.now = func() time.Time { return now }
	l.lastSweep = now

	l.Allow("10.0.0.1")
	now = now.Add(2 * time.Minute)
	l.Allow("10.0.0.2")

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.visitors, "10.0.0.1")
	assert.Contains(t, l.visitors, "10.0.0.2")
}

func TestIPRateLimiter_Handler(t *testing.T) {
	l := NewIPRateLimiter(RateLimitConfig{Requests: 1, Window: time.Hour, Burst: 1}, zerolog.Nop())
	h := l.Handler()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e := echo.New()
	call := func() error {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "192.0.2.10:5555"
		return h(e.NewContext(req, httptest.NewRecorder()))
	}

	require.NoError(t, call())
	err := call()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusTooManyRequests, he.Code)
}

func TestRequestLogger_LogsRenderedStatus(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		_ = c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := RequestLogger(log)(func(c echo.Context) error {
		return errors.New("email is already in use")
	})(c)

	require.NoError(t, err, "error is rendered by the logger")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, buf.String(), `"status":409`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"path":"/api/auth/register"`)
}
