package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kisara-app/kisara-api/internal/config"
)

func limiterConfig(capacity int) config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled: true,
		Prefix:  "rl",
		TTL:     10 * time.Minute,
		Auth:    config.GroupLimit{Capacity: capacity, Window: time.Minute},
		Default: config.GroupLimit{Capacity: 100, Window: time.Minute},
	}
}

func limitedHandler(cfg config.RateLimitConfig, rdb *redis.Client) echo.HandlerFunc {
	return RateLimit(cfg, rdb, config.GroupAuth)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
}

func fire(t *testing.T, e *echo.Echo, h echo.HandlerFunc, ip string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/auth/google/url", nil)
	req.RemoteAddr = ip + ":12345"
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestRateLimitEnforcesCapacity(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	e := echo.New()
	h := limitedHandler(limiterConfig(3), rdb)

	for i := 0; i < 3; i++ {
		rec := fire(t, e, h, "10.0.0.1")
		assert.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := fire(t, e, h, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimitSeparatesClients(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	e := echo.New()
	h := limitedHandler(limiterConfig(1), rdb)

	assert.Equal(t, http.StatusOK, fire(t, e, h, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, fire(t, e, h, "10.0.0.1").Code)
	// A different IP has its own budget.
	assert.Equal(t, http.StatusOK, fire(t, e, h, "10.0.0.2").Code)
}

func TestRateLimitWindowRollover(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := limiterConfig(1)
	cfg.Auth.Window = 50 * time.Millisecond

	e := echo.New()
	h := limitedHandler(cfg, rdb)

	assert.Equal(t, http.StatusOK, fire(t, e, h, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, fire(t, e, h, "10.0.0.1").Code)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, http.StatusOK, fire(t, e, h, "10.0.0.1").Code)
}

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	cfg := limiterConfig(0)
	cfg.Enabled = false

	e := echo.New()
	h := limitedHandler(cfg, nil)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, fire(t, e, h, "10.0.0.1").Code)
	}
}

func TestRateLimitFailsOpenOnRedisError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close()

	e := echo.New()
	h := limitedHandler(limiterConfig(1), rdb)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, fire(t, e, h, "10.0.0.1").Code)
	}
}
