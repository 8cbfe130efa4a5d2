package middleware

import (
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/kisara-app/kisara-api/internal/config"
	"github.com/kisara-app/kisara-api/internal/utils"
)

// Fixed-window counter evaluated atomically in redis. State per key is
// the used count and the window reset time; a request either consumes a
// slot or learns how long until the window rolls over.
var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local window_ms = tonumber(ARGV[3])
local ttl_s = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'used', 'reset_at')
local used = tonumber(state[1])
local reset_at = tonumber(state[2])
if used == nil or reset_at == nil or now_ms >= reset_at then
  used = 0
  reset_at = now_ms + window_ms
end

local allowed = 0
local retry_ms = 0
if used < capacity then
  allowed = 1
  used = used + 1
else
  retry_ms = reset_at - now_ms
end

redis.call('HMSET', key, 'used', used, 'reset_at', reset_at)
redis.call('EXPIRE', key, ttl_s)
return { allowed, capacity - used, retry_ms }
`)

// RateLimit enforces the per-IP budget of a route group. When limiting is
// disabled or redis is unavailable the middleware passes requests through
// untouched; a broken limiter must never take the API down with it.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client, group string) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	limit := cfg.Limit(group)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key := strings.Join([]string{cfg.Prefix, group, "ip", ip}, ":")

			now := time.Now().UnixMilli()
			vals, err := rateLimitScript.Run(c.Request().Context(), rdb, []string{key},
				now, limit.Capacity, limit.Window.Milliseconds(), int64(cfg.TTL.Seconds())).Int64Slice()
			if err != nil || len(vals) != 3 {
				log.Printf("ratelimit: redis error for %s: %v", key, err)
				return next(c)
			}
			allowed, remaining, retryMs := vals[0] == 1, vals[1], vals[2]

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if !allowed {
				secs := int(math.Ceil(float64(retryMs) / 1000.0))
				h.Set("Retry-After", strconv.Itoa(secs))
				return utils.Fail(c, http.StatusTooManyRequests, "Rate limit exceeded")
			}
			return next(c)
		}
	}
}
