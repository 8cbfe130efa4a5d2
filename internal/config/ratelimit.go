package config

import "time"

// Route group names used as rate-limit key segments.
const (
	GroupAuth         = "auth"
	GroupMessage      = "message"
	GroupUser         = "user"
	GroupNotification = "notification"
	GroupDefault      = "default"
)

// GroupLimit caps requests for one route group: Capacity requests per
// Window, per client IP.
type GroupLimit struct {
	Capacity int
	Window   time.Duration
}

// RateLimitConfig carries per-group budgets for the redis limiter. When
// Enabled is false or no redis client is available, limiting is skipped
// entirely and requests pass through.
type RateLimitConfig struct {
	Enabled bool
	Prefix  string
	TTL     time.Duration // redis key lifetime, must exceed every window

	Auth         GroupLimit
	Message      GroupLimit
	User         GroupLimit
	Notification GroupLimit
	Default      GroupLimit
}

// LoadRateLimitConfig reads the per-group budgets from the environment.
// The defaults mirror the product policy: auth 10/min, messages 30/min,
// user 5/min, notifications 20/min, everything else 100/min.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:      envBool("RATE_LIMIT_ENABLED", true),
		Prefix:       envStr("RATE_LIMIT_PREFIX", "rl"),
		TTL:          envDur("RATE_LIMIT_TTL", 10*time.Minute),
		Auth:         GroupLimit{Capacity: envInt("RATE_LIMIT_AUTH_PER_MIN", 10), Window: time.Minute},
		Message:      GroupLimit{Capacity: envInt("RATE_LIMIT_MESSAGE_PER_MIN", 30), Window: time.Minute},
		User:         GroupLimit{Capacity: envInt("RATE_LIMIT_USER_PER_MIN", 5), Window: time.Minute},
		Notification: GroupLimit{Capacity: envInt("RATE_LIMIT_NOTIFICATION_PER_MIN", 20), Window: time.Minute},
		Default:      GroupLimit{Capacity: envInt("RATE_LIMIT_DEFAULT_PER_MIN", 100), Window: time.Minute},
	}
	for _, gl := range []*GroupLimit{&cfg.Auth, &cfg.Message, &cfg.User, &cfg.Notification, &cfg.Default} {
		if gl.Capacity < 1 {
			gl.Capacity = 1
		}
	}
	if min := 2 * time.Minute; cfg.TTL < min {
		cfg.TTL = min
	}
	return cfg
}

// Limit returns the budget for a named group, falling back to Default.
func (c RateLimitConfig) Limit(group string) GroupLimit {
	switch group {
	case GroupAuth:
		return c.Auth
	case GroupMessage:
		return c.Message
	case GroupUser:
		return c.User
	case GroupNotification:
		return c.Notification
	}
	return c.Default
}
