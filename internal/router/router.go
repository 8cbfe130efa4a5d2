// Package router wires handlers, auth and rate limiting onto the Echo
// instance. Routes are grouped by rate-limit budget; authentication is
// applied per route because several message endpoints are anonymous.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/kisara-app/kisara-api/internal/config"
	"github.com/kisara-app/kisara-api/internal/handler"
	"github.com/kisara-app/kisara-api/internal/middleware"
	"github.com/kisara-app/kisara-api/internal/model"
)

// Deps carries everything route registration needs.
type Deps struct {
	Cfg      config.Config
	RateCfg  config.RateLimitConfig
	Redis    *redis.Client
	Users    middleware.UserLoader
	Auth     *handler.AuthHandler
	Messages *handler.MessageHandler
	Notifs   *handler.NotificationHandler
	Profile  *handler.UserHandler
	Stats    *handler.StatsHandler
}

// Register mounts every route. The request-start middleware runs first so
// the response envelope can report execution time for all routes,
// including rate-limited rejections.
func Register(e *echo.Echo, d Deps) {
	e.Use(middleware.RequestStart())

	jwt := middleware.JWTAuth(d.Cfg.JWTSecret, d.Users)
	anyRole := middleware.RequireRole(model.RoleUser, model.RolePartner, model.RoleBot, model.RoleAdmin)

	e.GET("/healthz", handler.Health)

	// Auth group: 10 requests/min per IP.
	auth := e.Group("/auth/google", middleware.RateLimit(d.RateCfg, d.Redis, config.GroupAuth))
	auth.GET("/url", d.Auth.GoogleURL)
	auth.POST("/callback", d.Auth.GoogleCallback)
	auth.POST("/mobile", d.Auth.GoogleMobile)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.POST("/logout", d.Auth.Logout)

	// Message group: 30 requests/min per IP. Posting and reading are
	// anonymous; mutation of existing messages requires the recipient.
	msg := e.Group("/message", middleware.RateLimit(d.RateCfg, d.Redis, config.GroupMessage))
	msg.POST("/:link_id", d.Messages.Post)
	msg.GET("/:link_id", d.Messages.List)
	msg.GET("/:link_id/:message_id", d.Messages.ListReplies)
	msg.DELETE("/:link_id/:message_id", d.Messages.Delete, jwt, anyRole)
	msg.POST("/:link_id/:message_id", d.Messages.Reply, jwt, anyRole)
	msg.DELETE("/:link_id/:message_id/:reply_id", d.Messages.DeleteReply, jwt, anyRole)
	msg.PUT("/:link_id/:message_id/like", d.Messages.Like, jwt, anyRole)

	// User group: 5 requests/min per IP.
	user := e.Group("/user", middleware.RateLimit(d.RateCfg, d.Redis, config.GroupUser), jwt, anyRole)
	user.GET("", d.Profile.Profile)
	user.PUT("", d.Profile.UpdateName)

	// Notification group: 20 requests/min per IP.
	notif := e.Group("/notifications", middleware.RateLimit(d.RateCfg, d.Redis, config.GroupNotification), jwt, anyRole)
	notif.POST("/fcm-token", d.Notifs.RegisterToken)
	notif.GET("/settings", d.Notifs.GetSettings)
	notif.PUT("/settings", d.Notifs.UpdateSettings)

	// Everything else shares the default budget of 100 requests/min.
	e.GET("/stats", d.Stats.Stats, middleware.RateLimit(d.RateCfg, d.Redis, config.GroupDefault))
}
