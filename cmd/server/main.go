package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/kisara-app/kisara-api/internal/auth"
	"github.com/kisara-app/kisara-api/internal/config"
	"github.com/kisara-app/kisara-api/internal/database"
	"github.com/kisara-app/kisara-api/internal/handler"
	"github.com/kisara-app/kisara-api/internal/notify"
	"github.com/kisara-app/kisara-api/internal/queue"
	"github.com/kisara-app/kisara-api/internal/repository"
	"github.com/kisara-app/kisara-api/internal/router"
	"github.com/kisara-app/kisara-api/internal/service/queue_publisher"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load()
	rateCfg := config.LoadRateLimitConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	comments := repository.NewCommentRepo(db)
	replies := repository.NewReplyRepo(db)
	tokens := repository.NewTokenRepo(db)
	settings := repository.NewSettingRepo(db)

	resolver := auth.NewResolver(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)
	sender := notify.NewFCMSender(cfg.FCMEndpoint, cfg.FCMServerKey)
	notifier := notify.NewService(settings, users, sender)
	publisher := queue_publisher.New()

	// Background workers: push consumer and expired-session sweep.
	go queue.StartNotificationConsumer(notifier)
	go purgeExpiredTokens(tokens)

	e := echo.New()
	e.HideBanner = true

	router.Register(e, router.Deps{
		Cfg:      cfg,
		RateCfg:  rateCfg,
		Redis:    rdb,
		Users:    users,
		Auth:     handler.NewAuthHandler(cfg, users, tokens, resolver),
		Messages: handler.NewMessageHandler(users, comments, replies, publisher),
		Notifs:   handler.NewNotificationHandler(notifier),
		Profile:  handler.NewUserHandler(users),
		Stats:    handler.NewStatsHandler(users, comments, replies),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// purgeExpiredTokens deletes expired and revoked refresh tokens once an
// hour so the sessions table does not grow without bound.
func purgeExpiredTokens(tokens *repository.TokenRepo) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		n, err := tokens.PurgeExpired(ctx)
		cancel()
		if err != nil {
			log.Printf("token-sweep: purge failed: %v", err)
			continue
		}
		if n > 0 {
			log.Printf("token-sweep: purged %d expired tokens", n)
		}
	}
}
