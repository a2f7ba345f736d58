package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/ascendedtech/techlab-server/internal/config"
	"github.com/ascendedtech/techlab-server/internal/database"
	"github.com/ascendedtech/techlab-server/internal/email"
	"github.com/ascendedtech/techlab-server/internal/handler"
	"github.com/ascendedtech/techlab-server/internal/middleware"
	"github.com/ascendedtech/techlab-server/internal/queue"
	"github.com/ascendedtech/techlab-server/internal/repository"
	"github.com/ascendedtech/techlab-server/internal/router"
	"github.com/ascendedtech/techlab-server/internal/service"
	"github.com/ascendedtech/techlab-server/internal/store"
)

func main() {
	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		log.Fatalf("migrate: %v", err)
	}
	cancel()

	st := store.New(db)

	users := repository.NewUserRepo(st)
	verifications := repository.NewVerificationRepo(st)
	sessions := repository.NewSessionRepo(st)
	audit := repository.NewAuditRepo(st)
	progress := repository.NewProgressRepo(st, db)
	badges := repository.NewBadgeRepo(st, db)
	analytics := repository.NewAnalyticsRepo(db)

	var sender email.Sender
	if cfg.DebugEmail {
		sender = email.NoopSender{}
		log.Println("email: DEBUG_EMAIL set, verification codes will be logged, not sent")
	} else {
		sender = email.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
	}

	events := service.NewEventPublisher()

	rdb := config.NewRedisClient() // nil when Redis is absent; limiter and cache degrade
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)

	// Background consumer keeps the flat event log current.
	go func() {
		if err := queue.StartEventConsumer(); err != nil {
			log.Printf("event consumer stopped: %v", err)
		}
	}()

	authH := handler.NewAuthHandler(cfg, users, verifications, sender, events)
	adminH := handler.NewAdminHandler(cfg.SecretKey, users, sessions, audit, progress, badges)
	userH := handler.NewUserHandler(users)
	progressH := handler.NewProgressHandler(users, progress, badges, events)
	analyticsH := handler.NewAnalyticsHandler(analytics, rdb)
	healthH := handler.NewHealthHandler(db)

	e := echo.New()
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	router.RegisterHealth(e, healthH)
	router.RegisterAuth(e, authH, limiter)
	router.RegisterUsers(e, userH, progressH)
	router.RegisterAdmin(e, adminH, analyticsH, cfg.SecretKey, sessions, users, limiter, cache)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
