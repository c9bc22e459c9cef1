package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"practice-hub/handlers"
	"practice-hub/middleware"
	"practice-hub/models"
	"practice-hub/services"
	"practice-hub/utils"
	"practice-hub/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	logger, err := utils.NewLogger(cfg.LogMode)
	if err != nil {
		log.Fatal("failed to build logger: ", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}

	store := services.NewGormStore(db)
	if err := store.AutoMigrate(); err != nil {
		logger.Fatal("failed to migrate database", "error", err)
	}
	if err := store.SeedBadges(ctx, models.DefaultBadges); err != nil {
		logger.Fatal("failed to seed badge catalog", "error", err)
	}

	clock, err := services.NewSiteClock(cfg.SiteTimezone)
	if err != nil {
		logger.Fatal("invalid site timezone", "timezone", cfg.SiteTimezone, "error", err)
	}

	var locker services.UserLocker = services.NewLocalLocker()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("invalid REDIS_URL", "error", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to reach redis", "error", err)
		}
		defer rdb.Close()
		locker = services.NewRedisLocker(rdb, logger)
		logger.Info("using redis user locks")
	}

	var notifier services.Notifier = services.NoopNotifier{}
	if cfg.CRMWebhookURL != "" {
		notifier = services.NewCRMWebhookNotifier(cfg.CRMWebhookURL, cfg.CRMWebhookToken)
		logger.Info("badge notifications enabled", "url", cfg.CRMWebhookURL)
	}

	progression := services.NewProgressionService(services.Dependencies{
		Stats:    store,
		Sessions: store,
		Catalog:  store,
		Awards:   store,
		Ledger:   store,
		Notifier: notifier,
		Locker:   locker,
		Clock:    clock,
		Logger:   logger,
		Config: services.ProgressionConfig{
			SessionPageSize:  cfg.SessionPageSize,
			ShieldGemCost:    cfg.ShieldGemCost,
			MaxStreakShields: cfg.MaxStreakShields,
		},
	})

	var uploader workers.ReportUploader
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Client(ctx, cfg.R2)
		if err != nil {
			logger.Fatal("failed to initialize R2 client", "error", err)
		}
		uploader = r2
	}
	auditWorker := workers.NewLedgerAuditWorker(progression, uploader, cfg.LedgerAuditInterval, logger)
	if err := auditWorker.Start(ctx); err != nil {
		logger.Fatal("failed to start ledger audit worker", "error", err)
	}

	app := fiber.New()
	app.Use(recover.New())
	// 🔐 GLOBAL: Only Gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken, logger))
	handlers.SetupProgressionRoutes(app, progression, store, logger)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server error", "error", err)
		}
	}()

	logger.Info("✅ Server running", "port", cfg.Port, "timezone", cfg.SiteTimezone)

	<-ctx.Done()
	logger.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("server shutdown", "error", err)
	}
	progression.Drain()
}
