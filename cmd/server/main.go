package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/features"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/features/ads"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/features/companies"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/features/messaging"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/features/news"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/jobs"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/storage"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	logging.Setup(cfg.LogLevel)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Promotion plans
	plans, err := catalog.LoadFromFile(cfg.PromotionPlansPath)
	if err != nil {
		slog.Error("failed to load promotion plans", "path", cfg.PromotionPlansPath, "error", err)
		os.Exit(1)
	}
	slog.Info("promotion plans loaded", "plans", len(plans.All()))

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.MigrateShared(); err != nil {
		slog.Error("shared migration failed", "error", err)
		os.Exit(1)
	}

	modules := []features.Module{
		ads.New(),
		companies.New(),
		messaging.New(),
		news.New(),
	}
	for _, m := range modules {
		if models := m.Models(); len(models) > 0 {
			if err := database.MigrateModels(models); err != nil {
				slog.Error("module migration failed", "module", m.ID(), "error", err)
				os.Exit(1)
			}
			slog.Info("module migrated", "module", m.ID(), "models", len(models))
		}
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB, 5*time.Second)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.NewJSONHandler(os.Stdout, cfg.LogLevel),
		pgLogHandler,
	)))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Mail
	var sender services.Sender = services.LogSender{}
	if cfg.SMTPHost != "" {
		smtp, err := services.NewSMTPSender(cfg)
		if err != nil {
			slog.Error("smtp setup failed", "error", err)
			os.Exit(1)
		}
		sender = smtp
	} else {
		slog.Warn("SMTP_HOST not set, emails are logged instead of sent")
	}
	mailService := services.NewMailService(database.DB, sender, cfg.PublicURL)

	// Object storage for ad images
	var store storage.ObjectStore
	s3, err := storage.NewS3Store(cfg)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		slog.Warn("S3_ENDPOINT not set, image uploads are disabled")
	case err != nil:
		slog.Error("object storage setup failed", "error", err)
		os.Exit(1)
	default:
		if err := s3.EnsureBucket(ctx); err != nil {
			slog.Error("object storage bucket check failed", "bucket", cfg.S3Bucket, "error", err)
			os.Exit(1)
		}
		store = s3
	}

	// Realtime relay
	hub := realtime.NewHub()
	var publisher realtime.Publisher = hub
	if cfg.RedisURL != "" {
		client, err := realtime.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		bridge := realtime.NewRedisBridge(client, cfg.RedisChannel, hub)
		publisher = bridge
		go func() {
			if err := bridge.Run(ctx); err != nil {
				slog.Error("realtime redis bridge stopped", "error", err)
			}
		}()
	}

	// Services
	moderationService := services.NewModerationService(database.DB)
	authService := services.NewAuthService(database.DB, cfg, mailService)
	userService := services.NewUserService(database.DB)
	paymentService := services.NewPaymentService(database.DB, plans, services.NewStripeCheckout(cfg), mailService, cfg.StripeWebhookSecret)
	searchService := services.NewSearchService(database.DB)
	adminService := services.NewAdminService(database.DB, authService)

	// Background jobs
	jobs.Every(ctx, "log_retention", 24*time.Hour, logging.RetentionTask(database.DB, cfg.LogRetentionDays))
	jobs.Every(ctx, "promotion_expiry", cfg.PromotionSweepInterval, paymentService.ExpireDue)

	deps := &features.Deps{
		DB:           database.DB,
		Config:       cfg,
		Moderation:   moderationService,
		Mail:         mailService,
		Realtime:     publisher,
		Store:        store,
		Auth:         middleware.JWTProtected(cfg),
		OptionalAuth: middleware.OptionalJWT(cfg),
	}

	h := routes.Handlers{
		Auth:       handlers.NewAuthHandler(authService, cfg),
		Users:      handlers.NewUserHandler(userService),
		Health:     handlers.NewHealthHandler(database.DB, hub),
		Webhook:    handlers.NewWebhookHandler(paymentService),
		Moderation: handlers.NewModerationHandler(moderationService),
		Promotions: handlers.NewPromotionHandler(paymentService),
		Search:     handlers.NewSearchHandler(searchService),
		Admin:      handlers.NewAdminHandler(adminService, mailService),
		Realtime:   realtime.NewHandler(hub, publisher, messaging.NewMembership(database.DB), cfg.JWTSecret, cfg.AuthCookieName),
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    8 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	routes.Setup(app, deps, h, modules, routes.Options{})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	stop()
	hub.Close()
	mailService.Wait()
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
