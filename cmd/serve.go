package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"spot-the-difference/cache"
	"spot-the-difference/config"
	"spot-the-difference/generator"
	"spot-the-difference/handlers"
	"spot-the-difference/metrics"
	"spot-the-difference/middleware"
	"spot-the-difference/services"
	"spot-the-difference/utils"
	"spot-the-difference/workers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := cfg.App.NewLogger()
	slog.SetDefault(logger)
	m := metrics.New()

	db, err := services.OpenDatabase(cfg.DB.DSN)
	if err != nil {
		return err
	}
	if err := services.Migrate(db); err != nil {
		return err
	}

	store, err := utils.NewR2Store(ctx, cfg.R2)
	if err != nil {
		return fmt.Errorf("failed to initialize R2 client: %w", err)
	}

	var gen generator.Generator
	if g, err := generator.NewGemini(ctx, cfg.Gemini.APIKey, utils.HTTPClient, logger); err != nil {
		logger.Warn("⚠️  Image generation disabled", "error", err)
	} else {
		gen = g
	}

	quota := services.NewQuotaService(db, cfg.Quota.UserGameQuota, cfg.Quota.AppGameQuota, logger, m)
	games := services.NewGameService(db, quota, store, gen, logger, m)
	plays := services.NewPlayService(db, nil, logger, m)
	users := services.NewUserService(db, logger)
	leaderboard := services.NewLeaderboardService(db, nil, cfg.Leaderboard.Size, logger)

	if cfg.Redis.URL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()

		mirror := cache.NewLeaderboard(client)
		plays.Mirror = mirror
		leaderboard.Mirror = mirror

		interval := time.Duration(cfg.Leaderboard.SyncSeconds) * time.Second
		workers.NewLeaderboardSyncWorker(leaderboard, mirror, interval, logger, m).Start(ctx)
	} else {
		logger.Info("REDIS_URL not set, leaderboard served from the database only")
	}

	if cfg.Profiles.URL != "" {
		interval := time.Duration(cfg.Profiles.IntervalSeconds) * time.Second
		workers.NewProfileSyncWorker(users, cfg.Profiles.URL, cfg.Profiles.Path, cfg.App.GatewayToken, interval, logger).Start(ctx)
	}

	sched, err := quota.StartQuotaScheduler(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sched.Shutdown() }()

	app := newApp(cfg, db, m, logger, handlers.Routes{
		Games:       &handlers.GameHandler{Games: games, Plays: plays, Logger: logger},
		Users:       &handlers.UserHandler{Users: users, Quota: quota, Games: games, Logger: logger},
		Leaderboard: &handlers.LeaderboardHandler{Leaderboard: leaderboard, Logger: logger},
		Generate:    &handlers.GenerateHandler{Generator: gen, Logger: logger},
		Limiter: middleware.NewKeyedRateLimiter(
			middleware.PerMinute(cfg.RateLimit.GeneratePerMinute),
			cfg.RateLimit.GenerateBurst,
		),
		Logger: logger,
	})

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(addr)
	}()

	logger.Info("✅ Server running",
		"addr", addr,
		"user_quota", cfg.Quota.UserGameQuota,
		"app_quota", cfg.Quota.AppGameQuota,
		"origins", cfg.App.AllowedOrigins(),
	)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	return app.ShutdownWithTimeout(10 * time.Second)
}

func newApp(cfg *config.Config, db *gorm.DB, m *metrics.Metrics, logger *slog.Logger, routes handlers.Routes) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: 25 * 1024 * 1024, // two base64 images
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.App.AllowedOrigins(), ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Name",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Probes and scraping bypass the Gateway
	app.Get("/healthz", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			logger.Warn("Health check failed", "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	// 🔐❗ GLOBAL: Only Gateway requests allowed past this point
	app.Use(middleware.GatewayAuthMiddleware(cfg.App.GatewayToken, logger))

	handlers.SetupRoutes(app, routes)
	return app
}
