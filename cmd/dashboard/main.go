package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/rag-monitor/dashboard/internal/aggregate"
	"github.com/rag-monitor/dashboard/internal/api"
	"github.com/rag-monitor/dashboard/internal/backend"
	"github.com/rag-monitor/dashboard/internal/cache"
	"github.com/rag-monitor/dashboard/internal/cache/redis"
	"github.com/rag-monitor/dashboard/internal/dashboard"
	"github.com/rag-monitor/dashboard/internal/metrics"
	"github.com/rag-monitor/dashboard/internal/middleware/ratelimit"
	"github.com/rag-monitor/dashboard/internal/middleware/requestid"
	"github.com/rag-monitor/dashboard/internal/middleware/security"
	"github.com/rag-monitor/dashboard/pkg/config"
	appLogger "github.com/rag-monitor/dashboard/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting RAG usage dashboard server")

	metrics.Register()

	var store cache.Store
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		store = redisClient
		appLogger.Info("Using Redis cache",
			zap.String("host", cfg.Redis.Host),
			zap.Int("port", cfg.Redis.Port),
		)
	} else {
		store = cache.NewMemory()
		appLogger.Info("Using in-memory cache")
	}

	trustURL := ""
	if cfg.Trust.Enabled {
		trustURL = cfg.Trust.BaseURL
	}
	backendClient := backend.NewClient(cfg.Backend.BaseURL, trustURL, cfg.Backend.Timeout(), time.Local)

	aggregator := aggregate.New(time.Local, nil)
	service := dashboard.NewService(backendClient, aggregator, store, cfg)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	})

	limiter := ratelimit.New(cfg.Server.RatePerMinute)
	defer limiter.Stop()

	app.Use(recover.New())
	app.Use(requestid.Middleware())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins(cfg.Server.AllowedOrigins),
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IsDevelopment:  cfg.Server.Development,
	}))
	app.Use(limiter.Middleware())

	api.Register(app, service)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}

func corsOrigins(origins []string) string {
	if len(origins) == 0 {
		return "*"
	}
	out := ""
	for i, origin := range origins {
		if i > 0 {
			out += ", "
		}
		out += origin
	}
	return out
}
