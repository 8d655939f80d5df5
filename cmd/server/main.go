package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/client"
	"github.com/foyerhq/home-api/internal/config"
	"github.com/foyerhq/home-api/internal/event"
	"github.com/foyerhq/home-api/internal/handler"
	"github.com/foyerhq/home-api/internal/middleware"
	"github.com/foyerhq/home-api/internal/ratelimit"
	"github.com/foyerhq/home-api/internal/repository"
	"github.com/foyerhq/home-api/internal/service"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logger
	logger, err := createLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Connect to database and apply migrations
	db, err := repository.Connect(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := repository.RunMigrations(cfg.Database.URL(), cfg.Database.MigrationsPath); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize Redis client (if enabled)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logger.Warn("Failed to connect to Redis, running without cache", zap.Error(err))
			redisClient = nil
		} else {
			logger.Info("Connected to Redis", zap.String("address", cfg.Redis.URL))
		}
	}

	// Initialize Kafka publisher (if enabled)
	var publisher *event.Publisher
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		publisher = event.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.ClientID, logger)
		defer publisher.Close()
		logger.Info("Initialized Kafka publisher", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	// Outbound throttle queues, shared by every brokerage call site
	accountQueue := ratelimit.NewQueue("accounts", cfg.RateLimit.AccountInterval, cfg.RateLimit.QueueBuffer, logger)
	marketQueue := ratelimit.NewQueue("markets", cfg.RateLimit.MarketInterval, cfg.RateLimit.QueueBuffer, logger)
	defer accountQueue.Close()
	defer marketQueue.Close()

	// Create repositories
	snapshotRepo := repository.NewSnapshotRepository(db, logger)
	documentRepo := repository.NewDocumentRepository(db, logger)
	credentialRepo := repository.NewCredentialRepository(db, logger)
	energyRepo := repository.NewEnergyRepository(db, logger)

	// Create clients
	questradeClient := client.NewQuestradeClient(cfg.Questrade.LoginURL, cfg.Questrade.Timeout, accountQueue, marketQueue, logger)
	exchangeRateClient := client.NewExchangeRateClient(cfg.ExchangeRate.URL, cfg.ExchangeRate.RatePath, cfg.ExchangeRate.Timeout, logger)
	telegramClient := client.NewTelegramClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.Timeout, logger)
	cameraClient := client.NewCameraClient(cfg.Camera.SnapshotURL, cfg.Camera.Timeout, logger)

	// Create services
	credentialService := service.NewCredentialService(credentialRepo, questradeClient, logger)
	balanceService := service.NewBalanceService(questradeClient, logger)
	refreshService := service.NewRefreshService(
		credentialService,
		balanceService,
		questradeClient,
		snapshotRepo,
		documentRepo,
		exchangeRateClient,
		telegramClient,
		publisher,
		logger,
	)
	dashboardService := service.NewDashboardService(
		snapshotRepo,
		documentRepo,
		credentialService,
		balanceService,
		refreshService,
		redisClient,
		cfg.Cache,
		logger,
	)
	authService := service.NewAuthService(cfg.Auth, logger)
	energyService := service.NewEnergyService(energyRepo, logger)

	// Start the market-hours refresh scheduler
	scheduler := service.NewScheduler(cfg.Schedule, refreshService, logger)
	if err := scheduler.Start(context.Background()); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	// Create HTTP server
	router := setupRouter(
		dashboardService,
		energyService,
		authService,
		cameraClient,
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited properly")
}

func createLogger(level string) (*zap.Logger, error) {
	// Parse log level
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	// Create logger config
	config := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}

func setupRouter(
	dashboardService *service.DashboardService,
	energyService *service.EnergyService,
	authService *service.AuthService,
	cameraClient *client.CameraClient,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()

	// Use middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// ==================== INVESTMENT ROUTES ====================
	investments := router.Group("/investments")
	{
		investmentHandler := handler.NewInvestmentHandler(dashboardService, logger)

		investments.GET("/auth", investmentHandler.Auth)
		investments.GET("/balance", investmentHandler.Balance)
		investments.GET("/balance/force", investmentHandler.ForceBalance)
		investments.GET("/balance/percentage-change", investmentHandler.PercentageChange)
		investments.GET("/dashboard", investmentHandler.Dashboard)
	}

	// ==================== AUTH ROUTES ====================
	auth := router.Group("/auth")
	{
		authHandler := handler.NewAuthHandler(authService, logger)

		auth.POST("/login", authHandler.Login)
	}

	// ==================== PRIVATE ROUTES ====================
	private := router.Group("")
	private.Use(middleware.RequireAuth(authService, logger))
	{
		energyHandler := handler.NewEnergyHandler(energyService, logger)
		cameraHandler := handler.NewCameraHandler(cameraClient, logger)

		private.POST("/energy/readings", energyHandler.Record)
		private.GET("/energy/readings/recent", energyHandler.Recent)
		private.GET("/energy/summary/today", energyHandler.TodaySummary)

		private.GET("/camera/snapshot", cameraHandler.Snapshot)
	}

	return router
}
