package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/config"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/events"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/handlers"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/metrics"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories/memory"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/services"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/utils"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
	"github.com/SAP-F-2025/quiz-attempt-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, user cache disabled", "error", err)
			redisClient = nil
		}
	}

	casdoorConfig := casdoor.CasdoorConfig{
		Endpoint:         cfg.Casdoor.Endpoint,
		ClientID:         cfg.Casdoor.ClientID,
		ClientSecret:     cfg.Casdoor.ClientSecret,
		Certificate:      cfg.Casdoor.Cert,
		OrganizationName: cfg.Casdoor.Organization,
		ApplicationName:  cfg.Casdoor.Application,
	}

	// without a directory the auth middleware builds users from token claims
	var userRepo repositories.UserRepository = memory.NewUserDirectory()
	if cfg.Casdoor.Endpoint != "" {
		userRepo = casdoor.NewUserCasdoor(casdoorConfig, redisClient)
	}

	// Initialize repositories
	var repoManager repositories.RepositoryManager
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		logger.Warn("Using in-memory storage, data is lost on restart")
		repoManager = memory.NewManager(userRepo)
	default:
		db, err := pkg.InitDatabase(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		repoManager = postgres.NewRepositoryManager(postgres.RepositoryConfig{
			DB:             db,
			RedisClient:    redisClient,
			CasdoorConfig:  casdoorConfig,
			UserRepository: userRepo,
		})
	}
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	publisher, err := events.NewEventPublisher(cfg.Events.KafkaBrokers, cfg.Events.TopicPrefix, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}

	metrics.Init()

	// Initialize validator
	validator := validator.New()

	// Initialize services
	serviceManager := services.NewServiceManager(repoManager.GetRepository(), slogLogger, validator, publisher, services.ServiceManagerConfig{
		Clock:         time.Now,
		SweepInterval: cfg.Expiry.SweepInterval,
		SweepBatch:    cfg.Expiry.BatchSize,
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger)

	stopLimiter := make(chan struct{})
	answerLimiter := handlers.NewRateLimiter(cfg.AnswerRateLimit.PerSecond, cfg.AnswerRateLimit.Burst)
	go answerLimiter.Run(stopLimiter)

	auth := handlers.NewCasdoorAuthMiddleware(cfg.Casdoor, userRepo, logger)
	handlerManager := handlers.NewHandlerManager(serviceManager, validator, logger, auth.AuthMiddleware(), answerLimiter)
	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment, "storage", cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	close(stopLimiter)

	// stops the expiry sweeper and flushes the publisher
	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	// closes the database and Redis connections
	if err := repoManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown repositories", "error", err)
	}
	if cfg.StorageDriver == config.StorageDriverMemory && redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("Server exited")
}
