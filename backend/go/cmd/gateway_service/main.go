package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scale/backend/go/internal/config"
	"scale/backend/go/internal/database/kafka"
	"scale/backend/go/internal/database/mysql"
	"scale/backend/go/internal/database/redis"
	"scale/backend/go/internal/gateway_service/api"
	"scale/backend/go/internal/gateway_service/publisher"
	"scale/backend/go/internal/gateway_service/service"
	"scale/backend/go/internal/gateway_service/store"
	"scale/backend/go/internal/models"
	"scale/backend/go/internal/resultcache"
	"scale/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("backend/go/internal/config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logLevel, err := logrus.ParseLevel(cfg.Logger.Level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.Init(logLevel)
	serviceLogger := logger.New("gateway_service")

	// Connect to MySQL and migrate the schema
	db, err := mysql.GetDB(&cfg.Databases.MySQL)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to MySQL")
	}
	if err := db.AutoMigrate(&models.User{}, &models.Task{}); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Database migration failed")
	}
	serviceLogger.Info("Database connection established")

	// Connect to Redis (terminal-result cache)
	rdb, err := redis.GetClient(&cfg.Databases.Redis)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to Redis")
	}

	// Ensure the dispatch topic exists
	kafkaClient, err := kafka.GetClient(&cfg.Databases.Kafka)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to initialize Kafka client")
	}

	// Make sure the upload directory exists before accepting files
	if err := os.MkdirAll(cfg.Gateway.UploadDir, 0o755); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to create upload directory")
	}

	// Create components with logger injection (Store -> Service -> Handler)
	gatewayStore := store.NewStore(db)
	taskPublisher := publisher.NewTaskPublisher(cfg.Databases.Kafka.Brokers, cfg.Databases.Kafka.TasksTopic, serviceLogger)
	cache := resultcache.New(rdb, time.Duration(cfg.Gateway.ResultCacheTTL)*time.Second)
	gatewayService := service.NewService(
		gatewayStore, gatewayStore, taskPublisher, cache,
		cfg.Auth.JwtSecret,
		time.Duration(cfg.Gateway.AwaitTimeout)*time.Second,
		time.Duration(cfg.Gateway.PollInterval)*time.Second,
		serviceLogger,
	)
	apiHandler := api.NewHandler(gatewayService, cfg.Gateway.UploadDir, serviceLogger)

	// Setup HTTP server
	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(apiHandler, cfg.Auth.JwtSecret)

	srv := &http.Server{
		Addr:    cfg.Gateway.ServerAddress,
		Handler: router,
	}

	// Start server
	go func() {
		serviceLogger.Info("Starting HTTP server on " + srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("HTTP server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	serviceLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Server forced to shutdown")
	}

	if err := taskPublisher.Close(); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing Kafka publisher")
	}
	if err := kafkaClient.Close(); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing Kafka client")
	}
	if err := redis.Close(); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing Redis connection")
	}
	if err := mysql.Close(); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing MySQL connection")
	}

	serviceLogger.Info("Server gracefully stopped")
}
