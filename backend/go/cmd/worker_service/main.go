package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scale/backend/go/internal/config"
	"scale/backend/go/internal/database/kafka"
	"scale/backend/go/internal/database/mysql"
	"scale/backend/go/internal/database/redis"
	"scale/backend/go/internal/models"
	"scale/backend/go/internal/resultcache"
	"scale/backend/go/internal/summarizer"
	"scale/backend/go/internal/worker_service/consumer"
	"scale/backend/go/internal/worker_service/service"
	"scale/backend/go/internal/worker_service/store"
	scalehttp "scale/backend/go/pkg/http"
	"scale/backend/go/pkg/logger"

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
	serviceLogger := logger.New("worker_service")

	// Connect to MySQL
	db, err := mysql.GetDB(&cfg.Databases.MySQL)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to MySQL")
	}
	serviceLogger.Info("Database connection established")

	// Connect to Redis (terminal-result cache)
	rdb, err := redis.GetClient(&cfg.Databases.Redis)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to Redis")
	}

	// Ensure the dispatch topic exists before consuming
	kafkaClient, err := kafka.GetClient(&cfg.Databases.Kafka)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to initialize Kafka client")
	}

	// HTTP client with circuit breaker for transcript fetches
	httpClient, err := scalehttp.NewClient(cfg.CircuitBreaker)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to create HTTP client")
	}

	// Create components with logger injection
	workerStore := store.NewStore(db)
	cache := resultcache.New(rdb, time.Duration(cfg.Gateway.ResultCacheTTL)*time.Second)
	taskSummarizer := summarizer.New(cfg.Summarizer, httpClient, serviceLogger)
	workerService := service.NewService(workerStore, taskSummarizer, cache, serviceLogger)
	taskConsumer := consumer.NewTaskConsumer(
		cfg.Databases.Kafka.Brokers,
		cfg.Databases.Kafka.TasksTopic,
		cfg.Databases.Kafka.GroupID,
		time.Duration(cfg.Worker.ReconnectDelay)*time.Second,
		serviceLogger,
	)

	ctx, cancel := context.WithCancel(context.Background())

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		serviceLogger.Info("Shutting down worker...")
		cancel()
	}()

	serviceLogger.Info("Worker started. Waiting for messages.")
	taskConsumer.Run(ctx, workerService.HandleMessage)

	if err := taskConsumer.Close(); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing Kafka consumer")
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

	serviceLogger.Info("Worker gracefully stopped")
}
