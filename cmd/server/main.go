package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jarvis4every1/subscription-backend/internal/app"
	"github.com/jarvis4every1/subscription-backend/internal/config"
	"github.com/jarvis4every1/subscription-backend/internal/db"
	"github.com/jarvis4every1/subscription-backend/internal/http/routes"
	"github.com/jarvis4every1/subscription-backend/internal/integration/razorpay"
	"github.com/jarvis4every1/subscription-backend/internal/kafka"
	"github.com/jarvis4every1/subscription-backend/internal/metrics"
	"github.com/jarvis4every1/subscription-backend/internal/middleware"
	"github.com/jarvis4every1/subscription-backend/internal/repository"
	"github.com/jarvis4every1/subscription-backend/internal/services"
	"github.com/jarvis4every1/subscription-backend/pkg/logger"
)

func main() {
	log := initLogger()

	log.Infow("Subscription backend starting up...")

	cfg, err := config.LoadConfig(".env")
	if err != nil {
		log.Fatalw("Failed to load configuration", "error", err)
	}
	if cfg.Auth.JWTSecret == "" || cfg.Auth.JWTSecret == "change-me" {
		log.Warnw("JWT Secret is not set or is using the default placeholder!")
	}
	if cfg.Razorpay.KeyID == "" || cfg.Razorpay.KeyID == "rzp_test_key" {
		log.Warnw("Razorpay key is not set or is using the default placeholder!")
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Отдельный zap-логгер для клиента базы данных.
	zapLog, err := zap.NewProduction()
	if err != nil {
		log.Fatalw("Failed to initialize zap logger", "error", err)
	}
	defer zapLog.Sync()

	dbClient, err := db.NewDBClient(cfg.Database.DSN, zapLog)
	if err != nil {
		log.Fatalw("Failed to connect to database", "error", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Errorw("Error closing database connection", "error", err)
		}
	}()
	log.Infow("Database connection established")

	// Репозитории поверх PostgreSQL.
	baseSubRepo := repository.NewPostgresSubscriptionRepository(dbClient.DB(), log)
	paymentRepo := repository.NewPostgresPaymentRepository(dbClient.DB(), log)
	userRepo := repository.NewPostgresUserRepository(dbClient.DB(), log)

	// Redis кеш. Его недоступность не фатальна, работаем напрямую с базой.
	var subRepo repository.SubscriptionRepository = baseSubRepo
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Warnw("Failed to connect to Redis, continuing without caching", "error", err)
	} else {
		cache := repository.NewRedisCacheRepository(redisClient, log)
		subRepo = repository.NewCachedSubscriptionRepository(baseSubRepo, cache, cfg.Redis.CacheTTL, log)
		log.Infow("Using cached subscription repository")
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Errorw("Error closing Redis connection", "error", err)
			}
		}()
	}

	// Клиент Razorpay.
	gateway := razorpay.NewClient(razorpay.Config{
		KeyID:         cfg.Razorpay.KeyID,
		KeySecret:     cfg.Razorpay.KeySecret,
		WebhookSecret: cfg.Razorpay.WebhookSecret,
	}, log)

	// Kafka Producer. Отправка событий не критична для основного флоу.
	kafkaProducer, err := kafka.NewKafkaProducer(cfg.Kafka.Brokers, log)
	if err != nil {
		log.Errorw("Failed to initialize Kafka producer, continuing without event publishing", "error", err)
		kafkaProducer = nil
	} else {
		log.Infow("Kafka producer initialized")
		defer func() {
			if err := kafkaProducer.Close(); err != nil {
				log.Errorw("Error closing Kafka producer", "error", err)
			}
		}()
	}

	// Метрики Prometheus.
	registry := prometheus.NewRegistry()
	paymentMetrics := metrics.NewPaymentMetrics(registry, log)

	// Сервисный слой.
	subService := services.NewSubscriptionService(subRepo, kafkaProducer, paymentMetrics, log)
	paymentService := services.NewPaymentService(paymentRepo, subService, gateway, kafkaProducer, paymentMetrics, cfg.Subscription.PriceINR, log)
	webhookService := services.NewWebhookService(paymentRepo, subService, gateway, kafkaProducer, paymentMetrics, log)
	userService := services.NewUserService(userRepo, subRepo, paymentRepo, subService, log)

	validator := &middleware.DefaultTokenValidator{
		Secret: []byte(cfg.Auth.JWTSecret),
	}
	application := app.NewApp(cfg, app.Services{
		Payment:      paymentService,
		Subscription: subService,
		Webhook:      webhookService,
		User:         userService,
	}, validator, log)

	router := gin.New()
	routes.SetupRoutes(router, application, registry, log)

	httpServer := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("Starting HTTP server", "port", cfg.App.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("Failed to start HTTP server", "error", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infow("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	log.Infow("Shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown error", "error", err)
	} else {
		log.Infow("HTTP server gracefully stopped")
	}

	log.Infow("Cleanup finished. Goodbye!")
}

// initLogger инициализирует новый логгер
func initLogger() *logger.Logger {
	logLevel := logger.INFO
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = logger.DEBUG
	}
	return logger.New(logLevel)
}
