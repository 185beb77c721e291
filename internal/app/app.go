package app

import (
	"github.com/gin-gonic/gin"

	"github.com/jarvis4every1/subscription-backend/internal/config"
	"github.com/jarvis4every1/subscription-backend/internal/http/handlers"
	"github.com/jarvis4every1/subscription-backend/internal/middleware"
	"github.com/jarvis4every1/subscription-backend/internal/services"
	"github.com/jarvis4every1/subscription-backend/pkg/logger"
)

// App представляет собой контейнер для всех компонентов приложения
type App struct {
	Config              *config.Config
	PaymentHandler      *handlers.PaymentHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	WebhookHandler      *handlers.WebhookHandler
	AdminHandler        *handlers.AdminHandler
	DownloadHandler     *handlers.DownloadHandler
	HealthHandler       gin.HandlerFunc
	AuthMiddleware      *middleware.JWTMiddleware
	LoggerMiddleware    gin.HandlerFunc
	Logger              *logger.Logger
}

// Services группирует сервисный слой для передачи в NewApp
type Services struct {
	Payment      services.PaymentService
	Subscription services.SubscriptionService
	Webhook      services.WebhookService
	User         services.UserService
}

// NewApp создает и инициализирует новый экземпляр приложения
func NewApp(cfg *config.Config, svc Services, validator middleware.TokenValidator, log *logger.Logger) *App {
	paymentHandler := handlers.NewPaymentHandler(svc.Payment, log)
	subscriptionHandler := handlers.NewSubscriptionHandler(svc.Subscription, log)
	webhookHandler := handlers.NewWebhookHandler(svc.Webhook, log)
	adminHandler := handlers.NewAdminHandler(svc.User, svc.Subscription, svc.Payment, log)
	downloadHandler := handlers.NewDownloadHandler(svc.Subscription, cfg.Download.FilePath, log)

	authMiddleware := middleware.NewJWTMiddleware(log, validator)
	loggerMiddleware := middleware.RequestLogger(log)

	return &App{
		Config:              cfg,
		PaymentHandler:      paymentHandler,
		SubscriptionHandler: subscriptionHandler,
		WebhookHandler:      webhookHandler,
		AdminHandler:        adminHandler,
		DownloadHandler:     downloadHandler,
		HealthHandler:       handlers.Health,
		AuthMiddleware:      authMiddleware,
		LoggerMiddleware:    loggerMiddleware,
		Logger:              log,
	}
}
