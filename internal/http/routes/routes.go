package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jarvis4every1/subscription-backend/internal/app"
	"github.com/jarvis4every1/subscription-backend/pkg/logger"
)

// SetupRoutes настраивает все маршруты API для Gin роутера
func SetupRoutes(router *gin.Engine, app *app.App, registry *prometheus.Registry, log *logger.Logger) {
	// Промежуточное ПО для всех запросов
	router.Use(app.LoggerMiddleware)
	router.Use(gin.Recovery())

	// Метрики Prometheus
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Группа API
	api := router.Group("/api")
	{
		// Публичные маршруты (без аутентификации)
		// Обработчик вебхуков Razorpay
		api.POST("/webhooks/razorpay", app.WebhookHandler.HandleRazorpayWebhook)

		// Здоровье сервиса
		api.GET("/health", app.HealthHandler)

		// Защищенные маршруты (требуют аутентификации)
		auth := api.Group("")
		auth.Use(app.AuthMiddleware.RequireAuth())

		// Платежи
		payments := auth.Group("/payments")
		{
			payments.POST("/order", app.PaymentHandler.CreateOrder)
			payments.POST("/verify", app.PaymentHandler.VerifyPayment)
			payments.GET("/:order_id", app.PaymentHandler.GetPayment)
		}

		// Подписки
		subscriptions := auth.Group("/subscriptions")
		{
			subscriptions.GET("/me", app.SubscriptionHandler.GetCurrent)
			subscriptions.POST("/cancel", app.SubscriptionHandler.Cancel)
		}

		// Защищенный файл
		auth.GET("/download", app.DownloadHandler.Download)

		// Админские маршруты
		admin := api.Group("/admin")
		admin.Use(app.AuthMiddleware.RequireAdmin())
		{
			admin.GET("/users", app.AdminHandler.ListUsers)
			admin.DELETE("/users/:user_id", app.AdminHandler.DeleteUser)
			admin.POST("/users/:user_id/subscription", app.AdminHandler.GrantSubscription)
			admin.POST("/users/:user_id/subscription/extend", app.AdminHandler.ExtendSubscription)
			admin.DELETE("/users/:user_id/subscription", app.AdminHandler.CancelSubscription)
			admin.GET("/subscriptions", app.AdminHandler.ListSubscriptions)
			admin.GET("/payments", app.AdminHandler.ListPayments)
		}
	}

	log.Infow("API routes successfully configured")
}
