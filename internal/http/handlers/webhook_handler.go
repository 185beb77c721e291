package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jarvis4every1/subscription-backend/internal/services"
	"github.com/jarvis4every1/subscription-backend/pkg/logger"
	"github.com/jarvis4every1/subscription-backend/pkg/res"
)

// Ограничение на размер тела запроса вебхука.
const maxRequestBodySize = int64(65536)

// WebhookHandler обрабатывает входящие вебхуки от Razorpay.
type WebhookHandler struct {
	service services.WebhookService
	log     *logger.Logger
}

// NewWebhookHandler создает новый экземпляр WebhookHandler.
func NewWebhookHandler(service services.WebhookService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log,
	}
}

// HandleRazorpayWebhook - обработчик для Gin, принимающий вебхуки Razorpay.
func (h *WebhookHandler) HandleRazorpayWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	// Подпись считается от сырого тела, поэтому читаем его один раз
	// и передаем сервису как есть.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodySize)
	payload, err := io.ReadAll(c.Request.Body)
	defer c.Request.Body.Close()

	if err != nil {
		h.log.Errorw("Failed to read webhook request body", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Cannot read request body"}, http.StatusBadRequest)
		c.Abort()
		return
	}

	sigHeader := c.GetHeader("X-Razorpay-Signature")
	if sigHeader == "" {
		h.log.Warnw("Missing X-Razorpay-Signature header")
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Missing X-Razorpay-Signature header"}, http.StatusBadRequest)
		c.Abort()
		return
	}

	if err := h.service.HandleEvent(ctx, payload, sigHeader); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidSignature):
			h.log.Warnw("Webhook signature verification failed")
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Webhook signature verification failed"}, http.StatusBadRequest)
		default:
			h.log.Errorw("Error processing webhook event", "error", err)
			// Отвечаем ошибкой сервера, Razorpay попытается доставить повторно.
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Internal server error processing webhook"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	// Отвечаем быстро и без тела, чтобы Razorpay не считал доставку неуспешной.
	c.Status(http.StatusOK)
}
