package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jarvis4every1/subscription-backend/internal/services"
	"github.com/jarvis4every1/subscription-backend/pkg/logger"
	"github.com/jarvis4every1/subscription-backend/pkg/res"
)

// SubscriptionHandler обрабатывает HTTP запросы, связанные с подписками.
type SubscriptionHandler struct {
	service services.SubscriptionService
	log     *logger.Logger
}

// NewSubscriptionHandler создает новый экземпляр SubscriptionHandler.
func NewSubscriptionHandler(service services.SubscriptionService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: service,
		log:     log,
	}
}

// GetCurrent обрабатывает GET /api/subscriptions/me
func (h *SubscriptionHandler) GetCurrent(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := contextUserID(c, h.log)
	if !ok {
		return
	}

	sub, err := h.service.GetCurrent(ctx, userID)
	if err != nil {
		if errors.Is(err, services.ErrSubscriptionNotFound) {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Subscription not found"}, http.StatusNotFound)
		} else {
			h.log.Errorw("Service failed to get current subscription", "error", err, "userID", userID)
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to retrieve subscription"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	res.JsonResponse(c.Writer, sub, http.StatusOK)
}

// Cancel обрабатывает POST /api/subscriptions/cancel
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := contextUserID(c, h.log)
	if !ok {
		return
	}

	if err := h.service.Cancel(ctx, userID); err != nil {
		if errors.Is(err, services.ErrSubscriptionNotFound) {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Subscription not found"}, http.StatusNotFound)
		} else {
			h.log.Errorw("Service failed to cancel subscription", "error", err, "userID", userID)
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to cancel subscription"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	res.JsonResponse(c.Writer, res.MessageResponse{Message: "Subscription cancelled successfully"}, http.StatusOK)
}
