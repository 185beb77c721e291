package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jarvis4every1/subscription-backend/internal/services"
	"github.com/jarvis4every1/subscription-backend/pkg/logger"
	"github.com/jarvis4every1/subscription-backend/pkg/req"
	"github.com/jarvis4every1/subscription-backend/pkg/res"
)

// AdminHandler обрабатывает админские HTTP запросы.
type AdminHandler struct {
	userService    services.UserService
	subService     services.SubscriptionService
	paymentService services.PaymentService
	log            *logger.Logger
}

// NewAdminHandler создает новый экземпляр AdminHandler.
func NewAdminHandler(
	userService services.UserService,
	subService services.SubscriptionService,
	paymentService services.PaymentService,
	log *logger.Logger,
) *AdminHandler {
	return &AdminHandler{
		userService:    userService,
		subService:     subService,
		paymentService: paymentService,
		log:            log,
	}
}

type GrantSubscriptionRequest struct {
	Months int `json:"months" validate:"required,gt=0"`
}

// pagination разбирает skip/limit из query string.
func pagination(c *gin.Context) (int, int) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		skip = 0
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		limit = 100
	}
	return skip, limit
}

// ListUsers обрабатывает GET /api/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()
	skip, limit := pagination(c)

	users, err := h.userService.GetAllWithSubscriptions(ctx, skip, limit)
	if err != nil {
		h.log.Errorw("Service failed to list users", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to retrieve users"}, http.StatusInternalServerError)
		c.Abort()
		return
	}

	res.JsonResponse(c.Writer, users, http.StatusOK)
}

// ListSubscriptions обрабатывает GET /api/admin/subscriptions
func (h *AdminHandler) ListSubscriptions(c *gin.Context) {
	ctx := c.Request.Context()
	skip, limit := pagination(c)

	subs, err := h.subService.GetAll(ctx, skip, limit)
	if err != nil {
		h.log.Errorw("Service failed to list subscriptions", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to retrieve subscriptions"}, http.StatusInternalServerError)
		c.Abort()
		return
	}

	res.JsonResponse(c.Writer, subs, http.StatusOK)
}

// ListPayments обрабатывает GET /api/admin/payments
func (h *AdminHandler) ListPayments(c *gin.Context) {
	ctx := c.Request.Context()
	skip, limit := pagination(c)

	payments, err := h.paymentService.GetAll(ctx, skip, limit)
	if err != nil {
		h.log.Errorw("Service failed to list payments", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to retrieve payments"}, http.StatusInternalServerError)
		c.Abort()
		return
	}

	res.JsonResponse(c.Writer, payments, http.StatusOK)
}

// GrantSubscription обрабатывает POST /api/admin/users/:user_id/subscription
// Выдает подписку без оплаты.
func (h *AdminHandler) GrantSubscription(c *gin.Context) {
	ctx := c.Request.Context()
	targetUserID := c.Param("user_id")

	requestBody, err := req.Decode[GrantSubscriptionRequest](c.Request.Body)
	if err != nil {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid request format"}, http.StatusUnprocessableEntity)
		c.Abort()
		return
	}
	if err := req.IsValid(requestBody); err != nil {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid request data", Details: err.Error()}, http.StatusUnprocessableEntity)
		c.Abort()
		return
	}

	sub, err := h.subService.ActivateWithoutPayment(ctx, targetUserID, requestBody.Months)
	if err != nil {
		h.log.Errorw("Service failed to grant subscription", "error", err, "targetUserID", targetUserID)
		if errors.Is(err, services.ErrValidation) {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid user id or months", Details: err.Error()}, http.StatusBadRequest)
		} else {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to grant subscription"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	res.JsonResponse(c.Writer, sub, http.StatusCreated)
}

// ExtendSubscription обрабатывает POST /api/admin/users/:user_id/subscription/extend
func (h *AdminHandler) ExtendSubscription(c *gin.Context) {
	ctx := c.Request.Context()
	targetUserID := c.Param("user_id")

	requestBody, err := req.Decode[GrantSubscriptionRequest](c.Request.Body)
	if err != nil {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid request format"}, http.StatusUnprocessableEntity)
		c.Abort()
		return
	}
	if err := req.IsValid(requestBody); err != nil {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid request data", Details: err.Error()}, http.StatusUnprocessableEntity)
		c.Abort()
		return
	}

	sub, err := h.subService.Extend(ctx, targetUserID, requestBody.Months)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSubscriptionNotFound):
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "No active subscription to extend"}, http.StatusNotFound)
		case errors.Is(err, services.ErrValidation):
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid user id or months", Details: err.Error()}, http.StatusBadRequest)
		default:
			h.log.Errorw("Service failed to extend subscription", "error", err, "targetUserID", targetUserID)
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to extend subscription"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	res.JsonResponse(c.Writer, sub, http.StatusOK)
}

// CancelSubscription обрабатывает DELETE /api/admin/users/:user_id/subscription
func (h *AdminHandler) CancelSubscription(c *gin.Context) {
	ctx := c.Request.Context()
	targetUserID := c.Param("user_id")

	if err := h.subService.Cancel(ctx, targetUserID); err != nil {
		switch {
		case errors.Is(err, services.ErrSubscriptionNotFound):
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Subscription not found"}, http.StatusNotFound)
		case errors.Is(err, services.ErrValidation):
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid user id"}, http.StatusBadRequest)
		default:
			h.log.Errorw("Service failed to cancel subscription", "error", err, "targetUserID", targetUserID)
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to cancel subscription"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	res.JsonResponse(c.Writer, res.MessageResponse{Message: "Subscription cancelled successfully"}, http.StatusOK)
}

// DeleteUser обрабатывает DELETE /api/admin/users/:user_id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	ctx := c.Request.Context()
	targetUserID := c.Param("user_id")

	if err := h.userService.Delete(ctx, targetUserID); err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "User not found"}, http.StatusNotFound)
		case errors.Is(err, services.ErrValidation):
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid user id"}, http.StatusBadRequest)
		default:
			h.log.Errorw("Service failed to delete user", "error", err, "targetUserID", targetUserID)
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to delete user"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	res.JsonResponse(c.Writer, res.MessageResponse{Message: "User deleted successfully"}, http.StatusOK)
}
