package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jarvis4every1/subscription-backend/internal/middleware"
	"github.com/jarvis4every1/subscription-backend/internal/services"
	"github.com/jarvis4every1/subscription-backend/pkg/logger"
	"github.com/jarvis4every1/subscription-backend/pkg/req"
	"github.com/jarvis4every1/subscription-backend/pkg/res"
)

// PaymentHandler обрабатывает HTTP запросы, связанные с платежами.
type PaymentHandler struct {
	service services.PaymentService
	log     *logger.Logger
}

// NewPaymentHandler создает новый экземпляр PaymentHandler.
func NewPaymentHandler(service services.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log,
	}
}

// --- DTO ---

type CreateOrderRequest struct {
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Currency string  `json:"currency" validate:"omitempty,inr"`
	Email    string  `json:"email" validate:"required,email"`
}

type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

// contextUserID достает идентификатор пользователя, положенный auth middleware.
func contextUserID(c *gin.Context, log *logger.Logger) (string, bool) {
	userID, exists := c.Get(string(middleware.ContextUserIDKey))
	if !exists {
		// Этого не должно произойти, если middleware отработал правильно
		log.Errorw("UserID not found in context after auth middleware")
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Internal server error"}, http.StatusInternalServerError)
		c.Abort()
		return "", false
	}
	return userID.(string), true
}

// CreateOrder обрабатывает POST /api/payments/order
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := contextUserID(c, h.log)
	if !ok {
		return
	}

	requestBody, err := req.Decode[CreateOrderRequest](c.Request.Body)
	if err != nil {
		h.log.Errorw("Failed to decode order request body", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid request format"}, http.StatusUnprocessableEntity)
		c.Abort()
		return
	}

	if err := req.IsValid(requestBody); err != nil {
		h.log.Errorw("Order request validation failed", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid request data", Details: err.Error()}, http.StatusUnprocessableEntity)
		c.Abort()
		return
	}

	output, err := h.service.CreateOrder(ctx, services.CreateOrderInput{
		UserID: userID,
		Email:  requestBody.Email,
		Amount: requestBody.Amount,
	})
	if err != nil {
		h.log.Errorw("Service failed to create order", "error", err, "userID", userID)
		switch {
		case errors.Is(err, services.ErrValidation):
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid order data", Details: err.Error()}, http.StatusBadRequest)
		case errors.Is(err, services.ErrGatewayUnavailable):
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Payment gateway is temporarily unavailable"}, http.StatusServiceUnavailable)
		default:
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to create order"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	res.JsonResponse(c.Writer, output, http.StatusCreated)
}

// VerifyPayment обрабатывает POST /api/payments/verify
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := contextUserID(c, h.log)
	if !ok {
		return
	}

	requestBody, err := req.Decode[VerifyPaymentRequest](c.Request.Body)
	if err != nil {
		h.log.Errorw("Failed to decode verify request body", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid request format"}, http.StatusUnprocessableEntity)
		c.Abort()
		return
	}

	if err := req.IsValid(requestBody); err != nil {
		h.log.Errorw("Verify request validation failed", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid request data", Details: err.Error()}, http.StatusUnprocessableEntity)
		c.Abort()
		return
	}

	sub, err := h.service.VerifyPayment(ctx, services.VerifyPaymentInput{
		UserID:            userID,
		RazorpayOrderID:   requestBody.RazorpayOrderID,
		RazorpayPaymentID: requestBody.RazorpayPaymentID,
		RazorpaySignature: requestBody.RazorpaySignature,
	})
	if err != nil {
		h.log.Warnw("Payment verification failed", "error", err, "orderID", requestBody.RazorpayOrderID, "userID", userID)
		switch {
		case errors.Is(err, services.ErrPaymentNotFound):
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Payment not found"}, http.StatusNotFound)
		case errors.Is(err, services.ErrForbidden):
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Payment belongs to another user"}, http.StatusForbidden)
		case errors.Is(err, services.ErrInvalidSignature):
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid payment signature"}, http.StatusBadRequest)
		case errors.Is(err, services.ErrValidation):
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid verification data", Details: err.Error()}, http.StatusBadRequest)
		default:
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to verify payment"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	res.JsonResponse(c.Writer, sub, http.StatusOK)
}

// GetPayment обрабатывает GET /api/payments/:order_id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	ctx := c.Request.Context()
	orderID := c.Param("order_id")

	userID, ok := contextUserID(c, h.log)
	if !ok {
		return
	}

	payment, err := h.service.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, services.ErrPaymentNotFound) {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Payment not found"}, http.StatusNotFound)
		} else {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to retrieve payment"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	// Чужие платежи не показываем.
	if payment.UserID == nil || payment.UserID.String() != userID {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Payment belongs to another user"}, http.StatusForbidden)
		c.Abort()
		return
	}

	res.JsonResponse(c.Writer, payment, http.StatusOK)
}
