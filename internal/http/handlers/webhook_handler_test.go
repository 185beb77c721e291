package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarvis4every1/subscription-backend/internal/integration/razorpay"
	"github.com/jarvis4every1/subscription-backend/internal/metrics"
	"github.com/jarvis4every1/subscription-backend/internal/models"
	"github.com/jarvis4every1/subscription-backend/internal/repository"
	"github.com/jarvis4every1/subscription-backend/internal/services"
	"github.com/jarvis4every1/subscription-backend/pkg/logger"
)

const webhookTestSecret = "handler_webhook_secret"

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookTestSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newWebhookTestRouter(t *testing.T) (*gin.Engine, *repository.InMemoryPaymentRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)

	gateway := razorpay.NewClient(razorpay.Config{
		KeyID:         "rzp_test_key",
		KeySecret:     "key_secret",
		WebhookSecret: webhookTestSecret,
	}, log)

	m := metrics.NewPaymentMetrics(prometheus.NewRegistry(), log)
	payments := repository.NewInMemoryPaymentRepository()
	subs := repository.NewInMemorySubscriptionRepository()
	subSvc := services.NewSubscriptionService(subs, nil, m, log)
	webhookSvc := services.NewWebhookService(payments, subSvc, gateway, nil, m, log)

	router := gin.New()
	router.POST("/api/webhooks/razorpay", NewWebhookHandler(webhookSvc, log).HandleRazorpayWebhook)
	return router, payments
}

func capturedBody(t *testing.T, orderID string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"event": "payment.captured",
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":       "pay_h_1",
					"order_id": orderID,
					"status":   "captured",
				},
			},
		},
	})
	require.NoError(t, err)
	return body
}

// TestWebhookHandler_Success - Корректное событие подтверждается 200
func TestWebhookHandler_Success(t *testing.T) {
	router, payments := newWebhookTestRouter(t)
	userID := uuid.New()

	// 1. Подготовка: pending-платеж в хранилище
	require.NoError(t, payments.Create(t.Context(), &models.Payment{
		ID:              uuid.New(),
		UserID:          &userID,
		Email:           "user@example.com",
		PlanID:          models.PlanMonthly,
		Amount:          499,
		Currency:        models.CurrencyINR,
		RazorpayOrderID: "order_h_1",
		Status:          models.PaymentStatusPending,
	}))

	body := capturedBody(t, "order_h_1")

	// 2. Доставляем событие с подписью от сырого тела
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/razorpay", bytes.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", signBody(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// 3. Проверка: 200 и завершенный платеж
	assert.Equal(t, http.StatusOK, w.Code)

	payment, err := payments.GetByOrderID(t.Context(), "order_h_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
}

// TestWebhookHandler_MissingSignature - Без заголовка подписи запрос отклоняется
func TestWebhookHandler_MissingSignature(t *testing.T) {
	router, _ := newWebhookTestRouter(t)
	body := capturedBody(t, "order_h_2")

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/razorpay", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "X-Razorpay-Signature")
}

// TestWebhookHandler_InvalidSignature - Неверная подпись дает 400
func TestWebhookHandler_InvalidSignature(t *testing.T) {
	router, _ := newWebhookTestRouter(t)
	body := capturedBody(t, "order_h_3")

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/razorpay", bytes.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", "bogus")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestWebhookHandler_MalformedPayload - Нечитаемое тело с верной подписью
// дает 500, чтобы Razorpay повторил доставку
func TestWebhookHandler_MalformedPayload(t *testing.T) {
	router, _ := newWebhookTestRouter(t)
	body := []byte("{not json")

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/razorpay", bytes.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", signBody(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// TestWebhookHandler_TamperedBody - Подпись от другого тела дает 400
func TestWebhookHandler_TamperedBody(t *testing.T) {
	router, _ := newWebhookTestRouter(t)
	body := capturedBody(t, "order_h_4")
	tampered := capturedBody(t, "order_h_5")

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/razorpay", bytes.NewReader(tampered))
	req.Header.Set("X-Razorpay-Signature", signBody(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
