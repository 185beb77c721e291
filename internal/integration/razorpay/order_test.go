package razorpay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarvis4every1/subscription-backend/pkg/logger"
)

func newRetryTestClient(baseURL string) *Client {
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)
	c := NewClient(Config{
		KeyID:     "rzp_test_key",
		KeySecret: "key_secret",
		// Короткая базовая пауза, чтобы тест не спал секундами.
		RetryBaseDelay: 10 * time.Millisecond,
	}, log)
	c.SetBaseURL(baseURL)
	return c
}

// TestCreateOrder - Успешное создание заказа
func TestCreateOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Проверяем форму запроса: метод, путь, basic auth
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "key_secret", pass)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(49900), body["amount"])
		assert.Equal(t, "INR", body["currency"])
		assert.Equal(t, float64(1), body["payment_capture"])

		json.NewEncoder(w).Encode(OrderResponse{
			ID:       "order_abc",
			Entity:   "order",
			Amount:   49900,
			Currency: "INR",
			Status:   "created",
		})
	}))
	defer server.Close()

	c := newRetryTestClient(server.URL)

	// 2. Создаем заказ
	order, err := c.CreateOrder(context.Background(), 49900, "INR", "receipt-1")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, int64(49900), order.Amount)
}

// TestCreateOrderWithRetry_TransientFailure - Две ошибки 5xx, затем успех
func TestCreateOrderWithRetry_TransientFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(OrderResponse{ID: "order_retry", Status: "created"})
	}))
	defer server.Close()

	c := newRetryTestClient(server.URL)

	// 1. Третья попытка проходит
	order, err := c.CreateOrderWithRetry(context.Background(), 49900, "INR", "receipt-2")
	require.NoError(t, err)
	assert.Equal(t, "order_retry", order.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

// TestCreateOrderWithRetry_Exhausted - Все попытки отданы, возвращается
// ошибка недоступности
func TestCreateOrderWithRetry_Exhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newRetryTestClient(server.URL)

	_, err := c.CreateOrderWithRetry(context.Background(), 49900, "INR", "receipt-3")
	assert.ErrorIs(t, err, ErrUnavailable)
	// 1. Ровно три попытки: первая плюс два повтора
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

// TestCreateOrderWithRetry_PermanentFailure - 4xx не повторяется
func TestCreateOrderWithRetry_PermanentFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{
				"code":        "BAD_REQUEST_ERROR",
				"description": "amount is invalid",
			},
		})
	}))
	defer server.Close()

	c := newRetryTestClient(server.URL)

	_, err := c.CreateOrderWithRetry(context.Background(), -1, "INR", "receipt-4")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	// 1. Отклоненный запрос не ретраится
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
