package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cenkalti/backoff/v4"
)

// Максимальное число попыток создания заказа вместе с первой.
const maxOrderAttempts = 3

// OrderResponse представляет ответ Orders API Razorpay
type OrderResponse struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

type orderRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	PaymentCapture int    `json:"payment_capture"`
}

type apiErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder создает заказ в Razorpay. Сумма передается в пайсах.
// payment_capture=1 включает автоматический захват после авторизации.
func (c *Client) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (*OrderResponse, error) {
	c.log.Debugw("Creating Razorpay order", "amountPaise", amountPaise, "currency", currency)

	body, err := json.Marshal(orderRequest{
		Amount:         amountPaise,
		Currency:       currency,
		Receipt:        receipt,
		PaymentCapture: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		c.log.Warnw("Razorpay returned server error", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		var apiErr apiErrorResponse
		_ = json.Unmarshal(respBody, &apiErr)
		c.log.Warnw("Razorpay rejected order request",
			"status", resp.StatusCode, "code", apiErr.Error.Code, "description", apiErr.Error.Description)
		return nil, fmt.Errorf("%w: status %d: %s", ErrInvalidRequest, resp.StatusCode, apiErr.Error.Description)
	}

	var order OrderResponse
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}

	c.log.Infow("Razorpay order created", "orderID", order.ID, "status", order.Status)
	return &order, nil
}

// CreateOrderWithRetry создает заказ с повторами при временных сбоях.
// Повторяются только сетевые ошибки и 5xx, пауза растет экспоненциально
// от базовой задержки. Отклоненные запросы (4xx) не повторяются.
func (c *Client) CreateOrderWithRetry(ctx context.Context, amountPaise int64, currency, receipt string) (*OrderResponse, error) {
	var order *OrderResponse

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = c.retryBaseDelay
	expBackoff.Multiplier = 2
	expBackoff.RandomizationFactor = 0
	expBackoff.MaxElapsedTime = 0

	attempt := 0
	operation := func() error {
		attempt++
		result, err := c.CreateOrder(ctx, amountPaise, currency, receipt)
		if err != nil {
			if errors.Is(err, ErrInvalidRequest) {
				return backoff.Permanent(err)
			}
			c.log.Warnw("Razorpay order attempt failed", "attempt", attempt, "error", err)
			return err
		}
		order = result
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, maxOrderAttempts-1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	return order, nil
}
