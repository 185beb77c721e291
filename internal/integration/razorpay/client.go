package razorpay

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jarvis4every1/subscription-backend/pkg/logger"
)

// Ошибки клиента Razorpay. Сервисный слой различает по ним временные сбои
// шлюза и отклоненные запросы.
var (
	// ErrUnavailable означает временный сбой: сетевая ошибка или 5xx.
	ErrUnavailable = errors.New("razorpay: gateway unavailable")

	// ErrInvalidRequest означает, что Razorpay отклонил запрос (4xx).
	// Повторять такой запрос бессмысленно.
	ErrInvalidRequest = errors.New("razorpay: invalid request")
)

// Gateway определяет операции платежного шлюза, нужные сервисному слою.
type Gateway interface {
	CreateOrderWithRetry(ctx context.Context, amountPaise int64, currency, receipt string) (*OrderResponse, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
	KeyID() string
}

// Client представляет клиент для работы с API Razorpay
type Client struct {
	baseURL        string
	keyID          string
	keySecret      string
	webhookSecret  string
	httpClient     *http.Client
	retryBaseDelay time.Duration
	log            *logger.Logger
}

// Config конфигурация для клиента Razorpay
type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string

	// RetryBaseDelay задает начальную паузу между повторами запроса.
	// Ноль означает значение по умолчанию в 1 секунду.
	RetryBaseDelay time.Duration
}

// NewClient создает новый клиент Razorpay
func NewClient(cfg Config, log *logger.Logger) *Client {
	retryBase := cfg.RetryBaseDelay
	if retryBase == 0 {
		retryBase = time.Second
	}

	return &Client{
		baseURL:        "https://api.razorpay.com/v1",
		keyID:          cfg.KeyID,
		keySecret:      cfg.KeySecret,
		webhookSecret:  cfg.WebhookSecret,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		retryBaseDelay: retryBase,
		log:            log,
	}
}

// KeyID возвращает публичный ключ Razorpay для клиентского checkout
func (c *Client) KeyID() string {
	return c.keyID
}

// SetBaseURL переопределяет адрес API. Используется в тестах с httptest.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}
