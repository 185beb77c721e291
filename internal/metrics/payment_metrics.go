package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jarvis4every1/subscription-backend/pkg/logger"
)

// PaymentMetrics интерфейс для метрик платежей и подписок
type PaymentMetrics interface {
	IncOrderCreated(currency string)
	IncPaymentCompleted(currency string)
	IncPaymentFailed(currency string)
	IncSignatureMismatch(source string)
	IncGatewayAttempt(outcome string)
	IncSubscriptionEvent(event string)
	ObservePaymentAmount(amount float64, currency string, status string)
}

type paymentMetrics struct {
	log                *logger.Logger
	ordersCreated      *prometheus.CounterVec
	paymentsStatus     *prometheus.CounterVec
	signatureMismatch  *prometheus.CounterVec
	gatewayAttempts    *prometheus.CounterVec
	subscriptionEvents *prometheus.CounterVec
	paymentsAmount     *prometheus.HistogramVec
}

// NewPaymentMetrics создает новые метрики платежей
func NewPaymentMetrics(registry *prometheus.Registry, log *logger.Logger) PaymentMetrics {
	ordersCreated := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_orders_created_total",
			Help: "The total number of created payment orders",
		},
		[]string{"currency"},
	)

	paymentsStatus := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_status_total",
			Help: "The total number of payments by status",
		},
		[]string{"status", "currency"},
	)

	signatureMismatch := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_signature_mismatch_total",
			Help: "The total number of rejected payment signatures",
		},
		[]string{"source"},
	)

	gatewayAttempts := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_attempts_total",
			Help: "The total number of gateway order attempts by outcome",
		},
		[]string{"outcome"},
	)

	subscriptionEvents := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_events_total",
			Help: "The total number of subscription lifecycle events",
		},
		[]string{"event"},
	)

	paymentsAmount := promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payments_amount",
			Help:    "Payment amounts distribution",
			Buckets: prometheus.ExponentialBuckets(10, 10, 5), // 10, 100, 1000, 10000, 100000
		},
		[]string{"currency", "status"},
	)

	return &paymentMetrics{
		log:                log,
		ordersCreated:      ordersCreated,
		paymentsStatus:     paymentsStatus,
		signatureMismatch:  signatureMismatch,
		gatewayAttempts:    gatewayAttempts,
		subscriptionEvents: subscriptionEvents,
		paymentsAmount:     paymentsAmount,
	}
}

// IncOrderCreated увеличивает счетчик созданных заказов
func (m *paymentMetrics) IncOrderCreated(currency string) {
	m.ordersCreated.WithLabelValues(currency).Inc()
}

// IncPaymentCompleted увеличивает счетчик завершенных платежей
func (m *paymentMetrics) IncPaymentCompleted(currency string) {
	m.paymentsStatus.WithLabelValues("completed", currency).Inc()
}

// IncPaymentFailed увеличивает счетчик неудачных платежей
func (m *paymentMetrics) IncPaymentFailed(currency string) {
	m.paymentsStatus.WithLabelValues("failed", currency).Inc()
}

// IncSignatureMismatch увеличивает счетчик отклоненных подписей.
// source различает проверку checkout и webhook.
func (m *paymentMetrics) IncSignatureMismatch(source string) {
	m.signatureMismatch.WithLabelValues(source).Inc()
}

// IncGatewayAttempt увеличивает счетчик обращений к шлюзу
func (m *paymentMetrics) IncGatewayAttempt(outcome string) {
	m.gatewayAttempts.WithLabelValues(outcome).Inc()
}

// IncSubscriptionEvent увеличивает счетчик событий жизненного цикла подписки
func (m *paymentMetrics) IncSubscriptionEvent(event string) {
	m.subscriptionEvents.WithLabelValues(event).Inc()
}

// ObservePaymentAmount записывает сумму платежа
func (m *paymentMetrics) ObservePaymentAmount(amount float64, currency string, status string) {
	m.paymentsAmount.WithLabelValues(currency, status).Observe(amount)
}
