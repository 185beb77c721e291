package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jarvis4every1/subscription-backend/internal/integration/razorpay"
	"github.com/jarvis4every1/subscription-backend/internal/kafka"
	"github.com/jarvis4every1/subscription-backend/internal/metrics"
	"github.com/jarvis4every1/subscription-backend/internal/models"
	"github.com/jarvis4every1/subscription-backend/internal/repository"
	"github.com/jarvis4every1/subscription-backend/pkg/logger"
)

// webhookEvent описывает событие Razorpay. Нам нужен только тип события
// и сущность платежа внутри payload.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// WebhookService обрабатывает события Razorpay.
type WebhookService interface {
	// HandleEvent проверяет подпись и обрабатывает webhook-событие.
	// body передается сырым, подпись считается именно от него.
	HandleEvent(ctx context.Context, body []byte, signature string) error
}

type webhookService struct {
	paymentRepo   repository.PaymentRepository
	subService    SubscriptionService
	gateway       razorpay.Gateway
	kafkaProducer kafka.Producer // Может быть nil, если Kafka недоступен
	metrics       metrics.PaymentMetrics
	log           *logger.Logger
}

// NewWebhookService конструктор сервиса webhook-ов
func NewWebhookService(
	paymentRepo repository.PaymentRepository,
	subService SubscriptionService,
	gateway razorpay.Gateway,
	kafkaProducer kafka.Producer,
	m metrics.PaymentMetrics,
	log *logger.Logger,
) WebhookService {
	return &webhookService{
		paymentRepo:   paymentRepo,
		subService:    subService,
		gateway:       gateway,
		kafkaProducer: kafkaProducer,
		metrics:       m,
		log:           log,
	}
}

// HandleEvent обрабатывает webhook-событие Razorpay.
// Razorpay доставляет события повторно, поэтому обработка идемпотентна:
// подписку продлевает только переход платежа из pending.
func (s *webhookService) HandleEvent(ctx context.Context, body []byte, signature string) error {
	if !s.gateway.VerifyWebhookSignature(body, signature) {
		s.metrics.IncSignatureMismatch("webhook")
		s.log.Warnw("Invalid webhook signature")
		return ErrInvalidSignature
	}

	// Подпись сошлась, значит тело прислал сам Razorpay. Нечитаемый payload
	// здесь - наша проблема, отвечаем серверной ошибкой, чтобы шлюз
	// доставил событие повторно.
	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Errorw("Failed to parse webhook payload", "error", err)
		return fmt.Errorf("%w: malformed webhook payload", ErrInternalServer)
	}

	s.log.Debugw("Webhook event received", "event", event.Event)

	// Остальные события подтверждаем без обработки, чтобы Razorpay
	// не доставлял их повторно.
	if event.Event != "payment.captured" {
		return nil
	}

	orderID := event.Payload.Payment.Entity.OrderID
	paymentID := event.Payload.Payment.Entity.ID
	if orderID == "" {
		return fmt.Errorf("%w: webhook payload has no order id", ErrInternalServer)
	}

	payment, err := s.paymentRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Заказ нам неизвестен. Подтверждаем, чтобы Razorpay не
			// ретраил событие, относящееся к другому окружению.
			s.log.Warnw("Webhook for unknown order", "orderID", orderID)
			return nil
		}
		s.log.Errorw("Failed to look up payment for webhook", "error", err, "orderID", orderID)
		return fmt.Errorf("%w: %v", ErrInternalServer, err)
	}

	// Идемпотентность: платеж, уже завершенный через checkout или
	// предыдущую доставку, повторно не обрабатываем.
	if payment.Status != models.PaymentStatusPending {
		s.log.Debugw("Webhook for already processed payment", "orderID", orderID, "status", payment.Status)
		return nil
	}

	if err := s.paymentRepo.MarkCompleted(ctx, orderID, paymentID, signature); err != nil {
		s.log.Errorw("Failed to mark payment completed from webhook", "error", err, "orderID", orderID)
		return fmt.Errorf("%w: %v", ErrInternalServer, err)
	}

	s.metrics.IncPaymentCompleted(payment.Currency)
	s.metrics.ObservePaymentAmount(payment.Amount, payment.Currency, string(models.PaymentStatusCompleted))

	// Платеж мог остаться без пользователя после удаления аккаунта.
	// Тогда фиксируем только сам платеж.
	if payment.UserID != nil {
		userID := payment.UserID.String()
		if _, err := s.subService.Renew(ctx, userID, paidMonths); err != nil {
			s.log.Errorw("Failed to renew subscription from webhook", "error", err, "orderID", orderID, "userID", userID)
			return fmt.Errorf("%w: %v", ErrInternalServer, err)
		}

		if s.kafkaProducer != nil {
			if err := s.kafkaProducer.PublishEvent(ctx, kafka.TopicPaymentCompleted, userID, map[string]interface{}{
				"order_id":   orderID,
				"payment_id": paymentID,
				"user_id":    userID,
				"amount":     payment.Amount,
				"currency":   payment.Currency,
				"source":     "webhook",
			}); err != nil {
				s.log.Warnw("Failed to publish webhook payment event", "error", err, "orderID", orderID)
			}
		}
	}

	s.log.Infow("Webhook payment processed", "orderID", orderID, "paymentID", paymentID)
	return nil
}
