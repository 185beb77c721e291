package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jarvis4every1/subscription-backend/internal/integration/razorpay"
	"github.com/jarvis4every1/subscription-backend/internal/kafka"
	"github.com/jarvis4every1/subscription-backend/internal/metrics"
	"github.com/jarvis4every1/subscription-backend/internal/models"
	"github.com/jarvis4every1/subscription-backend/internal/repository"
	"github.com/jarvis4every1/subscription-backend/pkg/logger"
)

// Срок подписки, который дает одна успешная оплата.
const paidMonths = 1

// CreateOrderInput входные данные создания заказа
type CreateOrderInput struct {
	UserID string
	Email  string
	Amount float64
}

// CreateOrderOutput данные для запуска Razorpay Checkout на клиенте
type CreateOrderOutput struct {
	OrderID   string  `json:"order_id"`
	Amount    int64   `json:"amount"`
	Currency  string  `json:"currency"`
	KeyID     string  `json:"key_id"`
	PaymentID string  `json:"payment_id"`
	AmountINR float64 `json:"amount_inr"`
}

// VerifyPaymentInput данные проверки оплаты от Razorpay Checkout
type VerifyPaymentInput struct {
	UserID            string
	RazorpayOrderID   string
	RazorpayPaymentID string
	RazorpaySignature string
}

// PaymentService управляет заказами и проверкой оплат.
type PaymentService interface {
	// CreateOrder создает заказ в Razorpay и сохраняет платеж в статусе pending.
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderOutput, error)

	// VerifyPayment проверяет подпись checkout, завершает платеж и
	// продлевает подписку.
	VerifyPayment(ctx context.Context, input VerifyPaymentInput) (*models.Subscription, error)

	// GetByOrderID возвращает платеж по идентификатору заказа.
	GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error)

	// GetAll возвращает платежи с пагинацией (админская операция).
	GetAll(ctx context.Context, skip, limit int) ([]models.Payment, error)
}

type paymentService struct {
	paymentRepo   repository.PaymentRepository
	subService    SubscriptionService
	gateway       razorpay.Gateway
	kafkaProducer kafka.Producer // Может быть nil, если Kafka недоступен
	metrics       metrics.PaymentMetrics
	priceINR      float64 // Цена месячной подписки; 0 отключает проверку суммы
	log           *logger.Logger
}

// NewPaymentService конструктор сервиса платежей
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	subService SubscriptionService,
	gateway razorpay.Gateway,
	kafkaProducer kafka.Producer, // Принимаем интерфейс, может быть nil
	m metrics.PaymentMetrics,
	priceINR float64,
	log *logger.Logger,
) PaymentService {
	if kafkaProducer == nil {
		log.Warnw("Kafka producer is nil, event publishing will be skipped.")
	}
	return &paymentService{
		paymentRepo:   paymentRepo,
		subService:    subService,
		gateway:       gateway,
		kafkaProducer: kafkaProducer,
		metrics:       m,
		priceINR:      priceINR,
		log:           log,
	}
}

// CreateOrder создает заказ в Razorpay и записывает платеж в статусе pending.
func (s *paymentService) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderOutput, error) {
	uid, err := parseUserID(input.UserID)
	if err != nil {
		return nil, err
	}
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if strings.TrimSpace(input.Email) == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	// Тариф один, сумма заказа должна совпадать с ценой подписки.
	if s.priceINR > 0 && input.Amount != s.priceINR {
		return nil, fmt.Errorf("%w: amount must equal the subscription price of %.2f INR", ErrValidation, s.priceINR)
	}

	s.log.Infow("Creating payment order", "userID", input.UserID, "amount", input.Amount)

	// Razorpay принимает суммы в наименьших единицах валюты (пайсы для INR).
	amountPaise := int64(input.Amount * 100)
	paymentID := uuid.New()

	order, err := s.gateway.CreateOrderWithRetry(ctx, amountPaise, models.CurrencyINR, paymentID.String())
	if err != nil {
		if errors.Is(err, razorpay.ErrInvalidRequest) {
			s.metrics.IncGatewayAttempt("rejected")
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		s.metrics.IncGatewayAttempt("unavailable")
		s.log.Errorw("Gateway order creation failed after retries", "error", err, "userID", input.UserID)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	s.metrics.IncGatewayAttempt("success")

	payment := &models.Payment{
		ID:              paymentID,
		UserID:          &uid,
		Email:           input.Email,
		PlanID:          models.PlanMonthly,
		Amount:          input.Amount,
		Currency:        models.CurrencyINR,
		RazorpayOrderID: order.ID,
		Status:          models.PaymentStatusPending,
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Повторный orderID от шлюза. Заказ уже записан, отдаем его клиенту.
			s.log.Warnw("Duplicate order ID from gateway", "orderID", order.ID)
		} else {
			s.log.Errorw("Failed to persist pending payment", "error", err, "orderID", order.ID)
			return nil, fmt.Errorf("%w: %v", ErrInternalServer, err)
		}
	}

	s.metrics.IncOrderCreated(models.CurrencyINR)
	s.metrics.ObservePaymentAmount(input.Amount, models.CurrencyINR, string(models.PaymentStatusPending))

	return &CreateOrderOutput{
		OrderID:   order.ID,
		Amount:    amountPaise,
		Currency:  models.CurrencyINR,
		KeyID:     s.gateway.KeyID(),
		PaymentID: paymentID.String(),
		AmountINR: input.Amount,
	}, nil
}

// VerifyPayment проверяет подпись checkout и завершает платеж.
// Порядок проверок фиксирован: сначала наличие платежа, затем владелец,
// затем подпись. Ошибки различимы по кодам ответов.
func (s *paymentService) VerifyPayment(ctx context.Context, input VerifyPaymentInput) (*models.Subscription, error) {
	uid, err := parseUserID(input.UserID)
	if err != nil {
		return nil, err
	}
	if input.RazorpayOrderID == "" || input.RazorpayPaymentID == "" || input.RazorpaySignature == "" {
		return nil, fmt.Errorf("%w: order id, payment id and signature are required", ErrValidation)
	}

	payment, err := s.paymentRepo.GetByOrderID(ctx, input.RazorpayOrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		s.log.Errorw("Failed to look up payment for verification", "error", err, "orderID", input.RazorpayOrderID)
		return nil, fmt.Errorf("%w: %v", ErrInternalServer, err)
	}

	if payment.UserID == nil || *payment.UserID != uid {
		s.log.Warnw("Payment ownership mismatch on verification", "orderID", input.RazorpayOrderID, "userID", input.UserID)
		return nil, ErrForbidden
	}

	if !s.gateway.VerifyPaymentSignature(input.RazorpayOrderID, input.RazorpayPaymentID, input.RazorpaySignature) {
		s.metrics.IncSignatureMismatch("checkout")
		s.log.Warnw("Invalid payment signature", "orderID", input.RazorpayOrderID, "userID", input.UserID)
		return nil, ErrInvalidSignature
	}

	// Идемпотентность: платеж, уже завершенный через первый вызов verify
	// или через webhook, повторно подписку не продлевает. Отдаем текущую.
	if payment.Status == models.PaymentStatusCompleted {
		s.log.Debugw("Payment already completed, verification is a no-op", "orderID", input.RazorpayOrderID)
		return s.subService.GetCurrent(ctx, input.UserID)
	}

	if err := s.paymentRepo.MarkCompleted(ctx, input.RazorpayOrderID, input.RazorpayPaymentID, input.RazorpaySignature); err != nil {
		s.log.Errorw("Failed to mark payment completed", "error", err, "orderID", input.RazorpayOrderID)
		return nil, fmt.Errorf("%w: %v", ErrInternalServer, err)
	}
	s.metrics.IncPaymentCompleted(payment.Currency)
	s.metrics.ObservePaymentAmount(payment.Amount, payment.Currency, string(models.PaymentStatusCompleted))
	s.publishEvent(ctx, kafka.TopicPaymentCompleted, input.UserID, map[string]interface{}{
		"order_id":   input.RazorpayOrderID,
		"payment_id": input.RazorpayPaymentID,
		"user_id":    input.UserID,
		"amount":     payment.Amount,
		"currency":   payment.Currency,
	})

	sub, err := s.subService.Renew(ctx, input.UserID, paidMonths)
	if err != nil {
		s.log.Errorw("Failed to renew subscription after payment", "error", err, "userID", input.UserID)
		return nil, err
	}

	s.log.Infow("Payment verified and subscription renewed",
		"orderID", input.RazorpayOrderID, "userID", input.UserID, "subscriptionID", sub.ID)
	return sub, nil
}

// GetByOrderID возвращает платеж по идентификатору заказа.
func (s *paymentService) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrValidation)
	}

	payment, err := s.paymentRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		s.log.Errorw("Failed to get payment", "error", err, "orderID", orderID)
		return nil, fmt.Errorf("%w: %v", ErrInternalServer, err)
	}
	return payment, nil
}

// GetAll возвращает платежи с пагинацией.
func (s *paymentService) GetAll(ctx context.Context, skip, limit int) ([]models.Payment, error) {
	if skip < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: skip and limit must be non-negative", ErrValidation)
	}
	if limit == 0 || limit > 100 {
		limit = 100
	}

	payments, err := s.paymentRepo.GetAll(ctx, skip, limit)
	if err != nil {
		s.log.Errorw("Failed to list payments", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternalServer, err)
	}
	return payments, nil
}

// publishEvent отправляет событие в Kafka, не прерывая основной поток.
func (s *paymentService) publishEvent(ctx context.Context, topic, key string, payload interface{}) {
	if s.kafkaProducer == nil {
		return
	}
	if err := s.kafkaProducer.PublishEvent(ctx, topic, key, payload); err != nil {
		s.log.Warnw("Failed to publish payment event", "error", err, "topic", topic)
	}
}
