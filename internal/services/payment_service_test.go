package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarvis4every1/subscription-backend/internal/integration/razorpay"
	"github.com/jarvis4every1/subscription-backend/internal/metrics"
	"github.com/jarvis4every1/subscription-backend/internal/models"
	"github.com/jarvis4every1/subscription-backend/internal/repository"
)

const (
	testKeySecret     = "test_key_secret"
	testWebhookSecret = "test_webhook_secret"
	testPriceINR      = 499
)

// fakeGateway подменяет Razorpay в тестах. Подписи считаются той же
// HMAC-математикой, что и в боевом клиенте.
type fakeGateway struct {
	orderCalls int
	orderErr   error
}

func (g *fakeGateway) CreateOrderWithRetry(_ context.Context, amountPaise int64, currency, _ string) (*razorpay.OrderResponse, error) {
	g.orderCalls++
	if g.orderErr != nil {
		return nil, g.orderErr
	}
	return &razorpay.OrderResponse{
		ID:       fmt.Sprintf("order_test_%d", g.orderCalls),
		Entity:   "order",
		Amount:   amountPaise,
		Currency: currency,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return signature == signPayment(orderID, paymentID)
}

func (g *fakeGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	return signature == signWebhook(body)
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

func signPayment(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testKeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func signWebhook(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type paymentFixture struct {
	payments *repository.InMemoryPaymentRepository
	subs     *repository.InMemorySubscriptionRepository
	gateway  *fakeGateway
	subSvc   SubscriptionService
	svc      PaymentService
}

func newPaymentFixture() *paymentFixture {
	log := newTestLogger()
	m := metrics.NewPaymentMetrics(prometheus.NewRegistry(), log)
	payments := repository.NewInMemoryPaymentRepository()
	subs := repository.NewInMemorySubscriptionRepository()
	gateway := &fakeGateway{}
	subSvc := NewSubscriptionService(subs, nil, m, log)
	return &paymentFixture{
		payments: payments,
		subs:     subs,
		gateway:  gateway,
		subSvc:   subSvc,
		svc:      NewPaymentService(payments, subSvc, gateway, nil, m, testPriceINR, log),
	}
}

// TestPaymentService_CreateOrder - Проверяет создание заказа и pending-платежа
func TestPaymentService_CreateOrder(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	userID := uuid.New()

	// 1. Создаем заказ на 499 рупий
	output, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		UserID: userID.String(),
		Email:  "user@example.com",
		Amount: 499,
	})
	require.NoError(t, err)

	// 2. Проверка: сумма в пайсах, валюта INR, ключ для checkout приложен
	assert.Equal(t, int64(49900), output.Amount)
	assert.Equal(t, models.CurrencyINR, output.Currency)
	assert.Equal(t, "rzp_test_key", output.KeyID)
	assert.NotEmpty(t, output.OrderID)

	// 3. Платеж сохранен в статусе pending со снимком email
	payment, err := f.payments.GetByOrderID(ctx, output.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, "user@example.com", payment.Email)
	require.NotNil(t, payment.UserID)
	assert.Equal(t, userID, *payment.UserID)
}

// TestPaymentService_CreateOrderValidation - Невалидный вход отклоняется
// без обращения к шлюзу
func TestPaymentService_CreateOrderValidation(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	// 1. Нулевая сумма
	_, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		UserID: uuid.New().String(),
		Email:  "user@example.com",
		Amount: 0,
	})
	assert.ErrorIs(t, err, ErrValidation)

	// 2. Пустой email
	_, err = f.svc.CreateOrder(ctx, CreateOrderInput{
		UserID: uuid.New().String(),
		Email:  "   ",
		Amount: 499,
	})
	assert.ErrorIs(t, err, ErrValidation)

	// 3. Сумма не совпадает с ценой подписки
	_, err = f.svc.CreateOrder(ctx, CreateOrderInput{
		UserID: uuid.New().String(),
		Email:  "user@example.com",
		Amount: 100,
	})
	assert.ErrorIs(t, err, ErrValidation)

	// 4. Шлюз не трогали
	assert.Equal(t, 0, f.gateway.orderCalls)
}

// TestPaymentService_CreateOrderGatewayDown - Исчерпанные повторы к шлюзу
// превращаются в ErrGatewayUnavailable
func TestPaymentService_CreateOrderGatewayDown(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.orderErr = fmt.Errorf("%w: status 502", razorpay.ErrUnavailable)
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		UserID: uuid.New().String(),
		Email:  "user@example.com",
		Amount: 499,
	})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

// TestPaymentService_VerifyPayment - Полный флоу проверки оплаты
func TestPaymentService_VerifyPayment(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	userID := uuid.New()

	output, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		UserID: userID.String(),
		Email:  "user@example.com",
		Amount: 499,
	})
	require.NoError(t, err)

	paymentID := "pay_test_1"

	// 1. Неизвестный заказ - ErrPaymentNotFound
	_, err = f.svc.VerifyPayment(ctx, VerifyPaymentInput{
		UserID:            userID.String(),
		RazorpayOrderID:   "order_unknown",
		RazorpayPaymentID: paymentID,
		RazorpaySignature: signPayment("order_unknown", paymentID),
	})
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	// 2. Чужой пользователь - ErrForbidden, даже с верной подписью
	_, err = f.svc.VerifyPayment(ctx, VerifyPaymentInput{
		UserID:            uuid.New().String(),
		RazorpayOrderID:   output.OrderID,
		RazorpayPaymentID: paymentID,
		RazorpaySignature: signPayment(output.OrderID, paymentID),
	})
	assert.ErrorIs(t, err, ErrForbidden)

	// 3. Битая подпись - ErrInvalidSignature
	_, err = f.svc.VerifyPayment(ctx, VerifyPaymentInput{
		UserID:            userID.String(),
		RazorpayOrderID:   output.OrderID,
		RazorpayPaymentID: paymentID,
		RazorpaySignature: "deadbeef",
	})
	assert.ErrorIs(t, err, ErrInvalidSignature)

	// 4. Подписка при этом не появилась
	_, err = f.subSvc.GetCurrent(ctx, userID.String())
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)

	// 5. Корректная проверка завершает платеж и продлевает подписку
	sub, err := f.svc.VerifyPayment(ctx, VerifyPaymentInput{
		UserID:            userID.String(),
		RazorpayOrderID:   output.OrderID,
		RazorpayPaymentID: paymentID,
		RazorpaySignature: signPayment(output.OrderID, paymentID),
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)

	payment, err := f.payments.GetByOrderID(ctx, output.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, paymentID, payment.RazorpayPaymentID)
}

// TestPaymentService_VerifyPaymentTwice - Повторная проверка завершенного
// платежа не продлевает подписку второй раз
func TestPaymentService_VerifyPaymentTwice(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	userID := uuid.New()

	output, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		UserID: userID.String(),
		Email:  "user@example.com",
		Amount: 499,
	})
	require.NoError(t, err)

	paymentID := "pay_test_twice"
	input := VerifyPaymentInput{
		UserID:            userID.String(),
		RazorpayOrderID:   output.OrderID,
		RazorpayPaymentID: paymentID,
		RazorpaySignature: signPayment(output.OrderID, paymentID),
	}

	// 1. Первая проверка завершает платеж и создает подписку
	first, err := f.svc.VerifyPayment(ctx, input)
	require.NoError(t, err)

	// 2. Вторая проверка того же заказа - no-op, возвращается та же подписка
	second, err := f.svc.VerifyPayment(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.SubscriptionStatusActive, second.Status)

	// 3. В истории ровно одна подписка, первая не отменена
	history, err := f.subs.GetByUserID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.SubscriptionStatusActive, history[0].Status)
}
