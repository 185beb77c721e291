package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarvis4every1/subscription-backend/internal/metrics"
	"github.com/jarvis4every1/subscription-backend/internal/models"
	"github.com/jarvis4every1/subscription-backend/internal/repository"
)

type userFixture struct {
	users    *repository.InMemoryUserRepository
	subs     *repository.InMemorySubscriptionRepository
	payments *repository.InMemoryPaymentRepository
	subSvc   SubscriptionService
	svc      UserService
}

func newUserFixture() *userFixture {
	log := newTestLogger()
	m := metrics.NewPaymentMetrics(prometheus.NewRegistry(), log)
	users := repository.NewInMemoryUserRepository()
	subs := repository.NewInMemorySubscriptionRepository()
	payments := repository.NewInMemoryPaymentRepository()
	subSvc := NewSubscriptionService(subs, nil, m, log)
	return &userFixture{
		users:    users,
		subs:     subs,
		payments: payments,
		subSvc:   subSvc,
		svc:      NewUserService(users, subs, payments, subSvc, log),
	}
}

func (f *userFixture) seedUser(email string) *models.User {
	user := &models.User{
		ID:    uuid.New(),
		Name:  "Test User",
		Email: email,
	}
	f.users.Add(user)
	return user
}

// TestUserService_GetAllWithSubscriptions - Админский листинг обогащается
// текущими подписками
func TestUserService_GetAllWithSubscriptions(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()

	// 1. Три пользователя: с активной подпиской, с истекшей, без подписки
	withActive := f.seedUser("active@example.com")
	withExpired := f.seedUser("expired@example.com")
	f.seedUser("none@example.com")

	_, err := f.subSvc.Renew(ctx, withActive.ID.String(), 1)
	require.NoError(t, err)

	require.NoError(t, f.subs.Create(ctx, &models.Subscription{
		ID:        uuid.New(),
		UserID:    withExpired.ID,
		PlanID:    models.PlanMonthly,
		Status:    models.SubscriptionStatusExpired,
		StartDate: time.Now().UTC().AddDate(0, 0, -60),
		EndDate:   time.Now().UTC().AddDate(0, 0, -30),
	}))

	// 2. Запрашиваем листинг
	result, err := f.svc.GetAllWithSubscriptions(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, result, 3)

	byEmail := make(map[string]models.UserWithSubscription, len(result))
	for _, item := range result {
		byEmail[item.Email] = item
	}

	// 3. Проверка флагов
	assert.True(t, byEmail["active@example.com"].HasSubscription)
	assert.True(t, byEmail["active@example.com"].HasActiveSubscription)

	assert.True(t, byEmail["expired@example.com"].HasSubscription)
	assert.False(t, byEmail["expired@example.com"].HasActiveSubscription)

	assert.False(t, byEmail["none@example.com"].HasSubscription)
	assert.Nil(t, byEmail["none@example.com"].Subscription)
}

// TestUserService_DeleteDetachesPayments - Удаление пользователя отвязывает
// платежи, но не удаляет их
func TestUserService_DeleteDetachesPayments(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()

	user := f.seedUser("payer@example.com")
	_, err := f.subSvc.Renew(ctx, user.ID.String(), 1)
	require.NoError(t, err)

	require.NoError(t, f.payments.Create(ctx, &models.Payment{
		ID:              uuid.New(),
		UserID:          &user.ID,
		Email:           user.Email,
		PlanID:          models.PlanMonthly,
		Amount:          499,
		Currency:        models.CurrencyINR,
		RazorpayOrderID: "order_del_1",
		Status:          models.PaymentStatusCompleted,
	}))

	// 1. Удаляем пользователя
	require.NoError(t, f.svc.Delete(ctx, user.ID.String()))

	// 2. Пользователь и его подписки исчезли
	_, err = f.users.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	history, err := f.subs.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	// 3. Платеж остался для отчетности: без пользователя, но со снимком email
	payment, err := f.payments.GetByOrderID(ctx, "order_del_1")
	require.NoError(t, err)
	assert.Nil(t, payment.UserID)
	assert.Equal(t, "payer@example.com", payment.Email)
}

// TestUserService_RecordLogin - Вход фиксируется и запускает проверку срока
func TestUserService_RecordLogin(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()

	user := f.seedUser("login@example.com")

	// 1. Кладем истекшую по датам, но активную по статусу подписку
	require.NoError(t, f.subs.Create(ctx, &models.Subscription{
		ID:        uuid.New(),
		UserID:    user.ID,
		PlanID:    models.PlanMonthly,
		Status:    models.SubscriptionStatusActive,
		StartDate: time.Now().UTC().AddDate(0, 0, -60),
		EndDate:   time.Now().UTC().AddDate(0, 0, -30),
	}))

	// 2. Вход
	require.NoError(t, f.svc.RecordLogin(ctx, user.ID.String()))

	// 3. Время входа записано
	updated, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.LastLogin)

	// 4. Ленивая проверка проставила expired в хранилище
	stored, err := f.subs.GetCurrent(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusExpired, stored.Status)

	// 5. Вход несуществующего пользователя - ErrUserNotFound
	assert.ErrorIs(t, f.svc.RecordLogin(ctx, uuid.New().String()), ErrUserNotFound)
}
