package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jarvis4every1/subscription-backend/internal/kafka"
	"github.com/jarvis4every1/subscription-backend/internal/metrics"
	"github.com/jarvis4every1/subscription-backend/internal/models"
	"github.com/jarvis4every1/subscription-backend/internal/repository"
	"github.com/jarvis4every1/subscription-backend/pkg/logger"
)

// SubscriptionService управляет жизненным циклом подписок.
type SubscriptionService interface {
	// GetCurrent возвращает текущую подписку пользователя. Если срок вышел,
	// статус expired проставляется в хранилище прямо здесь (ленивая проверка).
	GetCurrent(ctx context.Context, userID string) (*models.Subscription, error)

	// Renew отменяет текущую историю и создает новую активную подписку
	// от текущего момента. Вызывается после успешной оплаты.
	Renew(ctx context.Context, userID string, months int) (*models.Subscription, error)

	// Extend продлевает активную подписку на months месяцев, прибавляя
	// срок к текущей дате окончания. Возвращает ErrSubscriptionNotFound,
	// если активной подписки нет.
	Extend(ctx context.Context, userID string, months int) (*models.Subscription, error)

	// Cancel отменяет активную подписку пользователя. Возвращает
	// ErrSubscriptionNotFound, если отменять нечего.
	Cancel(ctx context.Context, userID string) error

	// ActivateWithoutPayment выдает подписку без оплаты (админская операция).
	ActivateWithoutPayment(ctx context.Context, userID string, months int) (*models.Subscription, error)

	// CheckExpiryOnLogin проверяет срок подписки при входе пользователя
	// и проставляет expired, если он вышел.
	CheckExpiryOnLogin(ctx context.Context, userID string) error

	// HasActiveSubscription сообщает, есть ли у пользователя действующая
	// подписка. Используется для выдачи защищенного файла.
	HasActiveSubscription(ctx context.Context, userID string) (bool, error)

	// GetAll возвращает подписки с пагинацией (админская операция).
	GetAll(ctx context.Context, skip, limit int) ([]models.Subscription, error)
}

type subscriptionService struct {
	subRepo       repository.SubscriptionRepository
	kafkaProducer kafka.Producer // Может быть nil, если Kafka недоступен
	metrics       metrics.PaymentMetrics
	log           *logger.Logger
}

// NewSubscriptionService конструктор сервиса подписок
func NewSubscriptionService(
	subRepo repository.SubscriptionRepository,
	kafkaProducer kafka.Producer, // Принимаем интерфейс, может быть nil
	m metrics.PaymentMetrics,
	log *logger.Logger,
) SubscriptionService {
	if kafkaProducer == nil {
		log.Warnw("Kafka producer is nil, event publishing will be skipped.")
	}
	return &subscriptionService{
		subRepo:       subRepo,
		kafkaProducer: kafkaProducer,
		metrics:       m,
		log:           log,
	}
}

// parseUserID преобразует строковый идентификатор в uuid.UUID.
func parseUserID(userID string) (uuid.UUID, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid user id: %s", ErrValidation, userID)
	}
	return id, nil
}

// GetCurrent возвращает текущую подписку с ленивой проверкой срока.
func (s *subscriptionService) GetCurrent(ctx context.Context, userID string) (*models.Subscription, error) {
	uid, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	sub, err := s.subRepo.GetCurrent(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		s.log.Errorw("Failed to get current subscription", "error", err, "userID", userID)
		return nil, fmt.Errorf("%w: %v", ErrInternalServer, err)
	}

	// Статус в хранилище может отставать от календаря. Если срок вышел,
	// фиксируем expired сразу, чтобы выдача файла его не увидела активным.
	now := time.Now().UTC()
	if sub.Status == models.SubscriptionStatusActive && sub.IsExpired(now) {
		if err := s.subRepo.MarkExpired(ctx, sub.ID, uid); err != nil {
			s.log.Errorw("Failed to persist expired status", "error", err, "subscriptionID", sub.ID)
			return nil, fmt.Errorf("%w: %v", ErrInternalServer, err)
		}
		sub.Status = models.SubscriptionStatusExpired
		s.metrics.IncSubscriptionEvent("expired")
	}

	return sub, nil
}

// Renew отменяет историю пользователя и создает свежую активную подписку.
// Продление после успешной оплаты всегда начинается с текущего момента.
func (s *subscriptionService) Renew(ctx context.Context, userID string, months int) (*models.Subscription, error) {
	uid, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	if months <= 0 {
		return nil, fmt.Errorf("%w: months must be positive", ErrValidation)
	}

	now := time.Now().UTC()
	cancelled, err := s.subRepo.CancelCurrent(ctx, uid, now)
	if err != nil {
		s.log.Errorw("Failed to cancel previous subscriptions on renew", "error", err, "userID", userID)
		return nil, fmt.Errorf("%w: %v", ErrInternalServer, err)
	}
	if cancelled > 0 {
		s.log.Debugw("Previous subscriptions cancelled on renew", "userID", userID, "count", cancelled)
	}

	sub := &models.Subscription{
		ID:        uuid.New(),
		UserID:    uid,
		PlanID:    models.PlanMonthly,
		Status:    models.SubscriptionStatusActive,
		StartDate: now,
		EndDate:   models.CalculateEndDate(now, months),
	}

	if err := s.subRepo.Create(ctx, sub); err != nil {
		s.log.Errorw("Failed to create renewed subscription", "error", err, "userID", userID)
		return nil, fmt.Errorf("%w: %v", ErrInternalServer, err)
	}

	s.metrics.IncSubscriptionEvent("renewed")
	s.publishEvent(ctx, kafka.TopicSubscriptionRenewed, userID, sub)

	s.log.Infow("Subscription renewed", "userID", userID, "subscriptionID", sub.ID, "endDate", sub.EndDate)
	return sub, nil
}

// Extend прибавляет срок к дате окончания активной подписки.
func (s *subscriptionService) Extend(ctx context.Context, userID string, months int) (*models.Subscription, error) {
	uid, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	if months <= 0 {
		return nil, fmt.Errorf("%w: months must be positive", ErrValidation)
	}

	sub, err := s.subRepo.GetActive(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		s.log.Errorw("Failed to get active subscription for extend", "error", err, "userID", userID)
		return nil, fmt.Errorf("%w: %v", ErrInternalServer, err)
	}

	newEndDate := models.CalculateEndDate(sub.EndDate, months)
	if err := s.subRepo.UpdateEndDate(ctx, sub.ID, uid, newEndDate); err != nil {
		s.log.Errorw("Failed to extend subscription", "error", err, "subscriptionID", sub.ID)
		return nil, fmt.Errorf("%w: %v", ErrInternalServer, err)
	}
	sub.EndDate = newEndDate

	s.metrics.IncSubscriptionEvent("extended")
	s.log.Infow("Subscription extended", "userID", userID, "subscriptionID", sub.ID, "endDate", newEndDate)
	return sub, nil
}

// Cancel отменяет активную подписку пользователя. Просроченные строки
// не трогаем, они остаются expired в истории.
func (s *subscriptionService) Cancel(ctx context.Context, userID string) error {
	uid, err := parseUserID(userID)
	if err != nil {
		return err
	}

	cancelled, err := s.subRepo.CancelActive(ctx, uid, time.Now().UTC())
	if err != nil {
		s.log.Errorw("Failed to cancel subscription", "error", err, "userID", userID)
		return fmt.Errorf("%w: %v", ErrInternalServer, err)
	}
	if cancelled == 0 {
		return ErrSubscriptionNotFound
	}

	s.metrics.IncSubscriptionEvent("cancelled")
	s.publishEvent(ctx, kafka.TopicSubscriptionCancelled, userID, map[string]interface{}{
		"user_id":      userID,
		"cancelled_at": time.Now().UTC(),
	})

	s.log.Infow("Subscription cancelled", "userID", userID, "count", cancelled)
	return nil
}

// ActivateWithoutPayment выдает подписку без оплаты. То же, что Renew,
// но инициируется администратором, а не платежом.
func (s *subscriptionService) ActivateWithoutPayment(ctx context.Context, userID string, months int) (*models.Subscription, error) {
	sub, err := s.Renew(ctx, userID, months)
	if err != nil {
		return nil, err
	}
	s.log.Infow("Subscription activated by admin", "userID", userID, "subscriptionID", sub.ID)
	return sub, nil
}

// CheckExpiryOnLogin вызывается сервисом пользователей при входе.
// Отсутствие подписки не ошибка, проверять нечего.
func (s *subscriptionService) CheckExpiryOnLogin(ctx context.Context, userID string) error {
	_, err := s.GetCurrent(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// HasActiveSubscription сообщает, действует ли подписка прямо сейчас.
func (s *subscriptionService) HasActiveSubscription(ctx context.Context, userID string) (bool, error) {
	sub, err := s.GetCurrent(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return false, nil
		}
		return false, err
	}
	return sub.IsActive(time.Now().UTC()), nil
}

// GetAll возвращает подписки с пагинацией.
func (s *subscriptionService) GetAll(ctx context.Context, skip, limit int) ([]models.Subscription, error) {
	if skip < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: skip and limit must be non-negative", ErrValidation)
	}
	if limit == 0 || limit > 100 {
		limit = 100
	}

	subs, err := s.subRepo.GetAll(ctx, skip, limit)
	if err != nil {
		s.log.Errorw("Failed to list subscriptions", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternalServer, err)
	}
	return subs, nil
}

// publishEvent отправляет событие в Kafka, не прерывая основной поток.
func (s *subscriptionService) publishEvent(ctx context.Context, topic, key string, payload interface{}) {
	if s.kafkaProducer == nil {
		return
	}
	if err := s.kafkaProducer.PublishEvent(ctx, topic, key, payload); err != nil {
		s.log.Warnw("Failed to publish subscription event", "error", err, "topic", topic)
	}
}
