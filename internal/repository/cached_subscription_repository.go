package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jarvis4every1/subscription-backend/internal/models"
	"github.com/jarvis4every1/subscription-backend/pkg/logger"
)

// CachedSubscriptionRepository оборачивает SubscriptionRepository и кэширует
// текущую подписку пользователя. Любая запись по пользователю сбрасывает кэш,
// поэтому статус expired, проставленный при ленивой проверке, виден сразу.
type CachedSubscriptionRepository struct {
	inner SubscriptionRepository
	cache CacheRepository
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedSubscriptionRepository создает кэширующую обертку над репозиторием подписок.
func NewCachedSubscriptionRepository(inner SubscriptionRepository, cache CacheRepository, ttl time.Duration, log *logger.Logger) *CachedSubscriptionRepository {
	return &CachedSubscriptionRepository{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

func currentSubKey(userID uuid.UUID) string {
	return fmt.Sprintf("subscription:current:%s", userID)
}

func (r *CachedSubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	if err := r.inner.Create(ctx, sub); err != nil {
		return err
	}
	r.invalidate(ctx, sub.UserID)
	return nil
}

func (r *CachedSubscriptionRepository) GetCurrent(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var cached models.Subscription
	err := r.cache.Get(ctx, currentSubKey(userID), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		// Кэш недоступен, идем в базу.
		r.log.Warnw("Subscription cache read failed", "error", err, "userID", userID)
	}

	sub, err := r.inner.GetCurrent(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, currentSubKey(userID), sub, r.ttl); err != nil {
		r.log.Warnw("Subscription cache write failed", "error", err, "userID", userID)
	}

	return sub, nil
}

func (r *CachedSubscriptionRepository) GetActive(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	return r.inner.GetActive(ctx, userID)
}

func (r *CachedSubscriptionRepository) UpdateEndDate(ctx context.Context, id, userID uuid.UUID, endDate time.Time) error {
	if err := r.inner.UpdateEndDate(ctx, id, userID, endDate); err != nil {
		return err
	}
	r.invalidate(ctx, userID)
	return nil
}

func (r *CachedSubscriptionRepository) MarkExpired(ctx context.Context, id, userID uuid.UUID) error {
	if err := r.inner.MarkExpired(ctx, id, userID); err != nil {
		return err
	}
	r.invalidate(ctx, userID)
	return nil
}

func (r *CachedSubscriptionRepository) CancelCurrent(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	count, err := r.inner.CancelCurrent(ctx, userID, at)
	if err != nil {
		return 0, err
	}
	r.invalidate(ctx, userID)
	return count, nil
}

func (r *CachedSubscriptionRepository) CancelActive(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	count, err := r.inner.CancelActive(ctx, userID, at)
	if err != nil {
		return 0, err
	}
	r.invalidate(ctx, userID)
	return count, nil
}

func (r *CachedSubscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	return r.inner.GetByUserID(ctx, userID)
}

func (r *CachedSubscriptionRepository) GetAll(ctx context.Context, skip, limit int) ([]models.Subscription, error) {
	return r.inner.GetAll(ctx, skip, limit)
}

func (r *CachedSubscriptionRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	if err := r.inner.DeleteByUserID(ctx, userID); err != nil {
		return err
	}
	r.invalidate(ctx, userID)
	return nil
}

func (r *CachedSubscriptionRepository) invalidate(ctx context.Context, userID uuid.UUID) {
	if err := r.cache.Delete(ctx, currentSubKey(userID)); err != nil {
		r.log.Warnw("Subscription cache invalidation failed", "error", err, "userID", userID)
	}
}
