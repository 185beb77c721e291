package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jarvis4every1/subscription-backend/internal/models"
	"github.com/jarvis4every1/subscription-backend/internal/repository"
	"github.com/jarvis4every1/subscription-backend/pkg/logger"
)

// UserService управляет каталогом пользователей с точки зрения подписок.
type UserService interface {
	// GetByID возвращает пользователя по идентификатору.
	GetByID(ctx context.Context, userID string) (*models.User, error)

	// RecordLogin фиксирует вход пользователя и запускает ленивую
	// проверку срока подписки.
	RecordLogin(ctx context.Context, userID string) error

	// GetAllWithSubscriptions возвращает пользователей, обогащенных
	// текущей подпиской (админская операция).
	GetAllWithSubscriptions(ctx context.Context, skip, limit int) ([]models.UserWithSubscription, error)

	// Delete удаляет пользователя, его историю подписок и отвязывает
	// платежи, сохраняя их для отчетности.
	Delete(ctx context.Context, userID string) error
}

type userService struct {
	userRepo   repository.UserRepository
	subRepo    repository.SubscriptionRepository
	payRepo    repository.PaymentRepository
	subService SubscriptionService
	log        *logger.Logger
}

// NewUserService конструктор сервиса пользователей
func NewUserService(
	userRepo repository.UserRepository,
	subRepo repository.SubscriptionRepository,
	payRepo repository.PaymentRepository,
	subService SubscriptionService,
	log *logger.Logger,
) UserService {
	return &userService{
		userRepo:   userRepo,
		subRepo:    subRepo,
		payRepo:    payRepo,
		subService: subService,
		log:        log,
	}
}

// GetByID возвращает пользователя по идентификатору.
func (s *userService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	uid, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		s.log.Errorw("Failed to get user", "error", err, "userID", userID)
		return nil, fmt.Errorf("%w: %v", ErrInternalServer, err)
	}
	return user, nil
}

// RecordLogin фиксирует вход и проверяет срок подписки.
func (s *userService) RecordLogin(ctx context.Context, userID string) error {
	uid, err := parseUserID(userID)
	if err != nil {
		return err
	}

	if err := s.userRepo.RecordLogin(ctx, uid, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		s.log.Errorw("Failed to record login", "error", err, "userID", userID)
		return fmt.Errorf("%w: %v", ErrInternalServer, err)
	}

	// Срок мог выйти между входами. Проставляем expired сразу, чтобы
	// клиент увидел актуальный статус при первом же запросе.
	if err := s.subService.CheckExpiryOnLogin(ctx, userID); err != nil {
		s.log.Warnw("Subscription expiry check on login failed", "error", err, "userID", userID)
	}

	return nil
}

// GetAllWithSubscriptions возвращает пользователей с их текущими подписками.
func (s *userService) GetAllWithSubscriptions(ctx context.Context, skip, limit int) ([]models.UserWithSubscription, error) {
	if skip < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: skip and limit must be non-negative", ErrValidation)
	}
	if limit == 0 || limit > 100 {
		limit = 100
	}

	users, err := s.userRepo.GetAll(ctx, skip, limit)
	if err != nil {
		s.log.Errorw("Failed to list users", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternalServer, err)
	}

	now := time.Now().UTC()
	result := make([]models.UserWithSubscription, 0, len(users))
	for _, user := range users {
		item := models.UserWithSubscription{User: user}

		sub, err := s.subRepo.GetCurrent(ctx, user.ID)
		switch {
		case err == nil:
			item.Subscription = sub
			item.HasSubscription = true
			item.HasActiveSubscription = sub.IsActive(now)
		case errors.Is(err, repository.ErrNotFound):
			// У пользователя нет подписки, это не ошибка.
		default:
			s.log.Errorw("Failed to enrich user with subscription", "error", err, "userID", user.ID)
			return nil, fmt.Errorf("%w: %v", ErrInternalServer, err)
		}

		result = append(result, item)
	}

	return result, nil
}

// Delete удаляет пользователя. Платежи не удаляются, а отвязываются:
// в них остается снимок email для финансовой отчетности.
func (s *userService) Delete(ctx context.Context, userID string) error {
	uid, err := parseUserID(userID)
	if err != nil {
		return err
	}

	if err := s.payRepo.DetachUser(ctx, uid); err != nil {
		s.log.Errorw("Failed to detach payments on user deletion", "error", err, "userID", userID)
		return fmt.Errorf("%w: %v", ErrInternalServer, err)
	}

	if err := s.subRepo.DeleteByUserID(ctx, uid); err != nil {
		s.log.Errorw("Failed to delete subscriptions on user deletion", "error", err, "userID", userID)
		return fmt.Errorf("%w: %v", ErrInternalServer, err)
	}

	if err := s.userRepo.Delete(ctx, uid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		s.log.Errorw("Failed to delete user", "error", err, "userID", userID)
		return fmt.Errorf("%w: %v", ErrInternalServer, err)
	}

	s.log.Infow("User deleted", "userID", userID)
	return nil
}
