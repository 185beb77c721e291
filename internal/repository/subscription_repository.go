package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jarvis4every1/subscription-backend/internal/models"
	"github.com/jarvis4every1/subscription-backend/pkg/logger"
)

// SubscriptionRepository определяет операции хранения подписок.
type SubscriptionRepository interface {
	// Create сохраняет новую подписку
	Create(ctx context.Context, sub *models.Subscription) error

	// GetCurrent возвращает самую свежую подписку со статусом active или expired.
	// Возвращает ErrNotFound, если таких строк нет (пользователь никогда не
	// подписывался или вся история отменена).
	GetCurrent(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)

	// GetActive возвращает подписку со статусом active
	GetActive(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)

	// UpdateEndDate переносит дату окончания подписки. userID нужен
	// кэширующей обертке для сброса записи пользователя.
	UpdateEndDate(ctx context.Context, id, userID uuid.UUID, endDate time.Time) error

	// MarkExpired переводит подписку в статус expired
	MarkExpired(ctx context.Context, id, userID uuid.UUID) error

	// CancelCurrent переводит все строки active/expired пользователя в cancelled
	// и возвращает число измененных строк
	CancelCurrent(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)

	// CancelActive переводит строки active пользователя в cancelled
	CancelActive(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)

	// GetByUserID возвращает всю историю подписок пользователя (новые в начале)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error)

	// GetAll возвращает подписки с пагинацией (для админки)
	GetAll(ctx context.Context, skip, limit int) ([]models.Subscription, error)

	// DeleteByUserID удаляет историю подписок пользователя (каскад удаления аккаунта)
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}

// postgresSubscriptionRepo реализует SubscriptionRepository для PostgreSQL.
type postgresSubscriptionRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresSubscriptionRepository создает новый экземпляр репозитория для PostgreSQL.
func NewPostgresSubscriptionRepository(db *sqlx.DB, log *logger.Logger) SubscriptionRepository {
	return &postgresSubscriptionRepo{
		db:  db,
		log: log,
	}
}

// Create сохраняет новую подписку в базе данных.
func (r *postgresSubscriptionRepo) Create(ctx context.Context, sub *models.Subscription) error {
	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	query := `
        INSERT INTO subscriptions (
            id, user_id, plan_id, status, start_date, end_date,
            created_at, updated_at, cancelled_at
        ) VALUES (
            :id, :user_id, :plan_id, :status, :start_date, :end_date,
            :created_at, :updated_at, :cancelled_at
        )`

	_, err := r.db.NamedExecContext(ctx, query, sub)
	if err != nil {
		r.log.Errorw("Failed to create subscription in DB", "error", err, "userID", sub.UserID)
		return fmt.Errorf("repository: failed to create subscription: %w", err)
	}

	r.log.Debugw("Subscription created in DB", "subscriptionID", sub.ID, "userID", sub.UserID)
	return nil
}

// GetCurrent возвращает текущую подписку пользователя.
// Текущая - самая свежая строка со статусом active или expired.
func (r *postgresSubscriptionRepo) GetCurrent(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription

	query := `
        SELECT id, user_id, plan_id, status, start_date, end_date,
               created_at, updated_at, cancelled_at
        FROM subscriptions
        WHERE user_id = $1 AND status IN ('active', 'expired')
        ORDER BY created_at DESC
        LIMIT 1`

	err := r.db.GetContext(ctx, &sub, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.log.Errorw("Failed to get current subscription", "error", err, "userID", userID)
		return nil, fmt.Errorf("repository: failed to get current subscription: %w", err)
	}

	return &sub, nil
}

// GetActive возвращает активную подписку пользователя.
func (r *postgresSubscriptionRepo) GetActive(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription

	query := `
        SELECT id, user_id, plan_id, status, start_date, end_date,
               created_at, updated_at, cancelled_at
        FROM subscriptions
        WHERE user_id = $1 AND status = 'active'
        ORDER BY created_at DESC
        LIMIT 1`

	err := r.db.GetContext(ctx, &sub, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.log.Errorw("Failed to get active subscription", "error", err, "userID", userID)
		return nil, fmt.Errorf("repository: failed to get active subscription: %w", err)
	}

	return &sub, nil
}

// UpdateEndDate переносит дату окончания подписки.
func (r *postgresSubscriptionRepo) UpdateEndDate(ctx context.Context, id, _ uuid.UUID, endDate time.Time) error {
	query := `
        UPDATE subscriptions
        SET end_date = $1, updated_at = $2
        WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, endDate, time.Now().UTC(), id)
	if err != nil {
		r.log.Errorw("Failed to update subscription end date", "error", err, "subscriptionID", id)
		return fmt.Errorf("repository: failed to update end date: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkExpired переводит подписку в статус expired.
func (r *postgresSubscriptionRepo) MarkExpired(ctx context.Context, id, _ uuid.UUID) error {
	query := `
        UPDATE subscriptions
        SET status = 'expired', updated_at = $1
        WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		r.log.Errorw("Failed to mark subscription expired", "error", err, "subscriptionID", id)
		return fmt.Errorf("repository: failed to mark expired: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// CancelCurrent переводит все строки active/expired пользователя в cancelled.
func (r *postgresSubscriptionRepo) CancelCurrent(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	query := `
        UPDATE subscriptions
        SET status = 'cancelled', cancelled_at = $1, updated_at = $1
        WHERE user_id = $2 AND status IN ('active', 'expired')`

	result, err := r.db.ExecContext(ctx, query, at.UTC(), userID)
	if err != nil {
		r.log.Errorw("Failed to cancel current subscriptions", "error", err, "userID", userID)
		return 0, fmt.Errorf("repository: failed to cancel current subscriptions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("repository: failed to read rows affected: %w", err)
	}

	return rows, nil
}

// CancelActive переводит строки active пользователя в cancelled.
func (r *postgresSubscriptionRepo) CancelActive(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	query := `
        UPDATE subscriptions
        SET status = 'cancelled', cancelled_at = $1, updated_at = $1
        WHERE user_id = $2 AND status = 'active'`

	result, err := r.db.ExecContext(ctx, query, at.UTC(), userID)
	if err != nil {
		r.log.Errorw("Failed to cancel active subscriptions", "error", err, "userID", userID)
		return 0, fmt.Errorf("repository: failed to cancel active subscriptions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("repository: failed to read rows affected: %w", err)
	}

	return rows, nil
}

// GetByUserID возвращает всю историю подписок пользователя.
func (r *postgresSubscriptionRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	var subs []models.Subscription

	query := `
        SELECT id, user_id, plan_id, status, start_date, end_date,
               created_at, updated_at, cancelled_at
        FROM subscriptions
        WHERE user_id = $1
        ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &subs, query, userID); err != nil {
		r.log.Errorw("Failed to list subscriptions by user", "error", err, "userID", userID)
		return nil, fmt.Errorf("repository: failed to list subscriptions: %w", err)
	}

	return subs, nil
}

// GetAll возвращает подписки с пагинацией.
func (r *postgresSubscriptionRepo) GetAll(ctx context.Context, skip, limit int) ([]models.Subscription, error) {
	var subs []models.Subscription

	query := `
        SELECT id, user_id, plan_id, status, start_date, end_date,
               created_at, updated_at, cancelled_at
        FROM subscriptions
        ORDER BY created_at DESC
        OFFSET $1 LIMIT $2`

	if err := r.db.SelectContext(ctx, &subs, query, skip, limit); err != nil {
		r.log.Errorw("Failed to list subscriptions", "error", err)
		return nil, fmt.Errorf("repository: failed to list subscriptions: %w", err)
	}

	return subs, nil
}

// DeleteByUserID удаляет историю подписок пользователя.
func (r *postgresSubscriptionRepo) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM subscriptions WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		r.log.Errorw("Failed to delete subscriptions by user", "error", err, "userID", userID)
		return fmt.Errorf("repository: failed to delete subscriptions: %w", err)
	}

	return nil
}
