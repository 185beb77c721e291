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

// UserRepository определяет операции чтения каталога пользователей.
// Регистрация и хранение паролей находятся в сервисе аутентификации,
// здесь только часть, нужная для подписок и админки.
type UserRepository interface {
	// GetByID находит пользователя по идентификатору
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail находит пользователя по email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// RecordLogin фиксирует время последнего входа
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error

	// GetAll возвращает пользователей с пагинацией (для админки)
	GetAll(ctx context.Context, skip, limit int) ([]models.User, error)

	// Delete удаляет пользователя
	Delete(ctx context.Context, id uuid.UUID) error
}

// postgresUserRepo реализует UserRepository для PostgreSQL.
type postgresUserRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresUserRepository создает новый экземпляр репозитория пользователей.
func NewPostgresUserRepository(db *sqlx.DB, log *logger.Logger) UserRepository {
	return &postgresUserRepo{
		db:  db,
		log: log,
	}
}

func (r *postgresUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User

	query := `
        SELECT id, name, email, contact_number, password_hash, is_admin,
               created_at, updated_at, last_login
        FROM users
        WHERE id = $1`

	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.log.Errorw("Failed to get user by ID", "error", err, "userID", id)
		return nil, fmt.Errorf("repository: failed to get user: %w", err)
	}

	return &user, nil
}

func (r *postgresUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User

	query := `
        SELECT id, name, email, contact_number, password_hash, is_admin,
               created_at, updated_at, last_login
        FROM users
        WHERE email = $1`

	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.log.Errorw("Failed to get user by email", "error", err, "email", email)
		return nil, fmt.Errorf("repository: failed to get user: %w", err)
	}

	return &user, nil
}

func (r *postgresUserRepo) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
        UPDATE users
        SET last_login = $1, updated_at = $1
        WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, at.UTC(), id)
	if err != nil {
		r.log.Errorw("Failed to record user login", "error", err, "userID", id)
		return fmt.Errorf("repository: failed to record login: %w", err)
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

func (r *postgresUserRepo) GetAll(ctx context.Context, skip, limit int) ([]models.User, error) {
	var users []models.User

	query := `
        SELECT id, name, email, contact_number, password_hash, is_admin,
               created_at, updated_at, last_login
        FROM users
        ORDER BY created_at DESC
        OFFSET $1 LIMIT $2`

	if err := r.db.SelectContext(ctx, &users, query, skip, limit); err != nil {
		r.log.Errorw("Failed to list users", "error", err)
		return nil, fmt.Errorf("repository: failed to list users: %w", err)
	}

	return users, nil
}

func (r *postgresUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM users WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		r.log.Errorw("Failed to delete user", "error", err, "userID", id)
		return fmt.Errorf("repository: failed to delete user: %w", err)
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
