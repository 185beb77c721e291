package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/jarvis4every1/subscription-backend/internal/models"
	"github.com/jarvis4every1/subscription-backend/pkg/logger"
)

// Код ошибки PostgreSQL для нарушения уникальности.
const pgUniqueViolation = "23505"

// PaymentRepository определяет операции хранения платежей.
type PaymentRepository interface {
	// Create сохраняет новый платеж. Возвращает ErrDuplicate при повторном
	// razorpay_order_id.
	Create(ctx context.Context, payment *models.Payment) error

	// GetByOrderID находит платеж по идентификатору заказа Razorpay
	GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error)

	// MarkCompleted переводит платеж в статус completed и сохраняет
	// идентификатор и подпись платежа Razorpay
	MarkCompleted(ctx context.Context, orderID, paymentID, signature string) error

	// UpdateStatus меняет статус платежа
	UpdateStatus(ctx context.Context, orderID string, status models.PaymentStatus) error

	// GetByUserID возвращает платежи пользователя (новые в начале)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)

	// GetAll возвращает платежи с пагинацией (для админки)
	GetAll(ctx context.Context, skip, limit int) ([]models.Payment, error)

	// DetachUser обнуляет user_id в платежах пользователя, оставляя
	// email и суммы для финансовой отчетности
	DetachUser(ctx context.Context, userID uuid.UUID) error
}

// postgresPaymentRepo реализует PaymentRepository для PostgreSQL.
type postgresPaymentRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresPaymentRepository создает новый экземпляр репозитория платежей.
func NewPostgresPaymentRepository(db *sqlx.DB, log *logger.Logger) PaymentRepository {
	return &postgresPaymentRepo{
		db:  db,
		log: log,
	}
}

// Create сохраняет новый платеж в базе данных.
func (r *postgresPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now

	query := `
        INSERT INTO payments (
            id, user_id, email, plan_id, amount, currency,
            razorpay_order_id, razorpay_payment_id, razorpay_signature,
            status, created_at, updated_at
        ) VALUES (
            :id, :user_id, :email, :plan_id, :amount, :currency,
            :razorpay_order_id, :razorpay_payment_id, :razorpay_signature,
            :status, :created_at, :updated_at
        )`

	_, err := r.db.NamedExecContext(ctx, query, payment)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicate
		}
		r.log.Errorw("Failed to create payment in DB", "error", err, "orderID", payment.RazorpayOrderID)
		return fmt.Errorf("repository: failed to create payment: %w", err)
	}

	r.log.Debugw("Payment created in DB", "paymentID", payment.ID, "orderID", payment.RazorpayOrderID)
	return nil
}

// GetByOrderID находит платеж по идентификатору заказа Razorpay.
func (r *postgresPaymentRepo) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment

	query := `
        SELECT id, user_id, email, plan_id, amount, currency,
               razorpay_order_id, razorpay_payment_id, razorpay_signature,
               status, created_at, updated_at
        FROM payments
        WHERE razorpay_order_id = $1`

	err := r.db.GetContext(ctx, &payment, query, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.log.Errorw("Failed to get payment by order ID", "error", err, "orderID", orderID)
		return nil, fmt.Errorf("repository: failed to get payment: %w", err)
	}

	return &payment, nil
}

// MarkCompleted переводит платеж в статус completed.
func (r *postgresPaymentRepo) MarkCompleted(ctx context.Context, orderID, paymentID, signature string) error {
	query := `
        UPDATE payments
        SET status = 'completed', razorpay_payment_id = $1,
            razorpay_signature = $2, updated_at = $3
        WHERE razorpay_order_id = $4`

	result, err := r.db.ExecContext(ctx, query, paymentID, signature, time.Now().UTC(), orderID)
	if err != nil {
		r.log.Errorw("Failed to mark payment completed", "error", err, "orderID", orderID)
		return fmt.Errorf("repository: failed to mark payment completed: %w", err)
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

// UpdateStatus меняет статус платежа.
func (r *postgresPaymentRepo) UpdateStatus(ctx context.Context, orderID string, status models.PaymentStatus) error {
	query := `
        UPDATE payments
        SET status = $1, updated_at = $2
        WHERE razorpay_order_id = $3`

	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), orderID)
	if err != nil {
		r.log.Errorw("Failed to update payment status", "error", err, "orderID", orderID)
		return fmt.Errorf("repository: failed to update payment status: %w", err)
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

// GetByUserID возвращает платежи пользователя.
func (r *postgresPaymentRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment

	query := `
        SELECT id, user_id, email, plan_id, amount, currency,
               razorpay_order_id, razorpay_payment_id, razorpay_signature,
               status, created_at, updated_at
        FROM payments
        WHERE user_id = $1
        ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &payments, query, userID); err != nil {
		r.log.Errorw("Failed to list payments by user", "error", err, "userID", userID)
		return nil, fmt.Errorf("repository: failed to list payments: %w", err)
	}

	return payments, nil
}

// GetAll возвращает платежи с пагинацией.
func (r *postgresPaymentRepo) GetAll(ctx context.Context, skip, limit int) ([]models.Payment, error) {
	var payments []models.Payment

	query := `
        SELECT id, user_id, email, plan_id, amount, currency,
               razorpay_order_id, razorpay_payment_id, razorpay_signature,
               status, created_at, updated_at
        FROM payments
        ORDER BY created_at DESC
        OFFSET $1 LIMIT $2`

	if err := r.db.SelectContext(ctx, &payments, query, skip, limit); err != nil {
		r.log.Errorw("Failed to list payments", "error", err)
		return nil, fmt.Errorf("repository: failed to list payments: %w", err)
	}

	return payments, nil
}

// DetachUser обнуляет user_id в платежах пользователя.
func (r *postgresPaymentRepo) DetachUser(ctx context.Context, userID uuid.UUID) error {
	query := `
        UPDATE payments
        SET user_id = NULL, updated_at = $1
        WHERE user_id = $2`

	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), userID); err != nil {
		r.log.Errorw("Failed to detach user from payments", "error", err, "userID", userID)
		return fmt.Errorf("repository: failed to detach user from payments: %w", err)
	}

	return nil
}
