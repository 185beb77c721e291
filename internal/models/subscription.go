package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus статус подписки
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// PlanMonthly единственный поддерживаемый тарифный план.
const PlanMonthly = "monthly"

// Subscription представляет подписку пользователя.
//
// История подписок append-only: при продлении все прежние строки со статусом
// active/expired переводятся в cancelled, после чего вставляется новая active
// строка. "Текущей" считается самая свежая строка не в статусе cancelled.
type Subscription struct {
	ID          uuid.UUID          `db:"id" json:"id"`
	UserID      uuid.UUID          `db:"user_id" json:"user_id"`
	PlanID      string             `db:"plan_id" json:"plan_id"`
	Status      SubscriptionStatus `db:"status" json:"status"`
	StartDate   time.Time          `db:"start_date" json:"start_date"`
	EndDate     time.Time          `db:"end_date" json:"end_date"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at" json:"updated_at"`
	CancelledAt *time.Time         `db:"cancelled_at" json:"cancelled_at,omitempty"`
}
