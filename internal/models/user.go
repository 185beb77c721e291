package models

import (
	"time"

	"github.com/google/uuid"
)

// User представляет пользователя системы.
type User struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	Email         string     `db:"email" json:"email"`
	ContactNumber string     `db:"contact_number" json:"contact_number,omitempty"`
	PasswordHash  string     `db:"password_hash" json:"-"` // Хеш пароля никогда не сериализуется
	IsAdmin       bool       `db:"is_admin" json:"is_admin"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	LastLogin     *time.Time `db:"last_login" json:"last_login,omitempty"`
}

// UserWithSubscription объединяет пользователя с информацией о его подписке
// (используется админским списком пользователей).
type UserWithSubscription struct {
	User
	Subscription          *Subscription `json:"subscription,omitempty"`
	HasSubscription       bool          `json:"has_subscription"`
	HasActiveSubscription bool          `json:"has_active_subscription"`
}
