package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus статус платежа
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// CurrencyINR единственная поддерживаемая валюта.
const CurrencyINR = "INR"

// Payment представляет попытку оплаты, привязанную к заказу платежного шлюза.
//
// UserID опционален: при удалении пользователя платеж сохраняется как
// финансовая запись, а email остается снимком на момент оплаты.
type Payment struct {
	ID                uuid.UUID     `db:"id" json:"id"`
	UserID            *uuid.UUID    `db:"user_id" json:"user_id,omitempty"`
	Email             string        `db:"email" json:"email"`
	PlanID            string        `db:"plan_id" json:"plan_id"`
	Amount            float64       `db:"amount" json:"amount"`
	Currency          string        `db:"currency" json:"currency"`
	RazorpayOrderID   string        `db:"razorpay_order_id" json:"razorpay_order_id"`
	RazorpayPaymentID string        `db:"razorpay_payment_id" json:"razorpay_payment_id,omitempty"`
	RazorpaySignature string        `db:"razorpay_signature" json:"razorpay_signature,omitempty"`
	Status            PaymentStatus `db:"status" json:"status"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}
