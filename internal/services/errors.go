package services

import "errors"

// Ошибки сервисного слоя. HTTP-обработчики сопоставляют их со статусами
// ответов через errors.Is.
var (
	// ErrValidation означает некорректные входные данные (400).
	ErrValidation = errors.New("validation failed")

	// ErrPaymentNotFound означает отсутствие платежа (404).
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrSubscriptionNotFound означает отсутствие подписки (404).
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrUserNotFound означает отсутствие пользователя (404).
	ErrUserNotFound = errors.New("user not found")

	// ErrForbidden означает попытку доступа к чужому ресурсу (403).
	ErrForbidden = errors.New("access denied")

	// ErrInvalidSignature означает неверную подпись Razorpay (400).
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrGatewayUnavailable означает исчерпанные повторы к шлюзу (503).
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrInternalServer означает внутреннюю ошибку (500).
	ErrInternalServer = errors.New("internal server error")
)
