package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jarvis4every1/subscription-backend/pkg/logger"
)

func newTestClient() *Client {
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)
	return NewClient(Config{
		KeyID:         "rzp_test_key",
		KeySecret:     "key_secret",
		WebhookSecret: "webhook_secret",
	}, log)
}

func hmacHex(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// TestVerifyPaymentSignature - Проверяет подпись checkout
func TestVerifyPaymentSignature(t *testing.T) {
	c := newTestClient()

	// 1. Подпись считается от "orderID|paymentID" на секрете ключа
	valid := hmacHex([]byte("order_123|pay_456"), "key_secret")
	assert.True(t, c.VerifyPaymentSignature("order_123", "pay_456", valid))

	// 2. Подпись от других идентификаторов не подходит
	assert.False(t, c.VerifyPaymentSignature("order_999", "pay_456", valid))

	// 3. Подпись на другом секрете не подходит
	wrongSecret := hmacHex([]byte("order_123|pay_456"), "another_secret")
	assert.False(t, c.VerifyPaymentSignature("order_123", "pay_456", wrongSecret))

	// 4. Пустая подпись отклоняется
	assert.False(t, c.VerifyPaymentSignature("order_123", "pay_456", ""))
}

// TestVerifyWebhookSignature - Проверяет подпись webhook от сырого тела
func TestVerifyWebhookSignature(t *testing.T) {
	c := newTestClient()
	body := []byte(`{"event":"payment.captured"}`)

	// 1. Подпись от сырого тела на секрете webhook
	assert.True(t, c.VerifyWebhookSignature(body, hmacHex(body, "webhook_secret")))

	// 2. Любое изменение тела ломает подпись
	tampered := []byte(`{"event":"payment.captured" }`)
	assert.False(t, c.VerifyWebhookSignature(tampered, hmacHex(body, "webhook_secret")))

	// 3. Подпись на секрете ключа (а не webhook) не подходит
	assert.False(t, c.VerifyWebhookSignature(body, hmacHex(body, "key_secret")))
}
