package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyPaymentSignature проверяет подпись, которую Razorpay Checkout
// возвращает клиенту после оплаты. Подпись считается как
// HMAC-SHA256 от строки "orderID|paymentID" на секретном ключе аккаунта.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verifyHMAC([]byte(orderID+"|"+paymentID), signature, c.keySecret)
}

// VerifyWebhookSignature проверяет подпись webhook-события.
// Подпись считается от сырого тела запроса на секрете webhook.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	return verifyHMAC(body, signature, c.webhookSecret)
}

func verifyHMAC(payload []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
