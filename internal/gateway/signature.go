package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	"github.com/tpq-digital/payment-service/internal/config"
)

// VerifyMidtrans recomputes SHA-512(order_id + status_code + gross_amount +
// server_key) and compares it to the signature_key carried in the body.
func VerifyMidtrans(n *MidtransNotification, serverKey string) (bool, error) {
	if serverKey == "" {
		return false, config.ErrMissingSecret
	}
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + serverKey))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) == 1, nil
}

// VerifyXendit checks HMAC-SHA256(rawBody, webhookToken) against the
// x-signature header. When the gateway sends only x-callback-token, the token
// itself is compared instead.
func VerifyXendit(rawBody []byte, signatureHeader, callbackToken, webhookToken string) (bool, error) {
	if webhookToken == "" {
		return false, config.ErrMissingSecret
	}
	if signatureHeader != "" {
		mac := hmac.New(sha256.New, []byte(webhookToken))
		mac.Write(rawBody)
		expected := hex.EncodeToString(mac.Sum(nil))
		return subtle.ConstantTimeCompare([]byte(expected), []byte(signatureHeader)) == 1, nil
	}
	if callbackToken != "" {
		return subtle.ConstantTimeCompare([]byte(webhookToken), []byte(callbackToken)) == 1, nil
	}
	return false, nil
}
