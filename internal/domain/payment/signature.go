package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var ErrSecretRequired = errors.New("payment: signing secret required")

// Signer computes and checks the keyed signatures the gateway attaches to
// checkout callbacks and webhooks.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrSecretRequired
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func (s *Signer) Sign(orderID OrderID, paymentID string) string {
	return s.SignPayload([]byte(string(orderID) + "|" + paymentID))
}

func (s *Signer) Verify(orderID OrderID, paymentID, signature string) error {
	return s.VerifyPayload([]byte(string(orderID)+"|"+paymentID), signature)
}

func (s *Signer) SignPayload(payload []byte) string {
	return hex.EncodeToString(s.mac(payload))
}

// VerifyPayload compares in constant time. Malformed hex is a mismatch.
func (s *Signer) VerifyPayload(payload []byte, signature string) error {
	given, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(given) == 0 {
		return ErrInvalidSignature
	}
	if !hmac.Equal(given, s.mac(payload)) {
		return ErrInvalidSignature
	}
	return nil
}

func (s *Signer) mac(payload []byte) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write(payload)
	return h.Sum(nil)
}
