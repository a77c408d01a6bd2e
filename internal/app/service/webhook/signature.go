package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const SignatureHeader = "X-FS-Signature"

var (
	ErrSignatureSecretMissing = errors.New("webhook signature secret is not configured")
	ErrMissingSignature       = errors.New("missing webhook signature")
	ErrInvalidSignature       = errors.New("invalid webhook signature")
)

// SignatureVerifier authenticates webhook bodies with HMAC-SHA256 over the raw
// bytes, base64 encoded, as sent by Fastspring in X-FS-Signature.
type SignatureVerifier struct {
	secret []byte
}

func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: []byte(secret)}
}

func (v *SignatureVerifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify fails closed: without a configured secret every request is rejected.
func (v *SignatureVerifier) Verify(body []byte, signature string) error {
	if len(v.secret) == 0 {
		return ErrSignatureSecretMissing
	}
	if signature == "" {
		return ErrMissingSignature
	}
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}
