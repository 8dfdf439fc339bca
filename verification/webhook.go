// Package verification authenticates asynchronous payment notifications
// sent by the payment gateway.
package verification

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignaturePrefix may precede the hex digest in the signature header.
const SignaturePrefix = "sha256="

// VerifySignature reports whether providedSignature is the hex HMAC-SHA256 of
// rawBody under secret. It fails closed: a missing secret or signature, or any
// malformed input, yields false.
func VerifySignature(rawBody []byte, providedSignature, secret string) bool {
	if secret == "" || providedSignature == "" {
		return false
	}

	expected := SignPayload(rawBody, secret)
	provided := strings.TrimPrefix(providedSignature, SignaturePrefix)

	// Length is public (hex of a fixed-size digest); only content is compared
	// in constant time.
	if len(provided) != len(expected) {
		return false
	}

	return hmac.Equal([]byte(provided), []byte(expected))
}

// SignPayload returns the lowercase hex HMAC-SHA256 of body under secret.
func SignPayload(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
