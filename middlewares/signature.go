package middlewares

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the hex HMAC-SHA256 of the concatenated parts.
func Sign(secret string, parts ...string) string {
	h := hmac.New(sha256.New, []byte(secret))
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func validSignature(secret, got string, parts ...string) bool {
	if secret == "" || got == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(secret, parts...)), []byte(got))
}
