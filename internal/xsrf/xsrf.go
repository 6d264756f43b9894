// Package xsrf implements the double-submit-cookie pair protecting the
// browser-redirect flow: the server keeps a random secret on the flow
// attempt and hands the browser a token derived from it. Proving knowledge
// of the token proves the request belongs to the flow that minted it, while
// the secret itself never leaves the server.
package xsrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const secretLen = 32

// tokenContext domain-separates the derivation from any other HMAC use of
// the same secret.
const tokenContext = "auth-flow-xsrf-token"

// NewSecret generates a fresh random secret.
func NewSecret() (string, error) {
	buf := make([]byte, secretLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate xsrf secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Token derives the browser-visible token from a secret. The derivation is
// deterministic, so the server can recompute it from the stored secret.
func Token(secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(tokenContext))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether token was derived from secret. Constant time over
// the token comparison; malformed input is simply false.
func Verify(secret, token string) bool {
	if secret == "" || token == "" {
		return false
	}
	want, err := base64.RawURLEncoding.DecodeString(Token(secret))
	if err != nil {
		return false
	}
	got, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}
