// Package pkce implements RFC 7636 challenge/verifier pairing for public
// clients.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

const (
	// MethodS256 is the only challenge method recommended by RFC 7636.
	MethodS256 = "S256"
	// MethodPlain is accepted for compatibility; the challenge is the
	// verifier itself.
	MethodPlain = "plain"
)

const verifierLen = 32

// GenerateChallenge returns a fresh (verifier, challenge) pair using the
// S256 method.
func GenerateChallenge() (verifier, challenge string, err error) {
	buf := make([]byte, verifierLen)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	verifier = base64.RawURLEncoding.EncodeToString(buf)
	return verifier, Challenge(verifier), nil
}

// Challenge computes the S256 challenge for a verifier.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyChallenge reports whether verifier matches challenge under the given
// method. It fails closed: any malformed or empty input is false, never an
// error into the control path.
func VerifyChallenge(verifier, challenge, method string) bool {
	if verifier == "" || challenge == "" {
		return false
	}
	switch method {
	case MethodPlain:
		return subtle.ConstantTimeCompare([]byte(verifier), []byte(challenge)) == 1
	case MethodS256, "":
		computed := Challenge(verifier)
		return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
	default:
		return false
	}
}
