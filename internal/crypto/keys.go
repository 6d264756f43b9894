package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"github.com/google/uuid"
)

// GenerateSigningKey generates a new RSA private key for access-token
// signing, together with a fresh key ID.
func GenerateSigningKey() (kid string, key *rsa.PrivateKey, err error) {
	key, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}
	return uuid.NewString(), key, nil
}
