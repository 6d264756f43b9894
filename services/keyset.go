package services

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/relaychat/auth-service/internal/crypto"
)

// JSONWebKey is the public half of one signing key in JWK form.
type JSONWebKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JSONWebKeySet is the published verification key set.
type JSONWebKeySet struct {
	Keys []JSONWebKey `json:"keys"`
}

// keySnapshot is an immutable view of the key set. Rotation publishes a new
// snapshot; readers that grabbed the previous one keep a consistent view for
// their whole call.
type keySnapshot struct {
	activeKid string
	active    *rsa.PrivateKey
	// keys holds every key still accepted for verification: the active key
	// and the one it demoted, so tokens signed just before rotation stay
	// verifiable until they expire.
	keys map[string]*rsa.PublicKey
}

// KeySet owns the signing-key material for access tokens. Signing always
// uses the most recently rotated-in key; verification accepts any key still
// present in the published set.
type KeySet struct {
	mu       sync.Mutex // serializes rotations only
	snapshot atomic.Pointer[keySnapshot]
}

// NewKeySet creates a key set with one freshly generated key.
func NewKeySet() (*KeySet, error) {
	s := &KeySet{}
	if err := s.Rotate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Rotate generates a new signing key, promotes it, and demotes the previous
// active key into verification-only duty. Safe to call concurrently with
// SigningKey/VerificationKey/JWKS.
func (s *KeySet) Rotate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kid, key, err := crypto.GenerateSigningKey()
	if err != nil {
		return err
	}

	next := &keySnapshot{
		activeKid: kid,
		active:    key,
		keys:      map[string]*rsa.PublicKey{kid: &key.PublicKey},
	}
	if prev := s.snapshot.Load(); prev != nil {
		next.keys[prev.activeKid] = prev.keys[prev.activeKid]
	}
	s.snapshot.Store(next)
	return nil
}

// SigningKey returns the active key ID and private key.
func (s *KeySet) SigningKey() (string, *rsa.PrivateKey) {
	snap := s.snapshot.Load()
	return snap.activeKid, snap.active
}

// VerificationKey returns the public key for kid, if it is still in the
// published set.
func (s *KeySet) VerificationKey(kid string) (*rsa.PublicKey, bool) {
	key, ok := s.snapshot.Load().keys[kid]
	return key, ok
}

// JWKS returns the public half of the set for external verifiers.
func (s *KeySet) JWKS() JSONWebKeySet {
	snap := s.snapshot.Load()

	keys := make([]JSONWebKey, 0, len(snap.keys))
	for kid, pub := range snap.keys {
		keys = append(keys, JSONWebKey{
			Kid: kid,
			Kty: "RSA",
			Alg: "RS256",
			Use: "sig",
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		})
	}
	return JSONWebKeySet{Keys: keys}
}

// StartRotation rotates the set on a fixed schedule until ctx is cancelled.
func (s *KeySet) StartRotation(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Rotate(); err != nil {
					log.Error().Err(err).Msg("failed to rotate signing keys")
				}
			}
		}
	}()
}
