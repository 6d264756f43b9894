package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeySetHasActiveKey(t *testing.T) {
	keys, err := NewKeySet()
	require.NoError(t, err)

	kid, key := keys.SigningKey()
	assert.NotEmpty(t, kid)
	require.NotNil(t, key)

	pub, ok := keys.VerificationKey(kid)
	require.True(t, ok)
	assert.Equal(t, &key.PublicKey, pub)
}

func TestRotateDemotesPreviousKey(t *testing.T) {
	keys, err := NewKeySet()
	require.NoError(t, err)
	oldKid, _ := keys.SigningKey()

	require.NoError(t, keys.Rotate())

	newKid, _ := keys.SigningKey()
	assert.NotEqual(t, oldKid, newKid)

	// Tokens signed just before rotation must stay verifiable.
	_, ok := keys.VerificationKey(oldKid)
	assert.True(t, ok)
	_, ok = keys.VerificationKey(newKid)
	assert.True(t, ok)
}

func TestRotateDropsKeysOlderThanOneGeneration(t *testing.T) {
	keys, err := NewKeySet()
	require.NoError(t, err)
	firstKid, _ := keys.SigningKey()

	require.NoError(t, keys.Rotate())
	require.NoError(t, keys.Rotate())

	_, ok := keys.VerificationKey(firstKid)
	assert.False(t, ok)
}

func TestJWKSPublishesAllVerificationKeys(t *testing.T) {
	keys, err := NewKeySet()
	require.NoError(t, err)
	require.NoError(t, keys.Rotate())

	jwks := keys.JWKS()
	require.Len(t, jwks.Keys, 2)
	for _, key := range jwks.Keys {
		assert.Equal(t, "RSA", key.Kty)
		assert.Equal(t, "RS256", key.Alg)
		assert.Equal(t, "sig", key.Use)
		assert.NotEmpty(t, key.Kid)
		assert.NotEmpty(t, key.N)
		assert.NotEmpty(t, key.E)
	}
}

func TestVerificationKeyUnknownKid(t *testing.T) {
	keys, err := NewKeySet()
	require.NoError(t, err)

	_, ok := keys.VerificationKey("no-such-kid")
	assert.False(t, ok)
}
