package pkce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateChallengeRoundTrip(t *testing.T) {
	verifier, challenge, err := GenerateChallenge()
	require.NoError(t, err)
	require.NotEmpty(t, verifier)
	require.NotEmpty(t, challenge)
	assert.NotEqual(t, verifier, challenge)

	assert.True(t, VerifyChallenge(verifier, challenge, MethodS256))
}

func TestVerifyChallengeRejectsWrongVerifier(t *testing.T) {
	_, challenge, err := GenerateChallenge()
	require.NoError(t, err)

	otherVerifier, _, err := GenerateChallenge()
	require.NoError(t, err)

	assert.False(t, VerifyChallenge(otherVerifier, challenge, MethodS256))
}

func TestVerifyChallengePlainMethod(t *testing.T) {
	assert.True(t, VerifyChallenge("some-verifier", "some-verifier", MethodPlain))
	assert.False(t, VerifyChallenge("some-verifier", "other-challenge", MethodPlain))
}

func TestVerifyChallengeDefaultsToS256(t *testing.T) {
	verifier, challenge, err := GenerateChallenge()
	require.NoError(t, err)

	assert.True(t, VerifyChallenge(verifier, challenge, ""))
}

func TestVerifyChallengeFailsClosed(t *testing.T) {
	verifier, challenge, err := GenerateChallenge()
	require.NoError(t, err)

	assert.False(t, VerifyChallenge("", challenge, MethodS256))
	assert.False(t, VerifyChallenge(verifier, "", MethodS256))
	assert.False(t, VerifyChallenge(verifier, challenge, "S512"))
}
