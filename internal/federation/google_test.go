package federation

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestGoogleProvider(t *testing.T) *GoogleProvider {
	t.Helper()
	p, err := NewGoogleProvider("client-id", "client-secret", "https://auth.relaychat.test/federated/callback")
	require.NoError(t, err)
	return p
}

func tokenWithIDToken(t *testing.T, claims jwt.MapClaims) *oauth2.Token {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("irrelevant"))
	require.NoError(t, err)
	return (&oauth2.Token{AccessToken: "at"}).WithExtra(map[string]any{"id_token": raw})
}

func TestNewGoogleProviderRequiresCredentials(t *testing.T) {
	_, err := NewGoogleProvider("", "secret", "https://cb")
	assert.ErrorIs(t, err, ErrProviderMisconfigured)

	_, err = NewGoogleProvider("id", "", "https://cb")
	assert.ErrorIs(t, err, ErrProviderMisconfigured)
}

func TestGoogleAuthCodeURLEmbedsState(t *testing.T) {
	p := newTestGoogleProvider(t)

	u, err := p.AuthCodeURL("state-123")
	require.NoError(t, err)
	assert.Contains(t, u, "state=state-123")
	assert.Contains(t, u, "client_id=client-id")
}

func TestGoogleAuthCodeURLRejectsEmptyState(t *testing.T) {
	p := newTestGoogleProvider(t)

	_, err := p.AuthCodeURL("")
	assert.Error(t, err)
}

func TestGoogleIdentityEmail(t *testing.T) {
	p := newTestGoogleProvider(t)

	email, err := p.IdentityEmail(tokenWithIDToken(t, jwt.MapClaims{"email": "alice@gmail.test"}))
	require.NoError(t, err)
	assert.Equal(t, "alice@gmail.test", email)
}

func TestGoogleIdentityEmailMissingIDToken(t *testing.T) {
	p := newTestGoogleProvider(t)

	_, err := p.IdentityEmail(&oauth2.Token{AccessToken: "at"})
	assert.ErrorIs(t, err, ErrNoIdentityToken)
}

func TestGoogleIdentityEmailMissingEmailClaim(t *testing.T) {
	p := newTestGoogleProvider(t)

	_, err := p.IdentityEmail(tokenWithIDToken(t, jwt.MapClaims{"sub": "12345"}))
	assert.Error(t, err)
}

func TestGoogleIdentityEmailMalformedIDToken(t *testing.T) {
	p := newTestGoogleProvider(t)

	token := (&oauth2.Token{}).WithExtra(map[string]any{"id_token": "not.a.jwt"})
	_, err := p.IdentityEmail(token)
	assert.Error(t, err)
}

func TestRegistryResolvesGoogle(t *testing.T) {
	p := newTestGoogleProvider(t)
	r := NewRegistry(p)

	got, err := r.Get(ProviderGoogle)
	require.NoError(t, err)
	assert.Same(t, Provider(p), got)
}

func TestRegistryGoogleMisconfigured(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get(ProviderGoogle)
	assert.ErrorIs(t, err, ErrProviderMisconfigured)
}

func TestRegistrySlackNotAvailable(t *testing.T) {
	p := newTestGoogleProvider(t)
	r := NewRegistry(p)

	_, err := r.Get(ProviderSlack)
	assert.ErrorIs(t, err, ErrProviderNotAvailable)
}

func TestRegistryUnknownProvider(t *testing.T) {
	r := NewRegistry(newTestGoogleProvider(t))

	_, err := r.Get("github")
	assert.ErrorIs(t, err, ErrProviderUnknown)
}
