// Package federation plays the OAuth2 client role against external identity
// providers for federated login.
package federation

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

// ProviderName identifies a supported external identity provider.
type ProviderName string

const (
	ProviderGoogle ProviderName = "google"
	ProviderSlack  ProviderName = "slack"
)

var (
	// ErrProviderNotAvailable is returned for providers that are declared
	// but not yet usable (Slack). Callers must surface this explicitly,
	// never swallow it.
	ErrProviderNotAvailable = errors.New("external provider is not available")

	// ErrProviderUnknown is returned for provider names outside the enum.
	ErrProviderUnknown = errors.New("unknown external provider")

	// ErrProviderMisconfigured is returned when a provider is missing
	// client credentials.
	ErrProviderMisconfigured = errors.New("external provider is misconfigured")

	// ErrNoIdentityToken is returned when the provider's token response
	// carries no id_token.
	ErrNoIdentityToken = errors.New("token response contains no identity token")
)

// Provider is one external OAuth2/OIDC identity provider.
type Provider interface {
	// Name returns the provider's enum name.
	Name() ProviderName

	// AuthCodeURL builds the consent-screen URL the browser is redirected
	// to, with the given CSRF state embedded.
	AuthCodeURL(state string) (string, error)

	// Exchange trades the provider's authorization code for its tokens.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// IdentityEmail recovers the email claim from the identity token in a
	// token response.
	IdentityEmail(token *oauth2.Token) (string, error)
}

// Registry resolves provider names to configured providers.
type Registry struct {
	providers map[ProviderName]Provider
}

// NewRegistry builds a registry over the given providers.
func NewRegistry(providers ...Provider) *Registry {
	m := make(map[ProviderName]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get returns the provider for name. Slack is part of the enum but has no
// working integration yet, so it fails fast with ErrProviderNotAvailable
// rather than a silent no-op.
func (r *Registry) Get(name ProviderName) (Provider, error) {
	switch name {
	case ProviderGoogle:
		if p, ok := r.providers[ProviderGoogle]; ok {
			return p, nil
		}
		return nil, ErrProviderMisconfigured
	case ProviderSlack:
		return nil, ErrProviderNotAvailable
	default:
		return nil, ErrProviderUnknown
	}
}
