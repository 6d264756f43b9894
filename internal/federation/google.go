package federation

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	googleoauth2 "golang.org/x/oauth2/google"
)

// GoogleProvider implements Provider for Google sign-in.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a GoogleProvider using Google's well-known
// endpoints. redirectURL is our callback endpoint registered with Google.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) (*GoogleProvider, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrProviderMisconfigured
	}
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     googleoauth2.Endpoint,
		},
	}, nil
}

func (g *GoogleProvider) Name() ProviderName { return ProviderGoogle }

func (g *GoogleProvider) AuthCodeURL(state string) (string, error) {
	if state == "" {
		return "", fmt.Errorf("federation state must not be empty")
	}
	return g.config.AuthCodeURL(state), nil
}

func (g *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code with google: %w", err)
	}
	return token, nil
}

// IdentityEmail decodes the id_token from the token response and returns its
// email claim. The token was obtained over the direct TLS exchange with
// Google's token endpoint, which is what authenticates it here; no local
// signature check is performed.
func (g *GoogleProvider) IdentityEmail(token *oauth2.Token) (string, error) {
	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return "", ErrNoIdentityToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return "", fmt.Errorf("failed to decode identity token: %w", err)
	}

	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return "", fmt.Errorf("identity token contains no email claim")
	}
	return email, nil
}

var _ Provider = (*GoogleProvider)(nil)
