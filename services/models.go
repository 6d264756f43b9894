package services

import (
	"github.com/relaychat/auth-service/domain"
	"github.com/relaychat/auth-service/internal/federation"
)

// BeginAuthFlowRequest carries the parameters of the authorize redirect.
type BeginAuthFlowRequest struct {
	ClientID            string
	ResponseType        string
	RedirectURI         string
	State               string
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// BeginAuthFlowResult tells the transport where to send the browser and
// which XSRF token to set as the flow cookie.
type BeginAuthFlowResult struct {
	Location  string
	XSRFToken string
}

// LoginRequest identifies the user within an in-flight attempt.
type LoginRequest struct {
	XSRFToken string
	Input     domain.LoginInput
}

// ConfirmRequest completes the possession-factor check.
type ConfirmRequest struct {
	XSRFToken        string
	ConfirmationCode string
}

// ConfirmResult carries the issued authorization code and the redirect back
// to the client. The transport also clears the XSRF cookie: the flow is now
// in the browser's past.
type ConfirmResult struct {
	AuthorizationCode string
	Location          string
}

// ExternalLoginRequest starts a federated round trip.
type ExternalLoginRequest struct {
	XSRFToken string
	Provider  federation.ProviderName
}

// ExternalLoginResult is the redirect to the provider's consent screen.
type ExternalLoginResult struct {
	Location string
}

// ExternalCallbackRequest is the provider's redirect back to us.
type ExternalCallbackRequest struct {
	XSRFToken         string
	AuthorizationCode string
	State             string
}

// ExternalCallbackResult redirects to the client with a local code.
type ExternalCallbackResult struct {
	AuthorizationCode string
	Location          string
}

// AuthorizationCodeGrantRequest is the token-endpoint exchange.
type AuthorizationCodeGrantRequest struct {
	ClientID          string
	ClientSecret      string
	AuthorizationCode string
	RedirectURI       string
	CodeVerifier      string
}

// RefreshTokenGrantRequest is the token-endpoint refresh.
type RefreshTokenGrantRequest struct {
	ClientID     string
	RefreshToken string
}

// RevokeTokensRequest revokes the session behind a refresh token.
type RevokeTokensRequest struct {
	ClientID     string
	RefreshToken string
}
