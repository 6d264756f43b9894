package errors

import (
	"fmt"
	"net/url"
)

// OAuth2Error represents a standardized OAuth 2.0 error.
type OAuth2Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	State       string `json:"state,omitempty"`
}

func (e *OAuth2Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Standard OAuth2 error codes.
const (
	InvalidRequest          = "invalid_request"
	UnauthorizedClient      = "unauthorized_client"
	AccessDenied            = "access_denied"
	UnsupportedResponseType = "unsupported_response_type"
	InvalidScope            = "invalid_scope"
	ServerError             = "server_error"
	TemporarilyUnavailable  = "temporarily_unavailable"
)

// WithState returns a copy of the error carrying the client's state
// parameter, so redirect encoding can echo it back.
func (e *OAuth2Error) WithState(state string) *OAuth2Error {
	c := *e
	c.State = state
	return &c
}

// RedirectTo serializes the error into the query string of redirectURI, per
// RFC 6749 §4.1.2.1. Existing query parameters on the URI are preserved.
func (e *OAuth2Error) RedirectTo(redirectURI string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("invalid redirect uri: %w", err)
	}
	q := u.Query()
	q.Set("error", e.Code)
	if e.Description != "" {
		q.Set("error_description", e.Description)
	}
	if e.State != "" {
		q.Set("state", e.State)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Common error constructors.

func NewInvalidRequest(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidRequest, Description: description}
}

func NewUnauthorizedClient(description string) *OAuth2Error {
	return &OAuth2Error{Code: UnauthorizedClient, Description: description}
}

func NewAccessDenied(description string) *OAuth2Error {
	return &OAuth2Error{Code: AccessDenied, Description: description}
}

func NewUnsupportedResponseType(responseType string) *OAuth2Error {
	return &OAuth2Error{
		Code:        UnsupportedResponseType,
		Description: fmt.Sprintf("response type %q is not supported", responseType),
	}
}

func NewInvalidScope(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidScope, Description: description}
}

// NewServerError deliberately carries a fixed description: internal detail
// must never leak into a redirect URI.
func NewServerError() *OAuth2Error {
	return &OAuth2Error{Code: ServerError, Description: "internal error"}
}

func NewTemporarilyUnavailable() *OAuth2Error {
	return &OAuth2Error{Code: TemporarilyUnavailable}
}

// NewPKCERequired is raised when a public client starts a flow without a
// code challenge.
func NewPKCERequired() *OAuth2Error {
	return &OAuth2Error{
		Code:        InvalidRequest,
		Description: "PKCE is required for this client",
	}
}
