package domain

import "time"

// AuthorizationCodeTTL is the maximum age of an authorization code at
// exchange time. Older codes are rejected and the attempt is burned.
const AuthorizationCodeTTL = 60 * time.Second

// ExternalFlowTTL bounds a federated round trip. An attempt that has been
// redirected to an external provider must complete within this window.
const ExternalFlowTTL = 2 * time.Minute

// FlowAttempt is the server-side record of one in-progress authorization
// round trip, keyed by the XSRF token handed to the browser.
type FlowAttempt struct {
	ClientID     string `bson:"client_id"`
	State        string `bson:"state,omitempty"`
	ResponseType string `bson:"response_type"`
	RedirectURI  string `bson:"redirect_uri"`
	Scope        string `bson:"scope,omitempty"`

	// Secret never leaves the server; XSRFToken is derived from it and is
	// the browser-visible half of the double-submit pair.
	Secret    string `bson:"secret"`
	XSRFToken string `bson:"xsrf_token"`

	CodeChallenge       string `bson:"code_challenge,omitempty"`
	CodeChallengeMethod string `bson:"code_challenge_method,omitempty"`

	ConfirmationCode          string    `bson:"confirmation_code,omitempty"`
	ConfirmationCodeCreatedAt time.Time `bson:"confirmation_code_created_at,omitempty"`

	AuthorizationCode          string    `bson:"authorization_code,omitempty"`
	AuthorizationCodeCreatedAt time.Time `bson:"authorization_code_created_at,omitempty"`

	UserID string `bson:"user_id,omitempty"`

	// ExternalProvider and ExternalProviderState track a federated round
	// trip; ExpiresAt is set alongside them and enforced both by the
	// store's TTL index and by the orchestrator.
	ExternalProvider      string    `bson:"external_provider,omitempty"`
	ExternalProviderState string    `bson:"external_provider_state,omitempty"`
	ExpiresAt             time.Time `bson:"expires_at,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
}

// CodeExpired reports whether the issued authorization code is too old to
// exchange at the given instant.
func (a *FlowAttempt) CodeExpired(now time.Time) bool {
	return a.AuthorizationCode != "" &&
		now.Sub(a.AuthorizationCodeCreatedAt) > AuthorizationCodeTTL
}

// ExternalExpired reports whether a federated attempt has outlived its TTL.
// Attempts that never went external have a zero ExpiresAt and never expire
// this way.
func (a *FlowAttempt) ExternalExpired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && now.After(a.ExpiresAt)
}

// FlowAttemptPatch carries merge-patch fields for FlowAttemptRepository.Update.
// Nil pointers are left untouched; non-nil pointers overwrite, including
// overwriting with the zero value (how a confirmation code gets cleared).
type FlowAttemptPatch struct {
	ConfirmationCode          *string    `bson:"confirmation_code,omitempty"`
	ConfirmationCodeCreatedAt *time.Time `bson:"confirmation_code_created_at,omitempty"`
	AuthorizationCode         *string    `bson:"authorization_code,omitempty"`
	AuthorizationCodeCreated  *time.Time `bson:"authorization_code_created_at,omitempty"`
	UserID                    *string    `bson:"user_id,omitempty"`
	ExternalProvider          *string    `bson:"external_provider,omitempty"`
	ExternalProviderState     *string    `bson:"external_provider_state,omitempty"`
	ExpiresAt                 *time.Time `bson:"expires_at,omitempty"`
}

// Apply merges the patch into attempt in place.
func (p *FlowAttemptPatch) Apply(attempt *FlowAttempt) {
	if p.ConfirmationCode != nil {
		attempt.ConfirmationCode = *p.ConfirmationCode
	}
	if p.ConfirmationCodeCreatedAt != nil {
		attempt.ConfirmationCodeCreatedAt = *p.ConfirmationCodeCreatedAt
	}
	if p.AuthorizationCode != nil {
		attempt.AuthorizationCode = *p.AuthorizationCode
	}
	if p.AuthorizationCodeCreated != nil {
		attempt.AuthorizationCodeCreatedAt = *p.AuthorizationCodeCreated
	}
	if p.UserID != nil {
		attempt.UserID = *p.UserID
	}
	if p.ExternalProvider != nil {
		attempt.ExternalProvider = *p.ExternalProvider
	}
	if p.ExternalProviderState != nil {
		attempt.ExternalProviderState = *p.ExternalProviderState
	}
	if p.ExpiresAt != nil {
		attempt.ExpiresAt = *p.ExpiresAt
	}
}
