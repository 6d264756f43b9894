package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/relaychat/auth-service/domain"
	"github.com/relaychat/auth-service/errors"
	"github.com/relaychat/auth-service/internal/crypto"
	"github.com/relaychat/auth-service/internal/federation"
	"github.com/relaychat/auth-service/internal/pkce"
	"github.com/relaychat/auth-service/internal/xsrf"
)

// AuthService sequences the authorization-code flow: begin, login, confirm,
// federated login, grant exchange, refresh and revocation. Every failure
// leaving this service is one of the fixed OAuth2 error codes; storage and
// collaborator errors never escape raw. When an attempt's redirect URI has
// been validated, failures are delivered as an ErrorRedirect.
type AuthService struct {
	flows     domain.FlowAttemptRepository
	clients   domain.ClientRepository
	tokens    *TokenService
	directory domain.Directory
	email     domain.ConfirmationSender
	sms       domain.ConfirmationSender
	providers *federation.Registry
	loginURL  string
}

// NewAuthService creates a new AuthService. loginURL is where the browser is
// sent to collect credentials after a flow begins.
func NewAuthService(
	flows domain.FlowAttemptRepository,
	clients domain.ClientRepository,
	tokens *TokenService,
	directory domain.Directory,
	email domain.ConfirmationSender,
	sms domain.ConfirmationSender,
	providers *federation.Registry,
	loginURL string,
) *AuthService {
	return &AuthService{
		flows:     flows,
		clients:   clients,
		tokens:    tokens,
		directory: directory,
		email:     email,
		sms:       sms,
		providers: providers,
		loginURL:  loginURL,
	}
}

// BeginAuthFlow validates the authorize request, creates the flow attempt
// and returns the login redirect plus the XSRF cookie token.
//
// Until the redirect URI is validated against the client registration,
// failures are returned directly: an unverified URI must never receive a
// redirect.
func (s *AuthService) BeginAuthFlow(ctx context.Context, req BeginAuthFlowRequest) (*BeginAuthFlowResult, error) {
	client, err := s.clients.Get(ctx, req.ClientID)
	if err != nil {
		if stderrors.Is(err, domain.ErrNotFound) {
			return nil, errors.NewUnauthorizedClient("unknown client")
		}
		log.Error().Err(err).Str("clientID", req.ClientID).Msg("failed to load client")
		return nil, errors.NewServerError()
	}
	if req.RedirectURI != client.RedirectURI {
		return nil, errors.NewInvalidRequest("redirect_uri does not match the registered value")
	}

	fail := func(oerr *errors.OAuth2Error) error {
		return errors.NewErrorRedirect(oerr.WithState(req.State), req.RedirectURI)
	}

	if req.ResponseType != "code" {
		return nil, fail(errors.NewUnsupportedResponseType(req.ResponseType))
	}
	if client.RequiresPKCE() && (req.CodeChallenge == "" || req.CodeChallengeMethod == "" || req.State == "") {
		return nil, fail(errors.NewPKCERequired())
	}
	if req.CodeChallenge != "" &&
		req.CodeChallengeMethod != pkce.MethodS256 && req.CodeChallengeMethod != pkce.MethodPlain {
		return nil, fail(errors.NewInvalidRequest("unsupported code_challenge_method"))
	}

	scope := req.Scope
	if scope == "" {
		scope = strings.Join(client.Scopes, " ")
	} else if !client.AllowsScope(strings.Fields(scope)) {
		return nil, fail(errors.NewInvalidScope("requested scope exceeds client registration"))
	}

	secret, err := xsrf.NewSecret()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate flow secret")
		return nil, fail(errors.NewServerError())
	}
	token := xsrf.Token(secret)

	attempt := &domain.FlowAttempt{
		ClientID:            client.ID,
		State:               req.State,
		ResponseType:        req.ResponseType,
		RedirectURI:         req.RedirectURI,
		Scope:               scope,
		Secret:              secret,
		XSRFToken:           token,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		CreatedAt:           time.Now(),
	}
	if err := s.flows.Create(ctx, attempt); err != nil {
		if stderrors.Is(err, domain.ErrConflict) {
			return nil, fail(errors.NewInvalidRequest("authorization attempt already exists"))
		}
		log.Error().Err(err).Str("clientID", client.ID).Msg("failed to create flow attempt")
		return nil, fail(errors.NewServerError())
	}

	location, err := s.loginLocation(client.ID)
	if err != nil {
		return nil, fail(errors.NewServerError())
	}
	return &BeginAuthFlowResult{Location: location, XSRFToken: token}, nil
}

// Login resolves the user through the directory and dispatches a 6-digit
// confirmation code to the login identifier. The code is a secondary
// possession factor, deliberately decoupled from the directory's own
// password mechanism.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) error {
	attempt, err := s.loadVerifiedAttempt(ctx, req.XSRFToken)
	if err != nil {
		return err
	}
	fail := s.redirectFailure(attempt)

	if req.Input == nil {
		return fail(errors.NewInvalidRequest("missing login identifier"))
	}

	userID, err := s.directory.ResolveOrCreateUser(ctx, req.Input)
	if err != nil {
		log.Error().Err(err).Msg("directory lookup failed")
		return fail(errors.NewServerError())
	}

	code, err := crypto.ConfirmationCode()
	if err != nil {
		return fail(errors.NewServerError())
	}

	now := time.Now()
	if _, err := s.flows.Update(ctx, attempt.XSRFToken, &domain.FlowAttemptPatch{
		ConfirmationCode:          &code,
		ConfirmationCodeCreatedAt: &now,
		UserID:                    &userID,
	}); err != nil {
		log.Error().Err(err).Msg("failed to store confirmation code")
		return fail(errors.NewServerError())
	}

	var sender domain.ConfirmationSender
	switch req.Input.(type) {
	case domain.EmailAddress:
		sender = s.email
	case domain.PhoneNumber:
		sender = s.sms
	}
	if err := sender.SendConfirmationCode(ctx, req.Input.Destination(), code); err != nil {
		log.Error().Err(err).Msg("failed to dispatch confirmation code")
		return fail(errors.NewServerError())
	}
	return nil
}

// Confirm checks the confirmation code, issues the authorization code and
// redirects back to the client. The match is exact; no normalization.
func (s *AuthService) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	attempt, err := s.loadVerifiedAttempt(ctx, req.XSRFToken)
	if err != nil {
		return nil, err
	}
	fail := s.redirectFailure(attempt)

	if attempt.ConfirmationCode == "" || req.ConfirmationCode != attempt.ConfirmationCode {
		return nil, fail(errors.NewAccessDenied("confirmation code mismatch"))
	}

	code, err := crypto.RandomToken()
	if err != nil {
		return nil, fail(errors.NewServerError())
	}

	now := time.Now()
	empty := ""
	var zero time.Time
	if _, err := s.flows.Update(ctx, attempt.XSRFToken, &domain.FlowAttemptPatch{
		ConfirmationCode:          &empty,
		ConfirmationCodeCreatedAt: &zero,
		AuthorizationCode:         &code,
		AuthorizationCodeCreated:  &now,
	}); err != nil {
		log.Error().Err(err).Msg("failed to store authorization code")
		return nil, fail(errors.NewServerError())
	}

	location, err := codeRedirect(attempt.RedirectURI, code, attempt.State)
	if err != nil {
		return nil, fail(errors.NewServerError())
	}
	return &ConfirmResult{AuthorizationCode: code, Location: location}, nil
}

// LoginViaExternalProvider stamps the attempt with federation state and
// returns the redirect to the provider's consent screen.
func (s *AuthService) LoginViaExternalProvider(ctx context.Context, req ExternalLoginRequest) (*ExternalLoginResult, error) {
	attempt, err := s.loadVerifiedAttempt(ctx, req.XSRFToken)
	if err != nil {
		return nil, err
	}
	fail := s.redirectFailure(attempt)

	provider, err := s.providers.Get(req.Provider)
	if err != nil {
		switch {
		case stderrors.Is(err, federation.ErrProviderNotAvailable):
			return nil, fail(errors.NewAccessDenied(fmt.Sprintf("provider %q is not available", req.Provider)))
		case stderrors.Is(err, federation.ErrProviderUnknown):
			return nil, fail(errors.NewInvalidRequest(fmt.Sprintf("unknown provider %q", req.Provider)))
		default:
			log.Error().Err(err).Str("provider", string(req.Provider)).Msg("provider resolution failed")
			return nil, fail(errors.NewServerError())
		}
	}

	state, err := crypto.RandomToken()
	if err != nil {
		return nil, fail(errors.NewServerError())
	}

	name := string(provider.Name())
	expiresAt := time.Now().Add(domain.ExternalFlowTTL)
	if _, err := s.flows.Update(ctx, attempt.XSRFToken, &domain.FlowAttemptPatch{
		ExternalProvider:      &name,
		ExternalProviderState: &state,
		ExpiresAt:             &expiresAt,
	}); err != nil {
		log.Error().Err(err).Msg("failed to stamp federation state")
		return nil, fail(errors.NewServerError())
	}

	location, err := provider.AuthCodeURL(state)
	if err != nil {
		log.Error().Err(err).Str("provider", name).Msg("failed to build consent URL")
		return nil, fail(errors.NewServerError())
	}
	return &ExternalLoginResult{Location: location}, nil
}

// CompleteExternalProviderAuthFlow finishes a federated round trip: exchange
// the provider's code, bind the identity to a local user, and issue a local
// authorization code. A state mismatch is fatal, with no fallback.
func (s *AuthService) CompleteExternalProviderAuthFlow(ctx context.Context, req ExternalCallbackRequest) (*ExternalCallbackResult, error) {
	attempt, err := s.loadVerifiedAttempt(ctx, req.XSRFToken)
	if err != nil {
		return nil, err
	}
	fail := s.redirectFailure(attempt)

	// The store's TTL is re-validated here: expiry is a security invariant,
	// not a cleanup hint.
	if attempt.ExternalExpired(time.Now()) {
		s.burnAttempt(ctx, attempt)
		return nil, fail(errors.NewAccessDenied("federated login expired"))
	}
	if attempt.ExternalProviderState == "" || req.State != attempt.ExternalProviderState {
		return nil, fail(errors.NewAccessDenied("federation state mismatch"))
	}

	provider, err := s.providers.Get(federation.ProviderName(attempt.ExternalProvider))
	if err != nil {
		log.Error().Err(err).Str("provider", attempt.ExternalProvider).Msg("provider resolution failed at callback")
		return nil, fail(errors.NewServerError())
	}

	providerToken, err := provider.Exchange(ctx, req.AuthorizationCode)
	if err != nil {
		log.Warn().Err(err).Str("provider", attempt.ExternalProvider).Msg("provider code exchange failed")
		return nil, fail(errors.NewAccessDenied("provider exchange failed"))
	}
	email, err := provider.IdentityEmail(providerToken)
	if err != nil {
		log.Warn().Err(err).Str("provider", attempt.ExternalProvider).Msg("identity token decode failed")
		return nil, fail(errors.NewAccessDenied("provider identity could not be established"))
	}

	userID, err := s.directory.ResolveOrCreateUser(ctx, domain.EmailAddress(email))
	if err != nil {
		log.Error().Err(err).Msg("directory lookup failed")
		return nil, fail(errors.NewServerError())
	}

	code, err := crypto.RandomToken()
	if err != nil {
		return nil, fail(errors.NewServerError())
	}

	now := time.Now()
	if _, err := s.flows.Update(ctx, attempt.XSRFToken, &domain.FlowAttemptPatch{
		AuthorizationCode:        &code,
		AuthorizationCodeCreated: &now,
		UserID:                   &userID,
	}); err != nil {
		log.Error().Err(err).Msg("failed to store authorization code")
		return nil, fail(errors.NewServerError())
	}

	location, err := codeRedirect(attempt.RedirectURI, code, attempt.State)
	if err != nil {
		return nil, fail(errors.NewServerError())
	}
	return &ExternalCallbackResult{AuthorizationCode: code, Location: location}, nil
}

// HandleAuthorizationCodeGrant exchanges an authorization code for the final
// token pair. Token-endpoint failures are always direct responses, never
// redirects. A failed PKCE check burns the code: the attempt is deleted
// before the error returns, so probing with other verifiers finds nothing.
func (s *AuthService) HandleAuthorizationCodeGrant(ctx context.Context, req AuthorizationCodeGrantRequest) (*TokenPair, error) {
	attempt, err := s.flows.GetByAuthorizationCode(ctx, req.AuthorizationCode)
	if err != nil {
		if stderrors.Is(err, domain.ErrNotFound) {
			return nil, errors.NewAccessDenied("unknown authorization code")
		}
		log.Error().Err(err).Msg("failed to resolve authorization code")
		return nil, errors.NewServerError()
	}
	if attempt.ClientID != req.ClientID {
		return nil, errors.NewUnauthorizedClient("authorization code was issued to another client")
	}
	if req.RedirectURI != attempt.RedirectURI {
		return nil, errors.NewInvalidRequest("redirect_uri mismatch")
	}

	client, err := s.clients.Get(ctx, req.ClientID)
	if err != nil {
		log.Error().Err(err).Str("clientID", req.ClientID).Msg("failed to load client")
		return nil, errors.NewServerError()
	}
	if client.SecretHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(req.ClientSecret)); err != nil {
			return nil, errors.NewAccessDenied("invalid client secret")
		}
	}

	if attempt.CodeChallenge != "" {
		if !pkce.VerifyChallenge(req.CodeVerifier, attempt.CodeChallenge, attempt.CodeChallengeMethod) {
			s.burnAttempt(ctx, attempt)
			return nil, errors.NewAccessDenied("code verifier mismatch")
		}
	}

	now := time.Now()
	if attempt.CodeExpired(now) || attempt.ExternalExpired(now) {
		s.burnAttempt(ctx, attempt)
		return nil, errors.NewInvalidRequest("authorization code expired")
	}

	pair, err := s.tokens.GenerateAccessAndRefreshTokens(ctx, attempt.ClientID, attempt.UserID, attempt.Scope)
	if err != nil {
		// The attempt stays: minting failed, so the code must remain
		// valid for a retry.
		log.Error().Err(err).Str("clientID", attempt.ClientID).Msg("failed to mint token pair")
		return nil, mapTokenError(err)
	}

	// Deleted only after a successful mint. If this delete fails the code
	// is still single-use in effect: it ages out within 60 seconds.
	if err := s.flows.Delete(ctx, attempt.XSRFToken); err != nil {
		log.Warn().Err(err).Msg("failed to delete exchanged flow attempt")
	}
	return pair, nil
}

// HandleRefreshTokenGrant delegates to the token service's refresh path.
func (s *AuthService) HandleRefreshTokenGrant(ctx context.Context, req RefreshTokenGrantRequest) (*AccessTokenResponse, error) {
	resp, err := s.tokens.RefreshAccessToken(ctx, req.ClientID, req.RefreshToken)
	if err != nil {
		return nil, mapTokenError(err)
	}
	return resp, nil
}

// RevokeTokens delegates to the token service.
func (s *AuthService) RevokeTokens(ctx context.Context, req RevokeTokensRequest) error {
	if err := s.tokens.RevokeTokens(ctx, req.ClientID, req.RefreshToken); err != nil {
		return mapTokenError(err)
	}
	return nil
}

// GetPublicJWKS exposes the verification key set.
func (s *AuthService) GetPublicJWKS() JSONWebKeySet {
	return s.tokens.PublicJWKS()
}

// loadVerifiedAttempt loads the attempt for an XSRF token and proves the
// token was derived from the attempt's secret. Both failures look the same
// from outside, and neither redirects: without a verified attempt there is
// no trusted redirect target.
func (s *AuthService) loadVerifiedAttempt(ctx context.Context, xsrfToken string) (*domain.FlowAttempt, error) {
	attempt, err := s.flows.Get(ctx, xsrfToken)
	if err != nil {
		if stderrors.Is(err, domain.ErrNotFound) {
			return nil, errors.NewAccessDenied("unknown authorization attempt")
		}
		log.Error().Err(err).Msg("failed to load flow attempt")
		return nil, errors.NewServerError()
	}
	if !xsrf.Verify(attempt.Secret, xsrfToken) {
		return nil, errors.NewAccessDenied("xsrf token verification failed")
	}
	return attempt, nil
}

// redirectFailure returns the failure wrapper for a verified attempt: errors
// ride the attempt's redirect URI, echoing the client state.
func (s *AuthService) redirectFailure(attempt *domain.FlowAttempt) func(*errors.OAuth2Error) error {
	return func(oerr *errors.OAuth2Error) error {
		return errors.NewErrorRedirect(oerr.WithState(attempt.State), attempt.RedirectURI)
	}
}

// burnAttempt deletes an attempt as a security side effect. Best effort: the
// caller's error stands either way.
func (s *AuthService) burnAttempt(ctx context.Context, attempt *domain.FlowAttempt) {
	if err := s.flows.Delete(ctx, attempt.XSRFToken); err != nil {
		log.Warn().Err(err).Msg("failed to burn flow attempt")
	}
}

func (s *AuthService) loginLocation(clientID string) (string, error) {
	u, err := url.Parse(s.loginURL)
	if err != nil {
		return "", fmt.Errorf("invalid login url: %w", err)
	}
	q := u.Query()
	q.Set("client_id", clientID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// codeRedirect builds the success redirect delivering an authorization code.
func codeRedirect(redirectURI, code, state string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("invalid redirect uri: %w", err)
	}
	q := u.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// mapTokenError translates token-service failures into the OAuth2 taxonomy.
func mapTokenError(err error) error {
	var oerr *errors.OAuth2Error
	if stderrors.As(err, &oerr) {
		return oerr
	}
	if stderrors.Is(err, domain.ErrForbidden) || stderrors.Is(err, domain.ErrNotFound) {
		return errors.NewAccessDenied("invalid grant")
	}
	log.Error().Err(err).Msg("unclassified token service failure")
	return errors.NewServerError()
}
