// Package echo is the thin HTTP surface over the authorization service.
// Request parsing and response shaping only; protocol decisions live in the
// services package.
package echo

import (
	stderrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/relaychat/auth-service/domain"
	"github.com/relaychat/auth-service/errors"
	"github.com/relaychat/auth-service/internal/federation"
	"github.com/relaychat/auth-service/log"
	"github.com/relaychat/auth-service/services"
)

// XSRFCookie is the cookie carrying the flow's browser-visible token.
const XSRFCookie = "XSRF-TOKEN"

// AuthAPI holds the handler dependencies.
type AuthAPI struct {
	auth *services.AuthService
}

// NewAuthAPI initializes the HTTP API.
func NewAuthAPI(auth *services.AuthService) *AuthAPI {
	return &AuthAPI{auth: auth}
}

// RegisterRoutes registers the authorization endpoints.
func (a *AuthAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/oauth2/authorize", a.AuthorizeHandler)
	e.POST("/oauth2/login", a.LoginHandler)
	e.POST("/oauth2/confirm", a.ConfirmHandler)
	e.GET("/oauth2/federated/:provider", a.FederatedLoginHandler)
	e.GET("/oauth2/federated/callback", a.FederatedCallbackHandler)
	e.POST("/oauth2/token", a.TokenHandler)
	e.POST("/oauth2/revoke", a.RevokeHandler)
	e.GET("/.well-known/jwks.json", a.JWKSHandler)
}

// AuthorizeHandler begins an authorization flow and redirects to the login
// UI with the XSRF cookie set.
func (a *AuthAPI) AuthorizeHandler(c echo.Context) error {
	result, err := a.auth.BeginAuthFlow(c.Request().Context(), services.BeginAuthFlowRequest{
		ClientID:            c.QueryParam("client_id"),
		ResponseType:        c.QueryParam("response_type"),
		RedirectURI:         c.QueryParam("redirect_uri"),
		State:               c.QueryParam("state"),
		Scope:               c.QueryParam("scope"),
		CodeChallenge:       c.QueryParam("code_challenge"),
		CodeChallengeMethod: c.QueryParam("code_challenge_method"),
	})
	if err != nil {
		return a.renderError(c, err)
	}

	c.SetCookie(flowCookie(result.XSRFToken))
	return c.Redirect(http.StatusFound, result.Location)
}

// LoginHandler accepts an email or phone identifier and triggers the
// confirmation-code dispatch.
func (a *AuthAPI) LoginHandler(c echo.Context) error {
	var input domain.LoginInput
	switch {
	case c.FormValue("email") != "":
		input = domain.EmailAddress(c.FormValue("email"))
	case c.FormValue("phone") != "":
		input = domain.PhoneNumber(c.FormValue("phone"))
	}

	err := a.auth.Login(c.Request().Context(), services.LoginRequest{
		XSRFToken: xsrfToken(c),
		Input:     input,
	})
	if err != nil {
		return a.renderError(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}

// ConfirmHandler completes the confirmation step and redirects back to the
// client with the authorization code; the XSRF cookie is cleared.
func (a *AuthAPI) ConfirmHandler(c echo.Context) error {
	result, err := a.auth.Confirm(c.Request().Context(), services.ConfirmRequest{
		XSRFToken:        xsrfToken(c),
		ConfirmationCode: c.FormValue("confirmation_code"),
	})
	if err != nil {
		return a.renderError(c, err)
	}

	c.SetCookie(expiredFlowCookie())
	return c.Redirect(http.StatusFound, result.Location)
}

// FederatedLoginHandler redirects to an external provider's consent screen.
func (a *AuthAPI) FederatedLoginHandler(c echo.Context) error {
	result, err := a.auth.LoginViaExternalProvider(c.Request().Context(), services.ExternalLoginRequest{
		XSRFToken: xsrfToken(c),
		Provider:  federation.ProviderName(c.Param("provider")),
	})
	if err != nil {
		return a.renderError(c, err)
	}
	return c.Redirect(http.StatusFound, result.Location)
}

// FederatedCallbackHandler finishes the federated round trip.
func (a *AuthAPI) FederatedCallbackHandler(c echo.Context) error {
	result, err := a.auth.CompleteExternalProviderAuthFlow(c.Request().Context(), services.ExternalCallbackRequest{
		XSRFToken:         xsrfToken(c),
		AuthorizationCode: c.QueryParam("code"),
		State:             c.QueryParam("state"),
	})
	if err != nil {
		return a.renderError(c, err)
	}

	c.SetCookie(expiredFlowCookie())
	return c.Redirect(http.StatusFound, result.Location)
}

// TokenHandler processes the token endpoint's two grant types.
func (a *AuthAPI) TokenHandler(c echo.Context) error {
	ctx := c.Request().Context()

	switch grantType := c.FormValue("grant_type"); grantType {
	case "authorization_code":
		pair, err := a.auth.HandleAuthorizationCodeGrant(ctx, services.AuthorizationCodeGrantRequest{
			ClientID:          c.FormValue("client_id"),
			ClientSecret:      c.FormValue("client_secret"),
			AuthorizationCode: c.FormValue("code"),
			RedirectURI:       c.FormValue("redirect_uri"),
			CodeVerifier:      c.FormValue("code_verifier"),
		})
		if err != nil {
			return a.renderError(c, err)
		}
		return c.JSON(http.StatusOK, pair)

	case "refresh_token":
		resp, err := a.auth.HandleRefreshTokenGrant(ctx, services.RefreshTokenGrantRequest{
			ClientID:     c.FormValue("client_id"),
			RefreshToken: c.FormValue("refresh_token"),
		})
		if err != nil {
			return a.renderError(c, err)
		}
		return c.JSON(http.StatusOK, resp)

	default:
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("unsupported grant_type"))
	}
}

// RevokeHandler revokes the session behind a refresh token.
func (a *AuthAPI) RevokeHandler(c echo.Context) error {
	err := a.auth.RevokeTokens(c.Request().Context(), services.RevokeTokensRequest{
		ClientID:     c.FormValue("client_id"),
		RefreshToken: c.FormValue("token"),
	})
	if err != nil {
		return a.renderError(c, err)
	}
	return c.NoContent(http.StatusOK)
}

// JWKSHandler publishes the verification key set.
func (a *AuthAPI) JWKSHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, a.auth.GetPublicJWKS())
}

// renderError serializes a service failure: redirect-bound errors become a
// 302, plain OAuth2 errors a JSON body, anything else a masked server_error.
func (a *AuthAPI) renderError(c echo.Context, err error) error {
	var redirect *errors.ErrorRedirect
	if stderrors.As(err, &redirect) {
		return c.Redirect(http.StatusFound, redirect.Location)
	}

	var oerr *errors.OAuth2Error
	if stderrors.As(err, &oerr) {
		return c.JSON(statusFor(oerr.Code), oerr)
	}

	logger := log.Ctx(c.Request().Context())
	logger.Error().Err(err).Msg("unclassified handler failure")
	return c.JSON(http.StatusInternalServerError, errors.NewServerError())
}

func statusFor(code string) int {
	switch code {
	case errors.AccessDenied:
		return http.StatusForbidden
	case errors.UnauthorizedClient:
		return http.StatusUnauthorized
	case errors.ServerError:
		return http.StatusInternalServerError
	case errors.TemporarilyUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func xsrfToken(c echo.Context) string {
	if cookie, err := c.Cookie(XSRFCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func flowCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     XSRFCookie,
		Value:    token,
		Path:     "/",
		Secure:   true,
		HttpOnly: false, // the SPA reads it back as a header
		SameSite: http.SameSiteLaxMode,
	}
}

// expiredFlowCookie deletes the flow cookie client-side; the flow is over.
func expiredFlowCookie() *http.Cookie {
	cookie := flowCookie("")
	cookie.MaxAge = -1
	return cookie
}
