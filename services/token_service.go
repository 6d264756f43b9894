package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/relaychat/auth-service/cache"
	"github.com/relaychat/auth-service/domain"
	"github.com/relaychat/auth-service/internal/crypto"
)

// AccessTokenTTL is how long a minted access token stays valid.
const AccessTokenTTL = 10 * time.Minute

// sessionCacheTTL bounds how long a liveness check may be served from cache
// after the backing session changed.
const sessionCacheTTL = time.Minute

// AccessTokenClaims is the claim set carried by every access token.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	ClientID  string `json:"cid"`
	SessionID string `json:"sid"`
	Scope     string `json:"scope,omitempty"`
}

// AccessTokenResponse is the result of minting a bare access token.
type AccessTokenResponse struct {
	TokenType   string `json:"token_type"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// TokenPair is the terminal result of an authorization-code grant.
type TokenPair struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// TokenService mints and verifies signed access tokens against the rotating
// key set and manages refresh-token-backed sessions.
type TokenService struct {
	sessions domain.SessionRepository
	cache    cache.SessionStore
	keys     *KeySet
	issuer   string
}

// NewTokenService creates a new TokenService instance.
func NewTokenService(sessions domain.SessionRepository, sessionCache cache.SessionStore, keys *KeySet, issuer string) *TokenService {
	return &TokenService{
		sessions: sessions,
		cache:    sessionCache,
		keys:     keys,
		issuer:   issuer,
	}
}

// GenerateAccessToken mints a signed access token bound to an existing
// session. Signing failures surface as a generic forbidden error; key
// material never reaches the caller.
func (s *TokenService) GenerateAccessToken(ctx context.Context, clientID, userID, sessionID, scope string) (*AccessTokenResponse, error) {
	now := time.Now()
	claims := &AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
			ID:        uuid.NewString(),
		},
		ClientID:  clientID,
		SessionID: sessionID,
		Scope:     scope,
	}

	kid, key := s.keys.SigningKey()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(key)
	if err != nil {
		log.Error().Err(err).Str("clientID", clientID).Msg("failed to sign access token")
		return nil, fmt.Errorf("cannot issue access token: %w", domain.ErrForbidden)
	}

	return &AccessTokenResponse{
		TokenType:   "Bearer",
		AccessToken: signed,
		ExpiresIn:   int(AccessTokenTTL.Seconds()),
	}, nil
}

// GenerateAccessAndRefreshTokens allocates a new session, persists it, and
// returns the access/refresh token pair. This is the terminal step of the
// authorization-code grant.
func (s *TokenService) GenerateAccessAndRefreshTokens(ctx context.Context, clientID, userID, scope string) (*TokenPair, error) {
	refreshToken, err := crypto.RandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := time.Now()
	session := &domain.Session{
		ID:                    uuid.NewString(),
		ClientID:              clientID,
		UserID:                userID,
		Scope:                 scope,
		RefreshToken:          refreshToken,
		RefreshTokenCreatedAt: now,
		RefreshTokenExpiresAt: now.Add(domain.RefreshTokenTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	access, err := s.GenerateAccessToken(ctx, clientID, userID, session.ID, scope)
	if err != nil {
		return nil, err
	}

	s.cacheSession(ctx, session)

	return &TokenPair{
		TokenType:    access.TokenType,
		AccessToken:  access.AccessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    access.ExpiresIn,
		Scope:        scope,
	}, nil
}

// RefreshAccessToken mints a new access token under the session backing
// refreshToken and slides the refresh-token expiry forward. The refresh
// token value itself is not rotated.
func (s *TokenService) RefreshAccessToken(ctx context.Context, clientID, refreshToken string) (*AccessTokenResponse, error) {
	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("unknown refresh token: %w", domain.ErrForbidden)
	}
	if session.ClientID != clientID {
		return nil, fmt.Errorf("refresh token was not issued to this client: %w", domain.ErrForbidden)
	}
	if session.Expired(time.Now()) {
		return nil, fmt.Errorf("refresh token expired: %w", domain.ErrForbidden)
	}

	access, err := s.GenerateAccessToken(ctx, session.ClientID, session.UserID, session.ID, session.Scope)
	if err != nil {
		return nil, err
	}

	newExpiry := time.Now().Add(domain.RefreshTokenTTL)
	if err := s.sessions.UpdateExpiry(ctx, session.ID, newExpiry); err != nil {
		return nil, fmt.Errorf("failed to extend session: %w", err)
	}
	session.RefreshTokenExpiresAt = newExpiry
	s.cacheSession(ctx, session)

	return access, nil
}

// VerifyAccessToken verifies signature and expiry against the published key
// set, then confirms the referenced session still exists. Any failure is a
// forbidden error and no claims are returned: revocation takes effect even
// before the token's own expiry.
func (s *TokenService) VerifyAccessToken(ctx context.Context, accessToken string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(accessToken, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		kid, _ := token.Header["kid"].(string)
		key, ok := s.keys.VerificationKey(kid)
		if !ok {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithIssuer(s.issuer))
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", domain.ErrForbidden)
	}

	if err := s.checkSessionLiveness(ctx, claims.SessionID); err != nil {
		return nil, err
	}
	return claims, nil
}

// RevokeTokens deletes the session backing refreshToken. Access tokens from
// that session fail the liveness check from here on.
func (s *TokenService) RevokeTokens(ctx context.Context, clientID, refreshToken string) error {
	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("unknown refresh token: %w", domain.ErrForbidden)
	}
	if session.ClientID != clientID {
		return fmt.Errorf("refresh token was not issued to this client: %w", domain.ErrForbidden)
	}

	// Cache first: a stale liveness hit after the record is gone would
	// keep revoked tokens alive for the cache TTL.
	if err := s.cache.Delete(ctx, session.ID); err != nil {
		log.Warn().Err(err).Str("sessionID", session.ID).Msg("failed to evict revoked session from cache")
	}
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PublicJWKS exposes the current verification key set.
func (s *TokenService) PublicJWKS() JSONWebKeySet {
	return s.keys.JWKS()
}

func (s *TokenService) checkSessionLiveness(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("token carries no session: %w", domain.ErrForbidden)
	}
	if _, ok := s.cache.Get(ctx, sessionID); ok {
		return nil
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("session revoked or expired: %w", domain.ErrForbidden)
	}
	s.cacheSession(ctx, session)
	return nil
}

func (s *TokenService) cacheSession(ctx context.Context, session *domain.Session) {
	entry := &cache.SessionEntry{
		SessionID: session.ID,
		ClientID:  session.ClientID,
		UserID:    session.UserID,
		Scope:     session.Scope,
		ExpiresAt: session.RefreshTokenExpiresAt,
	}
	if err := s.cache.Set(ctx, entry, sessionCacheTTL); err != nil {
		log.Warn().Err(err).Str("sessionID", session.ID).Msg("failed to cache session")
	}
}
