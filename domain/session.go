package domain

import "time"

// RefreshTokenTTL is the sliding validity window of a refresh token. Each
// successful refresh pushes the session's expiry this far into the future.
const RefreshTokenTTL = 180 * 24 * time.Hour

// Session is the sole source of truth for refresh-token validity. One
// session exists per issued refresh token; deleting it revokes every access
// token minted under it.
type Session struct {
	ID                    string    `bson:"session_id"`
	ClientID              string    `bson:"client_id"`
	UserID                string    `bson:"user_id"`
	Scope                 string    `bson:"scope,omitempty"`
	RefreshToken          string    `bson:"refresh_token"`
	RefreshTokenCreatedAt time.Time `bson:"refresh_token_created_at"`
	RefreshTokenExpiresAt time.Time `bson:"refresh_token_expires_at"`
}

// Expired reports whether the refresh token can no longer be used.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.RefreshTokenExpiresAt)
}
