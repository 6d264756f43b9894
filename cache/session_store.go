package cache

import (
	"context"
	"time"
)

// SessionEntry is a cached view of a live session, used to keep the
// session-liveness check off the database on the token-verification hot
// path. Entries are short-lived; revocation deletes them eagerly.
type SessionEntry struct {
	SessionID string    `redis:"sessionId"`
	ClientID  string    `redis:"clientId"`
	UserID    string    `redis:"userId"`
	Scope     string    `redis:"scope"`
	ExpiresAt time.Time `redis:"expiresAt"`
}

// SessionStore caches session liveness keyed by session ID.
type SessionStore interface {
	Set(ctx context.Context, entry *SessionEntry, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*SessionEntry, bool)
	Delete(ctx context.Context, sessionID string) error
	Clear(ctx context.Context) error
}
