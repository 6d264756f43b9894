package domain

import (
	"context"
	"time"
)

// FlowAttemptRepository persists in-flight authorization attempts.
//
// Create is conditional: a second create with the same XSRF token fails with
// ErrConflict rather than overwriting. GetByAuthorizationCode must be an
// indexed lookup, it sits on the hot path of every token exchange. Get and
// GetByAuthorizationCode return ErrNotFound for absent or TTL-expired
// records.
type FlowAttemptRepository interface {
	Create(ctx context.Context, attempt *FlowAttempt) error
	Get(ctx context.Context, xsrfToken string) (*FlowAttempt, error)
	GetByAuthorizationCode(ctx context.Context, code string) (*FlowAttempt, error)
	Update(ctx context.Context, xsrfToken string, patch *FlowAttemptPatch) (*FlowAttempt, error)
	Delete(ctx context.Context, xsrfToken string) error
}

// ClientRepository is thin record access for OAuth client registrations.
type ClientRepository interface {
	Create(ctx context.Context, client *Client) error
	Get(ctx context.Context, clientID string) (*Client, error)
	Delete(ctx context.Context, clientID string) error
}

// SessionRepository persists refresh-token-backed sessions. Create fails
// with ErrConflict on a session-ID collision; lookups return ErrNotFound.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (*Session, error)
	UpdateExpiry(ctx context.Context, sessionID string, expiresAt time.Time) error
	Delete(ctx context.Context, sessionID string) error
}
