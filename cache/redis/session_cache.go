package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/relaychat/auth-service/cache"
)

// SessionCache implements cache.SessionStore backed by Redis, for
// deployments where multiple instances share the liveness cache.
type SessionCache struct {
	client *redis.Client
	prefix string
}

// NewSessionCache creates a new SessionCache. prefix namespaces the keys.
func NewSessionCache(client *redis.Client, prefix string) *SessionCache {
	return &SessionCache{client: client, prefix: prefix}
}

func (c *SessionCache) key(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", c.prefix, sessionID)
}

// Set stores an entry with the given TTL.
func (c *SessionCache) Set(ctx context.Context, entry *cache.SessionEntry, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal session entry: %w", err)
	}
	if err := c.client.Set(ctx, c.key(entry.SessionID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache session: %w", err)
	}
	return nil
}

// Get retrieves an entry. A miss or any Redis failure is reported as a miss;
// the caller falls back to the repository.
func (c *SessionCache) Get(ctx context.Context, sessionID string) (*cache.SessionEntry, bool) {
	payload, err := c.client.Get(ctx, c.key(sessionID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("sessionID", sessionID).Msg("session cache read failed")
		}
		return nil, false
	}

	var entry cache.SessionEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		log.Warn().Err(err).Str("sessionID", sessionID).Msg("corrupt session cache entry")
		return nil, false
	}
	return &entry, true
}

// Delete removes an entry. Revocation calls this before deleting the backing
// session record.
func (c *SessionCache) Delete(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, c.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cached session: %w", err)
	}
	return nil
}

// Clear removes every cached session under this prefix.
func (c *SessionCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, fmt.Sprintf("%s:session:*", c.prefix), 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to clear session cache: %w", err)
		}
	}
	return iter.Err()
}

var _ cache.SessionStore = (*SessionCache)(nil)
