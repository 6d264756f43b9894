package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemorySessionStore implements SessionStore using ttlcache.
type MemorySessionStore struct {
	cache *ttlcache.Cache[string, *SessionEntry]
}

// NewMemorySessionStore creates an in-memory session cache with automatic
// expiry cleanup.
func NewMemorySessionStore() *MemorySessionStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *SessionEntry](),
	)
	go cache.Start()

	return &MemorySessionStore{cache: cache}
}

// Set implements SessionStore.Set.
func (s *MemorySessionStore) Set(_ context.Context, entry *SessionEntry, ttl time.Duration) error {
	s.cache.Set(entry.SessionID, entry, ttl)
	return nil
}

// Get implements SessionStore.Get.
func (s *MemorySessionStore) Get(_ context.Context, sessionID string) (*SessionEntry, bool) {
	item := s.cache.Get(sessionID)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Delete implements SessionStore.Delete.
func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.cache.Delete(sessionID)
	return nil
}

// Clear implements SessionStore.Clear.
func (s *MemorySessionStore) Clear(_ context.Context) error {
	s.cache.DeleteAll()
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemorySessionStore) Close() error {
	s.cache.Stop()
	return nil
}

var _ SessionStore = (*MemorySessionStore)(nil)
