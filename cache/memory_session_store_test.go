package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *MemorySessionStore {
	t.Helper()
	store := NewMemorySessionStore()
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMemorySessionStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := &SessionEntry{SessionID: "s1", ClientID: "c1", UserID: "u1", Scope: "chat:read"}
	require.NoError(t, store.Set(ctx, entry, time.Minute))

	got, ok := store.Get(ctx, "s1")
	require.True(t, ok)
	assert.Equal(t, entry, got)
}

func TestMemorySessionStoreMiss(t *testing.T) {
	store := newTestStore(t)

	_, ok := store.Get(context.Background(), "never-set")
	assert.False(t, ok)
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, &SessionEntry{SessionID: "s1"}, 10*time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	_, ok := store.Get(ctx, "s1")
	assert.False(t, ok)
}

func TestMemorySessionStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, &SessionEntry{SessionID: "s1"}, time.Minute))
	require.NoError(t, store.Delete(ctx, "s1"))

	_, ok := store.Get(ctx, "s1")
	assert.False(t, ok)
}

func TestMemorySessionStoreClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, &SessionEntry{SessionID: "s1"}, time.Minute))
	require.NoError(t, store.Set(ctx, &SessionEntry{SessionID: "s2"}, time.Minute))
	require.NoError(t, store.Clear(ctx))

	_, ok := store.Get(ctx, "s1")
	assert.False(t, ok)
	_, ok = store.Get(ctx, "s2")
	assert.False(t, ok)
}
