package booking

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionStore(t *testing.T, ttl time.Duration) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionStore(client, ttl), mr
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	store, _ := newTestSessionStore(t, 0)
	ctx := context.Background()

	now := time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC)
	sess := NewSession("whatsapp", "user-1", now)
	sess.Name = "محمد"
	sess.State = StatePhone

	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "whatsapp", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "محمد", got.Name)
	assert.Equal(t, StatePhone, got.State)
	assert.True(t, got.CreatedAt.Equal(now))
}

func TestSessionStore_GetMissing(t *testing.T) {
	store, _ := newTestSessionStore(t, 0)

	_, err := store.Get(context.Background(), "whatsapp", "nobody")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStore_Delete(t *testing.T) {
	store, _ := newTestSessionStore(t, 0)
	ctx := context.Background()

	sess := NewSession("instagram", "user-2", time.Now())
	require.NoError(t, store.Save(ctx, sess))
	require.NoError(t, store.Delete(ctx, "instagram", "user-2"))

	_, err := store.Get(ctx, "instagram", "user-2")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// deleting again is a no-op
	assert.NoError(t, store.Delete(ctx, "instagram", "user-2"))
}

func TestSessionStore_TTLEviction(t *testing.T) {
	store, mr := newTestSessionStore(t, time.Hour)
	ctx := context.Background()

	sess := NewSession("tiktok", "user-3", time.Now())
	require.NoError(t, store.Save(ctx, sess))

	mr.FastForward(2 * time.Hour)

	_, err := store.Get(ctx, "tiktok", "user-3")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStore_KeysScopedPerPlatform(t *testing.T) {
	store, _ := newTestSessionStore(t, 0)
	ctx := context.Background()

	wa := NewSession("whatsapp", "user-4", time.Now())
	wa.Name = "whatsapp user"
	ig := NewSession("instagram", "user-4", time.Now())
	ig.Name = "instagram user"

	require.NoError(t, store.Save(ctx, wa))
	require.NoError(t, store.Save(ctx, ig))

	got, err := store.Get(ctx, "whatsapp", "user-4")
	require.NoError(t, err)
	assert.Equal(t, "whatsapp user", got.Name)
}
