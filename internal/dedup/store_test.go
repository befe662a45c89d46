package dedup

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStore(client, time.Minute), mr
}

func TestMarkSeenFirstDeliveryOnly(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.MarkSeen(ctx, "whatsapp", "wamid.123")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.MarkSeen(ctx, "whatsapp", "wamid.123")
	require.NoError(t, err)
	assert.False(t, again, "redelivery must not pass the gate")
}

func TestMarkSeenKeysArePlatformScoped(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.MarkSeen(ctx, "whatsapp", "msg-1")
	require.NoError(t, err)
	assert.True(t, first)

	other, err := store.MarkSeen(ctx, "instagram", "msg-1")
	require.NoError(t, err)
	assert.True(t, other, "same id on a different platform is a new message")
}

func TestSeenExpiresWithTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, err := store.MarkSeen(ctx, "tiktok", "msg-9")
	require.NoError(t, err)

	seen, err := store.Seen(ctx, "tiktok", "msg-9")
	require.NoError(t, err)
	assert.True(t, seen)

	mr.FastForward(2 * time.Minute)

	seen, err = store.Seen(ctx, "tiktok", "msg-9")
	require.NoError(t, err)
	assert.False(t, seen, "entries evict after the ttl")
}
