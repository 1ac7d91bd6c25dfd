package dedupe

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, ttl), mr
}

func TestRedisMarkSeen(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Minute)

	dup, err := store.MarkSeen(ctx, "msg-1")
	require.NoError(t, err)
	assert.False(t, dup)
	assert.True(t, mr.Exists("leadflow:inbound:msg-1"))

	dup, err = store.MarkSeen(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestRedisKeyExpires(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Minute)

	_, err := store.MarkSeen(ctx, "msg-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	dup, err := store.MarkSeen(ctx, "msg-1")
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestRedisForget(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Minute)

	_, _ = store.MarkSeen(ctx, "msg-1")
	require.NoError(t, store.Forget(ctx, "msg-1"))
	assert.False(t, mr.Exists("leadflow:inbound:msg-1"))
}

func TestDialRejectsBadURL(t *testing.T) {
	_, err := Dial(context.Background(), "not-a-url")
	require.Error(t, err)
}

func TestDialMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := Dial(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	_ = client.Close()
}
