package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "order-service")
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	require.NoError(t, c.Ping(ctx))

	key := c.GenerateKey("create-order", "abc")
	assert.Equal(t, "order-service:create-order:abc", key)

	miss, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, miss)

	require.NoError(t, c.Set(ctx, key, `{"ok":true}`, time.Hour))
	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, got)

	mr.FastForward(2 * time.Hour)
	expired, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestRedisCache_Acquire(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	ok, err := c.Acquire(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Acquire(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Delete(ctx, "lock"))
	ok, err = c.Acquire(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisCache_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "svc")
	mr.Close()

	assert.Error(t, c.Ping(context.Background()))
}
