package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mouralws/internal/pkg/cache"
)

func newTestClient(t *testing.T) (cache.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.NewFromRedis(rdb), mr
}

func TestRedisClient_GetSetDelete(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	_, err := client.Get(ctx, "label:LWS-1")
	assert.Equal(t, cache.ErrCacheMiss, err)

	require.NoError(t, client.Set(ctx, "label:LWS-1", `{"code":"LWS-1"}`, time.Minute))
	val, err := client.Get(ctx, "label:LWS-1")
	require.NoError(t, err)
	assert.Equal(t, `{"code":"LWS-1"}`, val)

	mr.FastForward(2 * time.Minute)
	_, err = client.Get(ctx, "label:LWS-1")
	assert.Equal(t, cache.ErrCacheMiss, err)

	require.NoError(t, client.Set(ctx, "k", "v", 0))
	require.NoError(t, client.Delete(ctx, "k"))
	_, err = client.Get(ctx, "k")
	assert.Equal(t, cache.ErrCacheMiss, err)
}

func TestRedisClient_GetIntIncr(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "rate-limit:1.2.3.4", 1, time.Minute))
	n, err := client.Incr(ctx, "rate-limit:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := client.GetInt(ctx, "rate-limit:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, client.Set(ctx, "texto", "abc", time.Minute))
	_, err = client.GetInt(ctx, "texto")
	assert.Error(t, err)
}

func TestRedisClient_ExpireKeepsValue(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	_, err := client.Incr(ctx, "rate-limit:1.2.3.4")
	require.NoError(t, err)
	_, err = client.Incr(ctx, "rate-limit:1.2.3.4")
	require.NoError(t, err)

	require.NoError(t, client.Expire(ctx, "rate-limit:1.2.3.4", time.Minute))

	count, err := client.GetInt(ctx, "rate-limit:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, time.Minute, mr.TTL("rate-limit:1.2.3.4"))
}
