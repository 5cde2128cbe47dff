package searchcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/stockrouter/internal/stock/domain"
	"github.com/wyfcoding/stockrouter/pkg/cache"
)

var tesla = &domain.ResolvedAlias{Ticker: "TSLA", EnglishName: "Tesla, Inc.", Exchange: "NMS"}

func newMemory(t *testing.T) *MemoryCache {
	t.Helper()
	m, err := NewMemoryCache(context.Background(), time.Hour, 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func newRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(cache.NewFromClient(client), "test:search:", time.Hour), mr
}

// 各实现共用的行为检查
func exerciseCache(t *testing.T, c domain.SearchCache) {
	t.Helper()
	ctx := context.Background()

	_, found, err := c.Get(ctx, "tesla")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "tesla", tesla))
	got, found, err := c.Get(ctx, "tesla")
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, got)
	assert.Equal(t, *tesla, *got)

	require.NoError(t, c.Set(ctx, "없는회사", nil))
	got, found, err = c.Get(ctx, "없는회사")
	require.NoError(t, err)
	assert.True(t, found, "negative result must be cached")
	assert.Nil(t, got)
}

func TestMemoryCache(t *testing.T) {
	m := newMemory(t)
	exerciseCache(t, m)
	assert.Equal(t, 2, m.Len())
}

func TestRedisCache(t *testing.T) {
	r, mr := newRedis(t)
	exerciseCache(t, r)

	assert.True(t, mr.Exists("test:search:tesla"))
	assert.Equal(t, "null", mustGet(t, mr, "test:search:없는회사"))
	assert.Equal(t, time.Hour, mr.TTL("test:search:tesla"))
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

func TestTieredCache(t *testing.T) {
	r, _ := newRedis(t)
	exerciseCache(t, NewTieredCache(newMemory(t), r))
}

func TestTieredCache_BackfillsLocal(t *testing.T) {
	ctx := context.Background()
	local := newMemory(t)
	shared, _ := newRedis(t)
	require.NoError(t, shared.Set(ctx, "tesla", tesla))

	tiered := NewTieredCache(local, shared)
	got, found, err := tiered.Get(ctx, "tesla")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "TSLA", got.Ticker)

	got, found, err = local.Get(ctx, "tesla")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "TSLA", got.Ticker)
}

func TestTieredCache_SharedDown(t *testing.T) {
	ctx := context.Background()
	local := newMemory(t)
	shared, mr := newRedis(t)
	tiered := NewTieredCache(local, shared)

	mr.Close()

	_, found, err := tiered.Get(ctx, "apple")
	assert.NoError(t, err)
	assert.False(t, found)

	err = tiered.Set(ctx, "apple", &domain.ResolvedAlias{Ticker: "AAPL"})
	assert.Error(t, err)

	// 本地仍然写入成功
	got, found, err := tiered.Get(ctx, "apple")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "AAPL", got.Ticker)
}

func TestDecodeCorrupt(t *testing.T) {
	_, _, err := decode([]byte("{"))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}

func TestCleanWindow(t *testing.T) {
	assert.Equal(t, time.Second, cleanWindow(time.Second))
	assert.Equal(t, 6*time.Minute, cleanWindow(time.Hour))
	assert.Equal(t, 10*time.Minute, cleanWindow(24*time.Hour))
}
