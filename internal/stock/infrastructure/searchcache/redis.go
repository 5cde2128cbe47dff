package searchcache

import (
	"context"
	"time"

	"github.com/wyfcoding/stockrouter/internal/stock/domain"
	"github.com/wyfcoding/stockrouter/pkg/cache"
)

// RedisCache 多实例共享的搜索缓存
type RedisCache struct {
	redis  *cache.RedisCache
	prefix string
	ttl    time.Duration
}

var _ domain.SearchCache = (*RedisCache)(nil)

// NewRedisCache 创建 Redis 搜索缓存
func NewRedisCache(rc *cache.RedisCache, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{redis: rc, prefix: prefix, ttl: ttl}
}

// Get 读取缓存
func (r *RedisCache) Get(ctx context.Context, key string) (*domain.ResolvedAlias, bool, error) {
	var alias *domain.ResolvedAlias
	found, err := r.redis.GetJSON(ctx, r.prefix+key, &alias)
	if err != nil || !found {
		return nil, false, err
	}
	return alias, true, nil
}

// Set 写入缓存，alias 为 nil 时写入 JSON null
func (r *RedisCache) Set(ctx context.Context, key string, alias *domain.ResolvedAlias) error {
	return r.redis.SetJSON(ctx, r.prefix+key, alias, r.ttl)
}
