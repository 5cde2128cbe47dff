package searchcache

import (
	"context"
	"errors"

	"github.com/wyfcoding/stockrouter/internal/stock/domain"
	"github.com/wyfcoding/stockrouter/pkg/logger"
)

// TieredCache 两级缓存：先查进程内，再查共享缓存并回填
type TieredCache struct {
	local  domain.SearchCache
	shared domain.SearchCache
}

var _ domain.SearchCache = (*TieredCache)(nil)

// NewTieredCache 创建两级缓存
func NewTieredCache(local, shared domain.SearchCache) *TieredCache {
	return &TieredCache{local: local, shared: shared}
}

// Get 读取缓存；共享缓存不可用时按未命中处理
func (t *TieredCache) Get(ctx context.Context, key string) (*domain.ResolvedAlias, bool, error) {
	if alias, found, err := t.local.Get(ctx, key); err == nil && found {
		return alias, true, nil
	}

	alias, found, err := t.shared.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "Shared search cache unavailable", "key", key, "error", err)
		return nil, false, nil
	}
	if !found {
		return nil, false, nil
	}

	if err := t.local.Set(ctx, key, alias); err != nil {
		logger.Debug(ctx, "Local search cache backfill failed", "key", key, "error", err)
	}
	return alias, true, nil
}

// Set 同时写入两级缓存
func (t *TieredCache) Set(ctx context.Context, key string, alias *domain.ResolvedAlias) error {
	return errors.Join(t.local.Set(ctx, key, alias), t.shared.Set(ctx, key, alias))
}
