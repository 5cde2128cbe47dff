// Package searchcache 远程代码搜索结果缓存：进程内 bigcache、Redis 以及二者组合的两级缓存
package searchcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/wyfcoding/stockrouter/internal/stock/domain"
)

// 缓存"无结果"时写入的值
var nullValue = []byte("null")

// MemoryCache 进程内有界缓存，超过容量上限或存活时间后淘汰
type MemoryCache struct {
	cache *bigcache.BigCache
}

var _ domain.SearchCache = (*MemoryCache)(nil)

// NewMemoryCache 创建进程内缓存；maxMB 为 0 表示不限制容量
func NewMemoryCache(ctx context.Context, ttl time.Duration, maxMB int) (*MemoryCache, error) {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = 64
	cfg.MaxEntriesInWindow = 10000
	cfg.CleanWindow = cleanWindow(ttl)
	cfg.HardMaxCacheSize = maxMB
	cfg.MaxEntrySize = 256
	cfg.Verbose = false

	c, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create search cache: %w", err)
	}
	return &MemoryCache{cache: c}, nil
}

func cleanWindow(ttl time.Duration) time.Duration {
	w := ttl / 10
	switch {
	case w < time.Second:
		return time.Second
	case w > 10*time.Minute:
		return 10 * time.Minute
	}
	return w
}

// Get 读取缓存
func (m *MemoryCache) Get(_ context.Context, key string) (*domain.ResolvedAlias, bool, error) {
	data, err := m.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return decode(data)
}

// Set 写入缓存，alias 为 nil 时缓存"无结果"
func (m *MemoryCache) Set(_ context.Context, key string, alias *domain.ResolvedAlias) error {
	data, err := encode(alias)
	if err != nil {
		return err
	}
	return m.cache.Set(key, data)
}

// Len 当前条目数
func (m *MemoryCache) Len() int {
	return m.cache.Len()
}

// Close 停止后台清理
func (m *MemoryCache) Close() error {
	return m.cache.Close()
}

func encode(alias *domain.ResolvedAlias) ([]byte, error) {
	if alias == nil {
		return nullValue, nil
	}
	return json.Marshal(alias)
}

func decode(data []byte) (*domain.ResolvedAlias, bool, error) {
	var alias *domain.ResolvedAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return nil, false, fmt.Errorf("decode cached alias: %w", err)
	}
	return alias, true, nil
}
