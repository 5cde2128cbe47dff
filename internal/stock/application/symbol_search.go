// Package application 编排代码解析流程：远程搜索、别名索引、国内名称搜索与最终兜底
package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wyfcoding/stockrouter/internal/stock/domain"
	"github.com/wyfcoding/stockrouter/pkg/logger"
	"github.com/wyfcoding/stockrouter/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// SearchQuotesLimit 远程搜索请求的候选数量
const SearchQuotesLimit = 5

// SymbolSearch 远程代码搜索，按归一化查询缓存结果（包括"无结果"）
// 失败只会降级为无结果，不会向调用方返回错误
type SymbolSearch struct {
	searcher domain.SymbolSearcher
	cache    domain.SearchCache
	timeout  time.Duration
	metrics  *metrics.Metrics
	group    singleflight.Group
}

// NewSymbolSearch 创建远程代码搜索
func NewSymbolSearch(searcher domain.SymbolSearcher, cache domain.SearchCache, timeout time.Duration, m *metrics.Metrics) *SymbolSearch {
	return &SymbolSearch{
		searcher: searcher,
		cache:    cache,
		timeout:  timeout,
		metrics:  m,
	}
}

// Search 查找公司名对应的代码
func (s *SymbolSearch) Search(ctx context.Context, name string) *domain.ResolvedAlias {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil
	}
	key := domain.NormalizeKey(trimmed)

	alias, found, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "Search cache read failed", "key", key, "error", err)
	} else if found {
		s.metrics.RecordSearchCache(true)
		return alias
	}
	s.metrics.RecordSearchCache(false)

	// 同一进程内相同 key 的并发未命中只发一次请求，共享请求不受单个调用方取消影响
	ch := s.group.DoChan(key, func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), key, trimmed), nil
	})
	select {
	case r := <-ch:
		result, _ := r.Val.(*domain.ResolvedAlias)
		return cloneAlias(result)
	case <-ctx.Done():
		return nil
	}
}

func (s *SymbolSearch) fetch(ctx context.Context, key, query string) *domain.ResolvedAlias {
	searchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	candidates, err := s.searcher.SearchQuotes(searchCtx, query, SearchQuotesLimit)
	var result *domain.ResolvedAlias
	if err != nil {
		logger.Info(ctx, "Remote symbol search failed", "query", query, "error", err)
		if errors.Is(err, context.Canceled) {
			return nil
		}
	} else {
		result = domain.SelectCandidate(candidates)
	}

	if err := s.cache.Set(ctx, key, result); err != nil {
		logger.Warn(ctx, "Search cache write failed", "key", key, "error", err)
	}
	return result
}

func cloneAlias(a *domain.ResolvedAlias) *domain.ResolvedAlias {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
