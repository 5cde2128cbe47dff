package domain

import (
	"context"
	"encoding/json"
)

// ForeignMarketData 海外行情源
type ForeignMarketData interface {
	// Chart 获取图表数据；没有结果时返回 ErrNotFound
	Chart(ctx context.Context, symbol, interval, rng string) (*ChartResult, error)
}

// SymbolSearcher 远程代码自动补全
type SymbolSearcher interface {
	SearchQuotes(ctx context.Context, query string, limit int) ([]SearchCandidate, error)
}

// DataBackend 数据后端，响应原样透传
// 上游返回 404 时返回 ErrNotFound，其余失败返回 *UpstreamError
type DataBackend interface {
	DomesticQuote(ctx context.Context, query string) (json.RawMessage, error)
	DomesticSearch(ctx context.Context, query string) (json.RawMessage, error)
	DomesticChart(ctx context.Context, query, period string) (json.RawMessage, error)
	DomesticNews(ctx context.Context, query string) (json.RawMessage, error)
	DomesticFinancials(ctx context.Context, query string) (json.RawMessage, error)
	ForeignNews(ctx context.Context, symbol string) (json.RawMessage, error)
	ForeignFinancials(ctx context.Context, symbol string) (json.RawMessage, error)
}

// SearchCache 远程搜索结果缓存，值为 nil 表示缓存的"无结果"
type SearchCache interface {
	Get(ctx context.Context, key string) (alias *ResolvedAlias, found bool, err error)
	Set(ctx context.Context, key string, alias *ResolvedAlias) error
}
