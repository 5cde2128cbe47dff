package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wyfcoding/stockrouter/internal/stock/domain"
	"github.com/wyfcoding/stockrouter/pkg/logger"
	"github.com/wyfcoding/stockrouter/pkg/metrics"
)

const (
	quoteInterval = "1d"
	quoteRange    = "1d"
	chartInterval = "1d"
)

// QuoteResult 报价结果：海外股票为 Quote，国内透传为 Raw，二者只有一个非空
type QuoteResult struct {
	Resolution domain.Resolution
	Quote      *domain.PriceQuote
	Raw        json.RawMessage
}

// ChartResult 图表结果：海外股票为 Series，国内透传为 Raw
type ChartResult struct {
	Resolution domain.Resolution
	Series     *domain.ChartSeries
	Raw        json.RawMessage
}

// ResolutionService 代码解析与行情分发
// 别名索引构建后只读；搜索缓存由 SymbolSearch 持有
type ResolutionService struct {
	index   *domain.AliasIndex
	search  *SymbolSearch
	market  domain.ForeignMarketData
	backend domain.DataBackend
	metrics *metrics.Metrics
}

// NewResolutionService 创建解析服务
func NewResolutionService(index *domain.AliasIndex, search *SymbolSearch, market domain.ForeignMarketData, backend domain.DataBackend, m *metrics.Metrics) *ResolutionService {
	if index == nil {
		index = domain.NewAliasIndex(nil)
	}
	return &ResolutionService{
		index:   index,
		search:  search,
		market:  market,
		backend: backend,
		metrics: m,
	}
}

// AliasCount 返回别名索引的键数量
func (s *ResolutionService) AliasCount() int {
	return s.index.Len()
}

// Quote 解析查询并获取报价
// 流程：分类 → 远程搜索 → 别名索引 → 国内名称搜索 → 原始查询大写兜底 → 海外行情
func (s *ResolutionService) Quote(ctx context.Context, query string) (*QuoteResult, error) {
	defer logger.LogDuration(ctx, "Symbol resolution finished", "query", query)()

	res := domain.Resolution{Query: query, Kind: domain.Classify(query)}

	switch res.Kind {
	case domain.KindDomestic:
		res.Stage = domain.StageDomestic
		s.record(ctx, res)
		raw, err := s.backend.DomesticQuote(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("domestic quote for %q: %w", query, err)
		}
		if domain.IsErrorResponse(raw) {
			return nil, fmt.Errorf("domestic quote for %q: %w", query, domain.ErrNotFound)
		}
		return &QuoteResult{Resolution: res, Raw: raw}, nil

	case domain.KindForeignTicker:
		res.Stage, res.Symbol = domain.StageTickerPattern, domain.FallbackSymbol(query)

	default:
		raw, ok := s.resolveAmbiguous(ctx, &res)
		if ok {
			s.record(ctx, res)
			return &QuoteResult{Resolution: res, Raw: raw}, nil
		}
	}

	s.record(ctx, res)
	if res.Symbol == "" {
		return nil, fmt.Errorf("empty symbol for %q: %w", query, domain.ErrNotFound)
	}

	quote, err := s.foreignQuote(ctx, res.Symbol)
	if err != nil {
		return nil, err
	}
	return &QuoteResult{Resolution: res, Quote: quote}, nil
}

// resolveAmbiguous 依次尝试各兜底阶段；国内名称搜索命中时返回其原始响应
// 中间阶段的失败只记录日志并进入下一阶段
func (s *ResolutionService) resolveAmbiguous(ctx context.Context, res *domain.Resolution) (json.RawMessage, bool) {
	query := res.Query

	if remote := s.search.Search(ctx, query); remote != nil {
		res.Stage, res.Symbol = domain.StageRemoteSearch, domain.FallbackSymbol(remote.Ticker)
		return nil, false
	}

	if local := s.index.Lookup(query); local != nil {
		res.Stage, res.Symbol = domain.StageAliasIndex, local.Ticker
		return nil, false
	}

	raw, err := s.backend.DomesticSearch(ctx, query)
	switch {
	case err != nil:
		logger.Info(ctx, "Domestic name search failed, falling back to raw query", "query", query, "error", err)
	case !domain.IsErrorResponse(raw):
		res.Stage = domain.StageDomesticSearch
		return raw, true
	default:
		logger.Debug(ctx, "Domestic name search returned no match", "query", query)
	}

	res.Stage, res.Symbol = domain.StageRawFallback, domain.FallbackSymbol(query)
	return nil, false
}

func (s *ResolutionService) foreignQuote(ctx context.Context, symbol string) (*domain.PriceQuote, error) {
	result, err := s.market.Chart(ctx, symbol, quoteInterval, quoteRange)
	if err != nil {
		return nil, fmt.Errorf("foreign quote for %s: %w", symbol, err)
	}
	if result == nil || result.Meta == nil || result.Quote == nil {
		return nil, fmt.Errorf("foreign quote for %s: incomplete chart: %w", symbol, domain.ErrNotFound)
	}
	return domain.DeriveQuote(symbol, result.Meta, result.Quote), nil
}

func (s *ResolutionService) record(ctx context.Context, res domain.Resolution) {
	s.metrics.RecordResolution(string(res.Stage))
	logger.Info(ctx, "Symbol resolved",
		"query", res.Query,
		"kind", res.Kind.String(),
		"stage", string(res.Stage),
		"symbol", res.Symbol,
	)
}

// lookupSymbol 子接口使用的简化解析：只查别名索引，未命中用原始查询大写
func (s *ResolutionService) lookupSymbol(query string) (string, domain.Stage) {
	if local := s.index.Lookup(query); local != nil {
		return local.Ticker, domain.StageAliasIndex
	}
	return domain.FallbackSymbol(query), domain.StageRawFallback
}

// Chart 获取图表数据，period 为空时使用一个月
func (s *ResolutionService) Chart(ctx context.Context, query, period string) (*ChartResult, error) {
	if period == "" {
		period = domain.DefaultChartPeriod
	}
	res := domain.Resolution{Query: query, Kind: domain.Classify(query)}

	if res.Kind == domain.KindDomestic {
		res.Stage = domain.StageDomestic
		s.record(ctx, res)
		raw, err := s.backend.DomesticChart(ctx, query, period)
		if err != nil {
			return nil, fmt.Errorf("domestic chart for %q: %w", query, err)
		}
		return &ChartResult{Resolution: res, Raw: raw}, nil
	}

	res.Symbol, res.Stage = s.lookupSymbol(query)
	s.record(ctx, res)
	if res.Symbol == "" {
		return nil, fmt.Errorf("empty symbol for %q: %w", query, domain.ErrNotFound)
	}

	result, err := s.market.Chart(ctx, res.Symbol, chartInterval, domain.ChartRange(period))
	if err != nil {
		return nil, fmt.Errorf("foreign chart for %s: %w", res.Symbol, err)
	}
	if result == nil || len(result.Timestamps) == 0 || result.Quote == nil {
		return nil, fmt.Errorf("foreign chart for %s: no series: %w", res.Symbol, domain.ErrNotFound)
	}
	return &ChartResult{Resolution: res, Series: domain.BuildSeries(res.Symbol, period, result)}, nil
}

// maxNewsSymbolLen 从报价结果中提取的代码超过该长度时不用于新闻查询，国内 6 位代码因此被排除
const maxNewsSymbolLen = 5

// News 获取新闻，海外股票的代码依次取自别名索引、报价解析、原始查询大写
func (s *ResolutionService) News(ctx context.Context, query string) (json.RawMessage, error) {
	if domain.IsDomestic(query) {
		return s.backend.DomesticNews(ctx, query)
	}

	symbol := ""
	if local := s.index.Lookup(query); local != nil {
		symbol = local.Ticker
		logger.Debug(ctx, "News symbol from alias index", "query", query, "symbol", symbol)
	} else {
		symbol = s.newsSymbolFromQuote(ctx, query)
	}
	if symbol == "" {
		return nil, fmt.Errorf("empty symbol for %q: %w", query, domain.ErrNotFound)
	}

	return s.backend.ForeignNews(ctx, symbol)
}

func (s *ResolutionService) newsSymbolFromQuote(ctx context.Context, query string) string {
	fallback := domain.FallbackSymbol(query)

	result, err := s.Quote(ctx, query)
	if err != nil {
		logger.Info(ctx, "News symbol resolution via quote failed, using raw query", "query", query, "error", err)
		return fallback
	}

	symbol := ""
	switch {
	case result.Quote != nil:
		symbol = result.Quote.Symbol
	case result.Raw != nil:
		symbol = domain.SymbolField(result.Raw)
	}
	if symbol == "" {
		return fallback
	}

	symbol = strings.Replace(symbol, ".KS", "", 1)
	symbol = strings.Replace(symbol, ".KQ", "", 1)
	symbol = strings.ToUpper(symbol)
	if symbol == "" || len(symbol) > maxNewsSymbolLen {
		return fallback
	}
	return symbol
}

// Financials 获取财务报表，海外股票只查别名索引
func (s *ResolutionService) Financials(ctx context.Context, query string) (json.RawMessage, error) {
	if domain.IsDomestic(query) {
		return s.backend.DomesticFinancials(ctx, query)
	}
	symbol, _ := s.lookupSymbol(query)
	if symbol == "" {
		return nil, fmt.Errorf("empty symbol for %q: %w", query, domain.ErrNotFound)
	}
	return s.backend.ForeignFinancials(ctx, symbol)
}

// IsNotFound 判断错误是否应映射为 404
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
