// Package yahoo 实现海外行情源（图表 v8）与代码自动补全（搜索 v1）客户端
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"github.com/wyfcoding/stockrouter/internal/stock/domain"
	"github.com/wyfcoding/stockrouter/pkg/config"
	"github.com/wyfcoding/stockrouter/pkg/logger"
	"github.com/wyfcoding/stockrouter/pkg/metrics"
)

const (
	provider = "yahoo"

	chartPath  = "/v8/finance/chart/{symbol}"
	searchPath = "/v1/finance/search"
)

// Client Yahoo Finance 客户端，图表调用经过熔断器，搜索调用不经过
type Client struct {
	chart   *resty.Client
	search  *resty.Client
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
}

var (
	_ domain.ForeignMarketData = (*Client)(nil)
	_ domain.SymbolSearcher    = (*Client)(nil)
)

// NewClient 创建客户端
func NewClient(cfg config.UpstreamConfig, m *metrics.Metrics) *Client {
	c := &Client{
		chart:   newResty(cfg.YahooChartURL, cfg),
		search:  newResty(cfg.YahooSearchURL, cfg),
		metrics: m,
	}
	if cfg.Breaker.Enabled {
		c.breaker = newBreaker("yahoo-chart", cfg.Breaker)
	}
	return c
}

func newResty(baseURL string, cfg config.UpstreamConfig) *resty.Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.RequestTimeout).
		SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		r.SetHeader("User-Agent", cfg.UserAgent)
	}
	return r
}

func newBreaker(name string, cfg config.BreakerConfig) *gobreaker.CircuitBreaker {
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// 标的不存在是正常结果，不计入失败
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "Circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
}

// Chart 获取图表数据
// 上游 404 或结果为空返回 ErrNotFound，其余失败返回 *domain.UpstreamError
func (c *Client) Chart(ctx context.Context, symbol, interval, rng string) (*domain.ChartResult, error) {
	start := time.Now()

	call := func() (any, error) {
		return c.fetchChart(ctx, symbol, interval, rng)
	}

	var (
		out any
		err error
	)
	if c.breaker != nil {
		out, err = c.breaker.Execute(call)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &domain.UpstreamError{Provider: provider, Op: "chart", Err: err}
		}
	} else {
		out, err = call()
	}

	c.metrics.RecordUpstreamCall(provider, "chart", outcome(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	return out.(*domain.ChartResult), nil
}

func (c *Client) fetchChart(ctx context.Context, symbol, interval, rng string) (*domain.ChartResult, error) {
	resp, err := c.chart.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"interval": interval,
			"range":    rng,
		}).
		Get(chartPath)
	if err != nil {
		return nil, &domain.UpstreamError{Provider: provider, Op: "chart", Err: err}
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, domain.ErrNotFound)
	case !resp.IsSuccess():
		return nil, &domain.UpstreamError{
			Provider:   provider,
			Op:         "chart",
			StatusCode: resp.StatusCode(),
			Err:        errors.New(http.StatusText(resp.StatusCode())),
		}
	}

	var body chartResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, &domain.UpstreamError{Provider: provider, Op: "chart", StatusCode: resp.StatusCode(), Err: fmt.Errorf("decode: %w", err)}
	}
	if len(body.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: empty result: %w", symbol, domain.ErrNotFound)
	}
	return body.Chart.Result[0].toDomain(), nil
}

// SearchQuotes 自动补全搜索，返回最多 limit 个候选
func (c *Client) SearchQuotes(ctx context.Context, query string, limit int) ([]domain.SearchCandidate, error) {
	start := time.Now()
	candidates, err := c.fetchSearch(ctx, query, limit)
	c.metrics.RecordUpstreamCall(provider, "search", outcome(err), time.Since(start))
	return candidates, err
}

func (c *Client) fetchSearch(ctx context.Context, query string, limit int) ([]domain.SearchCandidate, error) {
	resp, err := c.search.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":           query,
			"quotesCount": strconv.Itoa(limit),
			"newsCount":   "0",
		}).
		Get(searchPath)
	if err != nil {
		return nil, &domain.UpstreamError{Provider: provider, Op: "search", Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &domain.UpstreamError{
			Provider:   provider,
			Op:         "search",
			StatusCode: resp.StatusCode(),
			Err:        errors.New(http.StatusText(resp.StatusCode())),
		}
	}

	var body searchResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, &domain.UpstreamError{Provider: provider, Op: "search", StatusCode: resp.StatusCode(), Err: fmt.Errorf("decode: %w", err)}
	}

	out := make([]domain.SearchCandidate, 0, len(body.Quotes))
	for _, q := range body.Quotes {
		out = append(out, domain.SearchCandidate{
			Symbol:           q.Symbol,
			QuoteType:        q.QuoteType,
			TypeDisp:         q.TypeDisp,
			Exchange:         q.Exchange,
			FullExchangeName: q.FullExchangeName,
			ShortName:        q.ShortName,
			LongName:         q.LongName,
		})
	}
	return out, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "rejected"
	default:
		return "error"
	}
}
