// Package databackend 国内行情与新闻、财务数据后端客户端，响应原样透传
package databackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/wyfcoding/stockrouter/internal/stock/domain"
	"github.com/wyfcoding/stockrouter/pkg/config"
	"github.com/wyfcoding/stockrouter/pkg/metrics"
)

const provider = "backend"

// Client 数据后端客户端
type Client struct {
	http    *resty.Client
	metrics *metrics.Metrics
}

var _ domain.DataBackend = (*Client)(nil)

// NewClient 创建数据后端客户端
func NewClient(cfg config.UpstreamConfig, m *metrics.Metrics) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(cfg.DataBackendURL).
			SetTimeout(cfg.RequestTimeout).
			SetHeader("Accept", "application/json"),
		metrics: m,
	}
}

// DomesticQuote 国内股票报价
func (c *Client) DomesticQuote(ctx context.Context, query string) (json.RawMessage, error) {
	return c.get(ctx, "domestic_quote", "/api/kr-stock/{query}", query, nil)
}

// DomesticSearch 按公司名搜索国内股票，未命中时响应体带 error 字段
func (c *Client) DomesticSearch(ctx context.Context, query string) (json.RawMessage, error) {
	return c.get(ctx, "domestic_search", "/api/kr-stock/search/{query}", query, nil)
}

// DomesticChart 国内股票图表
func (c *Client) DomesticChart(ctx context.Context, query, period string) (json.RawMessage, error) {
	return c.get(ctx, "domestic_chart", "/api/kr-stock/{query}/chart", query, map[string]string{"period": period})
}

// DomesticNews 国内股票新闻
func (c *Client) DomesticNews(ctx context.Context, query string) (json.RawMessage, error) {
	return c.get(ctx, "domestic_news", "/api/kr-stock/{query}/news", query, nil)
}

// DomesticFinancials 国内股票财务报表
func (c *Client) DomesticFinancials(ctx context.Context, query string) (json.RawMessage, error) {
	return c.get(ctx, "domestic_financials", "/api/kr-stock/{query}/financials", query, nil)
}

// ForeignNews 海外股票新闻
func (c *Client) ForeignNews(ctx context.Context, symbol string) (json.RawMessage, error) {
	return c.get(ctx, "foreign_news", "/api/stock/{query}/news", symbol, nil)
}

// ForeignFinancials 海外股票财务报表
func (c *Client) ForeignFinancials(ctx context.Context, symbol string) (json.RawMessage, error) {
	return c.get(ctx, "foreign_financials", "/api/stock/{query}/financials", symbol, nil)
}

func (c *Client) get(ctx context.Context, op, path, param string, query map[string]string) (json.RawMessage, error) {
	start := time.Now()
	raw, err := c.do(ctx, op, path, param, query)

	outcome := "ok"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	c.metrics.RecordUpstreamCall(provider, op, outcome, time.Since(start))
	return raw, err
}

func (c *Client) do(ctx context.Context, op, path, param string, query map[string]string) (json.RawMessage, error) {
	req := c.http.R().
		SetContext(ctx).
		SetPathParam("query", param)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		return nil, &domain.UpstreamError{Provider: provider, Op: op, Err: err}
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, fmt.Errorf("backend %s %q: %w", op, param, domain.ErrNotFound)
	case !resp.IsSuccess():
		return nil, &domain.UpstreamError{
			Provider:   provider,
			Op:         op,
			StatusCode: resp.StatusCode(),
			Err:        errors.New(http.StatusText(resp.StatusCode())),
		}
	}

	body := resp.Body()
	if !json.Valid(body) {
		return nil, &domain.UpstreamError{Provider: provider, Op: op, StatusCode: resp.StatusCode(), Err: errors.New("invalid JSON body")}
	}
	return json.RawMessage(body), nil
}
