package application

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/wyfcoding/stockrouter/internal/stock/domain"
)

type fakeSearcher struct {
	mu         sync.Mutex
	calls      []string
	candidates map[string][]domain.SearchCandidate
	err        error
	// 为 true 时阻塞到 ctx 结束
	block bool
	// 非 nil 时等待 gate 关闭后再返回候选
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeSearcher) SearchQuotes(ctx context.Context, query string, _ int) ([]domain.SearchCandidate, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates[query], nil
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type memCache struct {
	mu      sync.Mutex
	data    map[string]*domain.ResolvedAlias
	writes  int
	readErr error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string]*domain.ResolvedAlias)}
}

func (c *memCache) Get(_ context.Context, key string) (*domain.ResolvedAlias, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return nil, false, c.readErr
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, alias *domain.ResolvedAlias) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = alias
	c.writes++
	return nil
}

type fakeMarket struct {
	mu      sync.Mutex
	calls   []marketCall
	results map[string]*domain.ChartResult
	err     error
}

type marketCall struct {
	symbol, interval, rng string
}

func (f *fakeMarket) Chart(_ context.Context, symbol, interval, rng string) (*domain.ChartResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, marketCall{symbol, interval, rng})
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[symbol]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeMarket) symbols() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.symbol)
	}
	return out
}

type backendResp struct {
	body string
	err  error
}

type fakeBackend struct {
	mu    sync.Mutex
	calls []string
	resp  map[string]backendResp
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{resp: make(map[string]backendResp)}
}

func (f *fakeBackend) on(call, body string, err error) *fakeBackend {
	f.resp[call] = backendResp{body: body, err: err}
	return f
}

func (f *fakeBackend) do(call string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	r, ok := f.resp[call]
	if !ok {
		return nil, &domain.UpstreamError{Provider: "backend", Op: call, StatusCode: 500, Err: errors.New("unexpected call")}
	}
	if r.err != nil {
		return nil, r.err
	}
	return json.RawMessage(r.body), nil
}

func (f *fakeBackend) DomesticQuote(_ context.Context, q string) (json.RawMessage, error) {
	return f.do("quote:" + q)
}

func (f *fakeBackend) DomesticSearch(_ context.Context, q string) (json.RawMessage, error) {
	return f.do("search:" + q)
}

func (f *fakeBackend) DomesticChart(_ context.Context, q, period string) (json.RawMessage, error) {
	return f.do("chart:" + q + ":" + period)
}

func (f *fakeBackend) DomesticNews(_ context.Context, q string) (json.RawMessage, error) {
	return f.do("news:" + q)
}

func (f *fakeBackend) DomesticFinancials(_ context.Context, q string) (json.RawMessage, error) {
	return f.do("financials:" + q)
}

func (f *fakeBackend) ForeignNews(_ context.Context, s string) (json.RawMessage, error) {
	return f.do("foreign-news:" + s)
}

func (f *fakeBackend) ForeignFinancials(_ context.Context, s string) (json.RawMessage, error) {
	return f.do("foreign-financials:" + s)
}

func (f *fakeBackend) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func fp(v float64) *float64 { return &v }

func quoteChart(symbol string, price, prevClose float64) *domain.ChartResult {
	return &domain.ChartResult{
		Meta: &domain.ChartMeta{
			Symbol:             symbol,
			LongName:           symbol + " Inc.",
			RegularMarketPrice: fp(price),
			PreviousClose:      fp(prevClose),
		},
		Timestamps: []int64{1704205800},
		Quote: &domain.QuoteSeries{
			Open:  []*float64{fp(prevClose)},
			Close: []*float64{fp(price)},
		},
	}
}
