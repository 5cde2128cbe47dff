package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/stockrouter/internal/stock/application"
	"github.com/wyfcoding/stockrouter/internal/stock/domain"
	"github.com/wyfcoding/stockrouter/internal/stock/infrastructure/databackend"
	"github.com/wyfcoding/stockrouter/internal/stock/infrastructure/searchcache"
	"github.com/wyfcoding/stockrouter/internal/stock/infrastructure/yahoo"
	"github.com/wyfcoding/stockrouter/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// upstream 模拟 Yahoo 与数据后端，按路径返回预设响应
type upstream struct {
	mu     sync.Mutex
	routes map[string]upstreamResp
	hits   []string
}

type upstreamResp struct {
	status int
	body   string
}

func (u *upstream) on(path string, status int, body string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.routes[path] = upstreamResp{status, body}
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.hits = append(u.hits, r.URL.Path)
	resp, ok := u.routes[r.URL.Path]
	u.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

func (u *upstream) hit(path string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, h := range u.hits {
		if h == path {
			return true
		}
	}
	return false
}

func chartJSON(symbol string, price, prevClose float64) string {
	body := map[string]any{
		"chart": map[string]any{
			"result": []any{map[string]any{
				"meta": map[string]any{
					"symbol":             symbol,
					"currency":           "USD",
					"exchangeName":       "NMS",
					"longName":           symbol + " Inc.",
					"regularMarketPrice": price,
					"previousClose":      prevClose,
				},
				"timestamp": []int64{1704205800, 1704292200},
				"indicators": map[string]any{"quote": []any{map[string]any{
					"open":   []any{prevClose, nil},
					"high":   []any{price + 1, price + 2},
					"low":    []any{prevClose - 1, prevClose - 2},
					"close":  []any{price, price},
					"volume": []any{1000, 2000},
				}}},
			}},
			"error": nil,
		},
	}
	data, _ := json.Marshal(body)
	return string(data)
}

func newRouter(t *testing.T) (*gin.Engine, *upstream) {
	t.Helper()
	up := &upstream{routes: make(map[string]upstreamResp)}
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	cfg := config.UpstreamConfig{
		DataBackendURL: srv.URL,
		YahooChartURL:  srv.URL,
		YahooSearchURL: srv.URL,
		RequestTimeout: 2 * time.Second,
		SearchTimeout:  time.Second,
	}
	yc := yahoo.NewClient(cfg, nil)
	backend := databackend.NewClient(cfg, nil)

	memory, err := searchcache.NewMemoryCache(context.Background(), time.Hour, 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = memory.Close() })

	index := domain.NewAliasIndex([]domain.StockAliasEntry{
		{Ticker: "TSLA", EnglishName: "Tesla", KoreanNames: []string{"테슬라"}, Exchange: "NASDAQ"},
		{Ticker: "AAPL", EnglishName: "Apple", KoreanNames: []string{"애플"}, Exchange: "NASDAQ"},
	})
	search := application.NewSymbolSearch(yc, memory, cfg.SearchTimeout, nil)
	svc := application.NewResolutionService(index, search, yc, backend, nil)

	r := gin.New()
	NewHandler(svc).RegisterRoutes(r)
	return r, up
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestGetQuote_Domestic(t *testing.T) {
	r, up := newRouter(t)
	up.on("/api/kr-stock/005930", http.StatusOK, `{"symbol":"005930","name":"삼성전자","price":71000,"isKorean":true}`)

	w := get(r, "/api/stock/005930")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"symbol":"005930","name":"삼성전자","price":71000,"isKorean":true}`, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}

func TestGetQuote_KoreanAlias(t *testing.T) {
	r, up := newRouter(t)
	up.on("/v1/finance/search", http.StatusOK, `{"quotes":[]}`)
	up.on("/v8/finance/chart/TSLA", http.StatusOK, chartJSON("TSLA", 150, 145))

	w := get(r, "/api/stock/"+url.PathEscape("테슬라"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var q domain.PriceQuote
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	assert.Equal(t, "TSLA", q.Symbol)
	assert.Equal(t, "TSLA Inc.", q.Name)
	assert.Equal(t, 150.0, q.Price)
	assert.InDelta(t, 5.0, q.Change, 1e-9)
	assert.InDelta(t, 3.448, q.ChangePercent, 1e-3)
	assert.False(t, q.IsKorean)
}

func TestGetQuote_TickerPattern(t *testing.T) {
	r, up := newRouter(t)
	up.on("/v8/finance/chart/NVDA", http.StatusOK, chartJSON("NVDA", 120, 118))

	w := get(r, "/api/stock/nvda")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, up.hit("/v1/finance/search"))
}

func TestGetQuote_NotFound(t *testing.T) {
	r, _ := newRouter(t)

	w := get(r, "/api/stock/ZZZZ")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"주식을 찾을 수 없습니다."}`, w.Body.String())
}

func TestGetQuote_UpstreamFailure(t *testing.T) {
	r, up := newRouter(t)
	up.on("/v8/finance/chart/AAPL", http.StatusInternalServerError, `oops`)

	w := get(r, "/api/stock/AAPL")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"주가 정보를 가져올 수 없습니다."}`, w.Body.String())
}

func TestGetChart(t *testing.T) {
	r, up := newRouter(t)
	up.on("/v8/finance/chart/AAPL", http.StatusOK, chartJSON("AAPL", 150, 145))

	w := get(r, "/api/stock/"+url.PathEscape("애플")+"/chart?period=3m")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var s domain.ChartSeries
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, "AAPL", s.Symbol)
	assert.Equal(t, "3m", s.Period)
	// 第二个点开盘价为 null，被跳过
	require.Len(t, s.Data, 1)
	assert.Equal(t, "2024-01-02", s.Data[0].Date)
	assert.Equal(t, int64(1000), s.Data[0].Volume)
}

func TestGetChart_DomesticAndNotFound(t *testing.T) {
	r, up := newRouter(t)
	up.on("/api/kr-stock/005930/chart", http.StatusOK, `{"symbol":"005930","period":"1m","data":[]}`)

	w := get(r, "/api/stock/005930/chart")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"symbol":"005930","period":"1m","data":[]}`, w.Body.String())

	w = get(r, "/api/stock/ZZZZ/chart")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"차트 데이터를 찾을 수 없습니다."}`, w.Body.String())
}

func TestGetNews(t *testing.T) {
	r, up := newRouter(t)
	up.on("/api/stock/TSLA/news", http.StatusOK, `[{"title":"Tesla delivers"}]`)

	w := get(r, "/api/stock/tesla/news")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"title":"Tesla delivers"}]`, w.Body.String())

	w = get(r, "/api/stock/AAPL/news")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"뉴스를 가져올 수 없습니다."}`, w.Body.String())
}

func TestGetFinancials(t *testing.T) {
	r, up := newRouter(t)
	up.on("/api/kr-stock/005930/financials", http.StatusOK, `{"revenue":[1,2,3]}`)
	up.on("/api/stock/AAPL/financials", http.StatusOK, `{"revenue":[4,5,6]}`)

	w := get(r, "/api/stock/005930/financials")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"revenue":[1,2,3]}`, w.Body.String())

	w = get(r, "/api/stock/"+url.PathEscape("애플")+"/financials")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"revenue":[4,5,6]}`, w.Body.String())

	w = get(r, "/api/stock/NOPE/financials")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "재무제표"))
}

func TestHealth(t *testing.T) {
	r, _ := newRouter(t)

	w := get(r, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","aliases":6}`, w.Body.String())
}
