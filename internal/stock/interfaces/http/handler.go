// Package http 股票查询的 HTTP 接口
package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/stockrouter/internal/stock/application"
	"github.com/wyfcoding/stockrouter/pkg/logger"
)

// 面向用户的错误信息
const (
	msgStockNotFound    = "주식을 찾을 수 없습니다."
	msgQuoteFailed      = "주가 정보를 가져올 수 없습니다."
	msgChartNotFound    = "차트 데이터를 찾을 수 없습니다."
	msgChartFailed      = "차트 데이터를 가져올 수 없습니다."
	msgNewsFailed       = "뉴스를 가져올 수 없습니다."
	msgFinancialsFailed = "재무제표를 가져올 수 없습니다."
	contentTypeJSONUTF8 = "application/json; charset=utf-8"
)

// Handler 股票查询 HTTP 处理器
type Handler struct {
	svc *application.ResolutionService
}

// NewHandler 创建 HTTP 处理器
func NewHandler(svc *application.ResolutionService) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api/stock")
	{
		api.GET("/:query", h.GetQuote)
		api.GET("/:query/chart", h.GetChart)
		api.GET("/:query/news", h.GetNews)
		api.GET("/:query/financials", h.GetFinancials)
	}
	r.GET("/healthz", h.Health)
}

// GetQuote 解析查询并返回报价
// @Router /api/stock/{query} [get]
func (h *Handler) GetQuote(c *gin.Context) {
	query := c.Param("query")
	ctx := c.Request.Context()

	res, err := h.svc.Quote(ctx, query)
	if err != nil {
		if application.IsNotFound(err) {
			logger.Info(ctx, "Stock not found", "query", query, "error", err)
			c.JSON(http.StatusNotFound, gin.H{"error": msgStockNotFound})
			return
		}
		logger.Error(ctx, "Failed to get quote", "query", query, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgQuoteFailed})
		return
	}

	if res.Raw != nil {
		writeRaw(c, res.Raw)
		return
	}
	c.JSON(http.StatusOK, res.Quote)
}

// GetChart 返回 OHLCV 序列，period 取 1m/3m/6m/1y
// @Router /api/stock/{query}/chart [get]
func (h *Handler) GetChart(c *gin.Context) {
	query := c.Param("query")
	period := c.Query("period")
	ctx := c.Request.Context()

	res, err := h.svc.Chart(ctx, query, period)
	if err != nil {
		if application.IsNotFound(err) {
			logger.Info(ctx, "Chart not found", "query", query, "period", period, "error", err)
			c.JSON(http.StatusNotFound, gin.H{"error": msgChartNotFound})
			return
		}
		logger.Error(ctx, "Failed to get chart", "query", query, "period", period, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgChartFailed})
		return
	}

	if res.Raw != nil {
		writeRaw(c, res.Raw)
		return
	}
	c.JSON(http.StatusOK, res.Series)
}

// GetNews 返回新闻，上游响应原样透传
// @Router /api/stock/{query}/news [get]
func (h *Handler) GetNews(c *gin.Context) {
	query := c.Param("query")
	ctx := c.Request.Context()

	raw, err := h.svc.News(ctx, query)
	if err != nil {
		logger.Error(ctx, "Failed to get news", "query", query, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgNewsFailed})
		return
	}
	writeRaw(c, raw)
}

// GetFinancials 返回财务报表，上游响应原样透传
// @Router /api/stock/{query}/financials [get]
func (h *Handler) GetFinancials(c *gin.Context) {
	query := c.Param("query")
	ctx := c.Request.Context()

	raw, err := h.svc.Financials(ctx, query)
	if err != nil {
		logger.Error(ctx, "Failed to get financials", "query", query, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgFinancialsFailed})
		return
	}
	writeRaw(c, raw)
}

// Health 存活检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"aliases": h.svc.AliasCount(),
	})
}

func writeRaw(c *gin.Context, raw json.RawMessage) {
	c.Data(http.StatusOK, contentTypeJSONUTF8, raw)
}
