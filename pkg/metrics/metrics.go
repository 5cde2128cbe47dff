// Package metrics 提供 Prometheus 指标集合与暴露端点
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/stockrouter/pkg/logger"
)

const namespace = "stockrouter"

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 代码解析结果计数（按命中阶段）
	ResolutionsTotal *prometheus.CounterVec

	// 上游调用计数
	UpstreamCallsTotal *prometheus.CounterVec
	// 上游调用耗时
	UpstreamCallDuration *prometheus.HistogramVec

	// 远程搜索缓存命中计数
	SearchCacheTotal *prometheus.CounterVec
}

// New 创建指标实例，未注册的指标也可以正常记录
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		ResolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "resolutions_total",
			Help:      "Symbol resolutions by the stage that produced the symbol",
		}, []string{"stage"}),

		UpstreamCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "upstream_calls_total",
			Help:      "Upstream provider calls",
		}, []string{"provider", "op", "outcome"}),
		UpstreamCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "upstream_call_duration_seconds",
			Help:      "Upstream provider call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
		}, []string{"provider", "op"}),

		SearchCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "search_cache_total",
			Help:      "Remote symbol search cache lookups",
		}, []string{"result"}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ResolutionsTotal,
		m.UpstreamCallsTotal,
		m.UpstreamCallDuration,
		m.SearchCacheTotal,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, fmt.Sprint(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordResolution 记录一次代码解析
func (m *Metrics) RecordResolution(stage string) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(stage).Inc()
}

// RecordUpstreamCall 记录一次上游调用
func (m *Metrics) RecordUpstreamCall(provider, op, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamCallsTotal.WithLabelValues(provider, op, outcome).Inc()
	m.UpstreamCallDuration.WithLabelValues(provider, op).Observe(duration.Seconds())
}

// RecordSearchCache 记录搜索缓存命中（hit）或未命中（miss）
func (m *Metrics) RecordSearchCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.SearchCacheTotal.WithLabelValues(result).Inc()
}

// NewServer 创建 Prometheus HTTP 服务器
func NewServer(port int, path string, gatherer prometheus.Gatherer) *http.Server {
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Serve 启动指标服务器，阻塞到服务器关闭
func Serve(srv *http.Server) error {
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
