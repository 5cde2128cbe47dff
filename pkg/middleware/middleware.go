// Package middleware 提供 Gin 的通用中间件（日志、trace、panic recover、指标、限流、CORS）
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wyfcoding/stockrouter/pkg/logger"
	"github.com/wyfcoding/stockrouter/pkg/metrics"
)

const (
	// RequestIDKey gin 上下文中的 request ID
	RequestIDKey = "request_id"
	// TraceIDKey gin 上下文中的 trace ID
	TraceIDKey = "trace_id"
	// SpanIDKey gin 上下文中的 span ID
	SpanIDKey = "span_id"

	// HeaderRequestID 响应头中回传的 request ID
	HeaderRequestID = "X-Request-ID"
	// HeaderTraceID 调用方传入的 trace ID
	HeaderTraceID = "X-Trace-ID"
)

// GinLoggingMiddleware Gin 日志中间件
func GinLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		traceID := c.GetHeader(HeaderTraceID)
		if traceID == "" {
			traceID = uuid.New().String()
		}
		spanID := uuid.New().String()

		c.Set(RequestIDKey, requestID)
		c.Set(TraceIDKey, traceID)
		c.Set(SpanIDKey, spanID)
		c.Header(HeaderRequestID, requestID)

		// 下游通过 c.Request.Context() 取到带 ID 的 context
		ctx := logger.ContextWithIDs(c.Request.Context(), requestID, traceID, spanID)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		logger.Debug(ctx, "HTTP request started",
			"method", method,
			"path", path,
			"client_ip", c.ClientIP(),
		)

		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", method,
			"path", path,
			"status_code", status,
			"response_size", c.Writer.Size(),
			"duration", time.Since(start),
		}
		if len(c.Errors) > 0 {
			args = append(args, "errors", c.Errors.String())
		}

		if status >= http.StatusInternalServerError {
			logger.Warn(ctx, "HTTP request completed", args...)
		} else {
			logger.Info(ctx, "HTTP request completed", args...)
		}
	}
}

// GinRecoveryMiddleware Gin panic 恢复中间件
func GinRecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error(c.Request.Context(), "HTTP request panicked",
					"path", c.Request.URL.Path,
					"panic", err,
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":      "Internal server error",
					"request_id": c.GetString(RequestIDKey),
				})
			}
		}()
		c.Next()
	}
}

// GinCORSMiddleware Gin CORS 中间件
func GinCORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID")
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, Retry-After")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// GinMetricsMiddleware 记录请求计数与耗时，路由标签使用注册时的模板避免基数膨胀
func GinMetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
