package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/stockrouter/pkg/config"
	"github.com/wyfcoding/stockrouter/pkg/logger"
	"github.com/wyfcoding/stockrouter/pkg/metrics"
	"github.com/wyfcoding/stockrouter/pkg/ratelimit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGinLoggingMiddleware_PropagatesIDs(t *testing.T) {
	r := gin.New()
	r.Use(GinLoggingMiddleware())

	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = logger.RequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderTraceID, "trace-abc")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(HeaderRequestID))
}

func TestGinRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(GinLoggingMiddleware(), GinRecoveryMiddleware())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
}

func TestGinCORSMiddleware_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(GinCORSMiddleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/x", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestGinMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	m := metrics.New("mwtest")
	r := gin.New()
	r.Use(GinMetricsMiddleware(m))
	r.GET("/api/stock/:query", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, q := range []string{"AAPL", "TSLA"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stock/"+q, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/stock/:query", "200")))
}

type stubLimiter struct {
	res *ratelimit.Result
	err error
}

func (s stubLimiter) Allow(context.Context, string, ratelimit.Limit) (*ratelimit.Result, error) {
	return s.res, s.err
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, QPS: 1, Burst: 1}

	tests := []struct {
		name    string
		limiter ratelimit.RateLimiter
		want    int
	}{
		{"allowed", stubLimiter{res: &ratelimit.Result{Allowed: true, Remaining: 0}}, http.StatusOK},
		{"denied", stubLimiter{res: &ratelimit.Result{Allowed: false, RetryAfter: 500 * time.Millisecond}}, http.StatusTooManyRequests},
		{"fail open", stubLimiter{err: errors.New("redis down")}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RateLimitMiddleware(tt.limiter, cfg))
			r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusTooManyRequests {
				assert.Equal(t, "1", w.Header().Get("Retry-After"))
			}
		})
	}
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(stubLimiter{res: &ratelimit.Result{Allowed: false}}, config.RateLimitConfig{}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
