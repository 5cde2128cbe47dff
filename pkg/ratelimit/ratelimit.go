// Package ratelimit 提供按 key 限流的抽象，支持 Redis（GCRA）与进程内令牌桶两种实现
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimiter 限流器接口
type RateLimiter interface {
	// Allow 判断 key 在 limit 规则下是否允许本次请求
	Allow(ctx context.Context, key string, limit Limit) (*Result, error)
}

// Limit 限流规则
type Limit struct {
	Rate   int
	Period time.Duration
	Burst  int
}

// Result 限流检查结果
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAfter time.Duration
	RetryAfter time.Duration
}

// RedisRateLimiter 基于 Redis 的分布式限流器
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
}

// NewRedisRateLimiter 创建 Redis 限流器
func NewRedisRateLimiter(rdb redis.UniversalClient) *RedisRateLimiter {
	return &RedisRateLimiter{
		limiter: redis_rate.NewLimiter(rdb),
	}
}

// Allow 检查是否允许请求
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit Limit) (*Result, error) {
	res, err := r.limiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   limit.Rate,
		Period: limit.Period,
		Burst:  limit.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		ResetAfter: res.ResetAfter,
		RetryAfter: res.RetryAfter,
	}, nil
}

// maxLocalKeys 进程内限流器最多跟踪的 key 数量，超过后整体重置
const maxLocalKeys = 10000

// LocalRateLimiter 进程内令牌桶限流器，单实例部署时使用
type LocalRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLocalRateLimiter 创建进程内限流器
func NewLocalRateLimiter() *LocalRateLimiter {
	return &LocalRateLimiter{limiters: make(map[string]*rate.Limiter)}
}

// Allow 检查是否允许请求
func (l *LocalRateLimiter) Allow(_ context.Context, key string, limit Limit) (*Result, error) {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return nil, fmt.Errorf("invalid rate limit: rate=%d period=%s", limit.Rate, limit.Period)
	}

	lim := l.limiter(key, limit)
	now := time.Now()
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return &Result{Allowed: false, RetryAfter: limit.Period}, nil
	}

	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return &Result{
			Allowed:    false,
			Remaining:  0,
			ResetAfter: delay,
			RetryAfter: delay,
		}, nil
	}

	remaining := int(lim.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	perToken := limit.Period / time.Duration(limit.Rate)
	return &Result{
		Allowed:    true,
		Remaining:  remaining,
		ResetAfter: time.Duration(limit.Burst-remaining) * perToken,
		RetryAfter: -1,
	}, nil
}

func (l *LocalRateLimiter) limiter(key string, limit Limit) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[key]; ok {
		return lim
	}
	if len(l.limiters) >= maxLocalKeys {
		l.limiters = make(map[string]*rate.Limiter)
	}

	burst := limit.Burst
	if burst <= 0 {
		burst = limit.Rate
	}
	every := rate.Limit(float64(limit.Rate) / limit.Period.Seconds())
	lim := rate.NewLimiter(every, burst)
	l.limiters[key] = lim
	return lim
}
