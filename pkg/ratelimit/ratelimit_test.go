package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRateLimiter_Burst(t *testing.T) {
	l := NewLocalRateLimiter()
	ctx := context.Background()
	limit := Limit{Rate: 1, Period: time.Hour, Burst: 3}

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "ip:1", limit)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
	}

	res, err := l.Allow(ctx, "ip:1", limit)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)

	// 不同 key 独立计数
	res, err = l.Allow(ctx, "ip:2", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLocalRateLimiter_InvalidLimit(t *testing.T) {
	_, err := NewLocalRateLimiter().Allow(context.Background(), "k", Limit{})
	assert.Error(t, err)
}
