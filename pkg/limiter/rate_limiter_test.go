package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestTokenBucketLimiter_Allow(t *testing.T) {
	l := NewTokenBucketLimiter(rate.Limit(10), 2)
	ctx := context.Background()

	allowed, err := l.Allow(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = l.Allow(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, allowed)

	// Burst exhausted.
	allowed, err = l.Allow(ctx, "key")
	assert.NoError(t, err)
	assert.False(t, allowed)
}

func TestTokenBucketLimiter_Refill(t *testing.T) {
	l := NewTokenBucketLimiter(rate.Limit(100), 1)
	ctx := context.Background()

	allowed, _ := l.Allow(ctx, "key")
	assert.True(t, allowed)

	allowed, _ = l.Allow(ctx, "key")
	assert.False(t, allowed)

	time.Sleep(20 * time.Millisecond)

	allowed, _ = l.Allow(ctx, "key")
	assert.True(t, allowed)
}

func TestTokenBucketLimiter_AllowN(t *testing.T) {
	l := NewTokenBucketLimiter(rate.Limit(10), 5)

	allowed, err := l.AllowN(context.Background(), "key", 5)
	assert.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = l.AllowN(context.Background(), "key", 5)
	assert.NoError(t, err)
	assert.False(t, allowed)
}
