package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"stockwatch/pkg/limiter"
)

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

var _ limiter.RateLimiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allowed, l.err
}

func newTestRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ping", mw, func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return router
}

func doGet(router *gin.Engine) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", "/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimit_TokenBucketPerKey(t *testing.T) {
	router := newTestRouter(RateLimit(1, 1))

	assert.Equal(t, http.StatusOK, doGet(router).Code)

	// Burst of one: the immediate second request is rejected.
	w := doGet(router)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "4029")
}

func TestRateLimit_SharedLimiterDenies(t *testing.T) {
	fake := &fakeLimiter{allowed: false}
	router := newTestRouter(RateLimitWithConfig(RateLimitConfig{Limiter: fake}))

	w := doGet(router)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, fake.keys)
}

func TestRateLimit_SharedLimiterAllows(t *testing.T) {
	fake := &fakeLimiter{allowed: true}
	router := newTestRouter(RateLimitWithConfig(RateLimitConfig{Limiter: fake}))

	assert.Equal(t, http.StatusOK, doGet(router).Code)
	assert.Equal(t, http.StatusOK, doGet(router).Code)
	assert.Len(t, fake.keys, 2)
}

func TestRateLimit_FailsOpenOnLimiterError(t *testing.T) {
	fake := &fakeLimiter{err: errors.New("backend down")}
	router := newTestRouter(RateLimitWithConfig(RateLimitConfig{Limiter: fake}))

	assert.Equal(t, http.StatusOK, doGet(router).Code)
}

func TestRecovery_ReturnsInternalError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Recovery())
	router.GET("/boom", func(c *gin.Context) {
		panic("handler exploded")
	})

	req, _ := http.NewRequest("GET", "/boom", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
}
