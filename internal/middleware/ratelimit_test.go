package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tripmate/internal/cache"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	clock := &manualClock{now: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}

	r := gin.New()
	r.Use(RateLimit(cache.NewMemoryStore(clock.Now), 2, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	serve := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		return w
	}

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, serve().Code)
	}

	limited := serve()
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	require.Equal(t, "0", limited.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, limited.Header().Get("Retry-After"))

	clock.Advance(time.Minute + time.Second)
	require.Equal(t, http.StatusOK, serve().Code)
}

type brokenStore struct{ cache.Store }

func (brokenStore) IncrementWithTTL(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("redis down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimit(brokenStore{}, 1, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}
