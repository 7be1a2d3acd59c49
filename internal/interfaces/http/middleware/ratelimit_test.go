package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func rateLimitedRouter(mw gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	engine.Use(mw)
	engine.GET("/reports", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return engine
}

func getWithHeaders(engine *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/reports", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	engine.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("allows up to limit per key", func(t *testing.T) {
		limiter := NewRateLimiter(3, time.Minute)

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("shop-a"), "request %d", i+1)
		}
		assert.False(t, limiter.Allow("shop-a"))
	})

	t.Run("keys do not share buckets", func(t *testing.T) {
		limiter := NewRateLimiter(2, time.Minute)

		assert.True(t, limiter.Allow("shop-a"))
		assert.True(t, limiter.Allow("shop-a"))
		assert.False(t, limiter.Allow("shop-a"))

		assert.True(t, limiter.Allow("shop-b"))
		assert.True(t, limiter.Allow("shop-b"))
	})

	t.Run("window elapse refills the bucket", func(t *testing.T) {
		limiter := NewRateLimiter(2, 50*time.Millisecond)

		assert.True(t, limiter.Allow("shop-a"))
		assert.True(t, limiter.Allow("shop-a"))
		assert.False(t, limiter.Allow("shop-a"))

		time.Sleep(60 * time.Millisecond)
		assert.True(t, limiter.Allow("shop-a"))
	})

	t.Run("remaining tracks consumption", func(t *testing.T) {
		limiter := NewRateLimiter(5, time.Minute)

		assert.Equal(t, 5, limiter.Remaining("fresh"))
		limiter.Allow("fresh")
		limiter.Allow("fresh")
		assert.Equal(t, 3, limiter.Remaining("fresh"))
	})

	t.Run("concurrent callers never exceed the limit", func(t *testing.T) {
		limiter := NewRateLimiter(100, time.Minute)

		var wg sync.WaitGroup
		var mu sync.Mutex
		allowed := 0
		for i := 0; i < 150; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Allow("hot-key") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 100, allowed)
	})
}

func TestRateLimit_Middleware(t *testing.T) {
	t.Run("serves within limit and sets headers", func(t *testing.T) {
		engine := rateLimitedRouter(RateLimit(NewRateLimiter(3, time.Minute)))

		for i := 0; i < 3; i++ {
			w := getWithHeaders(engine, nil)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
			assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		}
	})

	t.Run("rejects over the limit with 429", func(t *testing.T) {
		engine := rateLimitedRouter(RateLimit(NewRateLimiter(2, time.Minute)))

		getWithHeaders(engine, nil)
		getWithHeaders(engine, nil)
		w := getWithHeaders(engine, nil)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "RATE_LIMITED")
	})

	t.Run("quota is scoped per retailer", func(t *testing.T) {
		engine := rateLimitedRouter(RateLimit(NewRateLimiter(1, time.Minute)))

		w := getWithHeaders(engine, map[string]string{"X-Retailer-ID": "retailer-1"})
		assert.Equal(t, http.StatusOK, w.Code)

		w = getWithHeaders(engine, map[string]string{"X-Retailer-ID": "retailer-1"})
		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		w = getWithHeaders(engine, map[string]string{"X-Retailer-ID": "retailer-2"})
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRateLimitByKey(t *testing.T) {
	keyFunc := func(c *gin.Context) string {
		return c.GetHeader("X-Client-ID")
	}
	engine := rateLimitedRouter(RateLimitByKey(NewRateLimiter(1, time.Minute), keyFunc))

	w := getWithHeaders(engine, map[string]string{"X-Client-ID": "client-1"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = getWithHeaders(engine, map[string]string{"X-Client-ID": "client-1"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = getWithHeaders(engine, map[string]string{"X-Client-ID": "client-2"})
	assert.Equal(t, http.StatusOK, w.Code)
}
