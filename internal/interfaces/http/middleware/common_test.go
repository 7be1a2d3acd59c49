package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func corsRouter(cfg CORSConfig) *gin.Engine {
	engine := gin.New()
	engine.Use(CORSWithConfig(cfg))
	engine.GET("/bills", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return engine
}

func corsGet(engine *gin.Engine, origin string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/bills", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	engine.ServeHTTP(w, req)
	return w
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()

	// Shut by default; deployments must opt origins in.
	assert.Empty(t, cfg.AllowOrigins)
	assert.Contains(t, cfg.AllowMethods, "OPTIONS")
	assert.Contains(t, cfg.AllowHeaders, "X-Retailer-ID")
	assert.Contains(t, cfg.AllowHeaders, "X-Request-ID")
	assert.Contains(t, cfg.ExposeHeaders, "X-Request-ID")
	assert.True(t, cfg.AllowCredentials)
	assert.Equal(t, 12*time.Hour, cfg.MaxAge)
}

func TestCORSWithConfig_AllowedOrigin(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://app.example.com"}
	engine := corsRouter(cfg)

	w := corsGet(engine, "https://app.example.com")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Retailer-ID")
}

func TestCORSWithConfig_DisallowedOrigin(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://app.example.com"}
	engine := corsRouter(cfg)

	w := corsGet(engine, "https://evil.example.com")

	// Request still served, just without CORS headers.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWithConfig_EmptyWhitelistRejectsAll(t *testing.T) {
	engine := corsRouter(DefaultCORSConfig())

	w := corsGet(engine, "https://app.example.com")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWithConfig_Wildcard(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"*"}
	engine := corsRouter(cfg)

	w := corsGet(engine, "https://anywhere.example.com")

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	// Browsers reject credentialed wildcard responses, so the middleware
	// must not emit the credentials header here.
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSWithConfig_Preflight(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://app.example.com"}
	engine := corsRouter(cfg)

	t.Run("allowed origin gets CORS headers", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/bills", nil)
		req.Header.Set("Origin", "https://app.example.com")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("unknown origin still gets 204 without headers", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/bills", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRequestID(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())

	var seen string
	engine.GET("/bills", func(c *gin.Context) {
		seen = c.GetString("request_id")
		c.Status(http.StatusOK)
	})

	t.Run("generates an ID when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/bills", nil)
		engine.ServeHTTP(w, req)

		echoed := w.Header().Get("X-Request-ID")
		require.NotEmpty(t, echoed)
		assert.Equal(t, echoed, seen)
		_, err := uuid.Parse(echoed)
		assert.NoError(t, err)
	})

	t.Run("propagates a client-supplied ID", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/bills", nil)
		req.Header.Set("X-Request-ID", "client-id-1")
		engine.ServeHTTP(w, req)

		assert.Equal(t, "client-id-1", w.Header().Get("X-Request-ID"))
		assert.Equal(t, "client-id-1", seen)
	})

	t.Run("IDs are unique per request", func(t *testing.T) {
		ids := make(map[string]bool)
		for i := 0; i < 5; i++ {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/bills", nil)
			engine.ServeHTTP(w, req)
			ids[w.Header().Get("X-Request-ID")] = true
		}
		assert.Len(t, ids, 5)
	})
}

func TestSecure_DefaultHeaders(t *testing.T) {
	engine := gin.New()
	engine.Use(Secure())
	engine.GET("/bills", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/bills", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'self'")
	assert.Contains(t, w.Header().Get("Permissions-Policy"), "camera=()")
	// HSTS only makes sense behind TLS; off by default.
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestSecureWithConfig(t *testing.T) {
	t.Run("HSTS header assembled from config", func(t *testing.T) {
		cfg := DefaultSecurityConfig()
		cfg.HSTSEnabled = true
		cfg.HSTSPreload = true

		engine := gin.New()
		engine.Use(SecureWithConfig(cfg))
		engine.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		engine.ServeHTTP(w, req)

		hsts := w.Header().Get("Strict-Transport-Security")
		assert.Contains(t, hsts, "max-age=31536000")
		assert.Contains(t, hsts, "includeSubDomains")
		assert.Contains(t, hsts, "preload")
	})

	t.Run("CSP and Permissions-Policy can be disabled", func(t *testing.T) {
		cfg := DefaultSecurityConfig()
		cfg.CSPEnabled = false
		cfg.PermissionsPolicyEnabled = false

		engine := gin.New()
		engine.Use(SecureWithConfig(cfg))
		engine.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		engine.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Content-Security-Policy"))
		assert.Empty(t, w.Header().Get("Permissions-Policy"))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	})
}

func TestDefaultSecurityConfig(t *testing.T) {
	cfg := DefaultSecurityConfig()

	assert.False(t, cfg.HSTSEnabled)
	assert.Equal(t, 31536000, cfg.HSTSMaxAge)
	assert.True(t, cfg.CSPEnabled)
	assert.True(t, cfg.PermissionsPolicyEnabled)
}
