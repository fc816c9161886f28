package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoth-writer-api/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	e := gin.New()
	e.Use(mw...)
	e.GET("/v1/ping", func(c *gin.Context) {
		c.String(http.StatusOK, GetUserIDFromGin(c))
	})
	e.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return e
}

func serve(e *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

func TestAuth(t *testing.T) {
	cfg := AuthConfig{Secret: "s3cret", Issuer: "thoth", SkipPaths: DefaultSkipPaths, Enabled: true}
	e := newEngine(Auth(cfg))

	token, err := utils.NewJWTManager("s3cret", "thoth").GenerateToken("user-1", "", time.Hour)
	require.NoError(t, err)
	foreign, err := utils.NewJWTManager("other", "thoth").GenerateToken("user-1", "", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing", "", http.StatusUnauthorized, "2003"},
		{"bad scheme", "Basic abc", http.StatusUnauthorized, "2002"},
		{"wrong signature", "Bearer " + foreign, http.StatusUnauthorized, "2002"},
		{"valid", "Bearer " + token, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(e, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, w))
				return
			}
			assert.Equal(t, "user-1", w.Body.String())
		})
	}

	w := serve(e, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthDisabledUsesDevUser(t *testing.T) {
	e := newEngine(Auth(AuthConfig{Enabled: false, DevUserID: "dev"}))
	w := serve(e, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dev", w.Body.String())
}

type stubLimiter struct {
	allowed   bool
	remaining int
	err       error
	keys      []string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, int, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.remaining, s.err
}

func keyFn(userID, scope string) string { return scope + ":" + userID }

func TestRateLimit(t *testing.T) {
	cfg := RateLimitConfig{Enabled: true, Scope: ScopeGeneration, Limit: 2, Window: time.Minute}

	t.Run("blocked", func(t *testing.T) {
		limiter := &stubLimiter{allowed: false}
		e := newEngine(Auth(AuthConfig{DevUserID: "u1"}), RateLimit(cfg, limiter, keyFn))
		w := serve(e, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "1006", errorCode(t, w))
		assert.Equal(t, "60", w.Header().Get("Retry-After"))
		assert.Equal(t, []string{"generation:u1"}, limiter.keys)
	})

	t.Run("allowed", func(t *testing.T) {
		limiter := &stubLimiter{allowed: true, remaining: 1}
		e := newEngine(Auth(AuthConfig{DevUserID: "u1"}), RateLimit(cfg, limiter, keyFn))
		w := serve(e, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("limiter failure lets request through", func(t *testing.T) {
		limiter := &stubLimiter{err: errors.New("redis down")}
		e := newEngine(RateLimit(cfg, limiter, keyFn))
		w := serve(e, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		require.Len(t, limiter.keys, 1)
		assert.Contains(t, limiter.keys[0], "ip:")
	})
}

func TestRequestID(t *testing.T) {
	e := newEngine(RequestID())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := serve(e, req)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))

	w = serve(e, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestRecoveryReturnsInternalError(t *testing.T) {
	e := gin.New()
	e.Use(Recovery())
	e.GET("/boom", func(*gin.Context) { panic("boom") })

	w := serve(e, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "1007", errorCode(t, w))
}
