package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/eduminer/config"
	"github.com/use-agent/eduminer/models"
)

func newTestRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, models.RequestIDFrom(c.Request.Context()))
	})
	return r
}

func do(r http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := newTestRouter(Auth([]string{"secret", ""}))

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"eduminer header", map[string]string{TokenHeader: "secret"}, http.StatusOK},
		{"api key header", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"bearer", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"missing", nil, http.StatusUnauthorized},
		{"wrong", map[string]string{TokenHeader: "nope"}, http.StatusUnauthorized},
		{"empty string token", map[string]string{"Authorization": "Bearer "}, http.StatusUnauthorized},
		{"basic auth", map[string]string{"Authorization": "Basic c2VjcmV0"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(r, tt.headers); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAuth_NoTokensIsOpen(t *testing.T) {
	r := newTestRouter(Auth(nil))
	if w := do(r, nil); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	r := newTestRouter(Auth([]string{"a", "b"}), RateLimit(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}))

	for i := 0; i < 2; i++ {
		if w := do(r, map[string]string{TokenHeader: "a"}); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}
	if w := do(r, map[string]string{TokenHeader: "a"}); w.Code != http.StatusTooManyRequests {
		t.Errorf("third request: status = %d, want 429", w.Code)
	}
	// Buckets are per token.
	if w := do(r, map[string]string{TokenHeader: "b"}); w.Code != http.StatusOK {
		t.Errorf("other token: status = %d, want 200", w.Code)
	}
}

func TestLimiterSweep(t *testing.T) {
	s := &limiterSet{limiters: map[string]*limiterEntry{}, rps: 1, burst: 1}
	now := time.Now()
	s.get("old", now.Add(-2*time.Hour))
	s.get("new", now)

	s.sweep(now.Add(-time.Hour))
	if _, ok := s.limiters["old"]; ok {
		t.Error("idle limiter not evicted")
	}
	if _, ok := s.limiters["new"]; !ok {
		t.Error("active limiter evicted")
	}
}

func TestRequestID(t *testing.T) {
	r := newTestRouter(RequestID())

	w := do(r, nil)
	id := w.Header().Get(RequestIDHeader)
	if len(id) != 36 {
		t.Errorf("generated id = %q, want a UUID", id)
	}
	if w.Body.String() != id {
		t.Errorf("context id = %q, header id = %q", w.Body.String(), id)
	}

	w = do(r, map[string]string{RequestIDHeader: "abc-123"})
	if w.Header().Get(RequestIDHeader) != "abc-123" || w.Body.String() != "abc-123" {
		t.Errorf("client id not propagated: %q / %q", w.Header().Get(RequestIDHeader), w.Body.String())
	}
}
