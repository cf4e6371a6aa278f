package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/eduminer/config"
	"github.com/use-agent/eduminer/models"
	"github.com/use-agent/eduminer/scraper"
)

type stubService struct{}

func (stubService) ScrapeAllSources(ctx context.Context, q models.SearchQuery) (*scraper.SearchResult, error) {
	return &scraper.SearchResult{
		Items:    []models.ScrapedItem{{Title: q.Q, Source: models.SourcePBS}},
		Outcomes: []scraper.Outcome{{Source: models.SourcePBS, Status: scraper.StatusOK}},
	}, nil
}

func (stubService) Stats() models.SessionStats {
	return models.SessionStats{MaxSessions: 4}
}

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Server.Mode = "test"
	cfg.Auth.Enabled = true
	cfg.Auth.Tokens = []string{"secret"}
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100}
	cfg.Metrics.Enabled = true
	return cfg
}

func serve(r http.Handler, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicRoutes(t *testing.T) {
	r := NewRouter(stubService{}, testConfig(), nil, time.Now())

	for _, path := range []string{"/api/v1/ping", "/api/v1/health", "/metrics"} {
		if w := serve(r, path, nil); w.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, w.Code)
		}
	}
}

func TestRouter_ScrapeRequiresToken(t *testing.T) {
	r := NewRouter(stubService{}, testConfig(), nil, time.Now())

	if w := serve(r, "/api/v1/scrape?q=volcano&page=1", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}

	w := serve(r, "/api/v1/scrape?q=volcano&page=1", map[string]string{"X-AI-Eduminer-Token": "secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"title":"volcano"`) {
		t.Errorf("body = %s", w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if w.Header().Get("X-Source-Status") != "pbs=ok" {
		t.Errorf("X-Source-Status = %q", w.Header().Get("X-Source-Status"))
	}
}

func TestRouter_MetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	r := NewRouter(stubService{}, cfg, nil, time.Now())
	if w := serve(r, "/metrics", nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
