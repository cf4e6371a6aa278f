package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/eduminer/cache"
	"github.com/use-agent/eduminer/grade"
	"github.com/use-agent/eduminer/models"
	"github.com/use-agent/eduminer/scraper"
)

type fakeSearcher struct {
	calls  atomic.Int32
	last   models.SearchQuery
	result *scraper.SearchResult
	err    error
}

func (f *fakeSearcher) ScrapeAllSources(ctx context.Context, q models.SearchQuery) (*scraper.SearchResult, error) {
	f.calls.Add(1)
	f.last = q
	return f.result, f.err
}

func okResult() *scraper.SearchResult {
	return &scraper.SearchResult{
		Items: []models.ScrapedItem{{Title: "Volcanoes", Source: models.SourceKhan}},
		Outcomes: []scraper.Outcome{
			{Source: models.SourcePBS, Status: scraper.StatusEmpty},
			{Source: models.SourceKhan, Status: scraper.StatusOK},
			{Source: models.SourceCK12, Status: scraper.StatusEmpty},
		},
	}
}

func newSearchRouter(s Searcher, store cache.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/scrape", Search(s, store, time.Minute))
	return r
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestSearch_Validation(t *testing.T) {
	s := &fakeSearcher{result: okResult()}
	r := newSearchRouter(s, nil)

	for _, target := range []string{
		"/scrape?page=1",
		"/scrape?q=volcano",
		"/scrape?q=volcano&page=0",
		"/scrape?q=volcano&page=abc",
		"/scrape?q=volcano&page=1&grade=13",
		"/scrape?q=volcano&page=1&grade=pre-k",
		"/scrape?q=volcano&page=1&grade=k",
	} {
		w := get(r, target)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
			continue
		}
		var body models.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body.Success || body.Error == nil || body.Error.Code != models.ErrCodeInvalidInput {
			t.Errorf("%s: body = %s", target, w.Body.String())
		}
	}
	if s.calls.Load() != 0 {
		t.Errorf("searcher called %d times for invalid input", s.calls.Load())
	}
}

func TestSearch_PlainList(t *testing.T) {
	s := &fakeSearcher{result: okResult()}
	w := get(newSearchRouter(s, nil), "/scrape?q=volcano&page=2")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var items []models.ScrapedItem
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("body is not an item array: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Volcanoes" {
		t.Errorf("items = %+v", items)
	}
	if got := w.Header().Get("X-Source-Status"); got != "pbs=empty,khanacademy=ok,ck12=empty" {
		t.Errorf("X-Source-Status = %q", got)
	}
	if s.last.Grade != grade.All || s.last.Page != 2 || s.last.AllowAIProcessing {
		t.Errorf("query = %+v", s.last)
	}
}

func TestSearch_Scored(t *testing.T) {
	res := okResult()
	res.Scored = []models.ScoredItem{{ScrapedItem: res.Items[0], RelevanceScore: 8}}
	s := &fakeSearcher{result: res}

	w := get(newSearchRouter(s, nil), "/scrape?q=volcano&page=1&grade=K&allowAIProcessing=true")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body models.ScoredResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Items) != 1 || body.Items[0].RelevanceScore != 8 {
		t.Errorf("body = %s", w.Body.String())
	}
	if !s.last.AllowAIProcessing || s.last.Grade != grade.Kindergarten {
		t.Errorf("query = %+v", s.last)
	}
}

func TestSearch_AllowAIProcessingOnlyTrue(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"yes", false},
		{"1", false},
		{"TRUE", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			s := &fakeSearcher{result: okResult()}
			w := get(newSearchRouter(s, nil), "/scrape?q=volcano&page=1&allowAIProcessing="+tt.value)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", w.Code, w.Body.String())
			}
			if bool(s.last.AllowAIProcessing) != tt.want {
				t.Errorf("AllowAIProcessing = %v, want %v", s.last.AllowAIProcessing, tt.want)
			}
		})
	}
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"session failure", models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to launch browser", nil), http.StatusInternalServerError, models.ErrCodeBrowserCrash},
		{"scoring failure", models.NewScrapeError(models.ErrCodeScoringFailure, "failed to fetch relevance scores", nil), http.StatusBadGateway, models.ErrCodeScoringFailure},
		{"llm auth", models.NewScrapeError(models.ErrCodeLLMAuthFailure, "failed to fetch relevance scores", nil), http.StatusUnauthorized, models.ErrCodeLLMAuthFailure},
		{"llm rate limit", models.NewScrapeError(models.ErrCodeLLMRateLimited, "failed to fetch relevance scores", nil), http.StatusTooManyRequests, models.ErrCodeLLMRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(newSearchRouter(&fakeSearcher{err: tt.err}, nil), "/scrape?q=volcano&page=1&allowAIProcessing=true")
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body models.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Success || body.Error.Code != tt.wantCode {
				t.Errorf("body = %s", w.Body.String())
			}
		})
	}
}

func TestSearch_Cache(t *testing.T) {
	store := cache.NewMemory(10, time.Minute)
	defer store.Close()
	s := &fakeSearcher{result: okResult()}
	r := newSearchRouter(s, store)

	first := get(r, "/scrape?q=volcano&page=1")
	second := get(r, "/scrape?q=volcano&page=1")

	if first.Header().Get("X-Cache") != "miss" || second.Header().Get("X-Cache") != "hit" {
		t.Errorf("X-Cache = %q then %q", first.Header().Get("X-Cache"), second.Header().Get("X-Cache"))
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("cached body differs:\n%s\n%s", first.Body, second.Body)
	}
	if second.Header().Get("X-Source-Status") != first.Header().Get("X-Source-Status") {
		t.Error("cached X-Source-Status differs")
	}
	if s.calls.Load() != 1 {
		t.Errorf("searcher calls = %d, want 1", s.calls.Load())
	}

	// allowAIProcessing is part of the key.
	get(r, "/scrape?q=volcano&page=1&allowAIProcessing=true")
	if s.calls.Load() != 2 {
		t.Errorf("searcher calls = %d, want 2", s.calls.Load())
	}
}

func TestSearch_FailedSourceNotCached(t *testing.T) {
	store := cache.NewMemory(10, time.Minute)
	defer store.Close()
	res := okResult()
	res.Outcomes[0].Status = scraper.StatusFailed
	s := &fakeSearcher{result: res}
	r := newSearchRouter(s, store)

	get(r, "/scrape?q=volcano&page=1")
	get(r, "/scrape?q=volcano&page=1")
	if s.calls.Load() != 2 {
		t.Errorf("searcher calls = %d, want 2", s.calls.Load())
	}
}

type fixedStats models.SessionStats

func (f fixedStats) Stats() models.SessionStats { return models.SessionStats(f) }

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		stats fixedStats
		want  string
	}{
		{fixedStats{MaxSessions: 4, ActiveSessions: 1, ActiveTabs: 3}, "healthy"},
		{fixedStats{MaxSessions: 4, ActiveSessions: 4, ActiveTabs: 12}, "degraded"},
	}
	for _, tt := range tests {
		r := gin.New()
		r.GET("/health", Health(tt.stats, time.Now()))
		w := get(r, "/health")

		var body models.HealthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body.Status != tt.want || body.SessionStats.ActiveTabs != tt.stats.ActiveTabs || body.Version != Version {
			t.Errorf("body = %+v, want status %s", body, tt.want)
		}
	}
}

func TestPing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", Ping())
	w := get(r, "/ping")
	if w.Code != http.StatusOK || w.Body.String() != `{"message":"The server is up and running!"}` {
		t.Errorf("ping = %d %s", w.Code, w.Body.String())
	}
}
