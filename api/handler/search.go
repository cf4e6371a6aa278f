package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/eduminer/cache"
	"github.com/use-agent/eduminer/grade"
	"github.com/use-agent/eduminer/models"
	"github.com/use-agent/eduminer/scraper"
)

const (
	headerCache        = "X-Cache"
	headerSourceStatus = "X-Source-Status"
	contentTypeJSON    = "application/json; charset=utf-8"
)

// Searcher runs one search across every provider.
type Searcher interface {
	ScrapeAllSources(ctx context.Context, q models.SearchQuery) (*scraper.SearchResult, error)
}

// Search returns a handler for GET /api/v1/scrape.
//
// The body is a JSON array of items, or {"items": [...]} with relevance
// scores when allowAIProcessing is set. A failing provider still yields 200;
// X-Source-Status reports what each provider did. Responses are cached for
// ttl when store is non-nil, unless a provider failed.
func Search(s Searcher, store cache.Store, ttl time.Duration) gin.HandlerFunc {
	useCache := store != nil && ttl > 0

	return func(c *gin.Context) {
		var q models.SearchQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}
		g, ok := grade.Parse(string(q.Grade))
		if !ok {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput,
				fmt.Sprintf("grade must be one of all, K, 1-12, got %q", q.Grade), nil))
			return
		}
		q.Grade = g

		ctx := c.Request.Context()
		key := cache.Key(q.Q, q.Grade, q.Page, bool(q.AllowAIProcessing))

		if useCache {
			entry, hit, err := store.Get(ctx, key)
			if err != nil {
				slog.Warn("cache lookup failed", "error", err, "request_id", models.RequestIDFrom(ctx))
			}
			if hit {
				c.Header(headerCache, "hit")
				c.Header(headerSourceStatus, entry.SourceStatus)
				c.Data(http.StatusOK, contentTypeJSON, entry.Body)
				return
			}
		}

		result, err := s.ScrapeAllSources(ctx, q)
		if err != nil {
			respondError(c, err)
			return
		}

		body, err := json.Marshal(result.Body())
		if err != nil {
			respondError(c, err)
			return
		}

		status := result.SourceStatus()
		if useCache {
			c.Header(headerCache, "miss")
			if cacheable(result) {
				if err := store.Set(ctx, key, &cache.Entry{Body: body, SourceStatus: status}); err != nil {
					slog.Warn("cache store failed", "error", err, "request_id", models.RequestIDFrom(ctx))
				}
			}
		}
		c.Header(headerSourceStatus, status)
		c.Data(http.StatusOK, contentTypeJSON, body)
	}
}

// cacheable keeps transient provider failures out of the cache.
func cacheable(r *scraper.SearchResult) bool {
	for _, o := range r.Outcomes {
		if o.Status == scraper.StatusFailed {
			return false
		}
	}
	return true
}
