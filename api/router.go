package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/eduminer/api/handler"
	"github.com/use-agent/eduminer/api/middleware"
	"github.com/use-agent/eduminer/cache"
	"github.com/use-agent/eduminer/config"
	"github.com/use-agent/eduminer/metrics"
	"github.com/use-agent/eduminer/scraper"
)

// Service is what the router needs from the search backend.
type Service interface {
	handler.Searcher
	handler.StatsProvider
}

var _ Service = (*scraper.Orchestrator)(nil)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → RequestID
//	Scrape:  Auth (if enabled) → RateLimit
//
// Ping and health stay outside auth so monitoring probes always work.
// store may be nil to disable response caching.
func NewRouter(svc Service, cfg *config.Config, store cache.Store, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())

	if cfg.Metrics.Enabled {
		r.GET("/metrics", metrics.Handler())
	}

	v1 := r.Group("/api/v1")
	v1.GET("/ping", handler.Ping())
	v1.GET("/health", handler.Health(svc, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.Tokens))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.GET("/scrape", handler.Search(svc, store, cfg.Cache.TTL))

	return r
}
