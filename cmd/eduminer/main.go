package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/use-agent/eduminer/api"
	"github.com/use-agent/eduminer/cache"
	"github.com/use-agent/eduminer/config"
	"github.com/use-agent/eduminer/engine"
	"github.com/use-agent/eduminer/llm"
	"github.com/use-agent/eduminer/scraper"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("eduminer starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxSessions", cfg.Browser.MaxSessions,
	)
	if cfg.Auth.Enabled && len(cfg.Auth.Tokens) == 0 {
		slog.Warn("auth enabled but no tokens configured; /api/v1/scrape is open")
	}

	// ── 3. Browser launcher and extractors ──────────────────────────
	launcher := engine.NewRodLauncher(cfg.Browser)
	uas := engine.NewUserAgentPool(cfg.Browser.UserAgents)
	extractors := scraper.DefaultExtractors(cfg.Scraper, cfg.Browser, uas)

	// ── 4. Relevance scorer ─────────────────────────────────────────
	llmClient := llm.NewClient(cfg.LLM, nil)
	if !llmClient.Configured() {
		slog.Warn("DEEPSEEK_API_KEY not set; requests with allowAIProcessing will fail")
	}
	scorer := llm.NewScorer(llmClient)

	orch := scraper.NewOrchestrator(launcher, extractors, scorer, cfg.Browser.MaxSessions)

	// ── 5. Response cache ───────────────────────────────────────────
	store := newStore(cfg.Cache)
	if store != nil {
		defer store.Close()
	}

	// ── 6. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(orch, cfg, store, startTime)

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Searches hold a browser for up to the slowest navigation plus the
	// results wait; let them finish.
	grace := cfg.Scraper.SlowNavigationTimeout + cfg.Scraper.WaitTimeout
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	slog.Info("eduminer stopped")
}

// newStore picks Redis when REDIS_URL is set and falls back to memory.
// It returns nil when caching is disabled.
func newStore(cfg config.CacheConfig) cache.Store {
	if cfg.TTL <= 0 {
		slog.Info("response cache disabled")
		return nil
	}
	if cfg.RedisURL != "" {
		r, err := cache.NewRedis(cfg.RedisURL, cfg.TTL)
		if err == nil {
			slog.Info("response cache: redis", "ttl", cfg.TTL)
			return r
		}
		slog.Warn("redis unavailable, using in-memory cache", "error", err)
	}
	slog.Info("response cache: memory", "ttl", cfg.TTL, "maxEntries", cfg.MaxEntries)
	return cache.NewMemory(cfg.MaxEntries, cfg.TTL)
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
