package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	LLM       LLMConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 3000
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the per-request Rod browser session.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxSessions caps concurrently running browser sessions (one per search).
	MaxSessions int // default: 4

	// Proxy is passed to Chromium for all navigations.
	Proxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Stealth injects go-rod/stealth evasions into every tab.
	Stealth bool // default: true

	// UserAgents overrides the built-in user-agent rotation list.
	UserAgents []string

	// BlockedResources lists resource types aborted in every tab,
	// e.g. "Font", "Media". Result cards only need the DOM.
	BlockedResources []string // default: ["Font", "Media"]

	// BlockAds aborts requests to known ad and tracking domains.
	BlockAds bool // default: true
}

// ScraperConfig controls per-source extraction timing.
type ScraperConfig struct {
	// NavigationTimeout bounds navigation + network idle for most providers.
	NavigationTimeout time.Duration // default: 10s

	// SlowNavigationTimeout is used for providers that render slowly (PBS).
	SlowNavigationTimeout time.Duration // default: 40s

	// WaitTimeout bounds the wait for the result container to appear.
	WaitTimeout time.Duration // default: 10s
}

// AuthConfig controls API token authentication.
type AuthConfig struct {
	// Enabled toggles token authentication.
	Enabled bool // default: true

	// Tokens is the list of accepted API tokens.
	Tokens []string
}

// RateLimitConfig controls per-token rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per token.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per token.
	Burst int // default: 3
}

// CacheConfig controls the search response cache.
type CacheConfig struct {
	// RedisURL selects the Redis store when set, e.g. "redis://localhost:6379/0".
	RedisURL string

	// TTL is how long a cached response stays fresh. Zero disables caching.
	TTL time.Duration // default: 10m

	// MaxEntries caps the in-memory store.
	MaxEntries int // default: 1000
}

// LLMConfig controls the relevance scorer.
type LLMConfig struct {
	APIKey  string
	BaseURL string        // default: "https://api.deepseek.com"
	Model   string        // default: "deepseek-chat"
	Timeout time.Duration // default: 60s
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool // default: true
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("EDUMINER_HOST", "0.0.0.0"),
			Port: envIntOr("EDUMINER_PORT", 3000),
			Mode: envOr("EDUMINER_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:         envBoolOr("EDUMINER_HEADLESS", true),
			MaxSessions:      envIntOr("EDUMINER_MAX_SESSIONS", 4),
			Proxy:            os.Getenv("EDUMINER_PROXY"),
			NoSandbox:        envBoolOr("EDUMINER_NO_SANDBOX", false),
			BrowserBin:       os.Getenv("EDUMINER_BROWSER_BIN"),
			Stealth:          envBoolOr("EDUMINER_STEALTH", true),
			UserAgents:       envSliceOr("EDUMINER_USER_AGENTS", nil),
			BlockedResources: envSliceOr("EDUMINER_BLOCKED_RESOURCES", []string{"Font", "Media"}),
			BlockAds:         envBoolOr("EDUMINER_BLOCK_ADS", true),
		},
		Scraper: ScraperConfig{
			NavigationTimeout:     envDurationOr("EDUMINER_NAV_TIMEOUT", 10*time.Second),
			SlowNavigationTimeout: envDurationOr("EDUMINER_SLOW_NAV_TIMEOUT", 40*time.Second),
			WaitTimeout:           envDurationOr("EDUMINER_WAIT_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("EDUMINER_AUTH_ENABLED", true),
			Tokens:  tokens(),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("EDUMINER_RATE_RPS", 1.0),
			Burst:             envIntOr("EDUMINER_RATE_BURST", 3),
		},
		Cache: CacheConfig{
			RedisURL:   os.Getenv("REDIS_URL"),
			TTL:        envDurationOr("EDUMINER_CACHE_TTL", 10*time.Minute),
			MaxEntries: envIntOr("CACHE_MAX_ENTRIES", 1000),
		},
		LLM: LLMConfig{
			APIKey:  os.Getenv("DEEPSEEK_API_KEY"),
			BaseURL: envOr("EDUMINER_LLM_BASE_URL", "https://api.deepseek.com"),
			Model:   envOr("EDUMINER_LLM_MODEL", "deepseek-chat"),
			Timeout: envDurationOr("EDUMINER_LLM_TIMEOUT", 60*time.Second),
		},
		Log: LogConfig{
			Level:  envOr("EDUMINER_LOG_LEVEL", "info"),
			Format: envOr("EDUMINER_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: envBoolOr("EDUMINER_METRICS_ENABLED", true),
		},
	}
}

// tokens merges the single AI_EDUMINER_TOKEN with the EDUMINER_API_TOKENS list.
func tokens() []string {
	list := envSliceOr("EDUMINER_API_TOKENS", nil)
	if t := strings.TrimSpace(os.Getenv("AI_EDUMINER_TOKEN")); t != "" {
		list = append([]string{t}, list...)
	}
	return list
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
