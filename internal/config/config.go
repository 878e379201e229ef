package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultGatewayURL    = "https://ai.gateway.lovable.dev/v1/chat/completions"
	DefaultClassifyModel = "google/gemini-2.5-flash"
	DefaultEditModel     = "google/gemini-2.5-flash-image-preview"
)

// Config holds every setting read from the environment. It is loaded once at
// startup and passed down read-only.
type Config struct {
	Port string

	// AI gateway
	GatewayURL    string
	GatewayAPIKey string

	ClassifyProvider string
	ClassifyModel    string
	EditProvider     string
	EditModel        string

	// Alternative providers
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
	OllamaURL     string

	UpstreamTimeout time.Duration
	MaxBodyBytes    int64

	// Classification cache
	CacheBackend string
	CacheTTL     time.Duration
	RedisURL     string
}

// Load reads the configuration from the environment. .env files are loaded
// by the root command before this runs.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnv("PORT", "8888"),

		GatewayURL:    getEnv("AI_GATEWAY_URL", DefaultGatewayURL),
		GatewayAPIKey: getEnv("AI_GATEWAY_API_KEY", os.Getenv("LOVABLE_API_KEY")),

		ClassifyProvider: strings.ToLower(getEnv("CLASSIFY_PROVIDER", "gateway")),
		ClassifyModel:    getEnv("CLASSIFY_MODEL", DefaultClassifyModel),
		EditProvider:     strings.ToLower(getEnv("EDIT_PROVIDER", "gateway")),
		EditModel:        getEnv("EDIT_MODEL", DefaultEditModel),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		OllamaURL:     getEnv("OLLAMA_URL", getEnv("OLLAMA_HOST", "http://localhost:11434")),

		CacheBackend: strings.ToLower(getEnv("CACHE_BACKEND", "none")),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
	}

	var err error
	if cfg.UpstreamTimeout, err = getDuration("UPSTREAM_TIMEOUT", 90*time.Second); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.MaxBodyBytes, err = getInt64("MAX_BODY_BYTES", 25<<20); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.GatewayAPIKey == "" && (cfg.ClassifyProvider == "gateway" || cfg.EditProvider == "gateway") {
		// Not fatal: requests fail with a config error until a key is provided.
		slog.Warn("AI_GATEWAY_API_KEY is not set")
	}

	slog.Debug("Configuration loaded",
		"gateway_url", cfg.GatewayURL,
		"classify_provider", cfg.ClassifyProvider,
		"classify_model", cfg.ClassifyModel,
		"edit_provider", cfg.EditProvider,
		"edit_model", cfg.EditModel,
		"upstream_timeout", cfg.UpstreamTimeout,
		"cache_backend", cfg.CacheBackend)

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.CacheBackend {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q (expected none, memory or redis)", c.CacheBackend)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func getInt64(key string, defaultValue int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}
