package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "AI_GATEWAY_URL", "AI_GATEWAY_API_KEY", "LOVABLE_API_KEY",
		"CLASSIFY_PROVIDER", "CLASSIFY_MODEL", "EDIT_PROVIDER", "EDIT_MODEL",
		"UPSTREAM_TIMEOUT", "CACHE_BACKEND", "CACHE_TTL", "MAX_BODY_BYTES",
		"OLLAMA_URL", "OLLAMA_HOST",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8888", cfg.Port)
	assert.Equal(t, DefaultGatewayURL, cfg.GatewayURL)
	assert.Equal(t, "gateway", cfg.ClassifyProvider)
	assert.Equal(t, DefaultClassifyModel, cfg.ClassifyModel)
	assert.Equal(t, DefaultEditModel, cfg.EditModel)
	assert.Equal(t, 90*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, "none", cfg.CacheBackend)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, int64(25<<20), cfg.MaxBodyBytes)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaURL)
	assert.Empty(t, cfg.GatewayAPIKey)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AI_GATEWAY_API_KEY", "")
	t.Setenv("LOVABLE_API_KEY", "legacy-key")
	t.Setenv("CLASSIFY_PROVIDER", "Gemini")
	t.Setenv("UPSTREAM_TIMEOUT", "15s")
	t.Setenv("CACHE_BACKEND", "redis")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "legacy-key", cfg.GatewayAPIKey)
	assert.Equal(t, "gemini", cfg.ClassifyProvider)
	assert.Equal(t, 15*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, "redis", cfg.CacheBackend)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad timeout", "UPSTREAM_TIMEOUT", "soon"},
		{"negative timeout", "UPSTREAM_TIMEOUT", "-1s"},
		{"bad cache backend", "CACHE_BACKEND", "memcached"},
		{"bad body limit", "MAX_BODY_BYTES", "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
