// Package registry builds providers by name from the loaded configuration.
package registry

import (
	"fmt"
	"net/http"

	"github.com/snapstudio/snapstudio/internal/config"
	"github.com/snapstudio/snapstudio/internal/gateway"
	"github.com/snapstudio/snapstudio/internal/gemini"
	"github.com/snapstudio/snapstudio/internal/images"
	"github.com/snapstudio/snapstudio/internal/ollama"
	"github.com/snapstudio/snapstudio/internal/openai"
	"github.com/snapstudio/snapstudio/internal/providers"
)

// Names lists the supported provider names
var Names = []string{"gateway", "openai", "gemini", "ollama"}

// New returns the provider called name
func New(name string, cfg *config.Config, fetcher *images.Fetcher) (providers.Provider, error) {
	httpClient := &http.Client{Timeout: cfg.UpstreamTimeout}

	switch name {
	case "gateway", "":
		return gateway.New(cfg.GatewayURL, cfg.GatewayAPIKey, cfg.UpstreamTimeout), nil
	case "openai":
		return openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, httpClient), nil
	case "gemini":
		return gemini.New(cfg.GeminiAPIKey, fetcher), nil
	case "ollama":
		return ollama.New(cfg.OllamaURL, fetcher, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (expected one of %v)", name, Names)
	}
}

// ForClassification returns the provider selected by CLASSIFY_PROVIDER
func ForClassification(cfg *config.Config, fetcher *images.Fetcher) (providers.Provider, error) {
	return New(cfg.ClassifyProvider, cfg, fetcher)
}

// ForEditing returns the provider selected by EDIT_PROVIDER. It must be able
// to return images.
func ForEditing(cfg *config.Config, fetcher *images.Fetcher) (providers.Provider, error) {
	p, err := New(cfg.EditProvider, cfg, fetcher)
	if err != nil {
		return nil, err
	}
	if !providers.CanEditImages(p) {
		return nil, fmt.Errorf("provider %q cannot generate images and cannot be used for EDIT_PROVIDER", p.Name())
	}
	return p, nil
}
