package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/snapstudio/snapstudio/internal/apperr"
	"github.com/snapstudio/snapstudio/internal/providers"
)

// Resolver turns an image reference into bytes
type Resolver interface {
	Resolve(ctx context.Context, ref string) ([]byte, string, error)
}

// Ollama is a provider for a local Ollama server running a vision model
type Ollama struct {
	baseURL    string
	resolver   Resolver
	httpClient *http.Client
}

// New returns a new Ollama provider
func New(baseURL string, resolver Resolver, httpClient *http.Client) *Ollama {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Ollama{
		baseURL:    strings.TrimRight(baseURL, "/"),
		resolver:   resolver,
		httpClient: httpClient,
	}
}

func (o *Ollama) Name() string {
	return "ollama"
}

func (o *Ollama) SupportsImageOutput() bool {
	return false
}

// Complete runs a non-streaming /api/generate call
func (o *Ollama) Complete(ctx context.Context, req providers.Request) (*providers.Reply, error) {
	if o.baseURL == "" {
		return nil, apperr.New(apperr.KindConfig, "OLLAMA_URL is not configured")
	}

	encoded := make([]string, 0, len(req.Images))
	for i, ref := range req.Images {
		data, _, err := o.resolver.Resolve(ctx, ref)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidInput, fmt.Sprintf("image %d could not be loaded", i), err)
		}
		encoded = append(encoded, base64.StdEncoding.EncodeToString(data))
	}

	requestBody, err := json.Marshal(map[string]interface{}{
		"model":  req.Model,
		"system": req.System,
		"prompt": req.Prompt,
		"images": encoded,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": req.Temperature,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/generate", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "failed to reach Ollama", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperr.FromUpstreamStatus(resp.StatusCode, string(body))
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "failed to decode Ollama response", err)
	}

	return &providers.Reply{Text: response.Response}, nil
}
