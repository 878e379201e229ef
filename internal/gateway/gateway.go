// Package gateway talks to an OpenAI-compatible chat completions gateway that
// accepts inline images and can return generated images.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/snapstudio/snapstudio/internal/apperr"
	"github.com/snapstudio/snapstudio/internal/providers"
)

// Gateway is a provider backed by the AI gateway
type Gateway struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

// New returns a gateway provider. An empty apiKey is accepted; every call
// then fails with a config error.
func New(url, apiKey string, timeout time.Duration) *Gateway {
	return &Gateway{
		URL:    url,
		APIKey: apiKey,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (g *Gateway) Name() string {
	return "gateway"
}

func (g *Gateway) SupportsImageOutput() bool {
	return true
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Modalities  []string  `json:"modalities,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
			Images  []contentPart   `json:"images"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one chat completion request and returns the first choice
func (g *Gateway) Complete(ctx context.Context, req providers.Request) (*providers.Reply, error) {
	if g.APIKey == "" {
		return nil, apperr.New(apperr.KindConfig, "AI_GATEWAY_API_KEY is not configured")
	}

	body, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.APIKey)

	start := time.Now()
	resp, err := g.HTTPClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.Wrap(apperr.KindUpstream, "AI gateway request timed out", err)
		}
		return nil, apperr.Wrap(apperr.KindUpstream, "failed to reach AI gateway", err)
	}
	defer resp.Body.Close()

	slog.Debug("AI gateway responded", "model", req.Model, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Error("AI gateway error", "status", resp.StatusCode, "body", string(errBody))
		return nil, apperr.FromUpstreamStatus(resp.StatusCode, string(errBody))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "failed to decode AI gateway response", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, apperr.New(apperr.KindUpstream, "no choices returned from AI gateway")
	}

	choice := decoded.Choices[0].Message
	reply := &providers.Reply{Text: contentText(choice.Content)}
	for _, img := range choice.Images {
		if img.ImageURL != nil && img.ImageURL.URL != "" {
			reply.Images = append(reply.Images, img.ImageURL.URL)
		}
	}
	return reply, nil
}

func buildRequest(req providers.Request) chatRequest {
	var messages []message
	if req.System != "" {
		messages = append(messages, message{Role: "system", Content: req.System})
	}

	parts := make([]contentPart, 0, len(req.Images)+1)
	if req.Prompt != "" {
		parts = append(parts, contentPart{Type: "text", Text: req.Prompt})
	}
	for _, img := range req.Images {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: img}})
	}
	messages = append(messages, message{Role: "user", Content: parts})

	out := chatRequest{
		Model:      req.Model,
		Messages:   messages,
		Modalities: req.Modalities,
	}
	if req.Temperature > 0 {
		t := req.Temperature
		out.Temperature = &t
	}
	return out
}

// contentText accepts both a plain string and an array of text parts
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range parts {
		if p.Type == "text" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}
