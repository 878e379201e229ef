package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/snapstudio/snapstudio/internal/apperr"
	"github.com/snapstudio/snapstudio/internal/images"
	"github.com/snapstudio/snapstudio/internal/providers"
)

// Resolver turns an image reference into bytes
type Resolver interface {
	Resolve(ctx context.Context, ref string) ([]byte, string, error)
}

// Gemini is a provider for Google Gemini
type Gemini struct {
	apiKey   string
	resolver Resolver
}

// New returns a new Gemini provider
func New(apiKey string, resolver Resolver) *Gemini {
	return &Gemini{apiKey: apiKey, resolver: resolver}
}

func (g *Gemini) Name() string {
	return "gemini"
}

// SupportsImageOutput is true because image preview models answer with
// inline blobs.
func (g *Gemini) SupportsImageOutput() bool {
	return true
}

// Complete generates content from the prompt followed by the images
func (g *Gemini) Complete(ctx context.Context, req providers.Request) (*providers.Reply, error) {
	if g.apiKey == "" {
		return nil, apperr.New(apperr.KindConfig, "GEMINI_API_KEY is not configured")
	}

	parts := make([]genai.Part, 0, len(req.Images)+1)
	if req.Prompt != "" {
		parts = append(parts, genai.Text(req.Prompt))
	}
	for i, ref := range req.Images {
		data, mimeType, err := g.resolver.Resolve(ctx, ref)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidInput, fmt.Sprintf("image %d could not be loaded", i), err)
		}
		parts = append(parts, genai.Blob{MIMEType: mimeType, Data: data})
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "failed to create new gemini client", err)
	}
	defer client.Close()

	model := client.GenerativeModel(modelName(req.Model))
	if req.Temperature > 0 {
		model.SetTemperature(float32(req.Temperature))
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, mapError(err)
	}

	if len(resp.Candidates) == 0 {
		return nil, apperr.New(apperr.KindUpstream, "no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, apperr.New(apperr.KindUpstream, "empty content returned from Gemini")
	}

	return replyFromParts(candidate.Content.Parts), nil
}

// modelName strips the vendor prefix used by the gateway, e.g.
// "google/gemini-2.5-flash" becomes "gemini-2.5-flash".
func modelName(model string) string {
	if rest, ok := strings.CutPrefix(model, "google/"); ok {
		return rest
	}
	return model
}

func replyFromParts(parts []genai.Part) *providers.Reply {
	reply := &providers.Reply{}
	var text strings.Builder
	for _, part := range parts {
		switch p := part.(type) {
		case genai.Text:
			text.WriteString(string(p))
		case genai.Blob:
			if strings.HasPrefix(p.MIMEType, "image/") {
				reply.Images = append(reply.Images, images.DataURL(p.Data, p.MIMEType))
			}
		}
	}
	reply.Text = text.String()
	return reply
}

// Status codes only count when they read as a status, so sizes and IDs that
// happen to contain 429 or 402 stay upstream errors.
var (
	rateLimitedPattern = regexp.MustCompile(`RESOURCE_EXHAUSTED|ResourceExhausted|(?i:\bquota\b|\btoo many requests\b|\b(?:status|code|error|http)\s*[:=]?\s*429\b|^429\b)`)
	creditsPattern     = regexp.MustCompile(`(?i:\bbilling\b|\bpayment required\b|\b(?:status|code|error|http)\s*[:=]?\s*402\b|^402\b)`)
)

func mapError(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return apperr.FromUpstreamStatus(gErr.Code, gErr.Message)
	}

	// gRPC transport errors carry no HTTP code
	msg := err.Error()
	switch {
	case rateLimitedPattern.MatchString(msg):
		return apperr.FromUpstreamStatus(http.StatusTooManyRequests, msg)
	case creditsPattern.MatchString(msg):
		return apperr.FromUpstreamStatus(http.StatusPaymentRequired, msg)
	}
	return apperr.Wrap(apperr.KindUpstream, "failed to generate content", err)
}
