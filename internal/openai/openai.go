package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/snapstudio/snapstudio/internal/apperr"
	"github.com/snapstudio/snapstudio/internal/providers"
)

// OpenAI is a provider for OpenAI vision models. It cannot generate images.
type OpenAI struct {
	apiKey string
	client *openai.Client
}

// New returns a new OpenAI provider. baseURL overrides the SDK default when
// set, which allows any OpenAI-compatible endpoint.
func New(apiKey, baseURL string, httpClient *http.Client) *OpenAI {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}
	return &OpenAI{
		apiKey: apiKey,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

func (o *OpenAI) Name() string {
	return "openai"
}

func (o *OpenAI) SupportsImageOutput() bool {
	return false
}

// Complete sends the prompt and images as a single user message
func (o *OpenAI) Complete(ctx context.Context, req providers.Request) (*providers.Reply, error) {
	if o.apiKey == "" {
		return nil, apperr.New(apperr.KindConfig, "OPENAI_API_KEY is not configured")
	}

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	parts := make([]openai.ChatMessagePart, 0, len(req.Images)+1)
	if req.Prompt != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: req.Prompt,
		})
	}
	for _, img := range req.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    img,
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return nil, mapError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, apperr.New(apperr.KindUpstream, "no choices returned from OpenAI")
	}

	return &providers.Reply{Text: resp.Choices[0].Message.Content}, nil
}

func mapError(err error) error {
	status := 0

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	if status == 0 {
		return apperr.Wrap(apperr.KindUpstream, "OpenAI request failed", err)
	}
	return apperr.FromUpstreamStatus(status, fmt.Sprint(err))
}
