package imagetool

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapstudio/snapstudio/internal/apperr"
	"github.com/snapstudio/snapstudio/internal/metrics"
	"github.com/snapstudio/snapstudio/internal/models"
	"github.com/snapstudio/snapstudio/internal/providers"
)

const source = "data:image/png;base64,iVBORw0KGgo="

type fakeProvider struct {
	reply *providers.Reply
	err   error
	calls int32
	last  providers.Request
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req providers.Request) (*providers.Reply, error) {
	atomic.AddInt32(&f.calls, 1)
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func TestRunSuccess(t *testing.T) {
	p := &fakeProvider{reply: &providers.Reply{Images: []string{"data:image/png;base64,EDITED", "data:image/png;base64,SECOND"}}}
	d := NewDispatcher(p, "google/gemini-2.5-flash-image-preview", 0, metrics.NewCollector())

	result, err := d.Run(context.Background(), models.ImageToolRequest{Tool: "remove_bg", ImageURL: source})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "data:image/png;base64,EDITED", result.ImageURL)
	assert.Equal(t, defaultMessages[models.ToolRemoveBG], result.Message)
	assert.Empty(t, result.Error)

	assert.Equal(t, int32(1), atomic.LoadInt32(&p.calls))
	assert.Equal(t, []string{source}, p.last.Images)
	assert.Equal(t, []string{"image", "text"}, p.last.Modalities)
	assert.Equal(t, removeBGInstruction, p.last.Prompt)
	assert.Equal(t, "google/gemini-2.5-flash-image-preview", p.last.Model)
}

func TestRunUsesReplyTextAsMessage(t *testing.T) {
	p := &fakeProvider{reply: &providers.Reply{Text: " Here is the upscaled image. ", Images: []string{"https://cdn.example.com/out.png"}}}
	d := NewDispatcher(p, "m", 0, nil)

	result, err := d.Run(context.Background(), models.ImageToolRequest{Tool: "upscale", ImageURL: source})
	require.NoError(t, err)
	assert.Equal(t, "Here is the upscaled image.", result.Message)
}

func TestRunSceneReplaceIncludesScene(t *testing.T) {
	p := &fakeProvider{reply: &providers.Reply{Images: []string{"data:image/png;base64,X"}}}
	d := NewDispatcher(p, "m", 0, nil)

	_, err := d.Run(context.Background(), models.ImageToolRequest{
		Tool:     "scene_replace",
		ImageURL: source,
		NewScene: "beach at sunset",
	})
	require.NoError(t, err)
	assert.Contains(t, p.last.Prompt, "beach at sunset")
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name   string
		req    models.ImageToolRequest
		reply  *providers.Reply
		err    error
		kind   apperr.Kind
		called bool
	}{
		{
			name: "missing image",
			req:  models.ImageToolRequest{Tool: "upscale"},
			kind: apperr.KindInvalidInput,
		},
		{
			name: "invalid image",
			req:  models.ImageToolRequest{Tool: "upscale", ImageURL: "file:///etc/passwd"},
			kind: apperr.KindInvalidInput,
		},
		{
			name: "unknown tool",
			req:  models.ImageToolRequest{Tool: "bogus", ImageURL: source},
			kind: apperr.KindUnknownTool,
		},
		{
			name: "missing tool",
			req:  models.ImageToolRequest{ImageURL: source},
			kind: apperr.KindUnknownTool,
		},
		{
			name:   "missing credential",
			req:    models.ImageToolRequest{Tool: "upscale", ImageURL: source},
			err:    apperr.New(apperr.KindConfig, "AI_GATEWAY_API_KEY is not configured"),
			kind:   apperr.KindConfig,
			called: true,
		},
		{
			name:   "rate limited",
			req:    models.ImageToolRequest{Tool: "upscale", ImageURL: source},
			err:    apperr.FromUpstreamStatus(429, ""),
			kind:   apperr.KindRateLimited,
			called: true,
		},
		{
			name:   "credits exhausted",
			req:    models.ImageToolRequest{Tool: "inpainting", ImageURL: source},
			err:    apperr.FromUpstreamStatus(402, ""),
			kind:   apperr.KindCreditsExhausted,
			called: true,
		},
		{
			name:   "upstream failure",
			req:    models.ImageToolRequest{Tool: "product_swap", ImageURL: source},
			err:    apperr.FromUpstreamStatus(500, ""),
			kind:   apperr.KindUpstream,
			called: true,
		},
		{
			name:   "no image in 200 reply",
			req:    models.ImageToolRequest{Tool: "remove_bg", ImageURL: source},
			reply:  &providers.Reply{Text: "I cannot edit this image."},
			kind:   apperr.KindNoImageGenerated,
			called: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{reply: tt.reply, err: tt.err}
			d := NewDispatcher(p, "m", 0, nil)

			result, err := d.Run(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Equal(t, tt.called, atomic.LoadInt32(&p.calls) == 1)
		})
	}
}

func TestCreditsExhaustedMessage(t *testing.T) {
	p := &fakeProvider{err: apperr.FromUpstreamStatus(402, "")}
	d := NewDispatcher(p, "m", 0, nil)

	_, err := d.Run(context.Background(), models.ImageToolRequest{Tool: "upscale", ImageURL: source})
	assert.Equal(t, "Credits exhausted. Please add funds to your workspace.", apperr.PublicMessage(err))
	assert.Equal(t, 402, apperr.HTTPStatus(err))
}
