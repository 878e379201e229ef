package classify

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapstudio/snapstudio/internal/apperr"
	"github.com/snapstudio/snapstudio/internal/metrics"
	"github.com/snapstudio/snapstudio/internal/models"
	"github.com/snapstudio/snapstudio/internal/providers"
	"github.com/snapstudio/snapstudio/internal/storage"
)

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

func thumbs(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "data:image/jpeg;base64,/9j/" + strings.Repeat("A", i+1)
	}
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		reply    string
		expected []models.Category
	}{
		{
			name:     "exact match",
			input:    2,
			reply:    `["main","lifestyle"]`,
			expected: []models.Category{models.CategoryMain, models.CategoryLifestyle},
		},
		{
			name:     "short list is padded",
			input:    3,
			reply:    `["model","detail"]`,
			expected: []models.Category{models.CategoryModel, models.CategoryDetail, models.CategoryAngle},
		},
		{
			name:     "unknown value is coerced",
			input:    1,
			reply:    `["spaceship"]`,
			expected: []models.Category{models.CategoryAngle},
		},
		{
			name:     "long list is trimmed",
			input:    2,
			reply:    `["main","detail","packaging","model"]`,
			expected: []models.Category{models.CategoryMain, models.CategoryDetail},
		},
		{
			name:     "fenced reply with prose",
			input:    2,
			reply:    "Here you go:\n```json\n[\"Packaging\", \" MAIN \"]\n```",
			expected: []models.Category{models.CategoryPackaging, models.CategoryMain},
		},
		{
			name:     "title case categories",
			input:    3,
			reply:    `["Model","Main","Detail"]`,
			expected: []models.Category{models.CategoryModel, models.CategoryMain, models.CategoryDetail},
		},
		{
			name:     "unparseable reply falls back to default",
			input:    3,
			reply:    "I cannot classify these images.",
			expected: []models.Category{models.CategoryAngle, models.CategoryAngle, models.CategoryAngle},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{reply: &providers.Reply{Text: tt.reply}}
			svc := NewService(p, "google/gemini-2.5-flash")

			got, err := svc.Classify(context.Background(), thumbs(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Len(t, got, tt.input)
			assert.Equal(t, int32(1), atomic.LoadInt32(&p.calls))
		})
	}
}

func TestClassifySendsWholeBatchInOrder(t *testing.T) {
	p := &fakeProvider{reply: &providers.Reply{Text: `["main"]`}}
	svc := NewService(p, "google/gemini-2.5-flash")

	input := thumbs(4)
	_, err := svc.Classify(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, input, p.last.Images)
	assert.Equal(t, "google/gemini-2.5-flash", p.last.Model)
	assert.Contains(t, p.last.Prompt, "4")
	assert.Equal(t, BuildSystemPrompt(), p.last.System)
	assert.Empty(t, p.last.Modalities)
}

func TestClassifyAcceptsPercentEncodedDataURL(t *testing.T) {
	p := &fakeProvider{reply: &providers.Reply{Text: `["packaging"]`}}
	svc := NewService(p, "m")

	categories, err := svc.Classify(context.Background(), []string{"data:image/svg+xml;utf8,<svg/>"})
	require.NoError(t, err)
	assert.Equal(t, []models.Category{models.CategoryPackaging}, categories)
	assert.Equal(t, []string{"data:image/svg+xml;utf8,<svg/>"}, p.last.Images)
}

func TestClassifyErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  []string
		reply  *providers.Reply
		err    error
		kind   apperr.Kind
		called bool
	}{
		{"empty input", nil, nil, nil, apperr.KindInvalidInput, false},
		{"invalid thumbnail", []string{"data:image/png;base64,AAA", "not-an-image"}, nil, nil, apperr.KindInvalidInput, false},
		{"config error", thumbs(1), nil, apperr.New(apperr.KindConfig, "no key"), apperr.KindConfig, true},
		{"rate limited", thumbs(1), nil, apperr.FromUpstreamStatus(429, ""), apperr.KindRateLimited, true},
		{"credits become upstream error", thumbs(1), nil, apperr.FromUpstreamStatus(402, ""), apperr.KindUpstream, true},
		{"gateway failure", thumbs(1), nil, apperr.FromUpstreamStatus(503, ""), apperr.KindUpstream, true},
		{"empty content", thumbs(2), &providers.Reply{Text: "  "}, nil, apperr.KindUpstream, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{reply: tt.reply, err: tt.err}
			svc := NewService(p, "m")

			got, err := svc.Classify(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Equal(t, tt.called, atomic.LoadInt32(&p.calls) == 1)
		})
	}
}

func TestClassifyCache(t *testing.T) {
	p := &fakeProvider{reply: &providers.Reply{Text: `["detail","main"]`}}
	collector := metrics.NewCollector()
	svc := NewService(p, "m", WithCache(storage.NewMemory(), time.Minute), WithMetrics(collector))

	input := thumbs(2)
	first, err := svc.Classify(context.Background(), input)
	require.NoError(t, err)
	second, err := svc.Classify(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.calls))

	// different batch, different key
	_, err = svc.Classify(context.Background(), thumbs(3))
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&p.calls))
}

func TestClassifyDoesNotCacheUnparsedReplies(t *testing.T) {
	p := &fakeProvider{reply: &providers.Reply{Text: "no idea"}}
	svc := NewService(p, "m", WithCache(storage.NewMemory(), time.Minute))

	input := thumbs(1)
	_, err := svc.Classify(context.Background(), input)
	require.NoError(t, err)
	_, err = svc.Classify(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&p.calls))
}

func TestClassifyTimeout(t *testing.T) {
	p := &deadlineProvider{}
	svc := NewService(p, "m", WithTimeout(20*time.Millisecond))

	_, err := svc.Classify(context.Background(), thumbs(1))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
}

type deadlineProvider struct{}

func (deadlineProvider) Name() string { return "slow" }

func (deadlineProvider) Complete(ctx context.Context, req providers.Request) (*providers.Reply, error) {
	<-ctx.Done()
	return nil, apperr.Wrap(apperr.KindUpstream, "AI gateway request timed out", ctx.Err())
}

func TestBuildSystemPromptListsTaxonomyAndRules(t *testing.T) {
	prompt := BuildSystemPrompt()

	for _, c := range models.Categories() {
		assert.Contains(t, prompt, string(c))
	}
	for _, r := range Rules {
		assert.Contains(t, prompt, r.When)
	}
	assert.Equal(t, models.DefaultCategory, Rules[len(Rules)-1].Category)

	// rule order is precedence order
	assert.Less(t, strings.Index(prompt, "-> model"), strings.Index(prompt, "-> detail"))
	assert.Less(t, strings.Index(prompt, "-> detail"), strings.Index(prompt, "-> lifestyle"))
	assert.Less(t, strings.Index(prompt, "-> lifestyle"), strings.Index(prompt, "-> packaging"))
}
