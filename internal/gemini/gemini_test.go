package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"github.com/snapstudio/snapstudio/internal/apperr"
	"github.com/snapstudio/snapstudio/internal/providers"
)

type failingResolver struct{}

func (failingResolver) Resolve(ctx context.Context, ref string) ([]byte, string, error) {
	return nil, "", errors.New("unreachable")
}

func TestCompleteMissingKey(t *testing.T) {
	_, err := New("", failingResolver{}).Complete(context.Background(), providers.Request{Model: "gemini-2.5-flash"})
	assert.True(t, apperr.Is(err, apperr.KindConfig))
}

func TestCompleteUnresolvableImage(t *testing.T) {
	_, err := New("key", failingResolver{}).Complete(context.Background(), providers.Request{
		Model:  "gemini-2.5-flash",
		Images: []string{"https://example.com/a.jpg"},
	})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
}

func TestModelName(t *testing.T) {
	assert.Equal(t, "gemini-2.5-flash", modelName("google/gemini-2.5-flash"))
	assert.Equal(t, "gemini-1.5-pro", modelName("gemini-1.5-pro"))
}

func TestReplyFromParts(t *testing.T) {
	reply := replyFromParts([]genai.Part{
		genai.Text("Here is "),
		genai.Blob{MIMEType: "image/png", Data: []byte{1, 2, 3}},
		genai.Text("your image."),
		genai.Blob{MIMEType: "application/pdf", Data: []byte{4}},
	})

	assert.Equal(t, "Here is your image.", reply.Text)
	assert.Equal(t, []string{"data:image/png;base64,AQID"}, reply.Images)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind apperr.Kind
	}{
		{"googleapi 429", &googleapi.Error{Code: http.StatusTooManyRequests, Message: "quota"}, apperr.KindRateLimited},
		{"googleapi 402", &googleapi.Error{Code: http.StatusPaymentRequired}, apperr.KindCreditsExhausted},
		{"googleapi 500", &googleapi.Error{Code: http.StatusInternalServerError}, apperr.KindUpstream},
		{"wrapped googleapi", fmt.Errorf("call: %w", &googleapi.Error{Code: http.StatusTooManyRequests}), apperr.KindRateLimited},
		{"grpc exhausted", errors.New("rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED"), apperr.KindRateLimited},
		{"billing", errors.New("billing account disabled"), apperr.KindCreditsExhausted},
		{"other", errors.New("connection refused"), apperr.KindUpstream},
		{"status 429 text", errors.New("googleapi: Error 429: slow down"), apperr.KindRateLimited},
		{"leading status", errors.New("429 Too Many Requests"), apperr.KindRateLimited},
		{"quota", errors.New("Quota exceeded for model"), apperr.KindRateLimited},
		{"status 402 text", errors.New("upstream returned status: 402"), apperr.KindCreditsExhausted},
		{"size containing 429", errors.New("response truncated after 14290 bytes"), apperr.KindUpstream},
		{"request id containing 429", errors.New("request 4291-a failed"), apperr.KindUpstream},
		{"byte count 402", errors.New("read 402 bytes then EOF"), apperr.KindUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, apperr.KindOf(mapError(tt.err)))
		})
	}
}
