// Package imagetool turns an edit request into one instruction for an image
// capable model and returns the edited image.
package imagetool

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/snapstudio/snapstudio/internal/apperr"
	"github.com/snapstudio/snapstudio/internal/images"
	"github.com/snapstudio/snapstudio/internal/metrics"
	"github.com/snapstudio/snapstudio/internal/models"
	"github.com/snapstudio/snapstudio/internal/providers"
)

const serviceName = "image_tool"

// Dispatcher runs image tools against one provider
type Dispatcher struct {
	provider providers.Provider
	model    string
	timeout  time.Duration
	metrics  *metrics.Collector
}

func NewDispatcher(provider providers.Provider, model string, timeout time.Duration, m *metrics.Collector) *Dispatcher {
	return &Dispatcher{
		provider: provider,
		model:    model,
		timeout:  timeout,
		metrics:  m,
	}
}

// Run validates req, makes a single upstream call and returns the first
// generated image.
func (d *Dispatcher) Run(ctx context.Context, req models.ImageToolRequest) (*models.ImageToolResult, error) {
	if strings.TrimSpace(req.ImageURL) == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "imageUrl is required")
	}
	if err := images.ValidateRef(req.ImageURL); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "imageUrl is not a valid image", err)
	}

	tool, err := ParseTool(req.Tool)
	if err != nil {
		d.metrics.RecordToolRun(req.Tool, apperr.KindUnknownTool.String())
		return nil, err
	}

	instruction, err := Instruction(tool, Params{
		Prompt:   req.Prompt,
		MaskArea: req.MaskArea,
		NewScene: req.NewScene,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Running image tool", "tool", tool, "provider", d.provider.Name(), "model", d.model)

	callCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := d.provider.Complete(callCtx, providers.Request{
		Model:      d.model,
		Prompt:     instruction,
		Images:     []string{req.ImageURL},
		Modalities: []string{"image", "text"},
	})
	if err != nil {
		outcome := apperr.KindOf(err).String()
		d.metrics.RecordUpstream(serviceName, d.provider.Name(), outcome, time.Since(start))
		d.metrics.RecordToolRun(string(tool), outcome)
		slog.Error("Image tool request failed", "tool", tool, "error", err, "kind", outcome)
		return nil, err
	}
	d.metrics.RecordUpstream(serviceName, d.provider.Name(), "ok", time.Since(start))

	if len(reply.Images) == 0 || reply.Images[0] == "" {
		d.metrics.RecordToolRun(string(tool), apperr.KindNoImageGenerated.String())
		slog.Warn("Image tool returned no image", "tool", tool, "text", reply.Text)
		return nil, apperr.New(apperr.KindNoImageGenerated, "No image generated")
	}

	message := strings.TrimSpace(reply.Text)
	if message == "" {
		message = defaultMessages[tool]
	}

	d.metrics.RecordToolRun(string(tool), "ok")
	slog.Info("Image tool completed", "tool", tool, "duration", time.Since(start))

	return &models.ImageToolResult{
		Success:  true,
		ImageURL: reply.Images[0],
		Message:  message,
	}, nil
}
