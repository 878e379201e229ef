package providers

import (
	"context"
)

// Request is a single multimodal completion request
type Request struct {
	Model  string
	System string
	Prompt string
	// Images are data URLs or http(s) URLs, sent in order after the prompt
	Images []string
	// Modalities requests output kinds, e.g. ["image", "text"]
	Modalities  []string
	Temperature float64
}

// Reply is the first choice of a completion
type Reply struct {
	Text   string
	Images []string
}

// WantsImage reports whether the request asks for image output
func (r Request) WantsImage() bool {
	for _, m := range r.Modalities {
		if m == "image" {
			return true
		}
	}
	return false
}

// Provider defines the interface for a multimodal AI provider
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Reply, error)
}

// ImageEditor is implemented by providers that can return images
type ImageEditor interface {
	Provider
	SupportsImageOutput() bool
}

// CanEditImages reports whether p can serve image editing requests
func CanEditImages(p Provider) bool {
	if e, ok := p.(ImageEditor); ok {
		return e.SupportsImageOutput()
	}
	return false
}
