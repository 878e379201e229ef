package dataset

import (
	"path/filepath"
	"strings"

	"github.com/snapstudio/snapstudio/internal/images"
	"github.com/snapstudio/snapstudio/internal/models"
)

// Sample is one labelled product photo
type Sample struct {
	ID string `json:"id" parquet:"id"`

	// Image is a local path (relative to the dataset file), an http(s) URL or a data URL
	Image string `json:"image" parquet:"image"`

	// Label is the expected category
	Label string `json:"label" parquet:"label"`

	// Group ties photos of the same product together so they are classified in one batch
	Group string `json:"group,omitempty" parquet:"group,optional"`
}

// Category returns the label as a category and whether it is a valid one
func (s *Sample) Category() (models.Category, bool) {
	return models.ParseCategory(s.Label)
}

// ImageRef resolves the sample image to a reference the classifier accepts
func (s *Sample) ImageRef(baseDir string) (string, error) {
	img := strings.TrimSpace(s.Image)
	if strings.HasPrefix(img, "data:") || strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://") {
		return images.ToRef(img)
	}
	if !filepath.IsAbs(img) && baseDir != "" {
		img = filepath.Join(baseDir, img)
	}
	return images.FileToDataURL(img)
}

// GroupKey returns the batch key for the sample, defaulting to its own ID
func (s *Sample) GroupKey() string {
	if s.Group != "" {
		return s.Group
	}
	return s.ID
}
