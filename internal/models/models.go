package models

import "strings"

// Category is a product photo class assigned by the classifier
type Category string

const (
	CategoryMain      Category = "main"
	CategoryAngle     Category = "angle"
	CategoryDetail    Category = "detail"
	CategoryLifestyle Category = "lifestyle"
	CategoryModel     Category = "model"
	CategoryPackaging Category = "packaging"
)

// DefaultCategory is used for anything the classifier cannot place
const DefaultCategory = CategoryAngle

var categories = []Category{
	CategoryMain,
	CategoryAngle,
	CategoryDetail,
	CategoryLifestyle,
	CategoryModel,
	CategoryPackaging,
}

// Categories returns the closed category set in taxonomy order
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Valid reports whether c is a member of the category set
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory matches s against the category set ignoring case and
// surrounding whitespace. Unknown values become DefaultCategory.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c, true
	}
	return DefaultCategory, false
}

// Tool is one of the image editing operations
type Tool string

const (
	ToolInpainting   Tool = "inpainting"
	ToolUpscale      Tool = "upscale"
	ToolRemoveBG     Tool = "remove_bg"
	ToolSceneReplace Tool = "scene_replace"
	ToolProductSwap  Tool = "product_swap"
)

// ClassificationRequest is the body of POST /api/classify-images
type ClassificationRequest struct {
	Thumbnails []string `json:"thumbnails"`
}

// ClassificationResult is the success body of POST /api/classify-images
type ClassificationResult struct {
	Success    bool       `json:"success"`
	Categories []Category `json:"categories"`
}

// ImageToolRequest is the body of POST /api/image-tools
type ImageToolRequest struct {
	Tool     string `json:"tool"`
	ImageURL string `json:"imageUrl"`
	Prompt   string `json:"prompt,omitempty"`
	MaskArea string `json:"maskArea,omitempty"`
	NewScene string `json:"newScene,omitempty"`
}

// ImageToolResult is the body of every POST /api/image-tools response
type ImageToolResult struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"imageUrl,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ErrorResponse is the failure body of POST /api/classify-images
type ErrorResponse struct {
	Error string `json:"error"`
}
