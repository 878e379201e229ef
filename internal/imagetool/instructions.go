package imagetool

import (
	"fmt"
	"strings"

	"github.com/snapstudio/snapstudio/internal/apperr"
	"github.com/snapstudio/snapstudio/internal/models"
)

// Params are the optional, tool specific request fields
type Params struct {
	Prompt   string
	MaskArea string
	NewScene string
}

type builder func(p Params) string

const (
	upscaleInstruction = "Upscale this product image. Enhance the resolution, sharpness and fine detail " +
		"while preserving the original composition, colors and proportions exactly."

	removeBGInstruction = "Remove the background from this product image and replace it with a pure white " +
		"background (#FFFFFF). Keep the product edges crisp and clean, and do not alter the product itself."

	studioSceneInstruction = "Replace the background of this image with a clean, professional studio " +
		"background with soft, even lighting. Blend the subject naturally with matching shadows and lighting."

	productSwapInstruction = "Keep the scene and lighting identical; modify the product as specified."
)

var instructions = map[models.Tool]builder{
	models.ToolInpainting: func(p Params) string {
		if prompt := strings.TrimSpace(p.Prompt); prompt != "" {
			return prompt
		}
		area := strings.TrimSpace(p.MaskArea)
		if area == "" {
			area = "specified area"
		}
		return fmt.Sprintf("Edit the %s of this image. Keep the result natural and seamless.", area)
	},
	models.ToolUpscale: func(Params) string {
		return upscaleInstruction
	},
	models.ToolRemoveBG: func(Params) string {
		return removeBGInstruction
	},
	models.ToolSceneReplace: func(p Params) string {
		scene := strings.TrimSpace(p.NewScene)
		if scene == "" {
			return studioSceneInstruction
		}
		return fmt.Sprintf("Replace the background of this image with: %s. "+
			"Blend the subject naturally into the new scene with matching lighting, shadows and perspective.", scene)
	},
	models.ToolProductSwap: func(p Params) string {
		if prompt := strings.TrimSpace(p.Prompt); prompt != "" {
			return prompt
		}
		return productSwapInstruction
	},
}

var defaultMessages = map[models.Tool]string{
	models.ToolInpainting:   "Image edited successfully",
	models.ToolUpscale:      "Image upscaled successfully",
	models.ToolRemoveBG:     "Background removed successfully",
	models.ToolSceneReplace: "Scene replaced successfully",
	models.ToolProductSwap:  "Product swapped successfully",
}

// Tools lists the supported tools in a stable order
func Tools() []models.Tool {
	return []models.Tool{
		models.ToolInpainting,
		models.ToolUpscale,
		models.ToolRemoveBG,
		models.ToolSceneReplace,
		models.ToolProductSwap,
	}
}

// ParseTool resolves a tool name. Matching is exact.
func ParseTool(name string) (models.Tool, error) {
	tool := models.Tool(name)
	if _, ok := instructions[tool]; !ok {
		if name == "" {
			return "", apperr.New(apperr.KindUnknownTool, "tool is required")
		}
		return "", apperr.Newf(apperr.KindUnknownTool, "Unknown tool: %s", name)
	}
	return tool, nil
}

// Instruction builds the edit instruction for tool
func Instruction(tool models.Tool, p Params) (string, error) {
	build, ok := instructions[tool]
	if !ok {
		return "", apperr.Newf(apperr.KindUnknownTool, "Unknown tool: %s", tool)
	}
	return build(p), nil
}
