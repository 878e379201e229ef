package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/snapstudio/snapstudio/internal/config"
	"github.com/snapstudio/snapstudio/internal/images"
	"github.com/snapstudio/snapstudio/internal/imagetool"
	"github.com/snapstudio/snapstudio/internal/models"
	"github.com/snapstudio/snapstudio/internal/providers/registry"
)

func newToolCmd() *cobra.Command {
	var req models.ImageToolRequest
	var output string
	var model string

	var toolNames []string
	for _, t := range imagetool.Tools() {
		toolNames = append(toolNames, string(t))
	}

	cmd := &cobra.Command{
		Use:   "tool <tool> <image>",
		Short: "Run an AI image edit",
		Long: fmt.Sprintf(`Runs one image tool against a local file, URL or data URL and writes the
edited image to --output.

Tools: %s`, strings.Join(toolNames, ", ")),
		Example: `  snapstudio tool remove_bg shoe.jpg -o shoe-clean.png
  snapstudio tool scene_replace shoe.jpg --new-scene "on a marble counter" -o shoe-scene.png
  snapstudio tool inpainting shoe.jpg --mask-area "the scuff on the toe" --prompt "clean leather"`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: toolNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if model == "" {
				model = cfg.EditModel
			}

			req.Tool = args[0]
			if req.ImageURL, err = images.ToRef(args[1]); err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}

			fetcher := images.NewFetcher()
			provider, err := registry.ForEditing(cfg, fetcher)
			if err != nil {
				return err
			}

			result, err := imagetool.NewDispatcher(provider, model, cfg.UpstreamTimeout, nil).Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			data, mimeType, err := fetcher.Resolve(cmd.Context(), result.ImageURL)
			if err != nil {
				return fmt.Errorf("failed to read generated image: %w", err)
			}
			if output == "" {
				output = defaultOutput(args[1], req.Tool, mimeType)
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			slog.Debug("Generated image", "mime", mimeType, "bytes", len(data))
			fmt.Fprintf(cmd.OutOrStdout(), "%s\nSaved to %s\n", result.Message, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Where to write the edited image (default <name>-<tool>.<ext>)")
	cmd.Flags().StringVar(&req.Prompt, "prompt", "", "Extra instruction for inpainting and product_swap")
	cmd.Flags().StringVar(&req.MaskArea, "mask-area", "", "Area to edit for inpainting")
	cmd.Flags().StringVar(&req.NewScene, "new-scene", "", "Replacement scene for scene_replace")
	cmd.Flags().StringVar(&model, "model", "", "Model to use (defaults to EDIT_MODEL)")

	return cmd
}

func defaultOutput(input, tool, mimeType string) string {
	ext := ".png"
	switch mimeType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/webp":
		ext = ".webp"
	}

	base := "image"
	if !strings.Contains(input, "://") && !strings.HasPrefix(input, "data:") {
		name := input[strings.LastIndexAny(input, `/\`)+1:]
		if dot := strings.LastIndex(name, "."); dot > 0 {
			name = name[:dot]
		}
		if name != "" {
			base = name
		}
	}
	return base + "-" + tool + ext
}
