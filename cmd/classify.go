package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/snapstudio/snapstudio/internal/classify"
	"github.com/snapstudio/snapstudio/internal/config"
	"github.com/snapstudio/snapstudio/internal/images"
	"github.com/snapstudio/snapstudio/internal/models"
	"github.com/snapstudio/snapstudio/internal/providers/registry"
	"github.com/snapstudio/snapstudio/internal/storage"
)

func newClassifyCmd() *cobra.Command {
	var asJSON bool
	var model string

	cmd := &cobra.Command{
		Use:   "classify <image>...",
		Short: "Categorize product photos",
		Long: `Sends the given images to the classification model in one request and
prints one category per image, in order.

Images can be local files, http(s) URLs or base64 data URLs.`,
		Example: `  snapstudio classify front.jpg back.jpg https://cdn.example.com/box.png
  snapstudio classify --json shots/*.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if model == "" {
				model = cfg.ClassifyModel
			}

			refs := make([]string, len(args))
			for i, arg := range args {
				if refs[i], err = images.ToRef(arg); err != nil {
					return fmt.Errorf("%s: %w", arg, err)
				}
			}

			provider, err := registry.ForClassification(cfg, images.NewFetcher())
			if err != nil {
				return err
			}
			cache, err := storage.New(cfg)
			if err != nil {
				return err
			}
			if cache != nil {
				defer cache.Close()
			}

			svc := classify.NewService(provider, model,
				classify.WithCache(cache, cfg.CacheTTL),
				classify.WithTimeout(cfg.UpstreamTimeout))

			categories, err := svc.Classify(cmd.Context(), refs)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(models.ClassificationResult{Success: true, Categories: categories})
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for i, c := range categories {
				fmt.Fprintf(tw, "%s\t%s\n", args[i], c)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the API response body instead of a table")
	cmd.Flags().StringVar(&model, "model", "", "Model to use (defaults to CLASSIFY_MODEL)")

	return cmd
}
