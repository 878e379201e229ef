package evalcmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/snapstudio/snapstudio/internal/classify"
	"github.com/snapstudio/snapstudio/internal/config"
	"github.com/snapstudio/snapstudio/internal/eval/dataset"
	"github.com/snapstudio/snapstudio/internal/eval/results"
	"github.com/snapstudio/snapstudio/internal/images"
	"github.com/snapstudio/snapstudio/internal/providers/registry"
	"github.com/snapstudio/snapstudio/internal/storage"
)

func addDownloadFlags(cmd *cobra.Command, dl *dataset.DownloadConfig) {
	cmd.Flags().StringVar(&dl.CacheDir, "cache-dir", dataset.DefaultCacheDir, "Where remote datasets are cached")
	cmd.Flags().BoolVar(&dl.ForceDownload, "force-download", false, "Download remote datasets even if cached")
}

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	var opts RunOptions
	var detailedReport string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Classify a labelled dataset and score the results",
		Long: `Classify every photo in a labelled dataset and compare the predicted
categories against the labels.

The dataset is a JSONL or Parquet file with id, image, label and optional group
columns. Photos sharing a group are sent together, the way a product's
thumbnails are classified in the app. Remote datasets (http(s):// or
hf://owner/repo/file) are downloaded and cached first.

Results are written as YAML to the output directory and can be re-read with
"eval report".`,
		Example: `  # Evaluate the first 50 photos with the configured provider
  snapstudio eval run --dataset ./testdata/photos.jsonl --limit 50

  # Compare a different model at 2 requests per second
  snapstudio eval run --dataset hf://acme/product-photos/test.parquet --model google/gemini-2.5-pro --rps 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.Provider == "" {
				opts.Provider = cfg.ClassifyProvider
			}
			if opts.Model == "" {
				opts.Model = cfg.ClassifyModel
			}
			opts.Download.Token = os.Getenv("HF_TOKEN")

			provider, err := registry.New(opts.Provider, cfg, images.NewFetcher())
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

			svc := classify.NewService(provider, opts.Model,
				classify.WithTimeout(cfg.UpstreamTimeout),
				classify.WithCache(cache, cfg.CacheTTL))

			agg, path, err := executeRun(cmd.Context(), opts, svc)
			if err != nil {
				return err
			}

			agg.PrintSummary()
			fmt.Printf("\nResults saved to: %s\n", path)

			if detailedReport != "" {
				if err := agg.SaveDetailedReport(detailedReport); err != nil {
					return err
				}
				slog.Info("Detailed report written", "path", detailedReport)
			}

			fmt.Printf("\nGenerate a report with:\n")
			fmt.Printf("  snapstudio eval report --results %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Dataset, "dataset", "", "Path or URL of the labelled dataset (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Number of photos to evaluate (0 for all)")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 8, "Maximum photos per classification request")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 4, "Concurrent classification requests")
	cmd.Flags().Float64Var(&opts.RequestsPerSecond, "rps", 0, "Maximum classification requests per second (0 for unlimited)")
	cmd.Flags().StringVar(&opts.OutputDir, "output", results.DefaultDir, "Directory for result files")
	cmd.Flags().StringVar(&opts.Provider, "provider", "", "Provider to use (defaults to CLASSIFY_PROVIDER)")
	cmd.Flags().StringVar(&opts.Model, "model", "", "Model to use (defaults to CLASSIFY_MODEL)")
	cmd.Flags().StringVar(&detailedReport, "detailed-report", "", "Also write misclassified photos to this file")
	addDownloadFlags(cmd, &opts.Download)

	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

// NewReportCmd creates the report command
func NewReportCmd() *cobra.Command {
	var resultsPath string
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize a saved evaluation run",
		Example: `  snapstudio eval report --results evals/google_gemini-2.5-flash-2026-01-02_03-04-05.yaml
  snapstudio eval report --results evals/run.yaml --format csv > run.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeReport(cmd.OutOrStdout(), resultsPath, format)
		},
	}

	cmd.Flags().StringVar(&resultsPath, "results", "", "Path to a result YAML file (required)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json, csv)")

	_ = cmd.MarkFlagRequired("results")
	return cmd
}

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	var datasetPath string
	var opts inspectOptions

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect a labelled dataset",
		Long: `Print the label distribution of a dataset and optionally walk through its
samples, checking that every image can be read.`,
		Example: `  # Label distribution only
  snapstudio eval inspect --dataset ./testdata/photos.jsonl --samples=false

  # Step through the first 5 samples
  snapstudio eval inspect --dataset ./testdata/photos.jsonl --limit 5 --interactive`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.download.Token = os.Getenv("HF_TOKEN")
			return executeInspect(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(), datasetPath, opts)
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Path or URL of the dataset (required)")
	cmd.Flags().IntVar(&opts.limit, "limit", 10, "Number of samples to inspect (0 for all)")
	cmd.Flags().BoolVar(&opts.interactive, "interactive", false, "Pause after each sample (press Enter to continue)")
	cmd.Flags().BoolVar(&opts.showSamples, "samples", true, "Print each sample")
	cmd.Flags().BoolVar(&opts.checkImages, "check-images", true, "Check that each image can be read")
	addDownloadFlags(cmd, &opts.download)

	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}
