package evalcmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/snapstudio/snapstudio/internal/eval/dataset"
	evalmetrics "github.com/snapstudio/snapstudio/internal/eval/metrics"
	"github.com/snapstudio/snapstudio/internal/eval/results"
	"github.com/snapstudio/snapstudio/internal/models"
)

// Classifier is the part of the classification service the evaluation drives
type Classifier interface {
	Classify(ctx context.Context, thumbnails []string) ([]models.Category, error)
}

// RunOptions configures an evaluation run
type RunOptions struct {
	Dataset     string
	Limit       int
	BatchSize   int
	Concurrency int

	// RequestsPerSecond caps upstream calls. Zero means unlimited.
	RequestsPerSecond float64
	OutputDir         string
	Provider          string
	Model             string
	Download          dataset.DownloadConfig
}

type batch struct {
	indexes []int
	refs    []string
}

func executeRun(ctx context.Context, opts RunOptions, classifier Classifier) (*evalmetrics.AggregateResults, string, error) {
	slog.Info("Starting evaluation run", "dataset", opts.Dataset, "provider", opts.Provider, "model", opts.Model)

	loader, err := dataset.LoadOrDownload(ctx, opts.Dataset, opts.Download)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load dataset: %w", err)
	}
	samples, err := loader.LoadSample(opts.Limit)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load dataset: %w", err)
	}
	if len(samples) == 0 {
		return nil, "", fmt.Errorf("dataset %s has no samples", opts.Dataset)
	}
	slog.Info("Dataset loaded", "samples", len(samples))

	out := make([]evalmetrics.EvaluationResult, len(samples))
	for i, s := range samples {
		expected, _ := s.Category()
		out[i] = evalmetrics.EvaluationResult{ID: s.ID, Image: s.Image, Expected: expected}
	}

	batches := buildBatches(samples, loader.BaseDir(), opts.BatchSize, out)
	slog.Info("Processing batches", "batches", len(batches), "concurrency", opts.Concurrency)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Concurrency, 1))

	for n, b := range batches {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			slog.Info("Classifying batch", "progress", fmt.Sprintf("%d/%d", n+1, len(batches)), "photos", len(b.refs))

			start := time.Now()
			categories, err := classifier.Classify(gctx, b.refs)
			elapsed := time.Since(start)
			per := elapsed / time.Duration(len(b.refs))

			// each goroutine owns the result slots of its batch
			for j, idx := range b.indexes {
				out[idx].ProcessingTime = per
				if err != nil {
					out[idx].Error = err.Error()
					continue
				}
				out[idx].Predicted = categories[j]
			}
			if err != nil {
				slog.Warn("Batch failed", "batch", n+1, "err", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", fmt.Errorf("evaluation interrupted: %w", err)
	}

	agg := evalmetrics.AggregateEvaluationResults(out, opts.Provider, opts.Model)

	path, err := results.SaveToYAML(opts.OutputDir, results.EvalConfig{
		Provider:    opts.Provider,
		Model:       opts.Model,
		Temperature: 0.1,
		DatasetPath: opts.Dataset,
		BatchSize:   opts.BatchSize,
	}, out)
	if err != nil {
		return agg, "", fmt.Errorf("failed to save results: %w", err)
	}

	return agg, path, nil
}

// buildBatches keeps photos of one product together and splits groups larger
// than size. Samples whose image cannot be read are marked failed in out and
// left out of every batch.
func buildBatches(samples []dataset.Sample, baseDir string, size int, out []evalmetrics.EvaluationResult) []batch {
	if size <= 0 {
		size = 1
	}

	var order []string
	groups := make(map[string][]int)
	for i := range samples {
		key := samples[i].GroupKey()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	var batches []batch
	for _, key := range order {
		var cur batch
		for _, idx := range groups[key] {
			ref, err := samples[idx].ImageRef(baseDir)
			if err != nil {
				out[idx].Error = err.Error()
				continue
			}
			cur.indexes = append(cur.indexes, idx)
			cur.refs = append(cur.refs, ref)
			if len(cur.refs) == size {
				batches = append(batches, cur)
				cur = batch{}
			}
		}
		if len(cur.refs) > 0 {
			batches = append(batches, cur)
		}
	}
	return batches
}
