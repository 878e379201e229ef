package evalcmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	evalmetrics "github.com/snapstudio/snapstudio/internal/eval/metrics"
	"github.com/snapstudio/snapstudio/internal/eval/results"
)

func executeReport(w io.Writer, resultsPath, format string) error {
	run, err := results.LoadYAML(resultsPath)
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}

	switch format {
	case "text":
		return printTextReport(w, run)
	case "json":
		return printJSONReport(w, run)
	case "csv":
		return printCSVReport(w, run)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func aggregate(run *results.EvalRun) *evalmetrics.AggregateResults {
	return evalmetrics.AggregateEvaluationResults(run.ToEvaluationResults(), run.Config.Provider, run.Config.Model)
}

func printTextReport(w io.Writer, run *results.EvalRun) error {
	agg := aggregate(run)
	fmt.Fprintf(w, "Dataset:   %s\n", run.Config.DatasetPath)
	fmt.Fprintf(w, "Run:       %s\n", run.Config.Timestamp)
	agg.WriteSummary(w)

	fmt.Fprintln(w, "\nMisclassified:")
	fmt.Fprintln(w, "========================================")
	for i, r := range run.Results {
		if r.Correct {
			continue
		}
		if r.Error != "" {
			fmt.Fprintf(w, "[%d] %s error: %s\n", i+1, r.Identifier, truncate(r.Error, 80))
			continue
		}
		fmt.Fprintf(w, "[%d] %s expected %s, got %s (%s)\n", i+1, r.Identifier, r.Expected, r.Predicted, truncate(r.Image, 60))
	}
	return nil
}

func printJSONReport(w io.Writer, run *results.EvalRun) error {
	agg := aggregate(run)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]any{
		"config":     run.Config,
		"accuracy":   agg.Accuracy,
		"macroF1":    agg.MacroF1,
		"categories": agg.Categories,
		"confusion":  agg.Confusion,
		"failed":     agg.FailureCount,
		"total":      agg.TotalRecords,
	})
}

func printCSVReport(w io.Writer, run *results.EvalRun) error {
	writer := csv.NewWriter(w)

	header := []string{"ID", "Image", "Expected", "Predicted", "Correct", "Duration MS", "Error"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range run.Results {
		row := []string{
			r.Identifier,
			r.Image,
			r.Expected,
			r.Predicted,
			strconv.FormatBool(r.Correct),
			strconv.FormatInt(r.DurationMS, 10),
			r.Error,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
