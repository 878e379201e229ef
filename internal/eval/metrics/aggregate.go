package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/snapstudio/snapstudio/internal/models"
)

// EvaluationResult is the outcome of classifying a single labelled photo
type EvaluationResult struct {
	ID             string
	Image          string
	Expected       models.Category
	Predicted      models.Category
	ProcessingTime time.Duration
	Error          string // If classification failed
}

// Correct reports whether the prediction matched the label
func (r EvaluationResult) Correct() bool {
	return r.Error == "" && r.Expected == r.Predicted
}

// CategoryStats holds one-vs-rest scores for a category
type CategoryStats struct {
	TruePositives  int
	FalsePositives int
	FalseNegatives int
	Support        int
	Precision      float64
	Recall         float64
	F1             float64
}

// AggregateResults represents aggregated evaluation metrics
type AggregateResults struct {
	TotalRecords int
	SuccessCount int
	FailureCount int
	CorrectCount int

	// Accuracy is measured over successful classifications only
	Accuracy float64
	MacroF1  float64

	Categories map[models.Category]*CategoryStats

	// Confusion[expected][predicted]
	Confusion map[models.Category]map[models.Category]int

	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration

	Results []EvaluationResult

	EvaluationDate time.Time
	Provider       string
	Model          string
	SampleSize     int
}

// AggregateEvaluationResults aggregates multiple evaluation results
func AggregateEvaluationResults(results []EvaluationResult, provider, model string) *AggregateResults {
	agg := &AggregateResults{
		TotalRecords:   len(results),
		Results:        results,
		EvaluationDate: time.Now(),
		Provider:       provider,
		Model:          model,
		SampleSize:     len(results),
		Categories:     make(map[models.Category]*CategoryStats),
		Confusion:      make(map[models.Category]map[models.Category]int),
	}

	for _, c := range models.Categories() {
		agg.Categories[c] = &CategoryStats{}
		agg.Confusion[c] = make(map[models.Category]int)
	}

	var totalDuration time.Duration
	var successDuration time.Duration

	for _, result := range results {
		totalDuration += result.ProcessingTime

		if result.Error != "" {
			agg.FailureCount++
			continue
		}

		agg.SuccessCount++
		successDuration += result.ProcessingTime

		expected, ok := agg.Categories[result.Expected]
		if !ok {
			continue
		}
		expected.Support++
		agg.Confusion[result.Expected][result.Predicted]++

		if result.Expected == result.Predicted {
			agg.CorrectCount++
			expected.TruePositives++
			continue
		}

		expected.FalseNegatives++
		if predicted, ok := agg.Categories[result.Predicted]; ok {
			predicted.FalsePositives++
		}
	}

	if agg.SuccessCount > 0 {
		agg.Accuracy = float64(agg.CorrectCount) / float64(agg.SuccessCount)
		agg.AverageProcessingTime = successDuration / time.Duration(agg.SuccessCount)
	}
	agg.TotalProcessingTime = totalDuration

	scored := 0
	f1Sum := 0.0
	for _, stats := range agg.Categories {
		stats.Precision = ratio(stats.TruePositives, stats.TruePositives+stats.FalsePositives)
		stats.Recall = ratio(stats.TruePositives, stats.TruePositives+stats.FalseNegatives)
		if stats.Precision+stats.Recall > 0 {
			stats.F1 = 2 * stats.Precision * stats.Recall / (stats.Precision + stats.Recall)
		}
		// categories that never appear in labels or predictions don't count
		if stats.Support > 0 || stats.FalsePositives > 0 {
			scored++
			f1Sum += stats.F1
		}
	}
	if scored > 0 {
		agg.MacroF1 = f1Sum / float64(scored)
	}

	return agg
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0.0
	}
	return float64(num) / float64(den)
}

// PrintSummary prints a human-readable summary of the evaluation
func (a *AggregateResults) PrintSummary() {
	a.WriteSummary(os.Stdout)
}

// WriteSummary writes the summary printed by PrintSummary to w
func (a *AggregateResults) WriteSummary(w io.Writer) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 70))
	fmt.Fprintln(w, "CLASSIFIER EVALUATION SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Evaluation Date: %s\n", a.EvaluationDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Provider: %s\n", a.Provider)
	fmt.Fprintf(w, "Model: %s\n", a.Model)
	fmt.Fprintf(w, "Sample Size: %d photos\n", a.SampleSize)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "PROCESSING STATISTICS")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "Total Records: %d\n", a.TotalRecords)
	fmt.Fprintf(w, "Successful: %d (%.1f%%)\n", a.SuccessCount, ratio(a.SuccessCount, a.TotalRecords)*100)
	fmt.Fprintf(w, "Failed: %d (%.1f%%)\n", a.FailureCount, ratio(a.FailureCount, a.TotalRecords)*100)
	fmt.Fprintf(w, "Average Processing Time: %s\n", a.AverageProcessingTime)
	fmt.Fprintf(w, "Total Processing Time: %s\n", a.TotalProcessingTime)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "PER-CATEGORY SCORES")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "%-12s %9s %9s %9s %9s\n", "category", "precision", "recall", "f1", "support")
	for _, c := range models.Categories() {
		s := a.Categories[c]
		fmt.Fprintf(w, "%-12s %9.3f %9.3f %9.3f %9d\n", c, s.Precision, s.Recall, s.F1, s.Support)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "CONFUSION MATRIX (rows: expected, columns: predicted)")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	a.writeConfusion(w)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "OVERALL SCORE")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "Accuracy: %.2f%% (%d/%d)\n", a.Accuracy*100, a.CorrectCount, a.SuccessCount)
	fmt.Fprintf(w, "Macro F1: %.3f\n", a.MacroF1)
	fmt.Fprintln(w, strings.Repeat("=", 70))
}

func (a *AggregateResults) writeConfusion(w io.Writer) {
	cats := models.Categories()
	fmt.Fprintf(w, "%-12s", "")
	for _, c := range cats {
		fmt.Fprintf(w, " %9s", c)
	}
	fmt.Fprintln(w)
	for _, expected := range cats {
		fmt.Fprintf(w, "%-12s", expected)
		for _, predicted := range cats {
			fmt.Fprintf(w, " %9d", a.Confusion[expected][predicted])
		}
		fmt.Fprintln(w)
	}
}

// SaveToJSON saves the aggregate results to a JSON file
func (a *AggregateResults) SaveToJSON(filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(a); err != nil {
		return fmt.Errorf("failed to encode results to JSON: %w", err)
	}

	return nil
}

// SaveDetailedReport saves a report listing every misclassified or failed photo
func (a *AggregateResults) SaveDetailedReport(filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "CLASSIFIER EVALUATION DETAILED REPORT\n")
	fmt.Fprintf(file, "Generated: %s\n", a.EvaluationDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(file, "Provider: %s, Model: %s\n", a.Provider, a.Model)
	separator := strings.Repeat("=", 80)
	fmt.Fprintf(file, "%s\n\n", separator)

	for i, result := range a.Results {
		if result.Correct() {
			continue
		}
		fmt.Fprintf(file, "RECORD %d: %s\n", i+1, result.ID)
		fmt.Fprintf(file, "Image: %s\n", result.Image)
		fmt.Fprintf(file, "Processing Time: %s\n", result.ProcessingTime)
		if result.Error != "" {
			fmt.Fprintf(file, "ERROR: %s\n", result.Error)
		} else {
			fmt.Fprintf(file, "Expected: %s, Predicted: %s\n", result.Expected, result.Predicted)
		}
		fmt.Fprintf(file, "\n%s\n\n", separator)
	}

	return nil
}
