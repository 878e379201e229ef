package metrics

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/snapstudio/snapstudio/internal/models"
)

func sampleResults() []EvaluationResult {
	return []EvaluationResult{
		{ID: "1", Expected: models.CategoryMain, Predicted: models.CategoryMain, ProcessingTime: 5 * time.Second},
		{ID: "2", Expected: models.CategoryMain, Predicted: models.CategoryAngle, ProcessingTime: 3 * time.Second},
		{ID: "3", Expected: models.CategoryDetail, Predicted: models.CategoryDetail, ProcessingTime: 2 * time.Second},
		{ID: "4", Expected: models.CategoryAngle, Predicted: models.CategoryAngle, ProcessingTime: 2 * time.Second},
		{ID: "5", Expected: models.CategoryPackaging, Error: "AI gateway error", ProcessingTime: 1 * time.Second},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregateEvaluationResults(t *testing.T) {
	agg := AggregateEvaluationResults(sampleResults(), "gateway", "google/gemini-2.5-flash")

	if agg.TotalRecords != 5 {
		t.Errorf("Expected TotalRecords=5, got %d", agg.TotalRecords)
	}
	if agg.SuccessCount != 4 {
		t.Errorf("Expected SuccessCount=4, got %d", agg.SuccessCount)
	}
	if agg.FailureCount != 1 {
		t.Errorf("Expected FailureCount=1, got %d", agg.FailureCount)
	}
	if agg.CorrectCount != 3 {
		t.Errorf("Expected CorrectCount=3, got %d", agg.CorrectCount)
	}
	if !almostEqual(agg.Accuracy, 0.75) {
		t.Errorf("Expected Accuracy=0.75, got %.3f", agg.Accuracy)
	}
	if agg.Provider != "gateway" {
		t.Errorf("Expected Provider=gateway, got %s", agg.Provider)
	}

	if agg.Confusion[models.CategoryMain][models.CategoryAngle] != 1 {
		t.Errorf("Expected one main->angle confusion, got %d", agg.Confusion[models.CategoryMain][models.CategoryAngle])
	}

	main := agg.Categories[models.CategoryMain]
	if main.Support != 2 || main.TruePositives != 1 || main.FalseNegatives != 1 {
		t.Errorf("Unexpected main stats: %+v", main)
	}
	if !almostEqual(main.Precision, 1.0) || !almostEqual(main.Recall, 0.5) {
		t.Errorf("Expected main precision 1.0 recall 0.5, got %.3f %.3f", main.Precision, main.Recall)
	}
	if !almostEqual(main.F1, 2.0/3.0) {
		t.Errorf("Expected main F1 0.667, got %.3f", main.F1)
	}

	angle := agg.Categories[models.CategoryAngle]
	if angle.FalsePositives != 1 || !almostEqual(angle.Precision, 0.5) || !almostEqual(angle.Recall, 1.0) {
		t.Errorf("Unexpected angle stats: %+v", angle)
	}

	// packaging only failed, so it is not scored
	expectedMacro := (2.0/3.0 + 2.0/3.0 + 1.0) / 3.0
	if !almostEqual(agg.MacroF1, expectedMacro) {
		t.Errorf("Expected MacroF1=%.3f, got %.3f", expectedMacro, agg.MacroF1)
	}

	if agg.TotalProcessingTime != 13*time.Second {
		t.Errorf("Expected TotalProcessingTime=13s, got %s", agg.TotalProcessingTime)
	}
	if agg.AverageProcessingTime != 3*time.Second {
		t.Errorf("Expected AverageProcessingTime=3s, got %s", agg.AverageProcessingTime)
	}
}

func TestAggregateEmpty(t *testing.T) {
	agg := AggregateEvaluationResults(nil, "gateway", "m")

	if agg.Accuracy != 0 || agg.MacroF1 != 0 {
		t.Errorf("Expected zero scores, got accuracy %.2f macro %.2f", agg.Accuracy, agg.MacroF1)
	}
	if len(agg.Categories) != len(models.Categories()) {
		t.Errorf("Expected stats for every category, got %d", len(agg.Categories))
	}

	var buf bytes.Buffer
	agg.WriteSummary(&buf)
	if !strings.Contains(buf.String(), "Accuracy: 0.00% (0/0)") {
		t.Errorf("Unexpected summary:\n%s", buf.String())
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		name     string
		num, den int
		expected float64
	}{
		{"normal", 1, 4, 0.25},
		{"zero denominator", 3, 0, 0.0},
		{"whole", 2, 2, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ratio(tt.num, tt.den); got != tt.expected {
				t.Errorf("ratio(%d, %d) = %.2f, want %.2f", tt.num, tt.den, got, tt.expected)
			}
		})
	}
}

func TestWriteSummary(t *testing.T) {
	agg := AggregateEvaluationResults(sampleResults(), "gateway", "test-model")

	var buf bytes.Buffer
	agg.WriteSummary(&buf)
	out := buf.String()

	for _, want := range []string{
		"CLASSIFIER EVALUATION SUMMARY",
		"Model: test-model",
		"Accuracy: 75.00% (3/4)",
		"CONFUSION MATRIX",
		"packaging",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Summary missing %q:\n%s", want, out)
		}
	}
}

func TestSaveToJSON(t *testing.T) {
	jsonPath := filepath.Join(t.TempDir(), "test_results.json")

	agg := AggregateEvaluationResults(sampleResults(), "gateway", "test-model")
	if err := agg.SaveToJSON(jsonPath); err != nil {
		t.Fatalf("SaveToJSON failed: %v", err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("Failed to read JSON file: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Invalid JSON written: %v", err)
	}
	if decoded["Model"] != "test-model" {
		t.Errorf("Expected Model=test-model, got %v", decoded["Model"])
	}
}

func TestSaveDetailedReport(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "report.txt")

	agg := AggregateEvaluationResults(sampleResults(), "gateway", "test-model")
	if err := agg.SaveDetailedReport(reportPath); err != nil {
		t.Fatalf("SaveDetailedReport failed: %v", err)
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	report := string(data)

	if !strings.Contains(report, "Expected: main, Predicted: angle") {
		t.Error("Report should list the misclassified photo")
	}
	if !strings.Contains(report, "ERROR: AI gateway error") {
		t.Error("Report should list the failed photo")
	}
	if strings.Contains(report, "RECORD 1:") {
		t.Error("Report should skip correct predictions")
	}
}
