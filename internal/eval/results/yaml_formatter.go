package results

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/snapstudio/snapstudio/internal/eval/metrics"
	"github.com/snapstudio/snapstudio/internal/models"
	"gopkg.in/yaml.v3"
)

// DefaultDir is where evaluation runs are written
const DefaultDir = "evals"

// EvalConfig represents the configuration section of the eval YAML
type EvalConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	DatasetPath string  `yaml:"datasetpath"`
	SampleSize  int     `yaml:"samplesize"`
	BatchSize   int     `yaml:"batchsize"`
	Timestamp   string  `yaml:"timestamp"`
}

// EvalResult represents a single evaluation result
type EvalResult struct {
	Identifier string `yaml:"identifier"`
	Image      string `yaml:"image,omitempty"`
	Expected   string `yaml:"expected"`
	Predicted  string `yaml:"predicted,omitempty"`
	Correct    bool   `yaml:"correct"`
	DurationMS int64  `yaml:"durationms"`
	Error      string `yaml:"error,omitempty"`
}

// EvalRun is the complete evaluation file
type EvalRun struct {
	Config  EvalConfig   `yaml:"config"`
	Results []EvalResult `yaml:"results"`
}

// SaveToYAML writes an evaluation run into dir and returns the file path
func SaveToYAML(dir string, cfg EvalConfig, results []metrics.EvaluationResult) (string, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create evals directory: %w", err)
	}

	if cfg.Timestamp == "" {
		cfg.Timestamp = time.Now().Format("2006-01-02_15-04-05")
	}
	cfg.SampleSize = len(results)

	run := EvalRun{
		Config:  cfg,
		Results: make([]EvalResult, 0, len(results)),
	}

	for _, r := range results {
		run.Results = append(run.Results, EvalResult{
			Identifier: r.ID,
			Image:      displayImage(r.Image),
			Expected:   string(r.Expected),
			Predicted:  string(r.Predicted),
			Correct:    r.Correct(),
			DurationMS: r.ProcessingTime.Milliseconds(),
			Error:      r.Error,
		})
	}

	// model names like google/gemini-2.5-flash contain slashes
	name := strings.NewReplacer("/", "_", ":", "_").Replace(cfg.Model)
	filename := filepath.Join(dir, fmt.Sprintf("%s-%s.yaml", name, cfg.Timestamp))

	data, err := yaml.Marshal(&run)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return filename, nil
	}
	return absPath, nil
}

// LoadYAML reads an evaluation file written by SaveToYAML
func LoadYAML(path string) (*EvalRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read eval file: %w", err)
	}

	var run EvalRun
	if err := yaml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse eval file: %w", err)
	}
	return &run, nil
}

// ToEvaluationResults converts a stored run back for aggregation
func (run *EvalRun) ToEvaluationResults() []metrics.EvaluationResult {
	out := make([]metrics.EvaluationResult, 0, len(run.Results))
	for _, r := range run.Results {
		expected, _ := models.ParseCategory(r.Expected)
		var predicted models.Category
		if r.Predicted != "" {
			predicted, _ = models.ParseCategory(r.Predicted)
		}
		out = append(out, metrics.EvaluationResult{
			ID:             r.Identifier,
			Image:          r.Image,
			Expected:       expected,
			Predicted:      predicted,
			ProcessingTime: time.Duration(r.DurationMS) * time.Millisecond,
			Error:          r.Error,
		})
	}
	return out
}

// data URLs would bloat the file
func displayImage(image string) string {
	if strings.HasPrefix(image, "data:") {
		if i := strings.Index(image, ","); i > 0 {
			return image[:i] + ",..."
		}
	}
	return image
}
