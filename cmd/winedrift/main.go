package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/winelabs/wineserve/internal/config"
	"github.com/winelabs/wineserve/internal/dataset"
	"github.com/winelabs/wineserve/internal/evaluate"
	"github.com/winelabs/wineserve/internal/models"
	"github.com/winelabs/wineserve/internal/scoring"
	"github.com/winelabs/wineserve/internal/utils"
)

// winedrift probes model robustness by re-scoring the held-out set after a
// fixed covariate shift and comparing quality metrics against the baseline.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "winedrift: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	input := flag.String("input", "artifacts/test.csv", "held-out CSV with the target column")
	scorerURL := flag.String("url", "", "scorer base URL (defaults to SERVE_HOST/SERVE_PORT)")
	target := flag.String("target", "quality", "target column name")
	out := flag.String("out", "artifacts/perturb_test_results.json", "comparison output path")
	timeout := flag.Duration("timeout", 60*time.Second, "scoring request timeout")
	flag.Parse()

	_ = godotenv.Load()

	logger := utils.NewLogger(os.Getenv("WINESERVE_LOG_LEVEL"), false)

	frame, err := dataset.Load(*input)
	if err != nil {
		return fmt.Errorf("load %s: %w", *input, err)
	}

	yTrue, err := frame.LabelColumn(*target)
	if err != nil {
		return fmt.Errorf("target column: %w", err)
	}
	features := frame.DropColumn(*target)
	perturbed := evaluate.Perturb(features)

	client := scoring.NewClient(config.ScorerConfig{
		BaseURL:         resolveURL(*scorerURL),
		InvocationsPath: "/invocations",
		Encoding:        config.EncodingCSV,
		Timeout:         *timeout,
	})

	ctx := context.Background()

	baseline, err := scoreSnapshot(ctx, client, features, yTrue)
	if err != nil {
		return fmt.Errorf("baseline: %w", err)
	}
	shifted, err := scoreSnapshot(ctx, client, perturbed, yTrue)
	if err != nil {
		return fmt.Errorf("perturbed: %w", err)
	}

	result := models.DriftComparisonResult{
		Baseline:  baseline,
		Perturbed: shifted,
		Delta: models.MetricsSnapshot{
			Accuracy:   shifted.Accuracy - baseline.Accuracy,
			F1Weighted: shifted.F1Weighted - baseline.F1Weighted,
		},
	}

	if err := writeJSON(*out, result); err != nil {
		return err
	}

	logger.Info("drift comparison complete",
		"baseline_f1", baseline.F1Weighted,
		"perturbed_f1", shifted.F1Weighted,
		"delta_f1", result.Delta.F1Weighted,
	)
	fmt.Printf("baseline:  accuracy=%.4f f1_weighted=%.4f\n", baseline.Accuracy, baseline.F1Weighted)
	fmt.Printf("perturbed: accuracy=%.4f f1_weighted=%.4f\n", shifted.Accuracy, shifted.F1Weighted)
	fmt.Printf("delta:     accuracy=%+.4f f1_weighted=%+.4f\n", result.Delta.Accuracy, result.Delta.F1Weighted)
	return nil
}

func scoreSnapshot(ctx context.Context, client *scoring.Client, features *dataset.Frame, yTrue []int) (models.MetricsSnapshot, error) {
	predictions, err := client.Score(ctx, features)
	if err != nil {
		return models.MetricsSnapshot{}, err
	}
	yPred := make([]int, len(predictions))
	for i, p := range predictions {
		yPred[i] = p.Quality
	}
	return evaluate.Compute(yTrue, yPred)
}

func resolveURL(flagURL string) string {
	if flagURL != "" {
		return flagURL
	}
	host := os.Getenv("SERVE_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("SERVE_PORT")
	if port == "" {
		port = "5000"
	}
	return fmt.Sprintf("http://%s:%s", host, port)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
