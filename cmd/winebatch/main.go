package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/winelabs/wineserve/internal/config"
	"github.com/winelabs/wineserve/internal/dataset"
	"github.com/winelabs/wineserve/internal/evaluate"
	"github.com/winelabs/wineserve/internal/scoring"
	"github.com/winelabs/wineserve/internal/utils"
)

// winebatch scores a held-out CSV against the serving endpoint and writes
// the predictions plus accuracy/F1 next to the other pipeline artifacts.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "winebatch: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	input := flag.String("input", "artifacts/test.csv", "held-out CSV with the target column")
	scorerURL := flag.String("url", "", "scorer base URL (defaults to SERVE_HOST/SERVE_PORT)")
	target := flag.String("target", "quality", "target column name")
	outPreds := flag.String("out-preds", "artifacts/preds.json", "predictions output path")
	outMetrics := flag.String("out-metrics", "artifacts/metrics.json", "metrics output path")
	timeout := flag.Duration("timeout", 60*time.Second, "scoring request timeout")
	flag.Parse()

	_ = godotenv.Load()

	logger := utils.NewLogger(os.Getenv("WINESERVE_LOG_LEVEL"), false)

	if _, err := os.Stat(*input); err != nil {
		if err := deriveHoldout(logger, *input); err != nil {
			return err
		}
	}

	frame, err := dataset.Load(*input)
	if err != nil {
		return fmt.Errorf("load %s: %w", *input, err)
	}

	yTrue, err := frame.LabelColumn(*target)
	if err != nil {
		return fmt.Errorf("target column: %w", err)
	}
	features := frame.DropColumn(*target)

	client := scoring.NewClient(config.ScorerConfig{
		BaseURL:         resolveURL(*scorerURL),
		InvocationsPath: "/invocations",
		Encoding:        config.EncodingJSON,
		Timeout:         *timeout,
	})

	logger.Info("scoring batch", "rows", features.NumRows(), "input", *input)

	predictions, err := client.Score(context.Background(), features)
	if err != nil {
		return fmt.Errorf("score batch: %w", err)
	}

	yPred := make([]int, len(predictions))
	for i, p := range predictions {
		yPred[i] = p.Quality
	}

	snapshot, err := evaluate.Compute(yTrue, yPred)
	if err != nil {
		return fmt.Errorf("compute metrics: %w", err)
	}

	if err := writeJSON(*outPreds, map[string][]int{"pred": yPred}); err != nil {
		return err
	}
	if err := writeJSON(*outMetrics, snapshot); err != nil {
		return err
	}

	logger.Info("batch complete",
		"rows", len(yPred),
		"accuracy", snapshot.Accuracy,
		"f1_weighted", snapshot.F1Weighted,
	)
	fmt.Printf("accuracy=%.4f f1_weighted=%.4f\n", snapshot.Accuracy, snapshot.F1Weighted)
	return nil
}

// deriveHoldout rebuilds the held-out CSV from the full dataset using the
// same split parameters as the training pipeline, so batch scoring works
// even before the pipeline has exported a test set.
func deriveHoldout(logger *slog.Logger, path string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	full, err := dataset.Load(cfg.Data.Path)
	if err != nil {
		return fmt.Errorf("no held-out set at %s and no dataset at %s: %w", path, cfg.Data.Path, err)
	}

	_, test, err := dataset.Split(full, cfg.Data.TestSize, cfg.Data.RandomState)
	if err != nil {
		return fmt.Errorf("split dataset: %w", err)
	}
	if err := dataset.Save(test, path); err != nil {
		return fmt.Errorf("save held-out set: %w", err)
	}

	logger.Info("derived held-out set",
		"dataset", cfg.Data.Path,
		"rows", test.NumRows(),
		"test_size", cfg.Data.TestSize,
		"seed", cfg.Data.RandomState,
	)
	return nil
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
