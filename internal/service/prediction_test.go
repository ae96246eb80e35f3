package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/winelabs/wineserve/internal/dataset"
	"github.com/winelabs/wineserve/internal/ledger"
	"github.com/winelabs/wineserve/internal/models"
	"github.com/winelabs/wineserve/internal/scoring"
)

type fakeScorer struct {
	configured bool
	preds      []scoring.Prediction
	err        error
	pingErr    error
	calls      int
}

func (f *fakeScorer) Score(ctx context.Context, frame *dataset.Frame) ([]scoring.Prediction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.preds, nil
}

func (f *fakeScorer) Ping(context.Context) error { return f.pingErr }

func (f *fakeScorer) Configured() bool { return f.configured }

func sampleRecord() models.FeatureRecord {
	return models.FeatureRecord{
		Type:               "white",
		FixedAcidity:       7.0,
		VolatileAcidity:    0.27,
		CitricAcid:         0.36,
		ResidualSugar:      20.7,
		Chlorides:          0.045,
		FreeSulfurDioxide:  45,
		TotalSulfurDioxide: 170,
		Density:            1.001,
		PH:                 3.0,
		Sulphates:          0.45,
		Alcohol:            8.8,
	}
}

func newService(t *testing.T, scorer Scorer) (*PredictionService, string) {
	t.Helper()
	ledgerPath := filepath.Join(t.TempDir(), "requests.csv")
	svc := New(nil, scorer, ledger.New(ledgerPath), nil, "", 6)
	return svc, ledgerPath
}

func ledgerRows(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	return rows
}

func TestPredictSuccess(t *testing.T) {
	scorer := &fakeScorer{
		configured: true,
		preds: []scoring.Prediction{{
			Quality:    6,
			Confidence: map[string]float64{"quality_6": 0.7},
		}},
	}
	svc, ledgerPath := newService(t, scorer)

	result, err := svc.Predict(context.Background(), sampleRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != models.StatusSuccess {
		t.Fatalf("expected success status, got %s", result.Status)
	}
	if result.PredictedQuality != 6 {
		t.Fatalf("expected quality 6, got %d", result.PredictedQuality)
	}
	if result.Timestamp.IsZero() {
		t.Fatal("timestamp not set")
	}

	rows := ledgerRows(t, ledgerPath)
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 ledger row, got %d", len(rows))
	}
	if rows[1][1] != "6" {
		t.Fatalf("expected prediction 6 logged, got %q", rows[1][1])
	}
}

func TestPredictFallbackWhenUnreachable(t *testing.T) {
	scorer := &fakeScorer{err: fmt.Errorf("%w: connection refused", scoring.ErrUnreachable)}
	svc, ledgerPath := newService(t, scorer)

	result, err := svc.Predict(context.Background(), sampleRecord())
	if err != nil {
		t.Fatalf("fallback path must not error: %v", err)
	}
	if result.Status != models.StatusModelUnavailable {
		t.Fatalf("expected model_unavailable, got %s", result.Status)
	}
	if result.PredictedQuality != 6 {
		t.Fatalf("expected fallback quality 6, got %d", result.PredictedQuality)
	}
	if result.ConfidenceScores == nil || len(result.ConfidenceScores) != 0 {
		t.Fatalf("expected empty confidence scores, got %v", result.ConfidenceScores)
	}

	// The attempt is still logged, with an empty prediction cell.
	rows := ledgerRows(t, ledgerPath)
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 ledger row, got %d", len(rows))
	}
	if rows[1][1] != "" {
		t.Fatalf("expected empty prediction cell, got %q", rows[1][1])
	}
}

func TestPredictSurfacesTransportError(t *testing.T) {
	scorer := &fakeScorer{err: fmt.Errorf("%w: scorer returned 500", scoring.ErrTransport)}
	svc, ledgerPath := newService(t, scorer)

	_, err := svc.Predict(context.Background(), sampleRecord())
	if !errors.Is(err, scoring.ErrTransport) {
		t.Fatalf("expected transport error surfaced, got %v", err)
	}

	rows := ledgerRows(t, ledgerPath)
	if len(rows) != 2 || rows[1][1] != "" {
		t.Fatalf("failed attempt not logged with empty prediction: %v", rows)
	}
}

func TestPredictSurfacesSchemaError(t *testing.T) {
	scorer := &fakeScorer{err: fmt.Errorf("%w: unexpected shape", scoring.ErrSchema)}
	svc, _ := newService(t, scorer)

	if _, err := svc.Predict(context.Background(), sampleRecord()); !errors.Is(err, scoring.ErrSchema) {
		t.Fatalf("expected schema error surfaced, got %v", err)
	}
}

func TestHealthIndependentSignals(t *testing.T) {
	scorer := &fakeScorer{configured: true}
	ledgerPath := filepath.Join(t.TempDir(), "requests.csv")
	info := &models.ModelInfo{BestModelID: "StackedEnsemble_BestOfFamily_4"}
	svc := New(nil, scorer, ledger.New(ledgerPath), info, "", 6)

	modelLoaded, scorerConnected := svc.Health(context.Background())
	if !modelLoaded || !scorerConnected {
		t.Fatalf("expected both healthy, got model=%v scorer=%v", modelLoaded, scorerConnected)
	}

	scorer.pingErr = errors.New("down")
	modelLoaded, scorerConnected = svc.Health(context.Background())
	if !modelLoaded {
		t.Fatal("model artifact presence must not depend on scorer reachability")
	}
	if scorerConnected {
		t.Fatal("expected scorer reported down")
	}
}

func TestStats(t *testing.T) {
	scorer := &fakeScorer{configured: true, preds: []scoring.Prediction{{Quality: 6}}}
	ledgerPath := filepath.Join(t.TempDir(), "requests.csv")
	info := &models.ModelInfo{BestModelID: "StackedEnsemble_BestOfFamily_4"}
	svc := New(nil, scorer, ledger.New(ledgerPath), info, "", 6)

	if _, err := svc.Predict(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("predict: %v", err)
	}
	if _, err := svc.Predict(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("predict: %v", err)
	}

	stats := svc.Stats()
	if stats.TotalPredictions != 2 {
		t.Fatalf("expected 2 predictions, got %d", stats.TotalPredictions)
	}
	if stats.ModelStatus != "active" {
		t.Fatalf("expected active model, got %s", stats.ModelStatus)
	}
	if stats.ModelType != "StackedEnsemble_BestOfFamily_4" {
		t.Fatalf("unexpected model type: %s", stats.ModelType)
	}
}

func TestStatsWithoutModel(t *testing.T) {
	svc, _ := newService(t, &fakeScorer{})
	stats := svc.Stats()
	if stats.ModelStatus != "inactive" || stats.ModelType != "not_loaded" {
		t.Fatalf("unexpected empty-model stats: %+v", stats)
	}
}

func TestDataStatsMissingFile(t *testing.T) {
	svc := New(nil, &fakeScorer{}, ledger.New(filepath.Join(t.TempDir(), "requests.csv")), nil, "/nonexistent/wine.csv", 6)
	stats := svc.DataStats()
	if stats.Success {
		t.Fatal("expected failure for missing dataset")
	}
	if stats.Error == "" {
		t.Fatal("expected error message")
	}
}

func TestLoadModelInfo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "h2o_model_info.json")
	payload := `{"best_model_id":"GBM_1","run_id":"abc","metrics":{"accuracy":0.65,"f1_weighted":0.64}}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write model info: %v", err)
	}

	info, err := LoadModelInfo(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.BestModelID != "GBM_1" || info.Metrics.Accuracy != 0.65 {
		t.Fatalf("unexpected model info: %+v", info)
	}

	missing, err := LoadModelInfo(filepath.Join(dir, "absent.json"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil info for missing file")
	}
}
