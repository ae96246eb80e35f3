package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/winelabs/wineserve/internal/dataset"
	"github.com/winelabs/wineserve/internal/ledger"
	"github.com/winelabs/wineserve/internal/metrics"
	"github.com/winelabs/wineserve/internal/models"
	"github.com/winelabs/wineserve/internal/scoring"
	"github.com/winelabs/wineserve/internal/utils"
)

// Scorer is the remote scoring surface the service depends on.
type Scorer interface {
	Score(ctx context.Context, frame *dataset.Frame) ([]scoring.Prediction, error)
	Ping(ctx context.Context) error
	Configured() bool
}

// PredictionService wires the scoring client, the request ledger, and the
// model artifact handle behind the HTTP surface. The model info handle is
// loaded once at startup and read-only afterwards.
type PredictionService struct {
	logger          *slog.Logger
	scorer          Scorer
	ledger          *ledger.Ledger
	modelInfo       *models.ModelInfo
	dataPath        string
	fallbackQuality int
	latencies       *utils.LatencyTracker
}

// New constructs the prediction service facade.
func New(logger *slog.Logger, scorer Scorer, reqLedger *ledger.Ledger, modelInfo *models.ModelInfo, dataPath string, fallbackQuality int) *PredictionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PredictionService{
		logger:          logger,
		scorer:          scorer,
		ledger:          reqLedger,
		modelInfo:       modelInfo,
		dataPath:        dataPath,
		fallbackQuality: fallbackQuality,
		latencies:       utils.NewLatencyTracker(1024),
	}
}

// LoadModelInfo reads the model artifact descriptor written by the training
// pipeline. A missing file is not an error; it simply means no model has
// been trained yet.
func LoadModelInfo(path string) (*models.ModelInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, utils.NewAppError("service.LoadModelInfo", "read model info", err)
	}
	var info models.ModelInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, utils.NewAppError("service.LoadModelInfo", "parse model info", err)
	}
	return &info, nil
}

// Predict scores a single record. An unreachable or unconfigured scorer
// degrades to a fallback constant with status model_unavailable; every
// attempt is appended to the ledger, failures included.
func (s *PredictionService) Predict(ctx context.Context, rec models.FeatureRecord) (models.PredictionResult, error) {
	start := time.Now()

	preds, err := s.scorer.Score(ctx, dataset.FromRecords([]models.FeatureRecord{rec}))
	duration := time.Since(start)

	if err != nil {
		s.logRequest(rec, nil)

		if errors.Is(err, scoring.ErrUnreachable) {
			metrics.ObservePrediction(duration, metrics.OutcomeFallback)
			s.logger.Warn("scorer unreachable, serving fallback prediction", slog.Any("error", err))
			return models.PredictionResult{
				PredictedQuality: s.fallbackQuality,
				ConfidenceScores: map[string]float64{},
				Timestamp:        time.Now().UTC(),
				Status:           models.StatusModelUnavailable,
			}, nil
		}

		metrics.ObservePrediction(duration, metrics.OutcomeError)
		s.logger.Error("prediction failed", slog.Any("error", err))
		return models.PredictionResult{}, err
	}

	pred := preds[0]
	s.logRequest(rec, &pred.Quality)
	s.observeLatency(duration)

	confidence := pred.Confidence
	if confidence == nil {
		confidence = map[string]float64{}
	}
	return models.PredictionResult{
		PredictedQuality: pred.Quality,
		ConfidenceScores: confidence,
		Timestamp:        time.Now().UTC(),
		Status:           models.StatusSuccess,
	}, nil
}

func (s *PredictionService) logRequest(rec models.FeatureRecord, prediction *int) {
	if err := s.ledger.Append(rec, prediction); err != nil {
		s.logger.Error("ledger append failed", slog.Any("error", err))
	}
}

func (s *PredictionService) observeLatency(duration time.Duration) {
	metrics.ObservePrediction(duration, metrics.OutcomeSuccess)
	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("prediction latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}
}

// Health reports two independent signals: whether a trained model artifact
// is present, and whether the backing scorer answers its ping endpoint.
func (s *PredictionService) Health(ctx context.Context) (modelLoaded, scorerConnected bool) {
	modelLoaded = s.modelInfo != nil
	scorerConnected = s.scorer.Configured() && s.scorer.Ping(ctx) == nil
	return modelLoaded, scorerConnected
}

// ServiceStats summarises serving activity for the dashboard.
type ServiceStats struct {
	TotalPredictions int    `json:"total_predictions"`
	ModelStatus      string `json:"model_status"`
	ModelType        string `json:"model_type"`
}

// Stats returns serving counters derived from the ledger and the model
// artifact handle. Ledger read problems degrade to zero rather than failing
// the endpoint.
func (s *PredictionService) Stats() ServiceStats {
	total, err := s.ledger.Count()
	if err != nil {
		s.logger.Warn("ledger count failed", slog.Any("error", err))
		total = 0
	}

	stats := ServiceStats{
		TotalPredictions: total,
		ModelStatus:      "inactive",
		ModelType:        "not_loaded",
	}
	if s.modelInfo != nil {
		stats.ModelStatus = "active"
		stats.ModelType = s.modelInfo.BestModelID
	}
	return stats
}

// DataStats summarises the static training dataset. A missing or unreadable
// dataset yields success=false with the error message, never a panic or a
// 500.
func (s *PredictionService) DataStats() models.DataStats {
	frame, err := dataset.Load(s.dataPath)
	if err != nil {
		return models.DataStats{Success: false, Error: "Dataset not found"}
	}
	stats, err := dataset.Stats(frame)
	if err != nil {
		return models.DataStats{Success: false, Error: err.Error()}
	}
	return stats
}
