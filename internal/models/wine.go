package models

import "time"

// Prediction status values reported by the service.
const (
	StatusSuccess          = "success"
	StatusModelUnavailable = "model_unavailable"
	StatusError            = "error"
)

// Wine type values accepted by the feature schema.
const (
	WineTypeRed   = "red"
	WineTypeWhite = "white"
)

// FeatureRecord is one wine sample in the fixed training schema. Quality is
// only present in historical data; live inference requests omit it.
type FeatureRecord struct {
	Type               string  `json:"type" binding:"required,oneof=red white"`
	FixedAcidity       float64 `json:"fixed_acidity"`
	VolatileAcidity    float64 `json:"volatile_acidity"`
	CitricAcid         float64 `json:"citric_acid"`
	ResidualSugar      float64 `json:"residual_sugar"`
	Chlorides          float64 `json:"chlorides"`
	FreeSulfurDioxide  float64 `json:"free_sulfur_dioxide"`
	TotalSulfurDioxide float64 `json:"total_sulfur_dioxide"`
	Density            float64 `json:"density"`
	PH                 float64 `json:"pH"`
	Sulphates          float64 `json:"sulphates"`
	Alcohol            float64 `json:"alcohol"`
	Quality            *int    `json:"quality,omitempty"`
}

// TrainingColumns returns the feature column names exactly as the model was
// trained, spaces included. The remote scorer rejects or silently mis-scores
// any payload whose column names deviate from this schema.
func TrainingColumns() []string {
	return []string{
		"type",
		"fixed acidity",
		"volatile acidity",
		"citric acid",
		"residual sugar",
		"chlorides",
		"free sulfur dioxide",
		"total sulfur dioxide",
		"density",
		"pH",
		"sulphates",
		"alcohol",
	}
}

// TargetColumn is the label column name in historical datasets.
const TargetColumn = "quality"

// Values returns the record's feature values in TrainingColumns order,
// excluding the target.
func (r FeatureRecord) Values() []any {
	return []any{
		r.Type,
		r.FixedAcidity,
		r.VolatileAcidity,
		r.CitricAcid,
		r.ResidualSugar,
		r.Chlorides,
		r.FreeSulfurDioxide,
		r.TotalSulfurDioxide,
		r.Density,
		r.PH,
		r.Sulphates,
		r.Alcohol,
	}
}

// PredictionResult is the per-record outcome returned by /predict.
type PredictionResult struct {
	PredictedQuality int                `json:"predicted_quality"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
	Timestamp        time.Time          `json:"timestamp"`
	Status           string             `json:"status"`
}

// MetricsSnapshot holds offline classification quality for one scoring run.
type MetricsSnapshot struct {
	Accuracy   float64 `json:"accuracy"`
	F1Weighted float64 `json:"f1_weighted"`
}

// DriftComparisonResult compares baseline and perturbed scoring runs.
// Delta is signed (perturbed minus baseline).
type DriftComparisonResult struct {
	Baseline  MetricsSnapshot `json:"baseline"`
	Perturbed MetricsSnapshot `json:"perturbed"`
	Delta     MetricsSnapshot `json:"delta"`
}

// ModelInfo describes the trained model artifact recorded by the training
// pipeline in models/h2o_model_info.json.
type ModelInfo struct {
	BestModelID string          `json:"best_model_id"`
	RunID       string          `json:"run_id"`
	Metrics     MetricsSnapshot `json:"metrics"`
}

// Distribution pairs bucket labels with their counts for dashboard charts.
type Distribution struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

// DataStats summarises the static dataset for the /data-stats endpoint.
type DataStats struct {
	Success             bool         `json:"success"`
	QualityDistribution Distribution `json:"quality_distribution,omitempty"`
	TypeDistribution    Distribution `json:"type_distribution,omitempty"`
	AlcoholDistribution Distribution `json:"alcohol_distribution,omitempty"`
	TotalSamples        int          `json:"total_samples,omitempty"`
	Error               string       `json:"error,omitempty"`
}
