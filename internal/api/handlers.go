package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/winelabs/wineserve/internal/config"
	"github.com/winelabs/wineserve/internal/models"
	"github.com/winelabs/wineserve/internal/scoring"
	"github.com/winelabs/wineserve/internal/service"
)

// Handler exposes the prediction service over HTTP.
type Handler struct {
	svc       *service.PredictionService
	artifacts config.ArtifactsConfig
	logger    *slog.Logger
}

func NewHandler(svc *service.PredictionService, artifacts config.ArtifactsConfig, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, artifacts: artifacts, logger: logger}
}

// Register wires all routes onto the engine.
func (h *Handler) Register(engine *gin.Engine) {
	engine.POST("/predict", h.Predict)
	engine.GET("/health", h.Health)
	engine.GET("/stats", h.Stats)
	engine.GET("/data-stats", h.DataStats)
	engine.GET("/download-logs", h.DownloadLogs)
	engine.GET("/log-content", h.LogContent)
	engine.GET("/download-flaml-log", h.DownloadTrainingLog)
	engine.GET("/reports/:filename", h.Report)
}

// Predict scores wine samples against the remote model. The body is either
// a single record, answered with a full result object, or a list of records,
// answered with the bare prediction list.
func (h *Handler) Predict(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "detail": err.Error()})
		return
	}

	if isJSONArray(body) {
		h.predictBatch(c, body)
		return
	}

	var rec models.FeatureRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "detail": err.Error()})
		return
	}
	if err := binding.Validator.ValidateStruct(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "detail": err.Error()})
		return
	}

	result, err := h.svc.Predict(c.Request.Context(), rec)
	if err != nil {
		h.predictError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) predictBatch(c *gin.Context, body []byte) {
	var recs []models.FeatureRecord
	if err := json.Unmarshal(body, &recs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "detail": err.Error()})
		return
	}
	if len(recs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "detail": "empty record list"})
		return
	}
	for i := range recs {
		if err := binding.Validator.ValidateStruct(&recs[i]); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "detail": err.Error()})
			return
		}
	}

	predictions := make([]int, 0, len(recs))
	for _, rec := range recs {
		result, err := h.svc.Predict(c.Request.Context(), rec)
		if err != nil {
			h.predictError(c, err)
			return
		}
		predictions = append(predictions, result.PredictedQuality)
	}

	c.JSON(http.StatusOK, gin.H{"predictions": predictions})
}

func (h *Handler) predictError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, scoring.ErrTransport) {
		status = http.StatusBadGateway
	}
	h.logger.Error("prediction failed", "error", err)
	c.JSON(status, gin.H{"status": "error", "detail": err.Error()})
}

func isJSONArray(body []byte) bool {
	for _, b := range body {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

// Health reports the model and scorer availability independently.
func (h *Handler) Health(c *gin.Context) {
	modelLoaded, scorerConnected := h.svc.Health(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"model_loaded":     modelLoaded,
		"scorer_connected": scorerConnected,
	})
}

// Stats summarises prediction volume and model identity.
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Stats())
}

// DataStats summarises the historical dataset distributions.
func (h *Handler) DataStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.DataStats())
}

// DownloadLogs ships the request ledger as a CSV attachment.
func (h *Handler) DownloadLogs(c *gin.Context) {
	h.serveFile(c, h.artifacts.LedgerPath, "requests.csv", "No logs available")
}

// LogContent returns the raw training log text for inline display.
func (h *Handler) LogContent(c *gin.Context) {
	data, err := os.ReadFile(h.artifacts.TrainingLog)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"content": "", "exists": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": string(data), "exists": true})
}

// DownloadTrainingLog ships the AutoML training log as an attachment.
func (h *Handler) DownloadTrainingLog(c *gin.Context) {
	h.serveFile(c, h.artifacts.TrainingLog, filepath.Base(h.artifacts.TrainingLog), "Training log not found")
}

// Report serves a generated report from the artifacts directory. The
// filename is flattened to its base so requests cannot escape the directory.
func (h *Handler) Report(c *gin.Context) {
	name := filepath.Base(c.Param("filename"))
	path := filepath.Join(h.artifacts.Dir, name)
	h.serveFile(c, path, name, "Report not found")
}

func (h *Handler) serveFile(c *gin.Context, path, name, missingMsg string) {
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error",
			"detail": missingMsg,
		})
		return
	}
	c.FileAttachment(path, name)
}
