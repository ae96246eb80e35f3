package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Scorer payload encodings supported by the prediction client.
const (
	EncodingJSON = "json"
	EncodingCSV  = "csv"
)

// Config captures the settings required to boot the wine serving stack.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Scorer    ScorerConfig    `yaml:"scorer"`
	Data      DataConfig      `yaml:"data"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// ScorerConfig configures access to the remote model scoring endpoint.
type ScorerConfig struct {
	BaseURL         string        `yaml:"baseURL"`
	InvocationsPath string        `yaml:"invocationsPath"`
	Encoding        string        `yaml:"encoding"`
	Timeout         time.Duration `yaml:"timeout"`
	FallbackQuality int           `yaml:"fallbackQuality"`
}

// DataConfig locates the historical dataset and split parameters.
type DataConfig struct {
	Path        string  `yaml:"path"`
	Target      string  `yaml:"target"`
	TestSize    float64 `yaml:"testSize"`
	RandomState int64   `yaml:"randomState"`
}

// ArtifactsConfig locates files produced and served by the pipeline.
type ArtifactsConfig struct {
	Dir           string `yaml:"dir"`
	LedgerPath    string `yaml:"ledgerPath"`
	ModelInfoPath string `yaml:"modelInfoPath"`
	TrainingLog   string `yaml:"trainingLog"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// InvocationsURL joins the scorer base URL and invocations path.
func (s ScorerConfig) InvocationsURL() string {
	if s.BaseURL == "" {
		return ""
	}
	return strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(s.InvocationsPath, "/")
}

// Load initialises Config from a YAML file and environment overrides. An
// empty path falls back to the WINESERVE_CONFIG env var, and a missing file
// is only an error when explicitly requested.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("WINESERVE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Scorer.Encoding != EncodingJSON && cfg.Scorer.Encoding != EncodingCSV {
		return nil, fmt.Errorf("unknown scorer encoding %q", cfg.Scorer.Encoding)
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8000",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Scorer: ScorerConfig{
			BaseURL:         "http://127.0.0.1:5000",
			InvocationsPath: "/invocations",
			Encoding:        EncodingJSON,
			Timeout:         30 * time.Second,
			FallbackQuality: 6,
		},
		Data: DataConfig{
			Path:        "./data/winequalityN.csv",
			Target:      "quality",
			TestSize:    0.2,
			RandomState: 42,
		},
		Artifacts: ArtifactsConfig{
			Dir:           "artifacts",
			LedgerPath:    "artifacts/requests.csv",
			ModelInfoPath: "models/h2o_model_info.json",
			TrainingLog:   "flaml.log",
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WINESERVE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("WINESERVE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}

	// SERVE_HOST / SERVE_PORT mirror the training pipeline's environment so
	// one .env drives both sides.
	host := os.Getenv("SERVE_HOST")
	port := os.Getenv("SERVE_PORT")
	if host != "" || port != "" {
		if host == "" {
			host = "127.0.0.1"
		}
		if port == "" {
			port = "5000"
		}
		cfg.Scorer.BaseURL = fmt.Sprintf("http://%s:%s", host, port)
	}
	if v := os.Getenv("WINESERVE_SCORER_URL"); v != "" {
		cfg.Scorer.BaseURL = v
	}
	if v := os.Getenv("WINESERVE_SCORER_ENCODING"); v != "" {
		cfg.Scorer.Encoding = strings.ToLower(v)
	}
	if v := os.Getenv("WINESERVE_SCORER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Scorer.Timeout = d
		}
	}

	if v := os.Getenv("DATA_PATH"); v != "" {
		cfg.Data.Path = v
	}
	if v := os.Getenv("TARGET"); v != "" {
		cfg.Data.Target = v
	}
	if v := os.Getenv("TEST_SIZE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Data.TestSize = f
		}
	}
	if v := os.Getenv("RANDOM_STATE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Data.RandomState = n
		}
	}

	if v := os.Getenv("WINESERVE_ARTIFACTS_DIR"); v != "" {
		cfg.Artifacts.Dir = v
	}
	if v := os.Getenv("WINESERVE_LEDGER_PATH"); v != "" {
		cfg.Artifacts.LedgerPath = v
	}
	if v := os.Getenv("WINESERVE_MODEL_INFO_PATH"); v != "" {
		cfg.Artifacts.ModelInfoPath = v
	}
	if v := os.Getenv("WINESERVE_TRAINING_LOG"); v != "" {
		cfg.Artifacts.TrainingLog = v
	}

	if v := os.Getenv("WINESERVE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WINESERVE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}
