package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/winelabs/wineserve/internal/api"
	"github.com/winelabs/wineserve/internal/config"
	"github.com/winelabs/wineserve/internal/ledger"
	"github.com/winelabs/wineserve/internal/metrics"
	"github.com/winelabs/wineserve/internal/scoring"
	"github.com/winelabs/wineserve/internal/service"
	"github.com/winelabs/wineserve/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wineserve: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Optional .env shared with the training pipeline.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	modelInfo, err := service.LoadModelInfo(cfg.Artifacts.ModelInfoPath)
	if err != nil {
		logger.Warn("model info unavailable", "path", cfg.Artifacts.ModelInfoPath, "error", err)
	}
	if modelInfo != nil {
		logger.Info("model info loaded", "best_model", modelInfo.BestModelID, "run_id", modelInfo.RunID)
	}

	scorer := scoring.NewClient(cfg.Scorer)
	reqLedger := ledger.New(cfg.Artifacts.LedgerPath)
	svc := service.New(logger, scorer, reqLedger, modelInfo, cfg.Data.Path, cfg.Scorer.FallbackQuality)

	server := api.NewServer(cfg.Server, cfg.Artifacts, svc, logger)

	metricsServer := &http.Server{
		Addr:    cfg.Server.MetricsAddress,
		Handler: promhttp.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server starting", "address", cfg.Server.Address)
		errCh <- server.Start()
	}()
	go func() {
		logger.Info("metrics server starting", "address", cfg.Server.MetricsAddress)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
