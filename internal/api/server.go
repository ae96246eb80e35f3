package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/winelabs/wineserve/internal/config"
	"github.com/winelabs/wineserve/internal/service"
)

// Server wraps the gin engine and HTTP lifecycle helpers.
type Server struct {
	cfg        config.ServerConfig
	httpServer *http.Server
}

// NewServer constructs the HTTP server with all routes registered.
func NewServer(cfg config.ServerConfig, artifacts config.ArtifactsConfig, svc *service.PredictionService, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	handler := NewHandler(svc, artifacts, logger)
	handler.Register(engine)

	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:    cfg.Address,
			Handler: engine,
		},
	}
}

// Start serves requests until Shutdown is invoked.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
