// Package api exposes the reconciliation engine over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charterops-recon/internal/api/handler"
	"github.com/charterops-recon/internal/api/service"
	"github.com/charterops-recon/internal/config"
)

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger // For structured logging
	httpServer *http.Server // Underlying HTTP server
	httpRouter *gin.Engine  // Gin router instance
}

// Services bundles the service implementations the server exposes
type Services struct {
	Import    service.ImportService
	Document  service.DocumentService
	Match     service.MatchService
	Split     service.SplitService
	Duplicate service.DuplicateService
	BankFeed  service.BankFeedService
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, services Services) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	importHandler := handler.NewImportHandler(log, services.Import)
	documentHandler := handler.NewDocumentHandler(log, services.Document)
	matchHandler := handler.NewMatchHandler(log, services.Match)
	splitHandler := handler.NewSplitHandler(log, services.Split)
	duplicateHandler := handler.NewDuplicateHandler(log, services.Duplicate)
	bankHandler := handler.NewBankHandler(log, services.BankFeed)

	setupRouter(log, httpRouter, importHandler, documentHandler, matchHandler, splitHandler, duplicateHandler, bankHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server with a timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	return nil
}
