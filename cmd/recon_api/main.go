package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charterops-recon/internal/api"
	"github.com/charterops-recon/internal/api/service"
	"github.com/charterops-recon/internal/config"
	"github.com/charterops-recon/internal/data/mongo"
	"github.com/charterops-recon/internal/data/postgres"
	"github.com/charterops-recon/internal/logger"
	"github.com/charterops-recon/internal/platform/lookup"
	"github.com/charterops-recon/internal/platform/messaging/producers"
	"github.com/charterops-recon/internal/platform/persistence"
	"github.com/charterops-recon/internal/recon/dedup"
	"github.com/charterops-recon/internal/recon/importer"
	"github.com/charterops-recon/internal/recon/matcher"
	"github.com/charterops-recon/internal/recon/split"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("recon_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for operator review notifications
	reviewProducer, err := producers.NewReviewProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize review queue Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	docRepo := postgres.NewDocumentRepository(log, postgresDB)
	txnRepo := postgres.NewBankTransactionRepository(log, postgresDB)
	lineRepo := postgres.NewAllocationRepository(log, postgresDB)
	auditRepo := postgres.NewAuditRepository(log, postgresDB)
	glChart := postgres.NewGLChartRepository(log, postgresDB)
	reviewArchive := mongo.NewReviewArchiveRepository(log, mongoDB.Database())

	// Initialize engine components
	bookingClient := lookup.NewBookingClient(log, &cfg.Booking)
	matchEngine := matcher.NewMatcher(log, postgresDB, docRepo, txnRepo, auditRepo, cfg.Recon.ToleranceDays)
	allocator := split.NewAllocator(log, postgresDB, docRepo, lineRepo, auditRepo, glChart)
	detector := dedup.NewDetector(log, postgresDB, docRepo, auditRepo, bookingClient, reviewArchive)
	coordinator := importer.NewCoordinator(log, postgresDB, docRepo, auditRepo, matchEngine, detector, reviewProducer, reviewArchive, cfg.Recon)

	// Initialize services
	services := api.Services{
		Import:    service.NewImportService(log, coordinator, importer.NewParser(), reviewArchive),
		Document:  service.NewDocumentService(log, docRepo, auditRepo),
		Match:     service.NewMatchService(matchEngine),
		Split:     service.NewSplitService(allocator, lineRepo),
		Duplicate: service.NewDuplicateService(detector, cfg.Recon.DedupWindowDays),
		BankFeed:  service.NewBankFeedService(log, postgresDB, txnRepo, auditRepo),
	}

	// Initialize REST server
	server := api.NewServer(log, cfg, services)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = reviewProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
