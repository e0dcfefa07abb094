package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charterops-recon/internal/config"
	"github.com/charterops-recon/internal/data/mongo"
	"github.com/charterops-recon/internal/data/postgres"
	"github.com/charterops-recon/internal/importworker"
	"github.com/charterops-recon/internal/logger"
	"github.com/charterops-recon/internal/platform/lookup"
	"github.com/charterops-recon/internal/platform/messaging/consumers"
	"github.com/charterops-recon/internal/platform/messaging/producers"
	"github.com/charterops-recon/internal/platform/persistence"
	"github.com/charterops-recon/internal/recon/dedup"
	"github.com/charterops-recon/internal/recon/importer"
	"github.com/charterops-recon/internal/recon/matcher"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("import_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Import Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Initialize repositories
	docRepo := postgres.NewDocumentRepository(log, postgresDB)
	txnRepo := postgres.NewBankTransactionRepository(log, postgresDB)
	auditRepo := postgres.NewAuditRepository(log, postgresDB)
	reviewArchive := mongo.NewReviewArchiveRepository(log, mongoDB.Database())

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka producers
	reviewProducer, err := producers.NewReviewProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize review queue Kafka producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler is nil-safe.

	// Initialize the batch coordinator and its engine components
	bookingClient := lookup.NewBookingClient(log, &cfg.Booking)
	matchEngine := matcher.NewMatcher(log, postgresDB, docRepo, txnRepo, auditRepo, cfg.Recon.ToleranceDays)
	detector := dedup.NewDetector(log, postgresDB, docRepo, auditRepo, bookingClient, reviewArchive)
	coordinator := importer.NewCoordinator(log, postgresDB, docRepo, auditRepo, matchEngine, detector, reviewProducer, reviewArchive, cfg.Recon)

	// Wrap the coordinator in a bounded worker pool
	workerPool, err := importworker.NewWorkerPoolService(
		coordinator,
		importworker.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log,
	)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize batch event handler
	batchEventHandler := importworker.NewBatchEventHandler(
		log,
		workerPool,
		dlqProducer,
	)

	// Create error channel for service errors
	errChan := make(chan error, 1)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.ImportTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.ImportTopic, cfg.Kafka.ConsumerGroup, batchEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the worker pool
	workerPool.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close Kafka producers
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}
	if err = reviewProducer.Close(); err != nil {
		log.Error("Error closing review queue Kafka producer", "error", err)
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Import Worker shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Import Worker shutdown completed with errors")
	} else {
		log.Info("Import Worker shutdown completed successfully")
	}
}
