// Package importworker consumes import batch messages and runs them through
// the batch coordinator on a bounded worker pool.
package importworker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/charterops-recon/internal/domain/shared"
	"github.com/charterops-recon/internal/recon/importer"
)

// BatchProcessor runs one import batch to completion
type BatchProcessor interface {
	ImportBatch(ctx context.Context, batch *shared.ImportBatch) (*shared.BatchResult, error)
}

var _ BatchProcessor = (*importer.Coordinator)(nil)

// WorkerPoolService bounds concurrent batch processing. One Kafka partition
// delivers batches in order, but independent batches may run in parallel up
// to the pool size.
type WorkerPoolService struct {
	processor BatchProcessor
	pool      *ants.Pool
	logger    *slog.Logger
	// Protects the in-flight results map
	mu      sync.Mutex
	results map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolService(
	processor BatchProcessor,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolService{
		processor: processor,
		pool:      pool,
		logger:    logger,
		results:   make(map[string]chan error),
	}, nil
}

// ProcessBatch submits a batch to the worker pool and waits for its outcome
func (s *WorkerPoolService) ProcessBatch(ctx context.Context, batch *shared.ImportBatch) error {
	logger := s.logger
	if batch.CorrelationID != "" {
		logger = s.logger.With("correlation_id", batch.CorrelationID)
	}

	logger.Info("Submitting import batch to worker pool",
		"batch_id", batch.BatchID.String(),
		"source", batch.Source,
		"records", len(batch.Records),
	)

	resultChan := make(chan error, 1)

	batchID := batch.BatchID.String()
	s.mu.Lock()
	s.results[batchID] = resultChan
	s.mu.Unlock()

	// Copy the batch so the caller's buffer can be reused safely
	batchCopy := *batch

	err := s.pool.Submit(func() {
		_, err := s.processor.ImportBatch(ctx, &batchCopy)
		resultChan <- err

		s.mu.Lock()
		delete(s.results, batchID)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		s.mu.Lock()
		delete(s.results, batchID)
		close(resultChan)
		s.mu.Unlock()

		logger.Error("Failed to submit import batch to worker pool",
			"batch_id", batch.BatchID.String(),
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool
func (s *WorkerPoolService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool
func (s *WorkerPoolService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool
func (s *WorkerPoolService) Capacity() int {
	return s.pool.Cap()
}
