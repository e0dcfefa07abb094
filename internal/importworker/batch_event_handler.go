package importworker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/charterops-recon/internal/domain/shared"
	"github.com/charterops-recon/internal/platform/messaging/producers"
)

// BatchEventHandler handles incoming import batch messages from Kafka
type BatchEventHandler struct {
	workerPool *WorkerPoolService
	producer   producers.DeadLetterPublisher
	logger     *slog.Logger
}

// NewBatchEventHandler creates a new handler
func NewBatchEventHandler(
	logger *slog.Logger,
	workerPool *WorkerPoolService,
	producer producers.DeadLetterPublisher,
) *BatchEventHandler {
	return &BatchEventHandler{
		workerPool: workerPool,
		producer:   producer,
		logger:     logger,
	}
}

// HandleMessage processes Kafka messages. Unparseable messages go to the DLQ
// so a poison message cannot wedge the partition; processing failures are
// returned so the offset stays uncommitted and the batch is retried.
func (h *BatchEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var batch shared.ImportBatch
	if err := json.Unmarshal(value, &batch); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal import batch from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
			} else {
				h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if batch.CorrelationID != "" {
		logger = h.logger.With("correlation_id", batch.CorrelationID)
	}

	logger.Info("Received import batch for processing",
		"batch_id", batch.BatchID.String(),
		"source", batch.Source,
		"records", len(batch.Records),
	)

	if err := h.workerPool.ProcessBatch(ctx, &batch); err != nil {
		logger.Error("Failed to process import batch",
			"batch_id", batch.BatchID.String(),
			"error", err,
		)
		return fmt.Errorf("processing import batch %s failed: %w", batch.BatchID.String(), err)
	}

	logger.Info("Successfully processed import batch", "batch_id", batch.BatchID.String())
	return nil // Success, commit offset
}
