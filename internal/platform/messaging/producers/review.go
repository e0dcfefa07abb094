package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/charterops-recon/internal/config"
	"github.com/charterops-recon/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

// ReviewProducer publishes manual-review notifications to the operator queue
type ReviewProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewReviewProducer creates the review queue producer and ensures the topic exists
func NewReviewProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*ReviewProducer, error) {
	if cfg.ReviewTopic == "" {
		return nil, fmt.Errorf("kafka review topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for review producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.ReviewTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure review topic %s exists: %w", cfg.ReviewTopic, err)
	}

	// Review notifications drive operator workflows; they are written
	// synchronously so an import never reports success while its review
	// items sit unflushed.
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.ReviewTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &ReviewProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.ReviewTopic,
	}, nil
}

// PublishReview writes one notification keyed by document ID so all review
// items for a document land on the same partition, in order.
func (p *ReviewProducer) PublishReview(ctx context.Context, notification *shared.ReviewNotification) error {
	jsonValue, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal review notification: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(notification.DocumentID.String()),
		Value: jsonValue,
		Headers: []kafka.Header{
			{Key: "review-kind", Value: []byte(notification.Kind)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish review notification",
			"topic", p.topic,
			"document_id", notification.DocumentID.String(),
			"kind", string(notification.Kind),
			"error", err,
		)
		return fmt.Errorf("failed to publish review notification to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published review notification",
		"topic", p.topic,
		"document_id", notification.DocumentID.String(),
		"kind", string(notification.Kind),
	)
	return nil
}

func (p *ReviewProducer) Close() error {
	p.logger.Info("Closing review queue Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close review kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
