package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/charterops-recon/internal/domain/shared"
)

const (
	// DuplicatePairsCollectionName holds archived duplicate candidate pairs
	DuplicatePairsCollectionName = "duplicate_pairs"

	// ImportReportsCollectionName holds per-batch import summaries
	ImportReportsCollectionName = "import_reports"
)

// archivedPair wraps a pair with its resolution outcome for archival
type archivedPair struct {
	Pair       shared.DuplicateCandidatePair `bson:"pair"`
	Resolution string                        `bson:"resolution"`
	Actor      string                        `bson:"actor"`
	ArchivedAt time.Time                     `bson:"archived_at"`
}

// ReviewArchiveRepository stores operator-facing reconciliation history in
// MongoDB. Nothing here is authoritative: postgres holds the ledger and the
// audit log; this archive exists for review tooling and batch history.
type ReviewArchiveRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewReviewArchiveRepository creates a new MongoDB review archive repository
func NewReviewArchiveRepository(logger *slog.Logger, db *mongo.Database) *ReviewArchiveRepository {
	return &ReviewArchiveRepository{
		db:     db,
		logger: logger,
	}
}

// ArchivePair stores a resolved duplicate candidate pair with its outcome
func (r *ReviewArchiveRepository) ArchivePair(ctx context.Context, pair shared.DuplicateCandidatePair, resolution, actor string) error {
	collection := r.db.Collection(DuplicatePairsCollectionName)

	_, err := collection.InsertOne(ctx, archivedPair{
		Pair:       pair,
		Resolution: resolution,
		Actor:      actor,
		ArchivedAt: time.Now(),
	})
	if err != nil {
		r.logger.Error("Failed to archive duplicate pair",
			"document_a", pair.DocumentA.String(),
			"document_b", pair.DocumentB.String(),
			"error", err)
		return fmt.Errorf("failed to archive duplicate pair: %w", err)
	}

	return nil
}

// SaveReport stores a batch import summary
func (r *ReviewArchiveRepository) SaveReport(ctx context.Context, result *shared.BatchResult) error {
	collection := r.db.Collection(ImportReportsCollectionName)

	_, err := collection.InsertOne(ctx, result)
	if err != nil {
		r.logger.Error("Failed to save import report", "batch_id", result.BatchID.String(), "error", err)
		return fmt.Errorf("failed to save import report: %w", err)
	}

	return nil
}

// GetReport retrieves the summary of one import batch.
// Returns (nil, nil) when no report exists for the batch.
func (r *ReviewArchiveRepository) GetReport(ctx context.Context, batchID uuid.UUID) (*shared.BatchResult, error) {
	collection := r.db.Collection(ImportReportsCollectionName)

	var result shared.BatchResult
	err := collection.FindOne(ctx, bson.M{"batch_id": batchID}).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		r.logger.Error("Failed to get import report", "batch_id", batchID.String(), "error", err)
		return nil, fmt.Errorf("failed to get import report: %w", err)
	}

	return &result, nil
}

// ListReports retrieves paginated import summaries, newest first
func (r *ReviewArchiveRepository) ListReports(ctx context.Context, limit, offset int) ([]*shared.BatchResult, error) {
	collection := r.db.Collection(ImportReportsCollectionName)

	opts := options.Find().
		SetSort(bson.M{"started_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.logger.Error("Failed to list import reports", "error", err)
		return nil, fmt.Errorf("failed to list import reports: %w", err)
	}
	defer cursor.Close(ctx)

	var results []*shared.BatchResult
	if err := cursor.All(ctx, &results); err != nil {
		r.logger.Error("Failed to decode import reports", "error", err)
		return nil, fmt.Errorf("failed to decode import reports: %w", err)
	}

	return results, nil
}
