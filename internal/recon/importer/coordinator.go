package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/charterops-recon/internal/config"
	"github.com/charterops-recon/internal/domain/audit"
	"github.com/charterops-recon/internal/domain/document"
	"github.com/charterops-recon/internal/domain/shared"
	"github.com/charterops-recon/internal/platform/persistence"
	"github.com/charterops-recon/internal/recon/dedup"
	"github.com/charterops-recon/internal/recon/matcher"
)

// ReviewPublisher delivers manual-review notifications to operators
type ReviewPublisher interface {
	PublishReview(ctx context.Context, notification *shared.ReviewNotification) error
}

// ReportArchiver stores batch results for later inspection
type ReportArchiver interface {
	SaveReport(ctx context.Context, result *shared.BatchResult) error
}

// MatchEngine searches ranked bank transaction candidates for a document and
// commits reconciliation links.
type MatchEngine interface {
	FindCandidatesForDocument(ctx context.Context, docID uuid.UUID, toleranceDays int) ([]matcher.ScoredMatch, error)
	Commit(ctx context.Context, docID, txnID uuid.UUID, actor string) error
}

// DuplicateScreener scans a stored document against nearby documents for
// likely duplicates.
type DuplicateScreener interface {
	ScanDocument(ctx context.Context, docID uuid.UUID, dayWindow int) ([]shared.DuplicateCandidatePair, error)
}

var (
	_ MatchEngine       = (*matcher.Matcher)(nil)
	_ DuplicateScreener = (*dedup.Detector)(nil)
)

// Coordinator runs batch imports end to end: insert, duplicate screen, and
// optional auto-match, one independent transaction per record so a late
// failure never rolls back earlier records.
type Coordinator struct {
	pgDB      persistence.TxRunner
	docRepo   document.Repository
	auditRepo audit.Repository
	matcher   MatchEngine
	detector  DuplicateScreener
	reviews   ReviewPublisher
	reports   ReportArchiver
	cfg       config.ReconConfig
	logger    *slog.Logger
}

// NewCoordinator creates an import coordinator
func NewCoordinator(
	logger *slog.Logger,
	pgDB persistence.TxRunner,
	docRepo document.Repository,
	auditRepo audit.Repository,
	m MatchEngine,
	detector DuplicateScreener,
	reviews ReviewPublisher,
	reports ReportArchiver,
	cfg config.ReconConfig,
) *Coordinator {
	return &Coordinator{
		pgDB:      pgDB,
		docRepo:   docRepo,
		auditRepo: auditRepo,
		matcher:   m,
		detector:  detector,
		reviews:   reviews,
		reports:   reports,
		cfg:       cfg,
		logger:    logger,
	}
}

// ImportBatch processes every record of the batch sequentially. Cancellation
// is checked between records: work committed before the cancel stays
// committed, and the result reports where processing stopped. The result is
// returned even when individual records failed.
func (c *Coordinator) ImportBatch(ctx context.Context, batch *shared.ImportBatch) (*shared.BatchResult, error) {
	if batch.BatchID == uuid.Nil {
		batch.BatchID = uuid.New()
	}
	toleranceDays := batch.ToleranceDays
	if toleranceDays <= 0 {
		toleranceDays = c.cfg.ToleranceDays
	}
	actor := "import:" + batch.Source

	result := &shared.BatchResult{
		BatchID:   batch.BatchID,
		Source:    batch.Source,
		StartedAt: time.Now(),
	}

	log := c.logger.With("batch_id", batch.BatchID.String(), "source", batch.Source)
	log.Info("Import batch started", "records", len(batch.Records))

	for i := range batch.Records {
		if ctx.Err() != nil {
			result.Cancelled = true
			log.Warn("Import batch cancelled", "processed", i)
			break
		}

		if err := c.processRecord(ctx, &batch.Records[i], batch, toleranceDays, actor, result); err != nil {
			result.Errors = append(result.Errors, shared.RecordError{Index: i, Message: err.Error()})
		}
	}

	result.CompletedAt = time.Now()

	// The archive is non-authoritative; a save failure does not fail the batch
	if err := c.reports.SaveReport(ctx, result); err != nil {
		log.Error("Failed to archive batch report", "error", err)
	}

	log.Info("Import batch completed",
		"inserted", result.Inserted,
		"skipped_duplicates", result.SkippedDuplicates,
		"auto_matched", result.AutoMatched,
		"needs_review", result.NeedsReview,
		"errors", len(result.Errors))
	return result, nil
}

func (c *Coordinator) processRecord(ctx context.Context, rec *shared.RawRecord, batch *shared.ImportBatch, toleranceDays int, actor string, result *shared.BatchResult) error {
	doc, err := document.New(rec.Counterparty, rec.Date, rec.AmountCents, rec.Description)
	if err != nil {
		return err
	}

	// Idempotency pre-check. The unique constraint on the fingerprint column
	// remains the backstop for concurrent imports of the same record.
	existing, err := c.docRepo.GetByFingerprint(ctx, doc.Fingerprint)
	if err != nil {
		return err
	}
	if existing != nil {
		result.SkippedDuplicates++
		return nil
	}

	err = c.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		docs := c.docRepo.WithTx(tx)
		auditRepo := c.auditRepo.WithTx(tx)

		if err := docs.Create(ctx, doc); err != nil {
			return err
		}
		entry, err := audit.NewEntry(actor, audit.ActionCreate, audit.EntityDocument, doc.ID, nil, doc)
		if err != nil {
			return err
		}
		return auditRepo.Record(ctx, entry)
	})
	if err != nil {
		var dup document.ErrDuplicateFingerprint
		if errors.As(err, &dup) {
			result.SkippedDuplicates++
			return nil
		}
		return err
	}
	result.Inserted++

	suppressAutoMatch, err := c.screenDuplicates(ctx, doc, batch, result)
	if err != nil {
		return fmt.Errorf("duplicate screen failed: %w", err)
	}

	if c.cfg.AutoMatch && !suppressAutoMatch {
		if err := c.tryAutoMatch(ctx, doc, batch, toleranceDays, actor, result); err != nil {
			return err
		}
	}
	return nil
}

// screenDuplicates surfaces likely duplicates of the inserted document and
// reports whether a primary-confidence pair exists. Such a document must not
// auto-match a bank transaction until an operator rules on the pair.
func (c *Coordinator) screenDuplicates(ctx context.Context, doc *document.Document, batch *shared.ImportBatch, result *shared.BatchResult) (bool, error) {
	pairs, err := c.detector.ScanDocument(ctx, doc.ID, c.cfg.DedupWindowDays)
	if err != nil {
		return false, err
	}

	primary := false
	for i := range pairs {
		pair := pairs[i]
		if pair.Confidence >= dedup.ConfidencePrimary {
			primary = true
		}

		notification := &shared.ReviewNotification{
			Kind:          shared.ReviewDuplicateCandidate,
			BatchID:       batch.BatchID,
			DocumentID:    doc.ID,
			Pair:          &pair,
			CorrelationID: batch.CorrelationID,
			CreatedAt:     time.Now(),
		}
		if err := c.reviews.PublishReview(ctx, notification); err != nil {
			return false, err
		}
		result.NeedsReview++
	}

	return primary, nil
}

// tryAutoMatch commits a reconciliation link when exactly one candidate
// exists, it is exact on amount, and no other candidate ranks equally. Every
// other configuration goes to the review queue; ambiguity is never tie-broken.
func (c *Coordinator) tryAutoMatch(ctx context.Context, doc *document.Document, batch *shared.ImportBatch, toleranceDays int, actor string, result *shared.BatchResult) error {
	matches, err := c.matcher.FindCandidatesForDocument(ctx, doc.ID, toleranceDays)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return nil
	}

	if !autoCommittable(matches) {
		return c.publishAmbiguous(ctx, doc, batch, matches, result)
	}

	err = c.matcher.Commit(ctx, doc.ID, matches[0].Txn.ID, actor)
	if err == nil {
		result.AutoMatched++
		return nil
	}

	var inUse document.ErrBankTxnInUse
	if !errors.As(err, &inUse) {
		return err
	}

	// A concurrent commit claimed the candidate between search and commit.
	// Retry the search once against the updated pool; anything short of a
	// clean single candidate becomes a conflict for manual review.
	matches, err = c.matcher.FindCandidatesForDocument(ctx, doc.ID, toleranceDays)
	if err != nil {
		return err
	}
	if autoCommittable(matches) {
		commitErr := c.matcher.Commit(ctx, doc.ID, matches[0].Txn.ID, actor)
		if commitErr == nil {
			result.AutoMatched++
			return nil
		}
		// Only a second lost race stays on the conflict path; any other
		// failure is a real error the batch result must carry.
		var alreadyLinked document.AlreadyLinkedError
		if !errors.As(commitErr, &inUse) && !errors.As(commitErr, &alreadyLinked) {
			return commitErr
		}
	}

	notification := &shared.ReviewNotification{
		Kind:            shared.ReviewMatchConflict,
		BatchID:         batch.BatchID,
		DocumentID:      doc.ID,
		CandidateTxnIDs: candidateIDs(matches),
		CorrelationID:   batch.CorrelationID,
		CreatedAt:       time.Now(),
	}
	if err := c.reviews.PublishReview(ctx, notification); err != nil {
		return err
	}
	result.NeedsReview++
	return nil
}

func (c *Coordinator) publishAmbiguous(ctx context.Context, doc *document.Document, batch *shared.ImportBatch, matches []matcher.ScoredMatch, result *shared.BatchResult) error {
	notification := &shared.ReviewNotification{
		Kind:            shared.ReviewAmbiguousMatch,
		BatchID:         batch.BatchID,
		DocumentID:      doc.ID,
		CandidateTxnIDs: candidateIDs(matches),
		CorrelationID:   batch.CorrelationID,
		CreatedAt:       time.Now(),
	}
	if err := c.reviews.PublishReview(ctx, notification); err != nil {
		return err
	}
	result.NeedsReview++
	return nil
}

// autoCommittable requires a single exact-amount candidate with no equal rank
func autoCommittable(matches []matcher.ScoredMatch) bool {
	return len(matches) == 1 && matches[0].ExactAmount && matcher.Unambiguous(matches)
}

func candidateIDs(matches []matcher.ScoredMatch) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.Txn.ID)
	}
	return ids
}
