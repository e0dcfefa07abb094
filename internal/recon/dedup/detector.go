package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/charterops-recon/internal/domain/audit"
	"github.com/charterops-recon/internal/domain/document"
	"github.com/charterops-recon/internal/domain/shared"
	"github.com/charterops-recon/internal/platform/persistence"
)

// BookingLookup is the charter booking service used for the multi-obligation
// check: how many real-world obligations exist for a date and amount.
type BookingLookup interface {
	HasBooking(ctx context.Context, date time.Time, amountCents int64) (int, error)
}

// PairArchiver stores resolved duplicate pairs for operator history
type PairArchiver interface {
	ArchivePair(ctx context.Context, pair shared.DuplicateCandidatePair, resolution, actor string) error
}

// ErrNotSuppressible indicates suppression was requested for a document that
// is linked or split; only unlinked documents can be suppressed.
var ErrNotSuppressible = errors.New("only unlinked documents can be duplicate-suppressed")

// Detector screens documents for likely duplicates. Scanning is read-only;
// suppression is a separate, explicitly invoked operation.
type Detector struct {
	pgDB      persistence.TxRunner
	docRepo   document.Repository
	auditRepo audit.Repository
	bookings  BookingLookup
	archive   PairArchiver
	logger    *slog.Logger
}

// NewDetector creates a duplicate detector
func NewDetector(
	logger *slog.Logger,
	pgDB persistence.TxRunner,
	docRepo document.Repository,
	auditRepo audit.Repository,
	bookings BookingLookup,
	archive PairArchiver,
) *Detector {
	return &Detector{
		pgDB:      pgDB,
		docRepo:   docRepo,
		auditRepo: auditRepo,
		bookings:  bookings,
		archive:   archive,
		logger:    logger,
	}
}

// ScanForDuplicates compares a document against the given pool and returns
// candidate pairs at or above the surface threshold. It mutates nothing.
func (d *Detector) ScanForDuplicates(ctx context.Context, newDoc *document.Document, existing []*document.Document) ([]shared.DuplicateCandidatePair, error) {
	var pairs []shared.DuplicateCandidatePair

	for _, other := range existing {
		if other.ID == newDoc.ID {
			continue
		}

		signals := BuildSignals(newDoc, other)
		if Score(signals) < SurfaceThreshold {
			continue
		}

		// The pair is surfaceable; check whether two distinct legitimate
		// bookings explain both documents before trusting the raw score.
		if signals.ExactAmount && signals.SameDate {
			count, err := d.bookings.HasBooking(ctx, newDoc.DocDate, newDoc.AmountCents)
			if err != nil {
				return nil, fmt.Errorf("multi-obligation check failed: %w", err)
			}
			signals.MultiObligation = count >= 2
		}

		confidence := Score(signals)
		if confidence < SurfaceThreshold {
			continue
		}

		pairs = append(pairs, shared.DuplicateCandidatePair{
			DocumentA:  newDoc.ID,
			DocumentB:  other.ID,
			Confidence: confidence,
			Signals:    signals,
			DetectedAt: time.Now(),
		})
	}

	return pairs, nil
}

// ScanDocument loads the document and scans it against nearby unlinked
// documents.
func (d *Detector) ScanDocument(ctx context.Context, docID uuid.UUID, dayWindow int) ([]shared.DuplicateCandidatePair, error) {
	doc, err := d.docRepo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	pool, err := d.docRepo.ListUnlinkedNear(ctx, doc.ID, doc.DocDate, dayWindow, doc.AmountCents, secondaryAmountTolCents)
	if err != nil {
		return nil, err
	}

	return d.ScanForDuplicates(ctx, doc, pool)
}

// SuppressDuplicate marks one document of a confirmed pair as
// duplicate-suppressed. The document is never deleted; the audit entry
// carries the pair's signal breakdown as the decision rationale, and the
// resolved pair is archived for review history.
func (d *Detector) SuppressDuplicate(ctx context.Context, suppressID uuid.UUID, pair shared.DuplicateCandidatePair, actor string) error {
	err := d.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		docs := d.docRepo.WithTx(tx)
		auditRepo := d.auditRepo.WithTx(tx)

		doc, err := docs.LockForUpdate(ctx, suppressID)
		if err != nil {
			return err
		}
		if doc.Status != document.StatusUnlinked {
			return ErrNotSuppressible
		}

		if err := docs.UpdateStatus(ctx, suppressID, document.StatusDuplicateSuppressed); err != nil {
			return err
		}

		after := *doc
		after.Status = document.StatusDuplicateSuppressed
		entry, err := audit.NewEntry(actor, audit.ActionSuppressDuplicate, audit.EntityDocument, suppressID,
			doc, struct {
				Document *document.Document     `json:"document"`
				Pair     shared.DuplicateCandidatePair `json:"pair"`
			}{Document: &after, Pair: pair})
		if err != nil {
			return err
		}
		return auditRepo.Record(ctx, entry)
	})
	if err != nil {
		return err
	}

	// Archive after the authoritative commit; archive failures must not undo
	// the suppression.
	if err := d.archive.ArchivePair(ctx, pair, "suppressed", actor); err != nil {
		d.logger.Error("Failed to archive suppressed pair",
			"document_a", pair.DocumentA.String(),
			"document_b", pair.DocumentB.String(),
			"error", err)
	}

	d.logger.Info("Duplicate suppressed",
		"document_id", suppressID.String(),
		"confidence", pair.Confidence,
		"actor", actor)
	return nil
}
