package service

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/charterops-recon/internal/domain/allocation"
	"github.com/charterops-recon/internal/domain/audit"
	"github.com/charterops-recon/internal/domain/banktxn"
	"github.com/charterops-recon/internal/domain/document"
	"github.com/charterops-recon/internal/domain/shared"
	"github.com/charterops-recon/internal/recon/matcher"
	"github.com/charterops-recon/internal/recon/split"
)

// ImportService defines batch ingestion operations
type ImportService interface {
	// ImportBatch runs a structured batch synchronously and returns its result
	ImportBatch(ctx context.Context, batch *shared.ImportBatch) (*shared.BatchResult, error)

	// ImportCSV parses a tabular upload and imports the parseable rows.
	// Parse-level row errors are folded into the batch result.
	ImportCSV(ctx context.Context, source string, toleranceDays int, correlationID string, r io.Reader) (*shared.BatchResult, error)

	// GetReport returns (nil, nil) when no report exists for the batch
	GetReport(ctx context.Context, batchID uuid.UUID) (*shared.BatchResult, error)

	ListReports(ctx context.Context, limit, offset int) ([]*shared.BatchResult, error)
}

// DocumentService defines read operations over financial documents
type DocumentService interface {
	// GetDocument returns ErrDocumentNotFound if the document doesn't exist
	GetDocument(ctx context.Context, id uuid.UUID) (*document.Document, error)

	ListDocuments(ctx context.Context, status document.Status, page, perPage int) ([]*document.Document, error)

	// GetAuditTrail returns the append-only history of one entity
	GetAuditTrail(ctx context.Context, entityType audit.EntityType, entityID uuid.UUID, page, perPage int) ([]*audit.Entry, error)
}

// MatchService defines reconciliation link operations
type MatchService interface {
	// FindCandidates ranks bank transactions for a document.
	// toleranceDays <= 0 selects the configured default.
	FindCandidates(ctx context.Context, docID uuid.UUID, toleranceDays int) ([]matcher.ScoredMatch, error)

	// Commit links a document to a transaction; idempotent for the same pair
	Commit(ctx context.Context, docID, txnID uuid.UUID, actor string) error

	// Unlink removes an existing link
	Unlink(ctx context.Context, docID uuid.UUID, actor string) error
}

// SplitService defines split allocation operations
type SplitService interface {
	// Split validates and commits allocation lines for a parent document
	Split(ctx context.Context, parentID uuid.UUID, inputs []split.LineInput, actor string) (*split.Plan, error)

	ListLines(ctx context.Context, parentID uuid.UUID) ([]*allocation.Line, error)

	// ReverseSplit removes all lines and restores the parent's pre-split state
	ReverseSplit(ctx context.Context, parentID uuid.UUID, actor string) error
}

// DuplicateService defines duplicate screening and resolution operations
type DuplicateService interface {
	// ScanDocument surfaces duplicate candidate pairs for one document
	ScanDocument(ctx context.Context, docID uuid.UUID) ([]shared.DuplicateCandidatePair, error)

	// Suppress marks one side of a confirmed pair as a duplicate
	Suppress(ctx context.Context, suppressID uuid.UUID, pair shared.DuplicateCandidatePair, actor string) error
}

// BankFeedService defines bank ledger feed operations
type BankFeedService interface {
	// Ingest stores feed lines as unreconciled transactions and returns how
	// many were stored.
	Ingest(ctx context.Context, txns []*banktxn.Transaction, actor string) (int, error)

	GetTransaction(ctx context.Context, id uuid.UUID) (*banktxn.Transaction, error)

	ListTransactions(ctx context.Context, status banktxn.ReconciliationStatus, page, perPage int) ([]*banktxn.Transaction, error)

	// SetStatus moves a transaction between unreconciled and ignored
	SetStatus(ctx context.Context, id uuid.UUID, status banktxn.ReconciliationStatus, actor string) error
}
