// Package postgres provides PostgreSQL implementations of the domain
// repositories. The ledger store is the authoritative system of record for
// documents, bank transactions, allocation lines, and the audit log.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/charterops-recon/internal/domain/document"
	"github.com/charterops-recon/internal/platform/persistence"
)

const (
	fingerprintConstraint = "financial_documents_fingerprint_key"
	docBankTxnConstraint  = "idx_financial_documents_bank_txn"
)

// DocumentRepository implements the document.Repository interface for PostgreSQL
type DocumentRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewDocumentRepository creates a new PostgreSQL financial document repository
func NewDocumentRepository(logger *slog.Logger, db *persistence.PostgresDB) document.Repository {
	return &DocumentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so multiple repository calls
// commit atomically.
func (r *DocumentRepository) WithTx(tx pgx.Tx) document.Repository {
	return &DocumentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new financial document. The fingerprint unique constraint
// is the idempotency backstop; a violation surfaces as ErrDuplicateFingerprint.
func (r *DocumentRepository) Create(ctx context.Context, doc *document.Document) error {
	query := `
		INSERT INTO financial_documents (id, amount_cents, doc_date, counterparty, bank_txn_id, parent_doc_id, status, fingerprint, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		doc.ID,
		doc.AmountCents,
		doc.DocDate,
		doc.Counterparty,
		doc.BankTxnID,
		doc.ParentDocID,
		doc.Status,
		doc.Fingerprint,
		doc.Description,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == persistence.UniqueViolationCode && pgErr.ConstraintName == fingerprintConstraint {
			return document.ErrDuplicateFingerprint{Fingerprint: doc.Fingerprint}
		}
		r.logger.Error("Failed to create financial document", "error", err)
		return fmt.Errorf("failed to create financial document: %w", err)
	}

	return nil
}

// GetByID retrieves a document by its ID
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	query := selectDocument + ` WHERE id = $1`

	doc, err := r.scanDocument(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, document.ErrDocumentNotFound{DocumentID: id}
		}
		r.logger.Error("Failed to get financial document", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get financial document: %w", err)
	}

	return doc, nil
}

// GetByFingerprint retrieves a document by its content fingerprint.
// Returns (nil, nil) when no document carries the fingerprint.
func (r *DocumentRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*document.Document, error) {
	query := selectDocument + ` WHERE fingerprint = $1`

	doc, err := r.scanDocument(r.querier.QueryRow(ctx, query, fingerprint))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No document with this fingerprint
		}
		r.logger.Error("Failed to get financial document by fingerprint", "fingerprint", fingerprint, "error", err)
		return nil, fmt.Errorf("failed to get financial document by fingerprint: %w", err)
	}

	return doc, nil
}

// ListByStatus retrieves paginated documents in the given status, newest first
func (r *DocumentRepository) ListByStatus(ctx context.Context, status document.Status, limit, offset int) ([]*document.Document, error) {
	query := selectDocument + `
		WHERE status = $1
		ORDER BY doc_date DESC, id
		LIMIT $2 OFFSET $3`

	rows, err := r.querier.Query(ctx, query, status, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list financial documents", "status", string(status), "error", err)
		return nil, fmt.Errorf("failed to list financial documents: %w", err)
	}
	defer rows.Close()

	return r.collectDocuments(rows)
}

// ListUnlinkedNear returns unlinked documents within the date window and
// amount tolerance, excluding the given document. This is the duplicate
// detector's comparison pool.
func (r *DocumentRepository) ListUnlinkedNear(ctx context.Context, excludeID uuid.UUID, docDate time.Time, dayWindow int, amountCents, toleranceCents int64) ([]*document.Document, error) {
	query := selectDocument + `
		WHERE status = $1
		  AND id <> $2
		  AND doc_date BETWEEN $3::date - $4 AND $3::date + $4
		  AND abs(amount_cents - $5) <= $6
		ORDER BY doc_date, id`

	rows, err := r.querier.Query(ctx, query, document.StatusUnlinked, excludeID, docDate, dayWindow, amountCents, toleranceCents)
	if err != nil {
		r.logger.Error("Failed to list unlinked documents near", "error", err)
		return nil, fmt.Errorf("failed to list unlinked documents: %w", err)
	}
	defer rows.Close()

	return r.collectDocuments(rows)
}

// CountUnlinkedCandidates counts unlinked documents that could claim a bank
// transaction of the given date and amount under the matcher's tolerances.
// Used to rank candidates by how contested they are.
func (r *DocumentRepository) CountUnlinkedCandidates(ctx context.Context, txnDate time.Time, amountCents int64, toleranceDays int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM financial_documents
		WHERE status = $1
		  AND doc_date BETWEEN $2::date - $3 AND $2::date + $3
		  AND abs(amount_cents - $4) <= 1
	`

	var count int
	err := r.querier.QueryRow(ctx, query, document.StatusUnlinked, txnDate, toleranceDays, amountCents).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count unlinked candidates", "error", err)
		return 0, fmt.Errorf("failed to count unlinked candidates: %w", err)
	}

	return count, nil
}

// UpdateStatus moves a document to the given status
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status document.Status) error {
	query := `
		UPDATE financial_documents
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update document status", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update document status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return document.ErrDocumentNotFound{DocumentID: id}
	}

	return nil
}

// SetBankLink assigns the bank transaction link and marks the document linked.
// The partial unique index on bank_txn_id rejects a second claimant; that
// race surfaces as ErrBankTxnInUse for the caller to retry or report.
func (r *DocumentRepository) SetBankLink(ctx context.Context, id uuid.UUID, txnID uuid.UUID) error {
	query := `
		UPDATE financial_documents
		SET bank_txn_id = $1, status = $2, updated_at = NOW()
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, txnID, document.StatusLinked, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == persistence.UniqueViolationCode && pgErr.ConstraintName == docBankTxnConstraint {
			return document.ErrBankTxnInUse{TxnID: txnID}
		}
		r.logger.Error("Failed to set bank link", "id", id.String(), "txn_id", txnID.String(), "error", err)
		return fmt.Errorf("failed to set bank link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return document.ErrDocumentNotFound{DocumentID: id}
	}

	return nil
}

// ClearBankLink removes the link and restores the given status
func (r *DocumentRepository) ClearBankLink(ctx context.Context, id uuid.UUID, status document.Status) error {
	query := `
		UPDATE financial_documents
		SET bank_txn_id = NULL, status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to clear bank link", "id", id.String(), "error", err)
		return fmt.Errorf("failed to clear bank link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return document.ErrDocumentNotFound{DocumentID: id}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the document row. Used within a
// transaction by the match and split commit paths.
func (r *DocumentRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	query := selectDocument + `
		WHERE id = $1
		FOR UPDATE`

	doc, err := r.scanDocument(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, document.ErrDocumentNotFound{DocumentID: id}
		}
		r.logger.Error("Failed to lock document for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock document for update: %w", err)
	}

	return doc, nil
}

const selectDocument = `
	SELECT id, amount_cents, doc_date, counterparty, bank_txn_id, parent_doc_id, status, fingerprint, description, created_at, updated_at
	FROM financial_documents`

func (r *DocumentRepository) scanDocument(row pgx.Row) (*document.Document, error) {
	var doc document.Document
	err := row.Scan(
		&doc.ID,
		&doc.AmountCents,
		&doc.DocDate,
		&doc.Counterparty,
		&doc.BankTxnID,
		&doc.ParentDocID,
		&doc.Status,
		&doc.Fingerprint,
		&doc.Description,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) collectDocuments(rows pgx.Rows) ([]*document.Document, error) {
	var docs []*document.Document
	for rows.Next() {
		doc, err := r.scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan financial document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read financial documents: %w", err)
	}
	return docs, nil
}
