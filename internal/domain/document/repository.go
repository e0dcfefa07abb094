package document

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines financial document persistence operations
type Repository interface {
	Create(ctx context.Context, doc *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)

	// GetByFingerprint returns (nil, nil) when no document carries the fingerprint
	GetByFingerprint(ctx context.Context, fingerprint string) (*Document, error)

	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Document, error)

	// ListUnlinkedNear returns unlinked documents within the given date window
	// and amount tolerance, excluding the document itself. Used by the
	// duplicate detector to build its comparison pool.
	ListUnlinkedNear(ctx context.Context, excludeID uuid.UUID, docDate time.Time, dayWindow int, amountCents, toleranceCents int64) ([]*Document, error)

	// CountUnlinkedCandidates counts unlinked documents that could claim a bank
	// transaction of the given date/amount under the matcher's tolerances.
	CountUnlinkedCandidates(ctx context.Context, txnDate time.Time, amountCents int64, toleranceDays int) (int, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error

	// SetBankLink assigns the bank transaction link and moves the document to
	// the linked status. The partial unique index on bank_txn_id is the
	// authoritative backstop against two documents claiming one transaction.
	SetBankLink(ctx context.Context, id uuid.UUID, txnID uuid.UUID) error

	// ClearBankLink removes the link and restores the given status
	ClearBankLink(ctx context.Context, id uuid.UUID, status Status) error

	// LockForUpdate acquires a row lock for commit paths that serialize access
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Document, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrDocumentNotFound indicates a missing document
type ErrDocumentNotFound struct {
	DocumentID uuid.UUID
}

func (e ErrDocumentNotFound) Error() string {
	return "financial document not found: " + e.DocumentID.String()
}

// ErrDuplicateFingerprint indicates the fingerprint uniqueness constraint
// rejected an insert; re-imports treat this as a skip, not a failure.
type ErrDuplicateFingerprint struct {
	Fingerprint string
}

func (e ErrDuplicateFingerprint) Error() string {
	return "document with fingerprint already exists: " + e.Fingerprint
}

// ErrBankTxnInUse indicates the one-document-per-transaction index rejected a
// link because another document already claimed the transaction.
type ErrBankTxnInUse struct {
	TxnID uuid.UUID
}

func (e ErrBankTxnInUse) Error() string {
	return "bank transaction already claimed by another document: " + e.TxnID.String()
}

// AlreadyLinkedError indicates a commit against a document that carries a
// different bank transaction link.
type AlreadyLinkedError struct {
	DocumentID  uuid.UUID
	LinkedTxnID uuid.UUID
}

func (e AlreadyLinkedError) Error() string {
	return "document " + e.DocumentID.String() + " is already linked to bank transaction " + e.LinkedTxnID.String()
}
