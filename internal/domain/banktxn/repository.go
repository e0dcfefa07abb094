package banktxn

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines bank transaction persistence operations
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// ListUnreconciledNear returns the matcher's candidate pool: unreconciled
	// transactions within the date window around docDate whose amount is
	// within toleranceCents of amountCents.
	ListUnreconciledNear(ctx context.Context, docDate time.Time, toleranceDays int, amountCents, toleranceCents int64) ([]*Transaction, error)

	ListByStatus(ctx context.Context, status ReconciliationStatus, limit, offset int) ([]*Transaction, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status ReconciliationStatus) error

	// LockForUpdate acquires a row lock so only one concurrent commit can win
	// a contested transaction.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Transaction, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates a missing bank transaction
type ErrTransactionNotFound struct {
	TxnID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "bank transaction not found: " + e.TxnID.String()
}

// ErrAlreadyReconciled indicates the transaction is already linked elsewhere
type ErrAlreadyReconciled struct {
	TxnID uuid.UUID
}

func (e ErrAlreadyReconciled) Error() string {
	return "bank transaction already reconciled: " + e.TxnID.String()
}
