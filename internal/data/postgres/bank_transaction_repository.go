package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/charterops-recon/internal/domain/banktxn"
	"github.com/charterops-recon/internal/platform/persistence"
)

// BankTransactionRepository implements the banktxn.Repository interface for PostgreSQL
type BankTransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewBankTransactionRepository creates a new PostgreSQL bank transaction repository
func NewBankTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) banktxn.Repository {
	return &BankTransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *BankTransactionRepository) WithTx(tx pgx.Tx) banktxn.Repository {
	return &BankTransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new bank transaction from the external ledger feed
func (r *BankTransactionRepository) Create(ctx context.Context, txn *banktxn.Transaction) error {
	query := `
		INSERT INTO bank_transactions (id, amount_cents, txn_date, description, reconciliation_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query,
		txn.ID,
		txn.AmountCents,
		txn.TxnDate,
		txn.Description,
		txn.Status,
		txn.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create bank transaction", "error", err)
		return fmt.Errorf("failed to create bank transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a bank transaction by its ID
func (r *BankTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*banktxn.Transaction, error) {
	query := selectBankTransaction + ` WHERE id = $1`

	txn, err := r.scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, banktxn.ErrTransactionNotFound{TxnID: id}
		}
		r.logger.Error("Failed to get bank transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get bank transaction: %w", err)
	}

	return txn, nil
}

// ListUnreconciledNear returns the matcher's candidate pool: unreconciled
// transactions inside the date window whose amount is within tolerance.
// Already-reconciled transactions never appear as candidates.
func (r *BankTransactionRepository) ListUnreconciledNear(ctx context.Context, docDate time.Time, toleranceDays int, amountCents, toleranceCents int64) ([]*banktxn.Transaction, error) {
	query := selectBankTransaction + `
		WHERE reconciliation_status = $1
		  AND txn_date BETWEEN $2::date - $3 AND $2::date + $3
		  AND abs(amount_cents - $4) <= $5
		ORDER BY txn_date, id`

	rows, err := r.querier.Query(ctx, query, banktxn.StatusUnreconciled, docDate, toleranceDays, amountCents, toleranceCents)
	if err != nil {
		r.logger.Error("Failed to list unreconciled transactions", "error", err)
		return nil, fmt.Errorf("failed to list unreconciled transactions: %w", err)
	}
	defer rows.Close()

	return r.collectTransactions(rows)
}

// ListByStatus retrieves paginated bank transactions in the given status
func (r *BankTransactionRepository) ListByStatus(ctx context.Context, status banktxn.ReconciliationStatus, limit, offset int) ([]*banktxn.Transaction, error) {
	query := selectBankTransaction + `
		WHERE reconciliation_status = $1
		ORDER BY txn_date DESC, id
		LIMIT $2 OFFSET $3`

	rows, err := r.querier.Query(ctx, query, status, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list bank transactions", "status", string(status), "error", err)
		return nil, fmt.Errorf("failed to list bank transactions: %w", err)
	}
	defer rows.Close()

	return r.collectTransactions(rows)
}

// UpdateStatus moves a bank transaction to the given reconciliation status
func (r *BankTransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status banktxn.ReconciliationStatus) error {
	query := `
		UPDATE bank_transactions
		SET reconciliation_status = $1
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update bank transaction status", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update bank transaction status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return banktxn.ErrTransactionNotFound{TxnID: id}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the transaction row so only one
// concurrent commit can win a contested transaction.
func (r *BankTransactionRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*banktxn.Transaction, error) {
	query := selectBankTransaction + `
		WHERE id = $1
		FOR UPDATE`

	txn, err := r.scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, banktxn.ErrTransactionNotFound{TxnID: id}
		}
		r.logger.Error("Failed to lock bank transaction for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock bank transaction for update: %w", err)
	}

	return txn, nil
}

const selectBankTransaction = `
	SELECT id, amount_cents, txn_date, description, reconciliation_status, created_at
	FROM bank_transactions`

func (r *BankTransactionRepository) scanTransaction(row pgx.Row) (*banktxn.Transaction, error) {
	var txn banktxn.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.AmountCents,
		&txn.TxnDate,
		&txn.Description,
		&txn.Status,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *BankTransactionRepository) collectTransactions(rows pgx.Rows) ([]*banktxn.Transaction, error) {
	var txns []*banktxn.Transaction
	for rows.Next() {
		txn, err := r.scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bank transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bank transactions: %w", err)
	}
	return txns, nil
}
