package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/charterops-recon/internal/domain/allocation"
	"github.com/charterops-recon/internal/domain/document"
	"github.com/charterops-recon/internal/platform/persistence"
)

const lineBankTxnConstraint = "idx_allocation_lines_bank_txn"

// AllocationRepository implements the allocation.Repository interface for
// PostgreSQL. Lines are insert-only; the sole delete path is DeleteByParent,
// called from the reverse-split compensating flow.
type AllocationRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAllocationRepository creates a new PostgreSQL allocation line repository
func NewAllocationRepository(logger *slog.Logger, db *persistence.PostgresDB) allocation.Repository {
	return &AllocationRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *AllocationRepository) WithTx(tx pgx.Tx) allocation.Repository {
	return &AllocationRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// CreateBatch inserts all lines of a committed split
func (r *AllocationRepository) CreateBatch(ctx context.Context, lines []*allocation.Line) error {
	query := `
		INSERT INTO allocation_lines (id, parent_doc_id, amount_cents, gl_code, payment_method, tax_code, tax_cents, bank_txn_id, held_by, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for _, line := range lines {
		_, err := r.querier.Exec(ctx, query,
			line.ID,
			line.ParentDocID,
			line.AmountCents,
			line.GLCode,
			line.PaymentMethod,
			line.TaxCode,
			line.TaxCents,
			line.BankTxnID,
			line.HeldBy,
			line.Description,
			line.CreatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == persistence.UniqueViolationCode && pgErr.ConstraintName == lineBankTxnConstraint {
				if line.BankTxnID != nil {
					return document.ErrBankTxnInUse{TxnID: *line.BankTxnID}
				}
			}
			r.logger.Error("Failed to create allocation line", "parent_doc_id", line.ParentDocID.String(), "error", err)
			return fmt.Errorf("failed to create allocation line: %w", err)
		}
	}

	return nil
}

// ListByParent retrieves all allocation lines of a split document
func (r *AllocationRepository) ListByParent(ctx context.Context, parentDocID uuid.UUID) ([]*allocation.Line, error) {
	query := `
		SELECT id, parent_doc_id, amount_cents, gl_code, payment_method, tax_code, tax_cents, bank_txn_id, held_by, description, created_at
		FROM allocation_lines
		WHERE parent_doc_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.querier.Query(ctx, query, parentDocID)
	if err != nil {
		r.logger.Error("Failed to list allocation lines", "parent_doc_id", parentDocID.String(), "error", err)
		return nil, fmt.Errorf("failed to list allocation lines: %w", err)
	}
	defer rows.Close()

	var lines []*allocation.Line
	for rows.Next() {
		var line allocation.Line
		err := rows.Scan(
			&line.ID,
			&line.ParentDocID,
			&line.AmountCents,
			&line.GLCode,
			&line.PaymentMethod,
			&line.TaxCode,
			&line.TaxCents,
			&line.BankTxnID,
			&line.HeldBy,
			&line.Description,
			&line.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation line: %w", err)
		}
		lines = append(lines, &line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read allocation lines: %w", err)
	}

	return lines, nil
}

// CountByParent counts a document's allocation lines
func (r *AllocationRepository) CountByParent(ctx context.Context, parentDocID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM allocation_lines WHERE parent_doc_id = $1`

	var count int
	if err := r.querier.QueryRow(ctx, query, parentDocID).Scan(&count); err != nil {
		r.logger.Error("Failed to count allocation lines", "parent_doc_id", parentDocID.String(), "error", err)
		return 0, fmt.Errorf("failed to count allocation lines: %w", err)
	}

	return count, nil
}

// DeleteByParent removes all lines of a split. Only the reverse-split
// compensating flow calls this; there is no single-line delete.
func (r *AllocationRepository) DeleteByParent(ctx context.Context, parentDocID uuid.UUID) (int, error) {
	query := `DELETE FROM allocation_lines WHERE parent_doc_id = $1`

	result, err := r.querier.Exec(ctx, query, parentDocID)
	if err != nil {
		r.logger.Error("Failed to delete allocation lines", "parent_doc_id", parentDocID.String(), "error", err)
		return 0, fmt.Errorf("failed to delete allocation lines: %w", err)
	}

	return int(result.RowsAffected()), nil
}
