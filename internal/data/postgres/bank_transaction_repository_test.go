package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charterops-recon/internal/domain/banktxn"
)

var bankTxnColumns = []string{"id", "amount_cents", "txn_date", "description", "reconciliation_status", "created_at"}

func newStoredTransaction(t *testing.T) *banktxn.Transaction {
	t.Helper()
	txn, err := banktxn.New(time.Date(2026, time.June, 3, 0, 0, 0, 0, time.UTC), 45000, "ACH ACME CHARTERS")
	require.NoError(t, err)
	return txn
}

func bankTxnRow(txn *banktxn.Transaction) *pgxmock.Rows {
	return pgxmock.NewRows(bankTxnColumns).
		AddRow(txn.ID, txn.AmountCents, txn.TxnDate, txn.Description, txn.Status, txn.CreatedAt)
}

func TestBankTransactionRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BankTransactionRepository{querier: mock, logger: newTestLogger()}
	txn := newStoredTransaction(t)

	query := `INSERT INTO bank_transactions \(id, amount_cents, txn_date, description, reconciliation_status, created_at\)\s+VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\)`

	mock.ExpectExec(query).
		WithArgs(txn.ID, txn.AmountCents, txn.TxnDate, txn.Description, txn.Status, txn.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(ctx, txn))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBankTransactionRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BankTransactionRepository{querier: mock, logger: newTestLogger()}
	txn := newStoredTransaction(t)

	query := `SELECT id, amount_cents, txn_date, description, reconciliation_status, created_at\s+FROM bank_transactions\s+WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(txn.ID).WillReturnRows(bankTxnRow(txn))

		got, err := repo.GetByID(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, txn.ID, got.ID)
		assert.Equal(t, banktxn.StatusUnreconciled, got.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		missing := uuid.New()
		mock.ExpectQuery(query).WithArgs(missing).WillReturnRows(pgxmock.NewRows(bankTxnColumns))

		_, err := repo.GetByID(ctx, missing)
		var notFound banktxn.ErrTransactionNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, missing, notFound.TxnID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBankTransactionRepository_ListUnreconciledNear(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BankTransactionRepository{querier: mock, logger: newTestLogger()}
	first := newStoredTransaction(t)
	second := newStoredTransaction(t)
	docDate := time.Date(2026, time.June, 3, 0, 0, 0, 0, time.UTC)

	query := `SELECT id, amount_cents, txn_date, description, reconciliation_status, created_at\s+FROM bank_transactions\s+WHERE reconciliation_status = \$1\s+AND txn_date BETWEEN \$2::date - \$3 AND \$2::date \+ \$3\s+AND abs\(amount_cents - \$4\) <= \$5\s+ORDER BY txn_date, id`

	mock.ExpectQuery(query).
		WithArgs(banktxn.StatusUnreconciled, docDate, 2, int64(45000), int64(1)).
		WillReturnRows(pgxmock.NewRows(bankTxnColumns).
			AddRow(first.ID, first.AmountCents, first.TxnDate, first.Description, first.Status, first.CreatedAt).
			AddRow(second.ID, second.AmountCents, second.TxnDate, second.Description, second.Status, second.CreatedAt))

	pool, err := repo.ListUnreconciledNear(ctx, docDate, 2, 45000, 1)
	require.NoError(t, err)
	require.Len(t, pool, 2)
	assert.Equal(t, first.ID, pool[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBankTransactionRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BankTransactionRepository{querier: mock, logger: newTestLogger()}
	txnID := uuid.New()

	query := `UPDATE bank_transactions\s+SET reconciliation_status = \$1\s+WHERE id = \$2`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(banktxn.StatusReconciled, txnID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.UpdateStatus(ctx, txnID, banktxn.StatusReconciled))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing transaction", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(banktxn.StatusIgnored, txnID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, txnID, banktxn.StatusIgnored)
		var notFound banktxn.ErrTransactionNotFound
		assert.ErrorAs(t, err, &notFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
