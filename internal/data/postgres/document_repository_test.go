package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charterops-recon/internal/domain/document"
	"github.com/charterops-recon/internal/platform/persistence"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var documentColumns = []string{
	"id", "amount_cents", "doc_date", "counterparty", "bank_txn_id",
	"parent_doc_id", "status", "fingerprint", "description", "created_at", "updated_at",
}

func newStoredDocument(t *testing.T) *document.Document {
	t.Helper()
	doc, err := document.New("ACME Charters", time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC), 45000, "charter invoice")
	require.NoError(t, err)
	return doc
}

func documentRow(doc *document.Document) *pgxmock.Rows {
	return pgxmock.NewRows(documentColumns).AddRow(
		doc.ID, doc.AmountCents, doc.DocDate, doc.Counterparty, doc.BankTxnID,
		doc.ParentDocID, doc.Status, doc.Fingerprint, doc.Description, doc.CreatedAt, doc.UpdatedAt,
	)
}

func TestDocumentRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &DocumentRepository{querier: mock, logger: newTestLogger()}
	doc := newStoredDocument(t)

	query := `INSERT INTO financial_documents \(id, amount_cents, doc_date, counterparty, bank_txn_id, parent_doc_id, status, fingerprint, description, created_at, updated_at\)\s+VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, \$11\)`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(doc.ID, doc.AmountCents, doc.DocDate, doc.Counterparty, doc.BankTxnID,
				doc.ParentDocID, doc.Status, doc.Fingerprint, doc.Description, doc.CreatedAt, doc.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, doc)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate fingerprint", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(doc.ID, doc.AmountCents, doc.DocDate, doc.Counterparty, doc.BankTxnID,
				doc.ParentDocID, doc.Status, doc.Fingerprint, doc.Description, doc.CreatedAt, doc.UpdatedAt).
			WillReturnError(&pgconn.PgError{
				Code:           persistence.UniqueViolationCode,
				ConstraintName: "financial_documents_fingerprint_key",
			})

		err := repo.Create(ctx, doc)
		var dup document.ErrDuplicateFingerprint
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, doc.Fingerprint, dup.Fingerprint)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(doc.ID, doc.AmountCents, doc.DocDate, doc.Counterparty, doc.BankTxnID,
				doc.ParentDocID, doc.Status, doc.Fingerprint, doc.Description, doc.CreatedAt, doc.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, doc)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create financial document")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDocumentRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &DocumentRepository{querier: mock, logger: newTestLogger()}
	doc := newStoredDocument(t)

	query := `SELECT id, amount_cents, doc_date, counterparty, bank_txn_id, parent_doc_id, status, fingerprint, description, created_at, updated_at\s+FROM financial_documents\s+WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(doc.ID).WillReturnRows(documentRow(doc))

		got, err := repo.GetByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, doc.ID, got.ID)
		assert.Equal(t, doc.Fingerprint, got.Fingerprint)
		assert.Equal(t, document.StatusUnlinked, got.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		missing := uuid.New()
		mock.ExpectQuery(query).WithArgs(missing).WillReturnRows(pgxmock.NewRows(documentColumns))

		_, err := repo.GetByID(ctx, missing)
		var notFound document.ErrDocumentNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, missing, notFound.DocumentID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDocumentRepository_GetByFingerprint(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &DocumentRepository{querier: mock, logger: newTestLogger()}
	doc := newStoredDocument(t)

	query := `SELECT id, amount_cents, doc_date, counterparty, bank_txn_id, parent_doc_id, status, fingerprint, description, created_at, updated_at\s+FROM financial_documents\s+WHERE fingerprint = \$1`

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(doc.Fingerprint).WillReturnRows(documentRow(doc))

		got, err := repo.GetByFingerprint(ctx, doc.Fingerprint)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, doc.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent fingerprint returns nil without error", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("deadbeef").WillReturnRows(pgxmock.NewRows(documentColumns))

		got, err := repo.GetByFingerprint(ctx, "deadbeef")
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDocumentRepository_SetBankLink(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &DocumentRepository{querier: mock, logger: newTestLogger()}
	docID := uuid.New()
	txnID := uuid.New()

	query := `UPDATE financial_documents\s+SET bank_txn_id = \$1, status = \$2, updated_at = NOW\(\)\s+WHERE id = \$3`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(txnID, document.StatusLinked, docID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.SetBankLink(ctx, docID, txnID))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("transaction claimed by another document", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(txnID, document.StatusLinked, docID).
			WillReturnError(&pgconn.PgError{
				Code:           persistence.UniqueViolationCode,
				ConstraintName: "idx_financial_documents_bank_txn",
			})

		err := repo.SetBankLink(ctx, docID, txnID)
		var inUse document.ErrBankTxnInUse
		require.ErrorAs(t, err, &inUse)
		assert.Equal(t, txnID, inUse.TxnID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("document missing", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(txnID, document.StatusLinked, docID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.SetBankLink(ctx, docID, txnID)
		var notFound document.ErrDocumentNotFound
		assert.ErrorAs(t, err, &notFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDocumentRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &DocumentRepository{querier: mock, logger: newTestLogger()}
	docID := uuid.New()

	query := `UPDATE financial_documents\s+SET status = \$1, updated_at = NOW\(\)\s+WHERE id = \$2`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(document.StatusSplitParent, docID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.UpdateStatus(ctx, docID, document.StatusSplitParent))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing document", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(document.StatusSplitParent, docID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, docID, document.StatusSplitParent)
		var notFound document.ErrDocumentNotFound
		assert.ErrorAs(t, err, &notFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDocumentRepository_CountUnlinkedCandidates(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &DocumentRepository{querier: mock, logger: newTestLogger()}
	txnDate := time.Date(2026, time.June, 3, 0, 0, 0, 0, time.UTC)

	query := `SELECT COUNT\(\*\)\s+FROM financial_documents\s+WHERE status = \$1\s+AND doc_date BETWEEN \$2::date - \$3 AND \$2::date \+ \$3\s+AND abs\(amount_cents - \$4\) <= 1`

	mock.ExpectQuery(query).
		WithArgs(document.StatusUnlinked, txnDate, 2, int64(45000)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountUnlinkedCandidates(ctx, txnDate, 45000, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
