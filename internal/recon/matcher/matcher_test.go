package matcher

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/charterops-recon/internal/domain/audit"
	"github.com/charterops-recon/internal/domain/banktxn"
	"github.com/charterops-recon/internal/domain/document"
)

func day(dayOfMonth int) time.Time {
	return time.Date(2026, time.April, dayOfMonth, 0, 0, 0, 0, time.UTC)
}

func testDoc(t *testing.T, date time.Time, amountCents int64) *document.Document {
	t.Helper()
	d, err := document.New("Metro Shuttle Co", date, amountCents, "charter invoice")
	assert.NoError(t, err)
	return d
}

func testTxn(t *testing.T, date time.Time, amountCents int64) *banktxn.Transaction {
	t.Helper()
	txn, err := banktxn.New(date, amountCents, "ACH METRO SHUTTLE")
	assert.NoError(t, err)
	return txn
}

func TestFindCandidates_Tolerances(t *testing.T) {
	doc := testDoc(t, day(10), 45000)

	inWindow := testTxn(t, day(11), 45000)
	centOff := testTxn(t, day(10), 44999)
	twoCentsOff := testTxn(t, day(10), 44998)
	tooLate := testTxn(t, day(13), 45000)
	reconciled := testTxn(t, day(10), 45000)
	reconciled.Status = banktxn.StatusReconciled
	ignored := testTxn(t, day(10), 45000)
	ignored.Status = banktxn.StatusIgnored

	pool := []*banktxn.Transaction{inWindow, centOff, twoCentsOff, tooLate, reconciled, ignored}
	matches := FindCandidates(doc, pool, DefaultToleranceDays)

	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.NotEqual(t, twoCentsOff.ID, m.Txn.ID)
		assert.NotEqual(t, tooLate.ID, m.Txn.ID)
		assert.NotEqual(t, reconciled.ID, m.Txn.ID)
		assert.NotEqual(t, ignored.ID, m.Txn.ID)
	}
}

func TestFindCandidates_RanksDateProximityFirst(t *testing.T) {
	doc := testDoc(t, day(10), 45000)

	sameDay := testTxn(t, day(10), 45000)
	dayOff := testTxn(t, day(11), 45000)
	twoOff := testTxn(t, day(8), 45000)

	matches := FindCandidates(doc, []*banktxn.Transaction{twoOff, dayOff, sameDay}, DefaultToleranceDays)

	require.Len(t, matches, 3)
	assert.Equal(t, sameDay.ID, matches[0].Txn.ID)
	assert.Equal(t, dayOff.ID, matches[1].Txn.ID)
	assert.Equal(t, twoOff.ID, matches[2].Txn.ID)
	assert.False(t, matches[0].Ambiguous)
}

func TestFindCandidates_ExactAmountBeatsCentOff(t *testing.T) {
	doc := testDoc(t, day(10), 45000)

	centOff := testTxn(t, day(10), 45001)
	exact := testTxn(t, day(10), 45000)

	matches := FindCandidates(doc, []*banktxn.Transaction{centOff, exact}, DefaultToleranceDays)

	require.Len(t, matches, 2)
	assert.Equal(t, exact.ID, matches[0].Txn.ID)
	assert.True(t, matches[0].ExactAmount)
	assert.Equal(t, int64(1), matches[1].AmountDeltaCents)
	assert.False(t, matches[0].Ambiguous, "distinct rank keys are not ambiguous")
	assert.True(t, Unambiguous(matches))
}

func TestFindCandidates_EqualRankIsAmbiguous(t *testing.T) {
	doc := testDoc(t, day(10), 45000)

	first := testTxn(t, day(11), 45000)
	second := testTxn(t, day(9), 45000)

	matches := FindCandidates(doc, []*banktxn.Transaction{first, second}, DefaultToleranceDays)

	require.Len(t, matches, 2)
	assert.True(t, matches[0].Ambiguous)
	assert.True(t, matches[1].Ambiguous)
	assert.False(t, Unambiguous(matches))
}

func TestFindCandidates_CompetitionBreaksTies(t *testing.T) {
	doc := testDoc(t, day(10), 45000)

	contested := testTxn(t, day(10), 45000)
	clear := testTxn(t, day(10), 45000)

	matches := rankCandidates(doc, []*banktxn.Transaction{contested, clear}, DefaultToleranceDays, map[uuid.UUID]int{
		contested.ID: 3,
		clear.ID:     1,
	})

	require.Len(t, matches, 2)
	assert.Equal(t, clear.ID, matches[0].Txn.ID)
	assert.Equal(t, 1, matches[0].Competing)
	assert.False(t, matches[0].Ambiguous)
	assert.True(t, Unambiguous(matches))
}

func TestFindCandidates_Deterministic(t *testing.T) {
	doc := testDoc(t, day(10), 45000)

	a := testTxn(t, day(11), 45000)
	b := testTxn(t, day(9), 45000)

	forward := FindCandidates(doc, []*banktxn.Transaction{a, b}, DefaultToleranceDays)
	reversed := FindCandidates(doc, []*banktxn.Transaction{b, a}, DefaultToleranceDays)

	require.Len(t, forward, 2)
	require.Len(t, reversed, 2)
	assert.Equal(t, forward[0].Txn.ID, reversed[0].Txn.ID)
	assert.Equal(t, forward[1].Txn.ID, reversed[1].Txn.ID)
}

func TestFindCandidates_EmptyPool(t *testing.T) {
	doc := testDoc(t, day(10), 45000)
	assert.Empty(t, FindCandidates(doc, nil, DefaultToleranceDays))
	assert.False(t, Unambiguous(nil))
}

// fakeTxRunner runs the transactional closure directly; the repository mocks
// return themselves from WithTx.
type fakeTxRunner struct{}

func (fakeTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type mockDocumentRepository struct {
	mock.Mock
}

func (m *mockDocumentRepository) Create(ctx context.Context, doc *document.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *mockDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *mockDocumentRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*document.Document, error) {
	args := m.Called(ctx, fingerprint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *mockDocumentRepository) ListByStatus(ctx context.Context, status document.Status, limit, offset int) ([]*document.Document, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*document.Document), args.Error(1)
}

func (m *mockDocumentRepository) ListUnlinkedNear(ctx context.Context, excludeID uuid.UUID, docDate time.Time, dayWindow int, amountCents, toleranceCents int64) ([]*document.Document, error) {
	args := m.Called(ctx, excludeID, docDate, dayWindow, amountCents, toleranceCents)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*document.Document), args.Error(1)
}

func (m *mockDocumentRepository) CountUnlinkedCandidates(ctx context.Context, txnDate time.Time, amountCents int64, toleranceDays int) (int, error) {
	args := m.Called(ctx, txnDate, amountCents, toleranceDays)
	return args.Int(0), args.Error(1)
}

func (m *mockDocumentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status document.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockDocumentRepository) SetBankLink(ctx context.Context, id uuid.UUID, txnID uuid.UUID) error {
	args := m.Called(ctx, id, txnID)
	return args.Error(0)
}

func (m *mockDocumentRepository) ClearBankLink(ctx context.Context, id uuid.UUID, status document.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockDocumentRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *mockDocumentRepository) WithTx(tx pgx.Tx) document.Repository {
	return m
}

type mockTxnRepository struct {
	mock.Mock
}

func (m *mockTxnRepository) Create(ctx context.Context, txn *banktxn.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *mockTxnRepository) GetByID(ctx context.Context, id uuid.UUID) (*banktxn.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*banktxn.Transaction), args.Error(1)
}

func (m *mockTxnRepository) ListUnreconciledNear(ctx context.Context, docDate time.Time, toleranceDays int, amountCents, toleranceCents int64) ([]*banktxn.Transaction, error) {
	args := m.Called(ctx, docDate, toleranceDays, amountCents, toleranceCents)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*banktxn.Transaction), args.Error(1)
}

func (m *mockTxnRepository) ListByStatus(ctx context.Context, status banktxn.ReconciliationStatus, limit, offset int) ([]*banktxn.Transaction, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*banktxn.Transaction), args.Error(1)
}

func (m *mockTxnRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status banktxn.ReconciliationStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockTxnRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*banktxn.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*banktxn.Transaction), args.Error(1)
}

func (m *mockTxnRepository) WithTx(tx pgx.Tx) banktxn.Repository {
	return m
}

type mockAuditRepository struct {
	mock.Mock
}

func (m *mockAuditRepository) Record(ctx context.Context, entry *audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockAuditRepository) ListByEntity(ctx context.Context, entityType audit.EntityType, entityID uuid.UUID, limit, offset int) ([]*audit.Entry, error) {
	args := m.Called(ctx, entityType, entityID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Entry), args.Error(1)
}

func (m *mockAuditRepository) WithTx(tx pgx.Tx) audit.Repository {
	return m
}

func newTestMatcher(docs document.Repository, txns banktxn.Repository, audits audit.Repository) *Matcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMatcher(logger, fakeTxRunner{}, docs, txns, audits, DefaultToleranceDays)
}

// Re-committing a pair that is already linked succeeds without touching
// either row again.
func TestCommit_SameLinkIsIdempotent(t *testing.T) {
	docID, txnID := uuid.New(), uuid.New()
	docs := new(mockDocumentRepository)
	txns := new(mockTxnRepository)
	audits := new(mockAuditRepository)

	linked := txnID
	docs.On("LockForUpdate", mock.Anything, docID).Return(&document.Document{
		ID:        docID,
		Status:    document.StatusLinked,
		BankTxnID: &linked,
	}, nil)

	err := newTestMatcher(docs, txns, audits).Commit(context.Background(), docID, txnID, "ops.garcia")

	require.NoError(t, err)
	docs.AssertNotCalled(t, "SetBankLink", mock.Anything, mock.Anything, mock.Anything)
	txns.AssertNotCalled(t, "LockForUpdate", mock.Anything, mock.Anything)
	audits.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestCommit_DifferentLinkIsRejected(t *testing.T) {
	docID, txnID, otherID := uuid.New(), uuid.New(), uuid.New()
	docs := new(mockDocumentRepository)
	txns := new(mockTxnRepository)
	audits := new(mockAuditRepository)

	linked := otherID
	docs.On("LockForUpdate", mock.Anything, docID).Return(&document.Document{
		ID:        docID,
		Status:    document.StatusLinked,
		BankTxnID: &linked,
	}, nil)

	err := newTestMatcher(docs, txns, audits).Commit(context.Background(), docID, txnID, "ops.garcia")

	var already document.AlreadyLinkedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, otherID, already.LinkedTxnID)
	docs.AssertNotCalled(t, "SetBankLink", mock.Anything, mock.Anything, mock.Anything)
}

func TestCommit_ReconciledTransactionIsRejected(t *testing.T) {
	docID, txnID := uuid.New(), uuid.New()
	docs := new(mockDocumentRepository)
	txns := new(mockTxnRepository)
	audits := new(mockAuditRepository)

	docs.On("LockForUpdate", mock.Anything, docID).Return(&document.Document{
		ID:     docID,
		Status: document.StatusUnlinked,
	}, nil)
	txns.On("LockForUpdate", mock.Anything, txnID).Return(&banktxn.Transaction{
		ID:     txnID,
		Status: banktxn.StatusReconciled,
	}, nil)

	err := newTestMatcher(docs, txns, audits).Commit(context.Background(), docID, txnID, "ops.garcia")

	var reconciled banktxn.ErrAlreadyReconciled
	require.ErrorAs(t, err, &reconciled)
	assert.Equal(t, txnID, reconciled.TxnID)
	docs.AssertNotCalled(t, "SetBankLink", mock.Anything, mock.Anything, mock.Anything)
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, daysBetween(day(10), day(10)))
	assert.Equal(t, 2, daysBetween(day(10), day(12)))
	assert.Equal(t, 2, daysBetween(day(12), day(10)))

	// Time-of-day must not leak into the calendar distance
	morning := time.Date(2026, time.April, 10, 1, 0, 0, 0, time.UTC)
	night := time.Date(2026, time.April, 11, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, daysBetween(morning, night))
}
