// Package matcher links financial documents to bank ledger transactions via
// tolerance-based candidate search and an explicit, idempotent commit.
package matcher

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/charterops-recon/internal/domain/audit"
	"github.com/charterops-recon/internal/domain/banktxn"
	"github.com/charterops-recon/internal/domain/document"
	"github.com/charterops-recon/internal/platform/persistence"
)

// AmountToleranceCents is the fixed amount tolerance for candidates: one
// cent, covering rounding drift between feeds.
const AmountToleranceCents = 1

// DefaultToleranceDays is the default date window; import sources with slow
// settlement (ACH) override it per batch.
const DefaultToleranceDays = 2

var (
	ErrNotLinkable = errors.New("document cannot be linked in its current status")
	ErrNotLinked   = errors.New("document has no bank transaction link")
	ErrTxnIgnored  = errors.New("bank transaction is marked ignored")
)

// ScoredMatch is one ranked candidate for a document
type ScoredMatch struct {
	Txn              *banktxn.Transaction `json:"txn"`
	DateDeltaDays    int                  `json:"date_delta_days"`
	AmountDeltaCents int64                `json:"amount_delta_cents"`
	ExactAmount      bool                 `json:"exact_amount"`

	// Competing counts unlinked documents that could also claim this
	// transaction; less contested candidates rank higher.
	Competing int `json:"competing"`

	// Ambiguous is set when another candidate ranks equally; ambiguous
	// candidates are surfaced for manual resolution, never auto-committed.
	Ambiguous bool `json:"ambiguous"`
}

func (m *ScoredMatch) rankKey() [3]int {
	exact := 1
	if m.ExactAmount {
		exact = 0
	}
	return [3]int{m.DateDeltaDays, exact, m.Competing}
}

// FindCandidates ranks the pool against the document. It is a pure function
// of its inputs: read-only, deterministic, no state mutation. Candidates must
// be within AmountToleranceCents and toleranceDays; already-reconciled
// transactions are skipped. Ranking is by date proximity, then exact-amount
// before cent-off, then fewer competing documents.
func FindCandidates(doc *document.Document, pool []*banktxn.Transaction, toleranceDays int) []ScoredMatch {
	return rankCandidates(doc, pool, toleranceDays, nil)
}

func rankCandidates(doc *document.Document, pool []*banktxn.Transaction, toleranceDays int, competing map[uuid.UUID]int) []ScoredMatch {
	var matches []ScoredMatch

	for _, txn := range pool {
		if txn.Status != banktxn.StatusUnreconciled {
			continue
		}

		amountDelta := doc.AmountCents - txn.AmountCents
		if amountDelta < 0 {
			amountDelta = -amountDelta
		}
		if amountDelta > AmountToleranceCents {
			continue
		}

		dateDelta := daysBetween(doc.DocDate, txn.TxnDate)
		if dateDelta > toleranceDays {
			continue
		}

		matches = append(matches, ScoredMatch{
			Txn:              txn,
			DateDeltaDays:    dateDelta,
			AmountDeltaCents: amountDelta,
			ExactAmount:      amountDelta == 0,
			Competing:        competing[txn.ID],
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		ki, kj := matches[i].rankKey(), matches[j].rankKey()
		if ki != kj {
			for n := range ki {
				if ki[n] != kj[n] {
					return ki[n] < kj[n]
				}
			}
		}
		// Stable order for equally-ranked candidates; equality itself is
		// reported through the Ambiguous flag, never silently tie-broken.
		return matches[i].Txn.ID.String() < matches[j].Txn.ID.String()
	})

	for i := range matches {
		for j := range matches {
			if i != j && matches[i].rankKey() == matches[j].rankKey() {
				matches[i].Ambiguous = true
				break
			}
		}
	}

	return matches
}

// Unambiguous reports whether the ranked list has a single clear winner
func Unambiguous(matches []ScoredMatch) bool {
	if len(matches) == 0 {
		return false
	}
	return !matches[0].Ambiguous
}

// Matcher proposes and commits reconciliation links
type Matcher struct {
	pgDB          persistence.TxRunner
	docRepo       document.Repository
	txnRepo       banktxn.Repository
	auditRepo     audit.Repository
	toleranceDays int
	logger        *slog.Logger
}

// NewMatcher creates a matcher with the configured default date tolerance
func NewMatcher(
	logger *slog.Logger,
	pgDB persistence.TxRunner,
	docRepo document.Repository,
	txnRepo banktxn.Repository,
	auditRepo audit.Repository,
	toleranceDays int,
) *Matcher {
	if toleranceDays <= 0 {
		toleranceDays = DefaultToleranceDays
	}
	return &Matcher{
		pgDB:          pgDB,
		docRepo:       docRepo,
		txnRepo:       txnRepo,
		auditRepo:     auditRepo,
		toleranceDays: toleranceDays,
		logger:        logger,
	}
}

// FindCandidatesForDocument loads the unreconciled pool around the document
// and ranks it, filling in per-transaction competition counts.
// toleranceDays <= 0 selects the configured default.
func (m *Matcher) FindCandidatesForDocument(ctx context.Context, docID uuid.UUID, toleranceDays int) ([]ScoredMatch, error) {
	if toleranceDays <= 0 {
		toleranceDays = m.toleranceDays
	}

	doc, err := m.docRepo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	pool, err := m.txnRepo.ListUnreconciledNear(ctx, doc.DocDate, toleranceDays, doc.AmountCents, AmountToleranceCents)
	if err != nil {
		return nil, err
	}

	competing := make(map[uuid.UUID]int, len(pool))
	for _, txn := range pool {
		count, err := m.docRepo.CountUnlinkedCandidates(ctx, txn.TxnDate, txn.AmountCents, toleranceDays)
		if err != nil {
			return nil, err
		}
		competing[txn.ID] = count
	}

	return rankCandidates(doc, pool, toleranceDays, competing), nil
}

// Commit atomically links a document to a bank transaction. Re-committing
// the same pair is a no-op; committing a document that carries a different
// link fails with AlreadyLinkedError. Both rows are locked, statuses
// transition in one transaction, and a link audit entry is written.
func (m *Matcher) Commit(ctx context.Context, docID, txnID uuid.UUID, actor string) error {
	return m.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		docs := m.docRepo.WithTx(tx)
		txns := m.txnRepo.WithTx(tx)
		auditRepo := m.auditRepo.WithTx(tx)

		doc, err := docs.LockForUpdate(ctx, docID)
		if err != nil {
			return err
		}

		if doc.BankTxnID != nil {
			if *doc.BankTxnID == txnID {
				return nil // Idempotent re-commit
			}
			return document.AlreadyLinkedError{DocumentID: docID, LinkedTxnID: *doc.BankTxnID}
		}
		if doc.Status != document.StatusUnlinked {
			return ErrNotLinkable
		}

		txn, err := txns.LockForUpdate(ctx, txnID)
		if err != nil {
			return err
		}
		switch txn.Status {
		case banktxn.StatusReconciled:
			return banktxn.ErrAlreadyReconciled{TxnID: txnID}
		case banktxn.StatusIgnored:
			return ErrTxnIgnored
		}

		if err := docs.SetBankLink(ctx, docID, txnID); err != nil {
			return err
		}
		if err := txns.UpdateStatus(ctx, txnID, banktxn.StatusReconciled); err != nil {
			return err
		}

		after := *doc
		after.BankTxnID = &txnID
		after.Status = document.StatusLinked
		entry, err := audit.NewEntry(actor, audit.ActionLink, audit.EntityDocument, docID, doc, &after)
		if err != nil {
			return err
		}
		if err := auditRepo.Record(ctx, entry); err != nil {
			return err
		}

		m.logger.Info("Reconciliation link committed",
			"document_id", docID.String(),
			"txn_id", txnID.String(),
			"amount_cents", doc.AmountCents)
		return nil
	})
}

// Unlink reverses a committed link, returning both records to their
// unmatched statuses with an unlink audit entry.
func (m *Matcher) Unlink(ctx context.Context, docID uuid.UUID, actor string) error {
	return m.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		docs := m.docRepo.WithTx(tx)
		txns := m.txnRepo.WithTx(tx)
		auditRepo := m.auditRepo.WithTx(tx)

		doc, err := docs.LockForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if doc.BankTxnID == nil {
			return ErrNotLinked
		}
		txnID := *doc.BankTxnID

		if err := docs.ClearBankLink(ctx, docID, document.StatusUnlinked); err != nil {
			return err
		}
		if err := txns.UpdateStatus(ctx, txnID, banktxn.StatusUnreconciled); err != nil {
			return err
		}

		after := *doc
		after.BankTxnID = nil
		after.Status = document.StatusUnlinked
		entry, err := audit.NewEntry(actor, audit.ActionUnlink, audit.EntityDocument, docID, doc, &after)
		if err != nil {
			return err
		}
		if err := auditRepo.Record(ctx, entry); err != nil {
			return err
		}

		m.logger.Info("Reconciliation link removed",
			"document_id", docID.String(),
			"txn_id", txnID.String())
		return nil
	})
}

// daysBetween returns the absolute whole-day distance between calendar dates
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	au := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	bu := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)

	days := int(au.Sub(bu).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}
