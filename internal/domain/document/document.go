package document

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Status describes where a document sits in the reconciliation lifecycle
type Status string

const (
	StatusUnlinked            Status = "unlinked"
	StatusLinked              Status = "linked"
	StatusSplitParent         Status = "split_parent"
	StatusSplitChild          Status = "split_child" // reserved: allocation lines are the split children in this schema
	StatusDuplicateSuppressed Status = "duplicate_suppressed"
)

// Common errors
var (
	ErrZeroAmount        = errors.New("document amount cannot be zero")
	ErrEmptyCounterparty = errors.New("counterparty cannot be empty")
	ErrZeroDate          = errors.New("document date cannot be zero")
)

// Document represents a receipt or a payment. Amounts are stored in integer
// cents; receipts are positive, payments negative.
type Document struct {
	ID           uuid.UUID  `json:"id"`
	AmountCents  int64      `json:"amount_cents"`
	DocDate      time.Time  `json:"doc_date"`
	Counterparty string     `json:"counterparty"`
	BankTxnID    *uuid.UUID `json:"bank_txn_id,omitempty"`
	ParentDocID  *uuid.UUID `json:"parent_doc_id,omitempty"`
	Status       Status     `json:"status"`
	Fingerprint  string     `json:"fingerprint"`
	Description  string     `json:"description"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// New creates an unlinked document and derives its content fingerprint
func New(counterparty string, docDate time.Time, amountCents int64, description string) (*Document, error) {
	if strings.TrimSpace(counterparty) == "" {
		return nil, ErrEmptyCounterparty
	}
	if amountCents == 0 {
		return nil, ErrZeroAmount
	}
	if docDate.IsZero() {
		return nil, ErrZeroDate
	}

	now := time.Now()
	return &Document{
		ID:           uuid.New(),
		AmountCents:  amountCents,
		DocDate:      docDate,
		Counterparty: counterparty,
		Status:       StatusUnlinked,
		Fingerprint:  Fingerprint(counterparty, docDate, amountCents),
		Description:  description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeCounterparty lowercases, strips punctuation, and collapses
// whitespace so that "ACME  Charters Ltd." and "acme charters ltd" compare
// equal for fingerprinting and duplicate detection.
func NormalizeCounterparty(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastSpace := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
		// Punctuation is dropped entirely
	}

	return strings.TrimRight(b.String(), " ")
}

// Fingerprint hashes normalized counterparty, calendar date, and amount.
// Identical fingerprints drive idempotent re-import skipping, so the inputs
// must stay stable across runs.
func Fingerprint(counterparty string, docDate time.Time, amountCents int64) string {
	payload := fmt.Sprintf("%s|%s|%d",
		NormalizeCounterparty(counterparty),
		docDate.Format("2006-01-02"),
		amountCents,
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Linked reports whether the document carries a bank transaction link
func (d *Document) Linked() bool {
	return d.BankTxnID != nil
}
