package banktxn

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReconciliationStatus tracks whether a bank ledger line has been matched
type ReconciliationStatus string

const (
	StatusUnreconciled ReconciliationStatus = "unreconciled"
	StatusReconciled   ReconciliationStatus = "reconciled"
	StatusIgnored      ReconciliationStatus = "ignored"
)

var (
	ErrZeroAmount       = errors.New("bank transaction amount cannot be zero")
	ErrZeroDate         = errors.New("bank transaction date cannot be zero")
	ErrEmptyDescription = errors.New("bank transaction description cannot be empty")
)

// Transaction represents one line from an external bank ledger feed.
// Amounts are signed integer cents: credits positive, debits negative.
type Transaction struct {
	ID          uuid.UUID            `json:"id"`
	AmountCents int64                `json:"amount_cents"`
	TxnDate     time.Time            `json:"txn_date"`
	Description string               `json:"description"`
	Status      ReconciliationStatus `json:"reconciliation_status"`
	CreatedAt   time.Time            `json:"created_at"`
}

// New creates an unreconciled bank transaction from a feed line
func New(txnDate time.Time, amountCents int64, description string) (*Transaction, error) {
	if amountCents == 0 {
		return nil, ErrZeroAmount
	}
	if txnDate.IsZero() {
		return nil, ErrZeroDate
	}
	if strings.TrimSpace(description) == "" {
		return nil, ErrEmptyDescription
	}

	return &Transaction{
		ID:          uuid.New(),
		AmountCents: amountCents,
		TxnDate:     txnDate,
		Description: description,
		Status:      StatusUnreconciled,
		CreatedAt:   time.Now(),
	}, nil
}
