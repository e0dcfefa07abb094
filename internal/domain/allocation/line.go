package allocation

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is the closed enum of settlement methods for a line
type PaymentMethod string

const (
	PaymentCash            PaymentMethod = "cash"
	PaymentCheck           PaymentMethod = "check"
	PaymentDebitCard       PaymentMethod = "debit_card"
	PaymentCreditCard      PaymentMethod = "credit_card"
	PaymentBankTransfer    PaymentMethod = "bank_transfer"
	PaymentGiftCard        PaymentMethod = "gift_card"
	PaymentTradeOfServices PaymentMethod = "trade_of_services"
	PaymentUnknown         PaymentMethod = "unknown"
)

// Valid reports whether the method belongs to the closed enum
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCheck, PaymentDebitCard, PaymentCreditCard,
		PaymentBankTransfer, PaymentGiftCard, PaymentTradeOfServices, PaymentUnknown:
		return true
	}
	return false
}

// TaxCode selects the deterministic tax derivation rule for a line.
// Tax is never user-supplied; it is always derived from the line amount.
type TaxCode string

const (
	TaxNone          TaxCode = "no-tax"
	TaxInclusive5Pct TaxCode = "tax-inclusive-5pct"
)

// Valid reports whether the tax code is one of the supported rules
func (t TaxCode) Valid() bool {
	return t == TaxNone || t == TaxInclusive5Pct
}

// Line is one allocation line of a split financial document. Lines are
// immutable once committed; the only removal path is the reverse-split
// compensating flow.
type Line struct {
	ID            uuid.UUID     `json:"id"`
	ParentDocID   uuid.UUID     `json:"parent_doc_id"`
	AmountCents   int64         `json:"amount_cents"`
	GLCode        string        `json:"gl_code"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	TaxCode       TaxCode       `json:"tax_code"`
	TaxCents      int64         `json:"tax_cents"`
	BankTxnID     *uuid.UUID    `json:"bank_txn_id,omitempty"`
	HeldBy        string        `json:"held_by,omitempty"`
	Description   string        `json:"description"`
	CreatedAt     time.Time     `json:"created_at"`
}
