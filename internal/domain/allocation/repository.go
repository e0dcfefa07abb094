package allocation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines allocation line persistence operations. Lines are only
// ever inserted by a split commit and deleted by a reverse-split; there is no
// in-place update.
type Repository interface {
	CreateBatch(ctx context.Context, lines []*Line) error
	ListByParent(ctx context.Context, parentDocID uuid.UUID) ([]*Line, error)
	CountByParent(ctx context.Context, parentDocID uuid.UUID) (int, error)
	DeleteByParent(ctx context.Context, parentDocID uuid.UUID) (int, error)
	WithTx(tx pgx.Tx) Repository
}

// SumMismatchError indicates the proposed lines do not reconstruct the parent
// amount exactly. Amounts are integer cents.
type SumMismatchError struct {
	ExpectedCents int64
	ActualCents   int64
}

func (e SumMismatchError) Error() string {
	return fmt.Sprintf("allocation lines sum to %d cents but parent amount is %d cents", e.ActualCents, e.ExpectedCents)
}

// InvalidGLCodeError indicates a line named a GL code missing from the chart
// of accounts (or left it empty).
type InvalidGLCodeError struct {
	GLCode string
}

func (e InvalidGLCodeError) Error() string {
	if e.GLCode == "" {
		return "allocation line is missing a GL code"
	}
	return "unknown GL code: " + e.GLCode
}

// InvalidPaymentMethodError indicates a payment method outside the closed enum
type InvalidPaymentMethodError struct {
	Method PaymentMethod
}

func (e InvalidPaymentMethodError) Error() string {
	return "invalid payment method: " + string(e.Method)
}

// InvalidTaxCodeError indicates an unsupported tax derivation code
type InvalidTaxCodeError struct {
	Code TaxCode
}

func (e InvalidTaxCodeError) Error() string {
	return "invalid tax code: " + string(e.Code)
}

// AlreadySplitError indicates the parent already has allocation lines; the
// caller must reverse the existing split first.
type AlreadySplitError struct {
	ParentDocID uuid.UUID
}

func (e AlreadySplitError) Error() string {
	return "document already split: " + e.ParentDocID.String()
}

// BankLinkConflictError indicates the designated bank-link lines do not
// resolve to exactly one carrier for the parent's existing link.
type BankLinkConflictError struct {
	ParentDocID uuid.UUID
	Designated  int
}

func (e BankLinkConflictError) Error() string {
	return fmt.Sprintf("bank link for document %s must be carried by exactly one line, %d designated", e.ParentDocID.String(), e.Designated)
}
