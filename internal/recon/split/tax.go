package split

import (
	"github.com/charterops-recon/internal/domain/allocation"
)

// DeriveTaxCents computes the tax component of a line amount from its tax
// code. Tax is never user-supplied; deriving it keeps the parent-to-children
// sum invariant exact.
//
// tax-inclusive-5pct: tax = amount * 5 / 105, rounded to the cent with
// banker's rounding. no-tax: 0.
func DeriveTaxCents(amountCents int64, code allocation.TaxCode) (int64, error) {
	switch code {
	case allocation.TaxNone:
		return 0, nil
	case allocation.TaxInclusive5Pct:
		return divRoundHalfEven(amountCents*5, 105), nil
	default:
		return 0, allocation.InvalidTaxCodeError{Code: code}
	}
}

// divRoundHalfEven divides num by den (den > 0) rounding half to even.
// Works on the magnitude so negative amounts (refunds) round symmetrically.
func divRoundHalfEven(num, den int64) int64 {
	neg := num < 0
	if neg {
		num = -num
	}

	q := num / den
	r := num % den

	switch {
	case 2*r > den:
		q++
	case 2*r == den && q%2 != 0:
		q++
	}

	if neg {
		return -q
	}
	return q
}
