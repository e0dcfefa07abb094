package split

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/charterops-recon/internal/domain/allocation"
)

func TestDeriveTaxCents(t *testing.T) {
	tests := []struct {
		name        string
		amountCents int64
		code        allocation.TaxCode
		want        int64
		wantErr     bool
	}{
		{name: "no tax", amountCents: 2200, code: allocation.TaxNone, want: 0},
		{name: "exact division", amountCents: 10500, code: allocation.TaxInclusive5Pct, want: 500},
		{name: "rounds up past half", amountCents: 2200, code: allocation.TaxInclusive5Pct, want: 105},
		{name: "rounds down below half", amountCents: 2110, code: allocation.TaxInclusive5Pct, want: 100},
		{name: "one cent line", amountCents: 1, code: allocation.TaxInclusive5Pct, want: 0},
		{name: "refund mirrors positive", amountCents: -2200, code: allocation.TaxInclusive5Pct, want: -105},
		{name: "unknown code", amountCents: 100, code: allocation.TaxCode("vat-20"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveTaxCents(tt.amountCents, tt.code)
			if tt.wantErr {
				assert.Error(t, err)
				var badCode allocation.InvalidTaxCodeError
				assert.ErrorAs(t, err, &badCode)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDivRoundHalfEven(t *testing.T) {
	tests := []struct {
		name string
		num  int64
		den  int64
		want int64
	}{
		{name: "exact", num: 10, den: 2, want: 5},
		{name: "below half", num: 7, den: 5, want: 1},
		{name: "above half", num: 8, den: 5, want: 2},
		{name: "half rounds to even down", num: 5, den: 2, want: 2},
		{name: "half rounds to even up", num: 7, den: 2, want: 4},
		{name: "negative half rounds to even", num: -5, den: 2, want: -2},
		{name: "negative above half", num: -8, den: 5, want: -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, divRoundHalfEven(tt.num, tt.den))
		})
	}
}

// Derived tax must never break the sum invariant: the parent amount is the
// sum of line amounts, tax included, regardless of rounding.
func TestDeriveTaxCents_NeverExceedsAmount(t *testing.T) {
	for amount := int64(1); amount <= 1000; amount++ {
		tax, err := DeriveTaxCents(amount, allocation.TaxInclusive5Pct)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, tax, int64(0))
		assert.Less(t, tax, amount)
	}
}
