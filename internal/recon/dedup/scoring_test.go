package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/charterops-recon/internal/domain/document"
	"github.com/charterops-recon/internal/domain/shared"
)

func day(dayOfMonth int) time.Time {
	return time.Date(2026, time.March, dayOfMonth, 0, 0, 0, 0, time.UTC)
}

func doc(t *testing.T, counterparty string, date time.Time, amountCents int64) *document.Document {
	t.Helper()
	d, err := document.New(counterparty, date, amountCents, "test")
	assert.NoError(t, err)
	return d
}

func TestBuildSignals(t *testing.T) {
	a := doc(t, "ACME Charters Ltd.", day(10), 45000)
	b := doc(t, "acme charters ltd", day(12), 45075)

	signals := BuildSignals(a, b)

	assert.False(t, signals.ExactAmount)
	assert.False(t, signals.SameDate)
	assert.Equal(t, int64(75), signals.AmountDeltaCents)
	assert.Equal(t, 2, signals.DateDeltaDays)
	assert.True(t, signals.CounterpartyMatch, "punctuation and case must not defeat the comparison")
}

func TestScore(t *testing.T) {
	tests := []struct {
		name    string
		signals shared.SignalBreakdown
		want    float64
	}{
		{
			name:    "primary: exact amount same date",
			signals: shared.SignalBreakdown{ExactAmount: true, SameDate: true},
			want:    ConfidencePrimary,
		},
		{
			name: "secondary: near amount near date same counterparty",
			signals: shared.SignalBreakdown{
				AmountDeltaCents:  75,
				DateDeltaDays:     2,
				CounterpartyMatch: true,
			},
			want: ConfidenceSecondary,
		},
		{
			name: "secondary at the tolerance boundary",
			signals: shared.SignalBreakdown{
				AmountDeltaCents:  100,
				DateDeltaDays:     3,
				CounterpartyMatch: true,
			},
			want: ConfidenceSecondary,
		},
		{
			name: "no match without counterparty agreement",
			signals: shared.SignalBreakdown{
				AmountDeltaCents: 50,
				DateDeltaDays:    1,
			},
			want: 0,
		},
		{
			name: "amount outside secondary tolerance",
			signals: shared.SignalBreakdown{
				AmountDeltaCents:  101,
				DateDeltaDays:     1,
				CounterpartyMatch: true,
			},
			want: 0,
		},
		{
			name: "date outside secondary window",
			signals: shared.SignalBreakdown{
				AmountDeltaCents:  10,
				DateDeltaDays:     4,
				CounterpartyMatch: true,
			},
			want: 0,
		},
		{
			name:    "multi-obligation caps the primary signal below auto-action",
			signals: shared.SignalBreakdown{ExactAmount: true, SameDate: true, MultiObligation: true},
			want:    multiObligationCap,
		},
		{
			name: "multi-obligation leaves the secondary signal alone",
			signals: shared.SignalBreakdown{
				AmountDeltaCents:  10,
				DateDeltaDays:     1,
				CounterpartyMatch: true,
				MultiObligation:   true,
			},
			want: ConfidenceSecondary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.signals), 1e-9)
		})
	}
}

// Two same-day, same-amount documents backed by two real bookings must stay
// below the auto-action threshold so suppression is never automatic.
func TestScore_MultiObligationStaysBelowAutoAction(t *testing.T) {
	signals := shared.SignalBreakdown{ExactAmount: true, SameDate: true, MultiObligation: true}
	assert.Less(t, Score(signals), AutoActionThreshold)
	assert.GreaterOrEqual(t, Score(signals), SurfaceThreshold)
}

// Widening either delta never raises the confidence
func TestScore_Monotonic(t *testing.T) {
	base := shared.SignalBreakdown{ExactAmount: true, SameDate: true, CounterpartyMatch: true}
	prev := Score(base)

	for _, s := range []shared.SignalBreakdown{
		{AmountDeltaCents: 1, DateDeltaDays: 0, CounterpartyMatch: true},
		{AmountDeltaCents: 50, DateDeltaDays: 2, CounterpartyMatch: true},
		{AmountDeltaCents: 101, DateDeltaDays: 2, CounterpartyMatch: true},
	} {
		got := Score(s)
		assert.LessOrEqual(t, got, prev)
		prev = got
	}
}
