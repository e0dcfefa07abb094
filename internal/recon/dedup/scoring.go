// Package dedup implements duplicate detection over financial documents
// with a pure, signal-based confidence scoring function.
package dedup

import (
	"time"

	"github.com/charterops-recon/internal/domain/document"
	"github.com/charterops-recon/internal/domain/shared"
)

// Confidence bands and thresholds. Pairs below SurfaceThreshold are never
// surfaced; pairs at or above AutoActionThreshold may be auto-flagged, but
// suppression still requires operator confirmation.
const (
	ConfidencePrimary   = 0.95
	ConfidenceSecondary = 0.75
	AutoActionThreshold = 0.80
	SurfaceThreshold    = 0.75

	// multiObligationCap keeps pairs with distinct legitimate bookings below
	// the auto-action threshold so they go to manual review instead.
	multiObligationCap = 0.79

	secondaryAmountTolCents = 100
	secondaryDateWindowDays = 3
)

// BuildSignals derives the comparison signals between two documents. The
// multi-obligation signal is contextual and filled in by the detector.
func BuildSignals(a, b *document.Document) shared.SignalBreakdown {
	amountDelta := a.AmountCents - b.AmountCents
	if amountDelta < 0 {
		amountDelta = -amountDelta
	}

	dateDelta := daysBetween(a.DocDate, b.DocDate)

	return shared.SignalBreakdown{
		ExactAmount:       amountDelta == 0,
		SameDate:          dateDelta == 0,
		AmountDeltaCents:  amountDelta,
		DateDeltaDays:     dateDelta,
		CounterpartyMatch: document.NormalizeCounterparty(a.Counterparty) == document.NormalizeCounterparty(b.Counterparty),
	}
}

// Score maps a signal breakdown to a confidence in [0, 1]. It is monotonic:
// moving the amount or date delta further from an exact match never raises
// the result.
func Score(s shared.SignalBreakdown) float64 {
	var confidence float64

	switch {
	// Primary signal: exact amount on the same calendar date
	case s.ExactAmount && s.SameDate:
		confidence = ConfidencePrimary

	// Secondary signal: near amount, near date, same normalized counterparty
	case s.AmountDeltaCents <= secondaryAmountTolCents &&
		s.DateDeltaDays <= secondaryDateWindowDays &&
		s.CounterpartyMatch:
		confidence = ConfidenceSecondary

	default:
		return 0
	}

	// Contextual downgrade: two real-world obligations of the same amount on
	// the same date are not duplicates of each other.
	if s.MultiObligation && confidence > multiObligationCap {
		confidence = multiObligationCap
	}

	return confidence
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
