package shared

import (
	"time"

	"github.com/google/uuid"
)

// SignalBreakdown enumerates the named signals that fed a confidence score,
// so resolution decisions carry their rationale into the audit log.
type SignalBreakdown struct {
	ExactAmount       bool  `json:"exact_amount" bson:"exact_amount"`
	SameDate          bool  `json:"same_date" bson:"same_date"`
	AmountDeltaCents  int64 `json:"amount_delta_cents" bson:"amount_delta_cents"`
	DateDeltaDays     int   `json:"date_delta_days" bson:"date_delta_days"`
	CounterpartyMatch bool  `json:"counterparty_match" bson:"counterparty_match"`

	// MultiObligation is set when each document is individually explainable by
	// a distinct real-world booking of that amount on that date, which caps the
	// confidence below the auto-action threshold.
	MultiObligation bool `json:"multi_obligation" bson:"multi_obligation"`
}

// DuplicateCandidatePair is a derived, non-authoritative record driving
// duplicate resolution. It is discarded or archived once resolved.
type DuplicateCandidatePair struct {
	DocumentA  uuid.UUID       `json:"document_a" bson:"document_a"`
	DocumentB  uuid.UUID       `json:"document_b" bson:"document_b"`
	Confidence float64         `json:"confidence" bson:"confidence"`
	Signals    SignalBreakdown `json:"signals" bson:"signals"`
	DetectedAt time.Time       `json:"detected_at" bson:"detected_at"`
}
