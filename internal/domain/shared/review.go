package shared

import (
	"time"

	"github.com/google/uuid"
)

// ReviewKind classifies a manual-review notification
type ReviewKind string

const (
	// ReviewAmbiguousMatch means two or more equally-ranked bank transaction
	// candidates exist; the engine never tie-breaks these.
	ReviewAmbiguousMatch ReviewKind = "ambiguous_match"

	// ReviewDuplicateCandidate means a duplicate pair needs adjudication
	ReviewDuplicateCandidate ReviewKind = "duplicate_candidate"

	// ReviewMatchConflict means a candidate was lost to a concurrent commit
	// and the retried search found no unambiguous replacement.
	ReviewMatchConflict ReviewKind = "match_conflict"
)

// ReviewNotification is published to the operator review queue. Ambiguity is
// a first-class outcome, not an error.
type ReviewNotification struct {
	Kind            ReviewKind              `json:"kind"`
	BatchID         uuid.UUID               `json:"batch_id,omitempty"`
	DocumentID      uuid.UUID               `json:"document_id"`
	CandidateTxnIDs []uuid.UUID             `json:"candidate_txn_ids,omitempty"`
	Pair            *DuplicateCandidatePair `json:"pair,omitempty"`
	CorrelationID   string                  `json:"correlation_id,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
}
