package shared

import (
	"time"

	"github.com/google/uuid"
)

// RawRecord is one normalized row of a tabular import. Unknown upstream
// columns land in Metadata so schema drift never fails ingestion.
type RawRecord struct {
	Date         time.Time         `json:"date"`
	Counterparty string            `json:"counterparty"`
	AmountCents  int64             `json:"amount_cents"`
	Description  string            `json:"description"`
	GLCode       string            `json:"gl_code,omitempty"`
	BookingRef   string            `json:"linked_booking_reference,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ImportBatch is a bulk ingestion request, delivered over HTTP or as a Kafka
// message from an external scheduler.
type ImportBatch struct {
	BatchID       uuid.UUID   `json:"batch_id"`
	Source        string      `json:"source"`
	ToleranceDays int         `json:"tolerance_days,omitempty"` // 0 means use the configured default
	CorrelationID string      `json:"correlation_id,omitempty"`
	Records       []RawRecord `json:"records"`
}

// RecordError describes a single failed record within a batch. A record
// failure never rolls back the records committed before it.
type RecordError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// BatchResult is the structured summary every import returns, including on
// partial failure.
type BatchResult struct {
	BatchID           uuid.UUID     `json:"batch_id" bson:"batch_id"`
	Source            string        `json:"source" bson:"source"`
	Inserted          int           `json:"inserted" bson:"inserted"`
	SkippedDuplicates int           `json:"skipped_duplicates" bson:"skipped_duplicates"`
	AutoMatched       int           `json:"auto_matched" bson:"auto_matched"`
	NeedsReview       int           `json:"needs_review" bson:"needs_review"`
	Cancelled         bool          `json:"cancelled,omitempty" bson:"cancelled,omitempty"`
	Errors            []RecordError `json:"errors,omitempty" bson:"errors,omitempty"`
	StartedAt         time.Time     `json:"started_at" bson:"started_at"`
	CompletedAt       time.Time     `json:"completed_at" bson:"completed_at"`
}
