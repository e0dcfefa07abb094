package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action is the closed enum of auditable operations
type Action string

const (
	ActionCreate            Action = "create"
	ActionLink              Action = "link"
	ActionUnlink            Action = "unlink"
	ActionSplit             Action = "split"
	ActionReverseSplit      Action = "reverse_split"
	ActionSuppressDuplicate Action = "suppress_duplicate"
	ActionStatusChange      Action = "status_change"
)

// EntityType names the record kind an entry describes
type EntityType string

const (
	EntityDocument        EntityType = "financial_document"
	EntityBankTransaction EntityType = "bank_transaction"
	EntityAllocationLine  EntityType = "allocation_line"
)

// Entry is one append-only audit record. Entries are never updated or
// deleted; compensating operations write new entries that supersede old ones.
type Entry struct {
	ID         uuid.UUID       `json:"id"`
	Actor      string          `json:"actor"`
	Action     Action          `json:"action"`
	EntityType EntityType      `json:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewEntry builds an entry with JSON snapshots of the entity before and after
// the operation. A nil before means the entity did not exist yet.
func NewEntry(actor string, action Action, entityType EntityType, entityID uuid.UUID, before, after any) (*Entry, error) {
	var beforeJSON json.RawMessage
	if before != nil {
		b, err := json.Marshal(before)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal before snapshot: %w", err)
		}
		beforeJSON = b
	}

	afterJSON, err := json.Marshal(after)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal after snapshot: %w", err)
	}

	return &Entry{
		ID:         uuid.New(),
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Before:     beforeJSON,
		After:      afterJSON,
		CreatedAt:  time.Now(),
	}, nil
}
