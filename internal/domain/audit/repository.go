package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository records and reads audit entries. The table is append-only;
// implementations expose INSERT and SELECT only.
type Repository interface {
	Record(ctx context.Context, entry *Entry) error
	ListByEntity(ctx context.Context, entityType EntityType, entityID uuid.UUID, limit, offset int) ([]*Entry, error)

	// WithTx binds the recorder to the mutating transaction so the audit entry
	// commits or rolls back with the change it describes.
	WithTx(tx pgx.Tx) Repository
}
