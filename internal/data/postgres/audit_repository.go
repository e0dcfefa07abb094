package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/charterops-recon/internal/domain/audit"
	"github.com/charterops-recon/internal/platform/persistence"
)

// AuditRepository implements the audit.Repository interface for PostgreSQL.
// The audit_log table is append-only: this repository issues INSERT and
// SELECT statements only, and the database role carries no UPDATE/DELETE
// grants on the table.
type AuditRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAuditRepository creates a new PostgreSQL audit log repository
func NewAuditRepository(logger *slog.Logger, db *persistence.PostgresDB) audit.Repository {
	return &AuditRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx binds the recorder to a transaction so the audit entry commits
// atomically with the mutation it describes.
func (r *AuditRepository) WithTx(tx pgx.Tx) audit.Repository {
	return &AuditRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Record appends one audit entry
func (r *AuditRepository) Record(ctx context.Context, entry *audit.Entry) error {
	query := `
		INSERT INTO audit_log (id, actor, action, entity_type, entity_id, before_json, after_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.Actor,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.Before,
		entry.After,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to record audit entry",
			"action", string(entry.Action),
			"entity_id", entry.EntityID.String(),
			"error", err)
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	return nil
}

// ListByEntity retrieves paginated audit entries for an entity, newest first
func (r *AuditRepository) ListByEntity(ctx context.Context, entityType audit.EntityType, entityID uuid.UUID, limit, offset int) ([]*audit.Entry, error) {
	query := `
		SELECT id, actor, action, entity_type, entity_id, before_json, after_json, created_at
		FROM audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.querier.Query(ctx, query, entityType, entityID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list audit entries",
			"entity_type", string(entityType),
			"entity_id", entityID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		var entry audit.Entry
		err := rows.Scan(
			&entry.ID,
			&entry.Actor,
			&entry.Action,
			&entry.EntityType,
			&entry.EntityID,
			&entry.Before,
			&entry.After,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit entries: %w", err)
	}

	return entries, nil
}
