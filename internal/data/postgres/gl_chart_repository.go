package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/charterops-recon/internal/platform/persistence"
)

// GLChartRepository validates GL codes against the chart of accounts table
type GLChartRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewGLChartRepository creates a chart-of-accounts lookup backed by PostgreSQL
func NewGLChartRepository(logger *slog.Logger, db *persistence.PostgresDB) *GLChartRepository {
	return &GLChartRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Exists reports whether the GL code is present and active in the chart
func (r *GLChartRepository) Exists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM gl_accounts WHERE code = $1 AND active)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		r.logger.Error("Failed to look up GL code", "gl_code", code, "error", err)
		return false, fmt.Errorf("failed to look up GL code: %w", err)
	}

	return exists, nil
}
