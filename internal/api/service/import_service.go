package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/charterops-recon/internal/domain/shared"
	"github.com/charterops-recon/internal/recon/importer"
)

// ReportStore reads archived batch reports
type ReportStore interface {
	GetReport(ctx context.Context, batchID uuid.UUID) (*shared.BatchResult, error)
	ListReports(ctx context.Context, limit, offset int) ([]*shared.BatchResult, error)
}

type importService struct {
	coordinator *importer.Coordinator
	parser      *importer.Parser
	reports     ReportStore
	logger      *slog.Logger
}

// NewImportService creates the import service backed by the batch coordinator
func NewImportService(logger *slog.Logger, coordinator *importer.Coordinator, parser *importer.Parser, reports ReportStore) ImportService {
	return &importService{
		coordinator: coordinator,
		parser:      parser,
		reports:     reports,
		logger:      logger,
	}
}

func (s *importService) ImportBatch(ctx context.Context, batch *shared.ImportBatch) (*shared.BatchResult, error) {
	return s.coordinator.ImportBatch(ctx, batch)
}

func (s *importService) ImportCSV(ctx context.Context, source string, toleranceDays int, correlationID string, r io.Reader) (*shared.BatchResult, error) {
	records, rowErrors, err := s.parser.Parse(r)
	if err != nil {
		return nil, err
	}

	batch := &shared.ImportBatch{
		BatchID:       uuid.New(),
		Source:        source,
		ToleranceDays: toleranceDays,
		CorrelationID: correlationID,
		Records:       records,
	}

	result, err := s.coordinator.ImportBatch(ctx, batch)
	if err != nil {
		return nil, err
	}

	// Row indexes from the parser refer to the original upload, coordinator
	// indexes to the parsed records; both are reported as-is.
	result.Errors = append(rowErrors, result.Errors...)
	return result, nil
}

func (s *importService) GetReport(ctx context.Context, batchID uuid.UUID) (*shared.BatchResult, error) {
	return s.reports.GetReport(ctx, batchID)
}

func (s *importService) ListReports(ctx context.Context, limit, offset int) ([]*shared.BatchResult, error) {
	return s.reports.ListReports(ctx, limit, offset)
}
