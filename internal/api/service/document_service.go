package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/charterops-recon/internal/domain/audit"
	"github.com/charterops-recon/internal/domain/document"
)

type documentService struct {
	docRepo   document.Repository
	auditRepo audit.Repository
	logger    *slog.Logger
}

// NewDocumentService creates the read-side document service
func NewDocumentService(logger *slog.Logger, docRepo document.Repository, auditRepo audit.Repository) DocumentService {
	return &documentService{
		docRepo:   docRepo,
		auditRepo: auditRepo,
		logger:    logger,
	}
}

func (s *documentService) GetDocument(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	return s.docRepo.GetByID(ctx, id)
}

func (s *documentService) ListDocuments(ctx context.Context, status document.Status, page, perPage int) ([]*document.Document, error) {
	offset := (page - 1) * perPage
	return s.docRepo.ListByStatus(ctx, status, perPage, offset)
}

func (s *documentService) GetAuditTrail(ctx context.Context, entityType audit.EntityType, entityID uuid.UUID, page, perPage int) ([]*audit.Entry, error) {
	offset := (page - 1) * perPage
	return s.auditRepo.ListByEntity(ctx, entityType, entityID, perPage, offset)
}
