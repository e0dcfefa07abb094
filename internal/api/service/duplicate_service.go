package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/charterops-recon/internal/domain/shared"
	"github.com/charterops-recon/internal/recon/dedup"
)

type duplicateService struct {
	detector        *dedup.Detector
	dedupWindowDays int
}

// NewDuplicateService exposes the duplicate detector through the service
// interface, bound to the configured comparison window.
func NewDuplicateService(detector *dedup.Detector, dedupWindowDays int) DuplicateService {
	return &duplicateService{
		detector:        detector,
		dedupWindowDays: dedupWindowDays,
	}
}

func (s *duplicateService) ScanDocument(ctx context.Context, docID uuid.UUID) ([]shared.DuplicateCandidatePair, error) {
	return s.detector.ScanDocument(ctx, docID, s.dedupWindowDays)
}

func (s *duplicateService) Suppress(ctx context.Context, suppressID uuid.UUID, pair shared.DuplicateCandidatePair, actor string) error {
	return s.detector.SuppressDuplicate(ctx, suppressID, pair, actor)
}
