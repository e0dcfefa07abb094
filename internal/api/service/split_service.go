package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/charterops-recon/internal/domain/allocation"
	"github.com/charterops-recon/internal/recon/split"
)

type splitService struct {
	allocator *split.Allocator
	lineRepo  allocation.Repository
}

// NewSplitService exposes the split allocator through the service interface
func NewSplitService(allocator *split.Allocator, lineRepo allocation.Repository) SplitService {
	return &splitService{
		allocator: allocator,
		lineRepo:  lineRepo,
	}
}

func (s *splitService) Split(ctx context.Context, parentID uuid.UUID, inputs []split.LineInput, actor string) (*split.Plan, error) {
	return s.allocator.Split(ctx, parentID, inputs, actor)
}

func (s *splitService) ListLines(ctx context.Context, parentID uuid.UUID) ([]*allocation.Line, error) {
	return s.lineRepo.ListByParent(ctx, parentID)
}

func (s *splitService) ReverseSplit(ctx context.Context, parentID uuid.UUID, actor string) error {
	return s.allocator.ReverseSplit(ctx, parentID, actor)
}
