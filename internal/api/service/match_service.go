package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/charterops-recon/internal/recon/matcher"
)

type matchService struct {
	matcher *matcher.Matcher
}

// NewMatchService exposes the matcher engine through the service interface
func NewMatchService(m *matcher.Matcher) MatchService {
	return &matchService{matcher: m}
}

func (s *matchService) FindCandidates(ctx context.Context, docID uuid.UUID, toleranceDays int) ([]matcher.ScoredMatch, error) {
	return s.matcher.FindCandidatesForDocument(ctx, docID, toleranceDays)
}

func (s *matchService) Commit(ctx context.Context, docID, txnID uuid.UUID, actor string) error {
	return s.matcher.Commit(ctx, docID, txnID, actor)
}

func (s *matchService) Unlink(ctx context.Context, docID uuid.UUID, actor string) error {
	return s.matcher.Unlink(ctx, docID, actor)
}
