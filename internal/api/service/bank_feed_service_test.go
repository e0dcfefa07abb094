package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/charterops-recon/internal/domain/banktxn"
)

// Reconciled only moves through match commits. The service must refuse it as
// a manual status target regardless of what the transport layer validates.
func TestBankFeedService_SetStatusRejectsReconciledTarget(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewBankFeedService(logger, nil, nil, nil)

	err := svc.SetStatus(context.Background(), uuid.New(), banktxn.StatusReconciled, "ops.garcia")

	assert.ErrorIs(t, err, ErrManualReconcile)
}
