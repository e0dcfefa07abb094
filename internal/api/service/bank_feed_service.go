package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/charterops-recon/internal/domain/audit"
	"github.com/charterops-recon/internal/domain/banktxn"
	"github.com/charterops-recon/internal/platform/persistence"
)

// ErrManualReconcile indicates a status update tried to set reconciled
// directly; that status only moves through match commits.
var ErrManualReconcile = errors.New("reconciled status is set by committing a match, not by status update")

type bankFeedService struct {
	pgDB      *persistence.PostgresDB
	txnRepo   banktxn.Repository
	auditRepo audit.Repository
	logger    *slog.Logger
}

// NewBankFeedService creates the bank ledger feed service
func NewBankFeedService(logger *slog.Logger, pgDB *persistence.PostgresDB, txnRepo banktxn.Repository, auditRepo audit.Repository) BankFeedService {
	return &bankFeedService{
		pgDB:      pgDB,
		txnRepo:   txnRepo,
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Ingest stores each feed line in its own transaction; one bad line does not
// roll back the rest of the feed.
func (s *bankFeedService) Ingest(ctx context.Context, txns []*banktxn.Transaction, actor string) (int, error) {
	stored := 0
	for _, txn := range txns {
		err := s.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
			txnRepo := s.txnRepo.WithTx(tx)
			auditRepo := s.auditRepo.WithTx(tx)

			if err := txnRepo.Create(ctx, txn); err != nil {
				return err
			}
			entry, err := audit.NewEntry(actor, audit.ActionCreate, audit.EntityBankTransaction, txn.ID, nil, txn)
			if err != nil {
				return err
			}
			return auditRepo.Record(ctx, entry)
		})
		if err != nil {
			return stored, err
		}
		stored++
	}

	s.logger.Info("Bank feed ingested", "transactions", stored)
	return stored, nil
}

func (s *bankFeedService) GetTransaction(ctx context.Context, id uuid.UUID) (*banktxn.Transaction, error) {
	return s.txnRepo.GetByID(ctx, id)
}

func (s *bankFeedService) ListTransactions(ctx context.Context, status banktxn.ReconciliationStatus, page, perPage int) ([]*banktxn.Transaction, error) {
	offset := (page - 1) * perPage
	return s.txnRepo.ListByStatus(ctx, status, perPage, offset)
}

// SetStatus handles the manual unreconciled/ignored toggle. Reconciled is a
// link-driven status and is rejected here.
func (s *bankFeedService) SetStatus(ctx context.Context, id uuid.UUID, status banktxn.ReconciliationStatus, actor string) error {
	if status == banktxn.StatusReconciled {
		return ErrManualReconcile
	}
	return s.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		txnRepo := s.txnRepo.WithTx(tx)
		auditRepo := s.auditRepo.WithTx(tx)

		txn, err := txnRepo.LockForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if txn.Status == banktxn.StatusReconciled {
			return banktxn.ErrAlreadyReconciled{TxnID: id}
		}
		if txn.Status == status {
			return nil
		}

		if err := txnRepo.UpdateStatus(ctx, id, status); err != nil {
			return err
		}

		after := *txn
		after.Status = status
		entry, err := audit.NewEntry(actor, audit.ActionStatusChange, audit.EntityBankTransaction, id, txn, &after)
		if err != nil {
			return err
		}
		return auditRepo.Record(ctx, entry)
	})
}
