// Package split implements the split allocator: decomposing one financial
// document into allocation lines that reconstruct its amount exactly.
package split

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/charterops-recon/internal/domain/allocation"
	"github.com/charterops-recon/internal/domain/audit"
	"github.com/charterops-recon/internal/domain/document"
	"github.com/charterops-recon/internal/platform/persistence"
)

// GLChart validates GL codes against the chart of accounts
type GLChart interface {
	Exists(ctx context.Context, code string) (bool, error)
}

var (
	ErrNoLines          = errors.New("split requires at least one allocation line")
	ErrNotSplit         = errors.New("document has no committed split")
	ErrSuppressedParent = errors.New("cannot split a duplicate-suppressed document")
	ErrStalePlan        = errors.New("parent document changed since the plan was proposed")
)

// LineInput is one requested allocation line. Tax is derived, never supplied.
type LineInput struct {
	AmountCents   int64
	GLCode        string
	PaymentMethod allocation.PaymentMethod
	TaxCode       allocation.TaxCode

	// CarriesBankLink designates this line as the carrier of the parent's
	// existing bank transaction link. Exactly one line must carry it when the
	// parent is linked; none may claim it otherwise.
	CarriesBankLink bool

	// HeldBy names a cash custodian (driver or float) for cash sub-portions
	HeldBy      string
	Description string
}

// PlannedLine is a validated line with its derived tax component
type PlannedLine struct {
	LineInput
	TaxCents int64
}

// Plan is a fully validated split awaiting commit
type Plan struct {
	ParentID          uuid.UUID
	ParentAmountCents int64
	Lines             []PlannedLine
	BankLinkLine      int // index into Lines, -1 when the parent is unlinked
}

// Allocator validates and commits split allocations
type Allocator struct {
	pgDB      persistence.TxRunner
	docRepo   document.Repository
	lineRepo  allocation.Repository
	auditRepo audit.Repository
	glChart   GLChart
	logger    *slog.Logger
}

// NewAllocator creates a split allocator
func NewAllocator(
	logger *slog.Logger,
	pgDB persistence.TxRunner,
	docRepo document.Repository,
	lineRepo allocation.Repository,
	auditRepo audit.Repository,
	glChart GLChart,
) *Allocator {
	return &Allocator{
		pgDB:      pgDB,
		docRepo:   docRepo,
		lineRepo:  lineRepo,
		auditRepo: auditRepo,
		glChart:   glChart,
		logger:    logger,
	}
}

// ProposeSplit validates the requested lines against the parent document and
// returns a committable plan. Validation order: line fields, sum invariant,
// bank link designation, tax derivation.
func (a *Allocator) ProposeSplit(ctx context.Context, parentID uuid.UUID, inputs []LineInput) (*Plan, error) {
	parent, err := a.docRepo.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}

	return a.buildPlan(ctx, parent, inputs)
}

func (a *Allocator) buildPlan(ctx context.Context, parent *document.Document, inputs []LineInput) (*Plan, error) {
	if parent.Status == document.StatusSplitParent {
		return nil, allocation.AlreadySplitError{ParentDocID: parent.ID}
	}
	if parent.Status == document.StatusDuplicateSuppressed {
		return nil, ErrSuppressedParent
	}
	if len(inputs) == 0 {
		return nil, ErrNoLines
	}

	// (1) Per-line field validation
	for i := range inputs {
		in := &inputs[i]
		if in.GLCode == "" {
			return nil, allocation.InvalidGLCodeError{GLCode: ""}
		}
		known, err := a.glChart.Exists(ctx, in.GLCode)
		if err != nil {
			return nil, fmt.Errorf("failed to validate GL code %s: %w", in.GLCode, err)
		}
		if !known {
			return nil, allocation.InvalidGLCodeError{GLCode: in.GLCode}
		}
		if !in.PaymentMethod.Valid() {
			return nil, allocation.InvalidPaymentMethodError{Method: in.PaymentMethod}
		}
		if in.TaxCode == "" {
			in.TaxCode = allocation.TaxNone
		}
		if !in.TaxCode.Valid() {
			return nil, allocation.InvalidTaxCodeError{Code: in.TaxCode}
		}
	}

	// (2) Sum invariant: lines must reconstruct the parent exactly, in cents
	var sum int64
	for _, in := range inputs {
		sum += in.AmountCents
	}
	if sum != parent.AmountCents {
		return nil, allocation.SumMismatchError{ExpectedCents: parent.AmountCents, ActualCents: sum}
	}

	// (3) The parent's bank link must end up on exactly one line
	bankLinkLine := -1
	designated := 0
	for i, in := range inputs {
		if in.CarriesBankLink {
			designated++
			bankLinkLine = i
		}
	}
	if parent.Linked() {
		if designated != 1 {
			return nil, allocation.BankLinkConflictError{ParentDocID: parent.ID, Designated: designated}
		}
	} else if designated != 0 {
		return nil, allocation.BankLinkConflictError{ParentDocID: parent.ID, Designated: designated}
	}

	// (4) Derive tax deterministically per line
	lines := make([]PlannedLine, 0, len(inputs))
	for _, in := range inputs {
		tax, err := DeriveTaxCents(in.AmountCents, in.TaxCode)
		if err != nil {
			return nil, err
		}
		lines = append(lines, PlannedLine{LineInput: in, TaxCents: tax})
	}

	return &Plan{
		ParentID:          parent.ID,
		ParentAmountCents: parent.AmountCents,
		Lines:             lines,
		BankLinkLine:      bankLinkLine,
	}, nil
}

// CommitSplit applies a plan in a single transaction: insert all lines, move
// the parent to split-parent, reassign its bank link to the designated line,
// and write one audit entry per line plus a summary entry for the split.
func (a *Allocator) CommitSplit(ctx context.Context, plan *Plan, actor string) error {
	return a.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		docs := a.docRepo.WithTx(tx)
		lineRepo := a.lineRepo.WithTx(tx)
		auditRepo := a.auditRepo.WithTx(tx)

		parent, err := docs.LockForUpdate(ctx, plan.ParentID)
		if err != nil {
			return err
		}

		// Re-check under the lock: the plan may have raced another split or an
		// amount-changing operation.
		if parent.Status == document.StatusSplitParent {
			return allocation.AlreadySplitError{ParentDocID: parent.ID}
		}
		existing, err := lineRepo.CountByParent(ctx, parent.ID)
		if err != nil {
			return err
		}
		if existing > 0 {
			return allocation.AlreadySplitError{ParentDocID: parent.ID}
		}
		if parent.AmountCents != plan.ParentAmountCents {
			return ErrStalePlan
		}
		if parent.Linked() != (plan.BankLinkLine >= 0) {
			return ErrStalePlan
		}

		now := time.Now()
		lines := make([]*allocation.Line, 0, len(plan.Lines))
		for i, planned := range plan.Lines {
			line := &allocation.Line{
				ID:            uuid.New(),
				ParentDocID:   parent.ID,
				AmountCents:   planned.AmountCents,
				GLCode:        planned.GLCode,
				PaymentMethod: planned.PaymentMethod,
				TaxCode:       planned.TaxCode,
				TaxCents:      planned.TaxCents,
				HeldBy:        planned.HeldBy,
				Description:   planned.Description,
				CreatedAt:     now,
			}
			if i == plan.BankLinkLine {
				txnID := *parent.BankTxnID
				line.BankTxnID = &txnID
			}
			lines = append(lines, line)
		}

		if err := lineRepo.CreateBatch(ctx, lines); err != nil {
			return err
		}

		if parent.Linked() {
			if err := docs.ClearBankLink(ctx, parent.ID, document.StatusSplitParent); err != nil {
				return err
			}
		} else {
			if err := docs.UpdateStatus(ctx, parent.ID, document.StatusSplitParent); err != nil {
				return err
			}
		}

		for _, line := range lines {
			entry, err := audit.NewEntry(actor, audit.ActionCreate, audit.EntityAllocationLine, line.ID, nil, line)
			if err != nil {
				return err
			}
			if err := auditRepo.Record(ctx, entry); err != nil {
				return err
			}
		}

		after := *parent
		after.Status = document.StatusSplitParent
		after.BankTxnID = nil
		summary, err := audit.NewEntry(actor, audit.ActionSplit, audit.EntityDocument, parent.ID, parent, &after)
		if err != nil {
			return err
		}
		if err := auditRepo.Record(ctx, summary); err != nil {
			return err
		}

		a.logger.Info("Split committed",
			"parent_doc_id", parent.ID.String(),
			"lines", len(lines),
			"amount_cents", parent.AmountCents)
		return nil
	})
}

// Split proposes and commits in one call, for callers that do not stage plans
func (a *Allocator) Split(ctx context.Context, parentID uuid.UUID, inputs []LineInput, actor string) (*Plan, error) {
	plan, err := a.ProposeSplit(ctx, parentID, inputs)
	if err != nil {
		return nil, err
	}
	if err := a.CommitSplit(ctx, plan, actor); err != nil {
		return nil, err
	}
	return plan, nil
}

// reversedSplit is the after-snapshot payload of a reverse-split entry; it
// names the removed lines so the compensating entry references what it undid.
type reversedSplit struct {
	Document       *document.Document `json:"document"`
	RemovedLineIDs []uuid.UUID        `json:"removed_line_ids"`
}

// ReverseSplit is the only path that removes allocation lines. It deletes all
// children, restores the parent to its pre-split status (reclaiming a
// child-carried bank link), and writes a compensating audit entry. The
// original split entries are never deleted, only superseded.
func (a *Allocator) ReverseSplit(ctx context.Context, parentID uuid.UUID, actor string) error {
	return a.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		docs := a.docRepo.WithTx(tx)
		lineRepo := a.lineRepo.WithTx(tx)
		auditRepo := a.auditRepo.WithTx(tx)

		parent, err := docs.LockForUpdate(ctx, parentID)
		if err != nil {
			return err
		}
		if parent.Status != document.StatusSplitParent {
			return ErrNotSplit
		}

		lines, err := lineRepo.ListByParent(ctx, parentID)
		if err != nil {
			return err
		}

		var linkTxnID *uuid.UUID
		removed := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			removed = append(removed, line.ID)
			if line.BankTxnID != nil {
				linkTxnID = line.BankTxnID
			}
		}

		if _, err := lineRepo.DeleteByParent(ctx, parentID); err != nil {
			return err
		}

		after := *parent
		if linkTxnID != nil {
			if err := docs.SetBankLink(ctx, parentID, *linkTxnID); err != nil {
				return err
			}
			after.Status = document.StatusLinked
			after.BankTxnID = linkTxnID
		} else {
			if err := docs.UpdateStatus(ctx, parentID, document.StatusUnlinked); err != nil {
				return err
			}
			after.Status = document.StatusUnlinked
		}

		entry, err := audit.NewEntry(actor, audit.ActionReverseSplit, audit.EntityDocument, parentID,
			parent, reversedSplit{Document: &after, RemovedLineIDs: removed})
		if err != nil {
			return err
		}
		if err := auditRepo.Record(ctx, entry); err != nil {
			return err
		}

		a.logger.Info("Split reversed",
			"parent_doc_id", parentID.String(),
			"removed_lines", len(removed))
		return nil
	})
}
