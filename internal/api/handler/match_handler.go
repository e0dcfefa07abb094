package handler

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/charterops-recon/internal/api/service"
	"github.com/charterops-recon/internal/domain/banktxn"
	"github.com/charterops-recon/internal/domain/document"
	"github.com/charterops-recon/internal/recon/matcher"
)

// MatchHandler handles HTTP requests for reconciliation link operations
type MatchHandler struct {
	matchService service.MatchService
	logger       *slog.Logger
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(logger *slog.Logger, matchService service.MatchService) *MatchHandler {
	return &MatchHandler{
		matchService: matchService,
		logger:       logger,
	}
}

// GetCandidates ranks bank transaction candidates for a document. Ambiguity
// is reported per candidate, not resolved.
func (h *MatchHandler) GetCandidates(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid document ID")
		return
	}

	toleranceDays := 0
	if raw := c.Query("tolerance_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			RespondBadRequest(c, "tolerance_days must be a non-negative integer")
			return
		}
		toleranceDays = parsed
	}

	matches, err := h.matchService.FindCandidates(c.Request.Context(), docID, toleranceDays)
	if err != nil {
		var notFound document.ErrDocumentNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Document not found")
			return
		}
		h.logger.Error("Failed to find match candidates", "document_id", docID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]MatchCandidateResponse, 0, len(matches))
	for i := range matches {
		responses = append(responses, mapMatchToResponse(&matches[i]))
	}
	RespondOK(c, responses)
}

// Commit links a document to a bank transaction
func (h *MatchHandler) Commit(c *gin.Context) {
	var req CommitMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	docID, _ := uuid.Parse(req.DocumentID)
	txnID, _ := uuid.Parse(req.BankTxnID)

	err := h.matchService.Commit(c.Request.Context(), docID, txnID, actorFrom(c))
	if err != nil {
		h.respondCommitError(c, docID, txnID, err)
		return
	}

	RespondNoContent(c)
}

// Unlink removes the document's reconciliation link
func (h *MatchHandler) Unlink(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid document ID")
		return
	}

	err = h.matchService.Unlink(c.Request.Context(), docID, actorFrom(c))
	if err != nil {
		var docNotFound document.ErrDocumentNotFound
		switch {
		case errors.As(err, &docNotFound):
			RespondNotFound(c, "Document not found")
		case errors.Is(err, matcher.ErrNotLinked):
			RespondConflict(c, "Document has no bank transaction link")
		default:
			h.logger.Error("Failed to unlink document", "document_id", docID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondNoContent(c)
}

func (h *MatchHandler) respondCommitError(c *gin.Context, docID, txnID uuid.UUID, err error) {
	var (
		docNotFound   document.ErrDocumentNotFound
		txnNotFound   banktxn.ErrTransactionNotFound
		alreadyLinked document.AlreadyLinkedError
		reconciled    banktxn.ErrAlreadyReconciled
		txnInUse      document.ErrBankTxnInUse
	)

	switch {
	case errors.As(err, &docNotFound):
		RespondNotFound(c, "Document not found")
	case errors.As(err, &txnNotFound):
		RespondNotFound(c, "Bank transaction not found")
	case errors.As(err, &alreadyLinked):
		RespondConflict(c, "Document is already linked to bank transaction "+alreadyLinked.LinkedTxnID.String())
	case errors.As(err, &reconciled):
		RespondConflict(c, "Bank transaction is already reconciled")
	case errors.As(err, &txnInUse):
		RespondConflict(c, "Bank transaction is claimed by another document")
	case errors.Is(err, matcher.ErrNotLinkable):
		RespondConflict(c, "Document cannot be linked in its current status")
	case errors.Is(err, matcher.ErrTxnIgnored):
		RespondConflict(c, "Bank transaction is marked ignored")
	default:
		h.logger.Error("Failed to commit match",
			"document_id", docID.String(),
			"txn_id", txnID.String(),
			"error", err)
		RespondInternalError(c)
	}
}

func mapMatchToResponse(m *matcher.ScoredMatch) MatchCandidateResponse {
	return MatchCandidateResponse{
		Txn:              mapTransactionToResponse(m.Txn),
		DateDeltaDays:    m.DateDeltaDays,
		AmountDeltaCents: m.AmountDeltaCents,
		ExactAmount:      m.ExactAmount,
		Competing:        m.Competing,
		Ambiguous:        m.Ambiguous,
	}
}
