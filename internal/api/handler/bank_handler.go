package handler

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/charterops-recon/internal/api/service"
	"github.com/charterops-recon/internal/domain/banktxn"
)

// BankHandler handles HTTP requests for the bank ledger feed
type BankHandler struct {
	bankFeedService service.BankFeedService
	logger          *slog.Logger
}

// NewBankHandler creates a new bank feed handler
func NewBankHandler(logger *slog.Logger, bankFeedService service.BankFeedService) *BankHandler {
	return &BankHandler{
		bankFeedService: bankFeedService,
		logger:          logger,
	}
}

// Ingest stores bank feed lines as unreconciled transactions
func (h *BankHandler) Ingest(c *gin.Context) {
	var req BankFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	txns := make([]*banktxn.Transaction, 0, len(req.Transactions))
	for i, line := range req.Transactions {
		date, err := time.Parse(dateLayout, line.TxnDate)
		if err != nil {
			RespondBadRequest(c, "Transaction "+strconv.Itoa(i)+" has an invalid date: "+line.TxnDate)
			return
		}
		txn, err := banktxn.New(date, line.AmountCents, line.Description)
		if err != nil {
			RespondBadRequest(c, "Transaction "+strconv.Itoa(i)+": "+err.Error())
			return
		}
		txns = append(txns, txn)
	}

	stored, err := h.bankFeedService.Ingest(c.Request.Context(), txns, actorFrom(c))
	if err != nil {
		h.logger.Error("Bank feed ingestion failed", "stored", stored, "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, gin.H{"stored": stored})
}

// GetByID retrieves a bank transaction by its ID
func (h *BankHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid bank transaction ID")
		return
	}

	txn, err := h.bankFeedService.GetTransaction(c.Request.Context(), id)
	if err != nil {
		var notFound banktxn.ErrTransactionNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Bank transaction not found")
			return
		}
		h.logger.Error("Failed to get bank transaction", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapTransactionToResponse(txn))
}

// List retrieves bank transactions filtered by reconciliation status
func (h *BankHandler) List(c *gin.Context) {
	status := banktxn.ReconciliationStatus(c.DefaultQuery("status", string(banktxn.StatusUnreconciled)))
	switch status {
	case banktxn.StatusUnreconciled, banktxn.StatusReconciled, banktxn.StatusIgnored:
	default:
		RespondBadRequest(c, "Invalid status filter: "+string(status))
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	txns, err := h.bankFeedService.ListTransactions(c.Request.Context(), status, params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to list bank transactions", "status", string(status), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		responses = append(responses, mapTransactionToResponse(txn))
	}
	RespondWithPage(c, 200, responses, params.Page, params.PerPage)
}

// SetStatus toggles a transaction between unreconciled and ignored
func (h *BankHandler) SetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid bank transaction ID")
		return
	}

	var req BankTxnStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	err = h.bankFeedService.SetStatus(c.Request.Context(), id, banktxn.ReconciliationStatus(req.Status), actorFrom(c))
	if err != nil {
		var (
			notFound   banktxn.ErrTransactionNotFound
			reconciled banktxn.ErrAlreadyReconciled
		)
		switch {
		case errors.As(err, &notFound):
			RespondNotFound(c, "Bank transaction not found")
		case errors.As(err, &reconciled):
			RespondConflict(c, "Bank transaction is already reconciled")
		case errors.Is(err, service.ErrManualReconcile):
			RespondBadRequest(c, "Reconciled status is set by committing a match")
		default:
			h.logger.Error("Failed to update bank transaction status", "id", id.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondNoContent(c)
}
