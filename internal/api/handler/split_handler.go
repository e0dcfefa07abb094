package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/charterops-recon/internal/api/service"
	"github.com/charterops-recon/internal/domain/allocation"
	"github.com/charterops-recon/internal/domain/document"
	"github.com/charterops-recon/internal/recon/split"
)

// SplitHandler handles HTTP requests for split allocation operations
type SplitHandler struct {
	splitService service.SplitService
	logger       *slog.Logger
}

// NewSplitHandler creates a new split handler
func NewSplitHandler(logger *slog.Logger, splitService service.SplitService) *SplitHandler {
	return &SplitHandler{
		splitService: splitService,
		logger:       logger,
	}
}

// Create splits a document into allocation lines
func (h *SplitHandler) Create(c *gin.Context) {
	parentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid document ID")
		return
	}

	var req SplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	inputs := make([]split.LineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		inputs = append(inputs, split.LineInput{
			AmountCents:     line.AmountCents,
			GLCode:          line.GLCode,
			PaymentMethod:   allocation.PaymentMethod(line.PaymentMethod),
			TaxCode:         allocation.TaxCode(line.TaxCode),
			CarriesBankLink: line.CarriesBankLink,
			HeldBy:          line.HeldBy,
			Description:     line.Description,
		})
	}

	plan, err := h.splitService.Split(c.Request.Context(), parentID, inputs, actorFrom(c))
	if err != nil {
		h.respondSplitError(c, parentID, err)
		return
	}

	RespondCreated(c, plan)
}

// ListLines returns the committed allocation lines of a split parent
func (h *SplitHandler) ListLines(c *gin.Context) {
	parentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid document ID")
		return
	}

	lines, err := h.splitService.ListLines(c.Request.Context(), parentID)
	if err != nil {
		h.logger.Error("Failed to list allocation lines", "parent_doc_id", parentID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]LineResponse, 0, len(lines))
	for _, line := range lines {
		responses = append(responses, mapLineToResponse(line))
	}
	RespondOK(c, responses)
}

// Reverse removes the split and restores the parent's pre-split state
func (h *SplitHandler) Reverse(c *gin.Context) {
	parentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid document ID")
		return
	}

	err = h.splitService.ReverseSplit(c.Request.Context(), parentID, actorFrom(c))
	if err != nil {
		var notFound document.ErrDocumentNotFound
		switch {
		case errors.As(err, &notFound):
			RespondNotFound(c, "Document not found")
		case errors.Is(err, split.ErrNotSplit):
			RespondConflict(c, "Document has no committed split")
		default:
			h.logger.Error("Failed to reverse split", "parent_doc_id", parentID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondNoContent(c)
}

func (h *SplitHandler) respondSplitError(c *gin.Context, parentID uuid.UUID, err error) {
	var (
		notFound     document.ErrDocumentNotFound
		sumMismatch  allocation.SumMismatchError
		badGL        allocation.InvalidGLCodeError
		badMethod    allocation.InvalidPaymentMethodError
		badTax       allocation.InvalidTaxCodeError
		alreadySplit allocation.AlreadySplitError
		linkConflict allocation.BankLinkConflictError
	)

	switch {
	case errors.As(err, &notFound):
		RespondNotFound(c, "Document not found")
	case errors.As(err, &sumMismatch):
		RespondUnprocessable(c, sumMismatch.Error())
	case errors.As(err, &badGL):
		RespondUnprocessable(c, badGL.Error())
	case errors.As(err, &badMethod):
		RespondUnprocessable(c, badMethod.Error())
	case errors.As(err, &badTax):
		RespondUnprocessable(c, badTax.Error())
	case errors.As(err, &linkConflict):
		RespondUnprocessable(c, linkConflict.Error())
	case errors.As(err, &alreadySplit):
		RespondConflict(c, "Document already split; reverse the existing split first")
	case errors.Is(err, split.ErrNoLines):
		RespondBadRequest(c, "Split requires at least one allocation line")
	case errors.Is(err, split.ErrSuppressedParent):
		RespondConflict(c, "Cannot split a duplicate-suppressed document")
	case errors.Is(err, split.ErrStalePlan):
		RespondConflict(c, "Document changed since the split was proposed")
	default:
		h.logger.Error("Failed to split document", "parent_doc_id", parentID.String(), "error", err)
		RespondInternalError(c)
	}
}
