package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/charterops-recon/internal/api/service"
	"github.com/charterops-recon/internal/domain/document"
	"github.com/charterops-recon/internal/recon/dedup"
)

// DuplicateHandler handles HTTP requests for duplicate screening and
// suppression.
type DuplicateHandler struct {
	duplicateService service.DuplicateService
	logger           *slog.Logger
}

// NewDuplicateHandler creates a new duplicate handler
func NewDuplicateHandler(logger *slog.Logger, duplicateService service.DuplicateService) *DuplicateHandler {
	return &DuplicateHandler{
		duplicateService: duplicateService,
		logger:           logger,
	}
}

// Scan surfaces duplicate candidate pairs for one document
func (h *DuplicateHandler) Scan(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid document ID")
		return
	}

	pairs, err := h.duplicateService.ScanDocument(c.Request.Context(), docID)
	if err != nil {
		var notFound document.ErrDocumentNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Document not found")
			return
		}
		h.logger.Error("Failed to scan for duplicates", "document_id", docID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, pairs)
}

// Suppress marks one side of a duplicate pair as suppressed. The pair's
// confidence is re-derived by scanning; a pair the engine no longer surfaces
// cannot be suppressed through this endpoint.
func (h *DuplicateHandler) Suppress(c *gin.Context) {
	var req SuppressDuplicateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	suppressID, _ := uuid.Parse(req.SuppressDocumentID)
	otherID, _ := uuid.Parse(req.OtherDocumentID)

	pairs, err := h.duplicateService.ScanDocument(c.Request.Context(), suppressID)
	if err != nil {
		var notFound document.ErrDocumentNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Document not found")
			return
		}
		h.logger.Error("Failed to scan before suppression", "document_id", suppressID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	for _, pair := range pairs {
		if pair.DocumentB != otherID && pair.DocumentA != otherID {
			continue
		}

		err := h.duplicateService.Suppress(c.Request.Context(), suppressID, pair, actorFrom(c))
		if err != nil {
			if errors.Is(err, dedup.ErrNotSuppressible) {
				RespondConflict(c, "Only unlinked documents can be duplicate-suppressed")
				return
			}
			h.logger.Error("Failed to suppress duplicate",
				"document_id", suppressID.String(),
				"other_id", otherID.String(),
				"error", err)
			RespondInternalError(c)
			return
		}

		RespondNoContent(c)
		return
	}

	RespondUnprocessable(c, "No duplicate candidate pair exists between the given documents")
}
