package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/charterops-recon/internal/api/service"
	"github.com/charterops-recon/internal/domain/audit"
	"github.com/charterops-recon/internal/domain/document"
)

// DocumentHandler handles HTTP requests for financial document queries
type DocumentHandler struct {
	documentService service.DocumentService
	logger          *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(logger *slog.Logger, documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		logger:          logger,
	}
}

// GetByID retrieves a document by its ID, returning 404 if not found
func (h *DocumentHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid document ID")
		return
	}

	doc, err := h.documentService.GetDocument(c.Request.Context(), id)
	if err != nil {
		var notFound document.ErrDocumentNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Document not found")
			return
		}
		h.logger.Error("Failed to get document", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapDocumentToResponse(doc))
}

// List retrieves documents filtered by reconciliation status
func (h *DocumentHandler) List(c *gin.Context) {
	status := document.Status(c.DefaultQuery("status", string(document.StatusUnlinked)))
	switch status {
	case document.StatusUnlinked, document.StatusLinked, document.StatusSplitParent, document.StatusDuplicateSuppressed:
	default:
		RespondBadRequest(c, "Invalid status filter: "+string(status))
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	docs, err := h.documentService.ListDocuments(c.Request.Context(), status, params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to list documents", "status", string(status), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		responses = append(responses, mapDocumentToResponse(doc))
	}
	RespondWithPage(c, 200, responses, params.Page, params.PerPage)
}

// GetAuditTrail retrieves the append-only history of a document
func (h *DocumentHandler) GetAuditTrail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid document ID")
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	entries, err := h.documentService.GetAuditTrail(c.Request.Context(), audit.EntityDocument, id, params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to get audit trail", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondWithPage(c, 200, entries, params.Page, params.PerPage)
}
