package handler

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/charterops-recon/internal/api/middleware"
	"github.com/charterops-recon/internal/api/service"
	"github.com/charterops-recon/internal/domain/shared"
	"github.com/charterops-recon/internal/recon/importer"
)

// ImportHandler handles HTTP requests for batch imports
type ImportHandler struct {
	importService service.ImportService
	logger        *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(logger *slog.Logger, importService service.ImportService) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		logger:        logger,
	}
}

// Create runs a JSON import batch synchronously and returns its result
func (h *ImportHandler) Create(c *gin.Context) {
	var req ImportBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid import batch request", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	records := make([]shared.RawRecord, 0, len(req.Records))
	for i, rec := range req.Records {
		date, err := time.Parse(dateLayout, rec.Date)
		if err != nil {
			RespondBadRequest(c, "Record "+strconv.Itoa(i)+" has an invalid date: "+rec.Date)
			return
		}
		records = append(records, shared.RawRecord{
			Date:         date,
			Counterparty: rec.Counterparty,
			AmountCents:  rec.AmountCents,
			Description:  rec.Description,
			GLCode:       rec.GLCode,
			BookingRef:   rec.BookingRef,
			Metadata:     rec.Metadata,
		})
	}

	batch := &shared.ImportBatch{
		BatchID:       uuid.New(),
		Source:        req.Source,
		ToleranceDays: req.ToleranceDays,
		CorrelationID: middleware.GetCorrelationID(c),
		Records:       records,
	}

	result, err := h.importService.ImportBatch(c.Request.Context(), batch)
	if err != nil {
		h.logger.Error("Import batch failed", "source", req.Source, "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, result)
}

// CreateCSV imports a raw CSV body. Source and tolerance come from query
// parameters since the body is the file itself.
func (h *ImportHandler) CreateCSV(c *gin.Context) {
	source := c.Query("source")
	if source == "" {
		RespondBadRequest(c, "source query parameter is required")
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

	result, err := h.importService.ImportCSV(c.Request.Context(), source, toleranceDays, middleware.GetCorrelationID(c), c.Request.Body)
	if err != nil {
		var missing importer.MissingColumnError
		switch {
		case errors.As(err, &missing):
			RespondBadRequest(c, missing.Error())
		case errors.Is(err, importer.ErrEmptyInput):
			RespondBadRequest(c, "upload has no header row")
		default:
			h.logger.Error("CSV import failed", "source", source, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, result)
}

// GetReport returns the archived result of one batch
func (h *ImportHandler) GetReport(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid batch ID")
		return
	}

	report, err := h.importService.GetReport(c.Request.Context(), batchID)
	if err != nil {
		h.logger.Error("Failed to get import report", "batch_id", batchID.String(), "error", err)
		RespondInternalError(c)
		return
	}
	if report == nil {
		RespondNotFound(c, "Import report not found")
		return
	}

	RespondOK(c, report)
}

// ListReports returns archived batch results, newest first
func (h *ImportHandler) ListReports(c *gin.Context) {
	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	reports, err := h.importService.ListReports(c.Request.Context(), params.PerPage, (params.Page-1)*params.PerPage)
	if err != nil {
		h.logger.Error("Failed to list import reports", "error", err)
		RespondInternalError(c)
		return
	}

	RespondWithPage(c, 200, reports, params.Page, params.PerPage)
}
