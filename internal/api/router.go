package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charterops-recon/internal/api/handler"
	"github.com/charterops-recon/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	importHandler *handler.ImportHandler,
	documentHandler *handler.DocumentHandler,
	matchHandler *handler.MatchHandler,
	splitHandler *handler.SplitHandler,
	duplicateHandler *handler.DuplicateHandler,
	bankHandler *handler.BankHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Batch import operations
		imports := v1.Group("/imports")
		{
			imports.POST("", importHandler.Create)
			imports.POST("/csv", importHandler.CreateCSV)
			imports.GET("", importHandler.ListReports)
			imports.GET("/:id", importHandler.GetReport)
		}

		// Document queries, matching, splitting, and duplicate screening
		documents := v1.Group("/documents")
		{
			documents.GET("", documentHandler.List)
			documents.GET("/:id", documentHandler.GetByID)
			documents.GET("/:id/audit", documentHandler.GetAuditTrail)
			documents.GET("/:id/candidates", matchHandler.GetCandidates)
			documents.DELETE("/:id/link", matchHandler.Unlink)
			documents.POST("/:id/split", splitHandler.Create)
			documents.GET("/:id/lines", splitHandler.ListLines)
			documents.DELETE("/:id/split", splitHandler.Reverse)
			documents.GET("/:id/duplicates", duplicateHandler.Scan)
		}

		// Reconciliation link commits
		v1.POST("/matches", matchHandler.Commit)

		// Duplicate resolution
		v1.POST("/duplicates/suppress", duplicateHandler.Suppress)

		// Bank ledger feed
		bank := v1.Group("/bank-transactions")
		{
			bank.POST("", bankHandler.Ingest)
			bank.GET("", bankHandler.List)
			bank.GET("/:id", bankHandler.GetByID)
			bank.PATCH("/:id/status", bankHandler.SetStatus)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
