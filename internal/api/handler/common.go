package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charterops-recon/internal/domain/allocation"
	"github.com/charterops-recon/internal/domain/banktxn"
	"github.com/charterops-recon/internal/domain/document"
)

// ActorHeader identifies the operator performing a mutation, for audit
// attribution. Absent header means an unattended API caller.
const ActorHeader = "X-Actor"

func actorFrom(c *gin.Context) string {
	if actor := c.GetHeader(ActorHeader); actor != "" {
		return actor
	}
	return "api"
}

const dateLayout = "2006-01-02"

func mapDocumentToResponse(doc *document.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:           doc.ID.String(),
		AmountCents:  doc.AmountCents,
		DocDate:      doc.DocDate.Format(dateLayout),
		Counterparty: doc.Counterparty,
		Status:       string(doc.Status),
		Fingerprint:  doc.Fingerprint,
		Description:  doc.Description,
		CreatedAt:    doc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    doc.UpdatedAt.Format(time.RFC3339),
	}
	if doc.BankTxnID != nil {
		resp.BankTxnID = doc.BankTxnID.String()
	}
	if doc.ParentDocID != nil {
		resp.ParentDocID = doc.ParentDocID.String()
	}
	return resp
}

func mapTransactionToResponse(txn *banktxn.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          txn.ID.String(),
		AmountCents: txn.AmountCents,
		TxnDate:     txn.TxnDate.Format(dateLayout),
		Description: txn.Description,
		Status:      string(txn.Status),
		CreatedAt:   txn.CreatedAt.Format(time.RFC3339),
	}
}

func mapLineToResponse(line *allocation.Line) LineResponse {
	resp := LineResponse{
		ID:            line.ID.String(),
		ParentDocID:   line.ParentDocID.String(),
		AmountCents:   line.AmountCents,
		GLCode:        line.GLCode,
		PaymentMethod: string(line.PaymentMethod),
		TaxCode:       string(line.TaxCode),
		TaxCents:      line.TaxCents,
		HeldBy:        line.HeldBy,
		Description:   line.Description,
		CreatedAt:     line.CreatedAt.Format(time.RFC3339),
	}
	if line.BankTxnID != nil {
		resp.BankTxnID = line.BankTxnID.String()
	}
	return resp
}
