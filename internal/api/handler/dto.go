package handler

// ImportRecordRequest is one row of a JSON import batch
type ImportRecordRequest struct {
	Date         string            `json:"date" binding:"required"`
	Counterparty string            `json:"counterparty" binding:"required"`
	AmountCents  int64             `json:"amount_cents" binding:"required"`
	Description  string            `json:"description"`
	GLCode       string            `json:"gl_code,omitempty"`
	BookingRef   string            `json:"linked_booking_reference,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ImportBatchRequest represents a request to import a batch of documents
type ImportBatchRequest struct {
	Source        string                `json:"source" binding:"required"`
	ToleranceDays int                   `json:"tolerance_days" binding:"min=0"`
	Records       []ImportRecordRequest `json:"records" binding:"required,min=1"`
}

// CommitMatchRequest represents a request to link a document to a bank transaction
type CommitMatchRequest struct {
	DocumentID string `json:"document_id" binding:"required,uuid"`
	BankTxnID  string `json:"bank_txn_id" binding:"required,uuid"`
}

// SplitLineRequest is one requested allocation line
type SplitLineRequest struct {
	AmountCents     int64  `json:"amount_cents" binding:"required"`
	GLCode          string `json:"gl_code" binding:"required"`
	PaymentMethod   string `json:"payment_method" binding:"required"`
	TaxCode         string `json:"tax_code,omitempty"`
	CarriesBankLink bool   `json:"carries_bank_link,omitempty"`
	HeldBy          string `json:"held_by,omitempty"`
	Description     string `json:"description,omitempty"`
}

// SplitRequest represents a request to split a document into allocation lines
type SplitRequest struct {
	Lines []SplitLineRequest `json:"lines" binding:"required,min=1"`
}

// SuppressDuplicateRequest represents a request to suppress one side of a
// duplicate pair. The pair's confidence is re-derived server-side; it is
// never taken from the client.
type SuppressDuplicateRequest struct {
	SuppressDocumentID string `json:"suppress_document_id" binding:"required,uuid"`
	OtherDocumentID    string `json:"other_document_id" binding:"required,uuid"`
}

// BankTxnRequest is one bank ledger feed line
type BankTxnRequest struct {
	TxnDate     string `json:"txn_date" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// BankFeedRequest represents a bank ledger feed upload
type BankFeedRequest struct {
	Transactions []BankTxnRequest `json:"transactions" binding:"required,min=1"`
}

// BankTxnStatusRequest represents a manual status change on a bank transaction
type BankTxnStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=unreconciled ignored"`
}

// DocumentResponse represents a financial document in API responses
type DocumentResponse struct {
	ID           string `json:"id"`
	AmountCents  int64  `json:"amount_cents"`
	DocDate      string `json:"doc_date"`
	Counterparty string `json:"counterparty"`
	BankTxnID    string `json:"bank_txn_id,omitempty"`
	ParentDocID  string `json:"parent_doc_id,omitempty"`
	Status       string `json:"status"`
	Fingerprint  string `json:"fingerprint"`
	Description  string `json:"description"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// TransactionResponse represents a bank transaction in API responses
type TransactionResponse struct {
	ID          string `json:"id"`
	AmountCents int64  `json:"amount_cents"`
	TxnDate     string `json:"txn_date"`
	Description string `json:"description"`
	Status      string `json:"reconciliation_status"`
	CreatedAt   string `json:"created_at"`
}

// MatchCandidateResponse represents one ranked match candidate
type MatchCandidateResponse struct {
	Txn              TransactionResponse `json:"txn"`
	DateDeltaDays    int                 `json:"date_delta_days"`
	AmountDeltaCents int64               `json:"amount_delta_cents"`
	ExactAmount      bool                `json:"exact_amount"`
	Competing        int                 `json:"competing"`
	Ambiguous        bool                `json:"ambiguous"`
}

// LineResponse represents an allocation line in API responses
type LineResponse struct {
	ID            string `json:"id"`
	ParentDocID   string `json:"parent_doc_id"`
	AmountCents   int64  `json:"amount_cents"`
	GLCode        string `json:"gl_code"`
	PaymentMethod string `json:"payment_method"`
	TaxCode       string `json:"tax_code"`
	TaxCents      int64  `json:"tax_cents"`
	BankTxnID     string `json:"bank_txn_id,omitempty"`
	HeldBy        string `json:"held_by,omitempty"`
	Description   string `json:"description,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}
