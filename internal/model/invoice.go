package model

import (
	"github.com/shopspring/decimal"
)

// Result statuses
const (
	StatusSubmitted = "SUBMITTED_TO_SANDBOX"
	StatusError     = "ERROR"
	StatusReceived  = "RECEIVED"
)

// Clearance statuses returned by the sandbox responder
const (
	ClearanceStatusCleared  = "CLEARED"
	ReportingStatusReported = "REPORTED"
)

// DefaultSellerName is used on the QR payload when the request has no seller name
const DefaultSellerName = "DEMO SELLER"

// Invoice is a validated point-of-sale invoice record.
// It lives for a single pipeline run and is never persisted.
type Invoice struct {
	InvoiceNumber string          `json:"invoiceNumber"`
	VATNumber     string          `json:"vatNumber"`
	IssueDate     string          `json:"issueDate"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	SellerName    string          `json:"sellerName,omitempty"`

	// PreviousInvoiceHash is the digest of the prior invoice in the caller's chain.
	// Empty on the first invoice.
	PreviousInvoiceHash string `json:"previousInvoiceHash,omitempty"`
}

// Seller returns the seller name, falling back to fallback and then to
// DefaultSellerName when both are empty
func (inv *Invoice) Seller(fallback string) string {
	switch {
	case inv.SellerName != "":
		return inv.SellerName
	case fallback != "":
		return fallback
	}
	return DefaultSellerName
}

// IsFirstInChain reports whether the invoice has no previous hash reference
func (inv *Invoice) IsFirstInChain() bool {
	return inv.PreviousInvoiceHash == ""
}

// Submission is the payload handed to the clearance authority
type Submission struct {
	InvoiceHash string `json:"invoiceHash"`
	UUID        string `json:"uuid"`
	Invoice     string `json:"invoice"` // base64 canonical document
	Signature   string `json:"signature"`
}

// ClearanceResponse is the authority's answer to a submission
type ClearanceResponse struct {
	ClearanceStatus string `json:"clearanceStatus"`
	ReportingStatus string `json:"reportingStatus"`
	ReferenceID     string `json:"referenceId"`
	Timestamp       string `json:"timestamp"`
}

// SubmissionResult is the successful outcome of one pipeline run
type SubmissionResult struct {
	Status      string             `json:"status"`
	InvoiceHash string             `json:"invoiceHash"`
	Signature   string             `json:"signature"`
	QRBase64    string             `json:"qrBase64"`
	Request     *Submission        `json:"request,omitempty"`
	Response    *ClearanceResponse `json:"response"`
}

// ErrorResult is the failure shape returned to callers
type ErrorResult struct {
	Status string   `json:"status"`
	Errors []string `json:"errors"`
}

// NewErrorResult creates an error result from messages
func NewErrorResult(messages ...string) *ErrorResult {
	if messages == nil {
		messages = []string{}
	}
	return &ErrorResult{
		Status: StatusError,
		Errors: messages,
	}
}
