// Package zatcalib provides a public API for preparing point-of-sale invoices for
// ZATCA-style clearance.
//
// Each submission is validated, rendered to a canonical XML document, hashed into the
// caller's invoice chain, given a simulated signature and a TLV QR payload, and
// answered by a local sandbox responder. Nothing here talks to the real authority.
//
// Example usage:
//
//	proc := zatcalib.NewDefaultProcessor()
//	result, err := proc.Submit(ctx, strings.NewReader(body))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.InvoiceHash, result.QRBase64)
package zatcalib

import (
	"github.com/rezonia/zatca-middleware/internal/canonical"
	"github.com/rezonia/zatca-middleware/internal/model"
	"github.com/rezonia/zatca-middleware/internal/processor"
	"github.com/rezonia/zatca-middleware/internal/signature"
)

// Re-export core types for public API
type (
	Invoice           = model.Invoice
	Submission        = model.Submission
	ClearanceResponse = model.ClearanceResponse
	SubmissionResult  = model.SubmissionResult
	ErrorResult       = model.ErrorResult
	Result            = processor.Result

	VerificationResult = signature.VerificationResult
	CanonicalMode      = canonical.Mode
)

// Re-export statuses
const (
	StatusSubmitted = model.StatusSubmitted
	StatusError     = model.StatusError
	StatusReceived  = model.StatusReceived
)

// Re-export canonical modes
const (
	CanonicalRaw     = canonical.ModeRaw
	CanonicalEscaped = canonical.ModeEscaped
)

// FirstInvoice is the previous-hash reference carried by the first invoice of a chain
const FirstInvoice = canonical.FirstInvoice

// Re-export error types
type (
	ParseError                = model.ParseError
	ValidationError           = model.ValidationError
	FieldError                = model.FieldError
	EncodingPreconditionError = model.EncodingPreconditionError
	SignatureError            = signature.SignatureError
)
