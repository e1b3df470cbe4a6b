package signature

import "fmt"

// Error codes for submission verification
const (
	ErrCodeInvalidDocument   = "INVALID_DOCUMENT"
	ErrCodeHashMismatch      = "HASH_MISMATCH"
	ErrCodeSignatureMismatch = "SIGNATURE_MISMATCH"
	ErrCodeChainBroken       = "CHAIN_BROKEN"
	ErrCodeEmptyChain        = "EMPTY_CHAIN"
)

// SignatureError represents submission verification errors
type SignatureError struct {
	Code    string
	Field   string
	Message string
	Cause   error
}

func (e *SignatureError) Error() string {
	if e.Field != "" && e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Code, e.Field, e.Message, e.Cause)
	}
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *SignatureError) Unwrap() error {
	return e.Cause
}

// NewSignatureError creates a new signature error
func NewSignatureError(code, field, message string, cause error) *SignatureError {
	return &SignatureError{
		Code:    code,
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// ErrInvalidDocument returns error when the submitted document cannot be read
func ErrInvalidDocument(cause error) *SignatureError {
	return NewSignatureError(ErrCodeInvalidDocument, "invoice", "submitted document cannot be read", cause)
}

// ErrHashMismatch returns error when the recomputed hash differs from the submitted one
func ErrHashMismatch(expected, got string) *SignatureError {
	return NewSignatureError(ErrCodeHashMismatch, "invoiceHash", fmt.Sprintf("expected %s, got %s", expected, got), nil)
}

// ErrSignatureMismatch returns error when the recomputed signature differs
func ErrSignatureMismatch() *SignatureError {
	return NewSignatureError(ErrCodeSignatureMismatch, "signature", "signature does not match invoice hash", nil)
}

// ErrChainBroken returns error when a document does not reference the expected previous hash
func ErrChainBroken(expected, got string) *SignatureError {
	return NewSignatureError(ErrCodeChainBroken, "previousInvoiceHash", fmt.Sprintf("expected %s, got %s", expected, got), nil)
}

// ErrEmptyChain returns error when there is nothing to verify
func ErrEmptyChain() *SignatureError {
	return NewSignatureError(ErrCodeEmptyChain, "", "no submissions to verify", nil)
}
