package signature

// VerificationResult contains the complete verification outcome of one submission
type VerificationResult struct {
	// Overall validity - true only if all checks pass
	Valid bool `json:"valid"`

	// Individual check results
	DocumentDecoded bool `json:"document_decoded"`
	HashValid       bool `json:"hash_valid"`
	SignatureValid  bool `json:"signature_valid"`
	ChainChecked    bool `json:"chain_checked"`
	ChainLinked     bool `json:"chain_linked"`

	// FirstInvoice is true when the document carries the first-invoice sentinel
	FirstInvoice bool `json:"first_invoice"`

	InvoiceNumber       string `json:"invoice_number,omitempty"`
	InvoiceHash         string `json:"invoice_hash,omitempty"`
	PreviousInvoiceHash string `json:"previous_invoice_hash,omitempty"`

	// Warnings (non-fatal issues)
	Warnings []string `json:"warnings,omitempty"`

	// Errors (reasons for invalid result)
	Errors []string `json:"errors,omitempty"`
}

// NewVerificationResult creates a new empty result
func NewVerificationResult() *VerificationResult {
	return &VerificationResult{
		Warnings: make([]string, 0),
		Errors:   make([]string, 0),
	}
}

// AddWarning adds a warning message to the result
func (r *VerificationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// AddError adds an error message and sets Valid to false
func (r *VerificationResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Valid = false
}

// ComputeValidity sets the Valid field based on individual check results.
// The chain only counts when it was checked.
func (r *VerificationResult) ComputeValidity() {
	r.Valid = r.DocumentDecoded &&
		r.HashValid &&
		r.SignatureValid &&
		(!r.ChainChecked || r.ChainLinked) &&
		len(r.Errors) == 0
}
