// Package canonical renders invoices into the fixed UBL-style document that gets hashed,
// and reads such documents back.
package canonical

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/rezonia/zatca-middleware/internal/decimal"
	"github.com/rezonia/zatca-middleware/internal/model"
)

// FirstInvoice stands in for the previous hash on the first invoice of a chain.
// It is not hex and can never equal a real digest.
const FirstInvoice = "FIRST_INVOICE"

// Currency of the payable amount
const Currency = "SAR"

// Mode controls how field values are interpolated
type Mode int

const (
	// ModeRaw interpolates values verbatim. Values containing markup characters
	// produce a malformed or altered document; digests of existing chains depend on it.
	ModeRaw Mode = iota
	// ModeEscaped XML-escapes values before interpolation
	ModeEscaped
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case ModeRaw:
		return "raw"
	case ModeEscaped:
		return "escaped"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode name
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "raw":
		return ModeRaw, nil
	case "escaped":
		return ModeEscaped, nil
	default:
		return ModeRaw, fmt.Errorf("unknown canonical mode %q", s)
	}
}

// Field order and wrappers never vary with input.
const documentTemplate = `<Invoice
  xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
  xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
  xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">

  <cbc:ID>%s</cbc:ID>
  <cbc:IssueDate>%s</cbc:IssueDate>

  <cac:AdditionalDocumentReference>
    <cbc:ID>PreviousInvoiceHash</cbc:ID>
    <cbc:UUID>%s</cbc:UUID>
  </cac:AdditionalDocumentReference>

  <cac:AccountingSupplierParty>
    <cac:Party>
      <cbc:CompanyID>%s</cbc:CompanyID>
    </cac:Party>
  </cac:AccountingSupplierParty>

  <cac:LegalMonetaryTotal>
    <cbc:PayableAmount currencyID="` + Currency + `">%s</cbc:PayableAmount>
  </cac:LegalMonetaryTotal>

</Invoice>`

// Renderer produces canonical documents
type Renderer struct {
	mode Mode
}

// NewRenderer creates a renderer for the given mode
func NewRenderer(mode Mode) *Renderer {
	return &Renderer{mode: mode}
}

// Mode returns the interpolation mode
func (r *Renderer) Mode() Mode {
	return r.mode
}

// Render maps an invoice and previous-hash reference into the canonical document.
// An empty previousHash is replaced with FirstInvoice.
func (r *Renderer) Render(inv *model.Invoice, previousHash string) string {
	if previousHash == "" {
		previousHash = FirstInvoice
	}
	return fmt.Sprintf(documentTemplate,
		r.value(inv.InvoiceNumber),
		r.value(inv.IssueDate),
		r.value(previousHash),
		r.value(inv.VATNumber),
		r.value(decimal.Format(inv.TotalAmount)),
	)
}

func (r *Renderer) value(s string) string {
	if r.mode != ModeEscaped {
		return s
	}
	var buf bytes.Buffer
	// EscapeText only fails on writer errors, which bytes.Buffer never returns
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// Render renders with the default raw mode
func Render(inv *model.Invoice, previousHash string) string {
	return NewRenderer(ModeRaw).Render(inv, previousHash)
}
