package canonical

import (
	"encoding/base64"
	"fmt"

	"github.com/beevik/etree"

	"github.com/rezonia/zatca-middleware/internal/model"
)

// Element paths relative to the Invoice root
const (
	pathID            = "cbc:ID"
	pathIssueDate     = "cbc:IssueDate"
	pathPreviousHash  = "cac:AdditionalDocumentReference/cbc:UUID"
	pathCompanyID     = "cac:AccountingSupplierParty/cac:Party/cbc:CompanyID"
	pathPayableAmount = "cac:LegalMonetaryTotal/cbc:PayableAmount"
)

// Document holds the fields read back from a canonical document
type Document struct {
	InvoiceNumber       string `json:"invoiceNumber"`
	IssueDate           string `json:"issueDate"`
	PreviousInvoiceHash string `json:"previousInvoiceHash"`
	VATNumber           string `json:"vatNumber"`
	PayableAmount       string `json:"payableAmount"`
	Currency            string `json:"currency"`
}

// IsFirstInvoice reports whether the document carries the first-invoice sentinel
func (d *Document) IsFirstInvoice() bool {
	return d.PreviousInvoiceHash == FirstInvoice
}

// Read parses canonical document text. Raw-mode documents may carry unescaped
// markup characters, so the parser runs in permissive mode.
func Read(data []byte) (*Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, model.NewParseError("document", "failed to parse canonical XML", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, model.NewParseError("document", "empty canonical document", nil)
	}
	if root.Tag != "Invoice" {
		return nil, model.NewParseError("document", fmt.Sprintf("unexpected root element %q", root.FullTag()), nil)
	}

	d := &Document{}
	required := []struct {
		path string
		dst  *string
	}{
		{pathID, &d.InvoiceNumber},
		{pathIssueDate, &d.IssueDate},
		{pathPreviousHash, &d.PreviousInvoiceHash},
		{pathCompanyID, &d.VATNumber},
		{pathPayableAmount, &d.PayableAmount},
	}
	for _, r := range required {
		elem := root.FindElement(r.path)
		if elem == nil {
			return nil, model.NewParseError(r.path, "element not found", nil)
		}
		*r.dst = elem.Text()
	}

	if amount := root.FindElement(pathPayableAmount); amount != nil {
		d.Currency = amount.SelectAttrValue("currencyID", "")
	}

	return d, nil
}

// Decode returns the document text of a base64-encoded canonical document,
// as carried in a submission
func Decode(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, model.NewParseError("invoice", "invalid base64 document", err)
	}
	return data, nil
}
