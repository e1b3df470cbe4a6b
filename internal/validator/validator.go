// Package validator checks inbound invoice payloads and turns them into invoice records.
//
// Payloads are the result of decoding a JSON object, ideally with json.Decoder.UseNumber
// so amounts keep their exact decimal form.
package validator

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rezonia/zatca-middleware/internal/decimal"
	"github.com/rezonia/zatca-middleware/internal/model"
)

// Payload keys
const (
	FieldInvoiceNumber       = "invoiceNumber"
	FieldVATNumber           = "vatNumber"
	FieldIssueDate           = "issueDate"
	FieldTotalAmount         = "totalAmount"
	FieldSellerName          = "sellerName"
	FieldPreviousInvoiceHash = "previousInvoiceHash"
)

var requiredText = []string{FieldInvoiceNumber, FieldVATNumber, FieldIssueDate}

// Validate evaluates every rule and returns the violations in rule order.
// An empty slice means the payload is valid.
func Validate(payload map[string]interface{}) []*model.FieldError {
	var fields []*model.FieldError

	for _, key := range requiredText {
		v, ok := payload[key]
		if !ok || !truthy(v) {
			fields = append(fields, model.NewFieldError(key, v, model.RuleRequired, key+" is required"))
		}
	}

	// Zero is a legal amount, so presence is checked rather than truthiness
	total, ok := payload[FieldTotalAmount]
	if !ok {
		fields = append(fields, model.NewFieldError(FieldTotalAmount, nil, model.RuleRequired, FieldTotalAmount+" is required"))
	} else if !decimal.IsNumber(total) {
		fields = append(fields, model.NewFieldError(FieldTotalAmount, total, model.RuleNumber, FieldTotalAmount+" must be a number"))
	}

	return fields
}

// Messages returns only the caller-facing messages of Validate
func Messages(payload map[string]interface{}) []string {
	fields := Validate(payload)
	messages := make([]string, 0, len(fields))
	for _, f := range fields {
		messages = append(messages, f.Message)
	}
	return messages
}

// Decode validates the payload and builds the invoice record.
// Returns *model.ValidationError when any rule fails.
func Decode(payload map[string]interface{}) (*model.Invoice, error) {
	if verr := model.NewValidationError(Validate(payload)); verr != nil {
		return nil, verr
	}

	total, err := decimal.FromJSON(payload[FieldTotalAmount])
	if err != nil {
		return nil, model.NewValidationError([]*model.FieldError{
			model.NewFieldError(FieldTotalAmount, payload[FieldTotalAmount], model.RuleNumber, FieldTotalAmount+" must be a number"),
		})
	}

	inv := &model.Invoice{
		InvoiceNumber: text(payload[FieldInvoiceNumber]),
		VATNumber:     text(payload[FieldVATNumber]),
		IssueDate:     text(payload[FieldIssueDate]),
		TotalAmount:   total,
	}

	if v, ok := payload[FieldSellerName]; ok && truthy(v) {
		inv.SellerName = text(v)
	}
	if v, ok := payload[FieldPreviousInvoiceHash]; ok && truthy(v) {
		inv.PreviousInvoiceHash = text(v)
	}

	return inv, nil
}

// truthy follows JSON-value truthiness: null, false, "" and numeric zero are falsy
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	case float32:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}

// text renders a JSON scalar the way it would print inside a document
func text(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	default:
		if decimal.IsNumber(t) {
			if d, err := decimal.FromJSON(t); err == nil {
				return decimal.Format(d)
			}
		}
		return fmt.Sprint(t)
	}
}
