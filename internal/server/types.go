package server

import (
	"github.com/rezonia/zatca-middleware/internal/model"
	"github.com/rezonia/zatca-middleware/internal/qr"
	"github.com/rezonia/zatca-middleware/internal/signature"
)

// WebhookResponse acknowledges a POS webhook
type WebhookResponse struct {
	Status string `json:"status"`
}

// ValidationResponse is the response for validate endpoint
type ValidationResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// VerifyRequest carries submissions to verify, oldest first.
// PreviousInvoiceHash applies to a single submission only.
type VerifyRequest struct {
	Submissions         []*model.Submission `json:"submissions"`
	PreviousInvoiceHash string              `json:"previousInvoiceHash,omitempty"`
}

// VerifyResponse is the response for verify endpoint
type VerifyResponse struct {
	Valid   bool                            `json:"valid"`
	Results []*signature.VerificationResult `json:"results"`
	Error   string                          `json:"error,omitempty"`
}

// DecodeQRRequest carries a base64 QR payload
type DecodeQRRequest struct {
	QRBase64 string `json:"qrBase64"`
}

// QRField is one decoded TLV field
type QRField struct {
	Tag    int    `json:"tag"`
	Name   string `json:"name"`
	Length int    `json:"length"`
	Value  string `json:"value"`
}

// DecodeQRResponse is the response for QR decode endpoint
type DecodeQRResponse struct {
	Fields  []QRField   `json:"fields"`
	Display *qr.Decoded `json:"display,omitempty"`
}
