// Package processor runs the invoice artifact pipeline:
// validate, render, hash, sign, encode the QR payload and submit for clearance.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rezonia/zatca-middleware/internal/canonical"
	"github.com/rezonia/zatca-middleware/internal/clearance"
	moneydec "github.com/rezonia/zatca-middleware/internal/decimal"
	"github.com/rezonia/zatca-middleware/internal/model"
	"github.com/rezonia/zatca-middleware/internal/qr"
	"github.com/rezonia/zatca-middleware/internal/signature"
	"github.com/rezonia/zatca-middleware/internal/validator"
)

// Parse error messages
const (
	MsgInvalidJSON = "Invalid JSON"
	MsgNotAnObject = "invoice payload must be a JSON object"
)

// Result is the outcome of one successful pipeline run.
// It marshals to the wire shape of model.SubmissionResult.
type Result struct {
	model.SubmissionResult

	Invoice   *model.Invoice  `json:"-"`
	Document  string          `json:"-"`
	VATAmount decimal.Decimal `json:"-"`
}

// Pipeline orchestrates the artifact steps.
// It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	clock         clockwork.Clock
	newID         clearance.IDGenerator
	responder     clearance.Responder
	renderer      *canonical.Renderer
	vatRate       decimal.Decimal
	defaultSeller string
	logger        *zap.Logger
}

// PipelineOption configures the pipeline
type PipelineOption func(*Pipeline)

// WithClock sets the clock used for QR and response timestamps
func WithClock(clock clockwork.Clock) PipelineOption {
	return func(p *Pipeline) {
		p.clock = clock
	}
}

// WithIDGenerator sets the generator for submission and reference IDs
func WithIDGenerator(gen clearance.IDGenerator) PipelineOption {
	return func(p *Pipeline) {
		p.newID = gen
	}
}

// WithResponder replaces the sandbox clearance responder
func WithResponder(r clearance.Responder) PipelineOption {
	return func(p *Pipeline) {
		p.responder = r
	}
}

// WithCanonicalMode sets the canonical document interpolation mode
func WithCanonicalMode(mode canonical.Mode) PipelineOption {
	return func(p *Pipeline) {
		p.renderer = canonical.NewRenderer(mode)
	}
}

// WithVATRate overrides the VAT rate (fraction, e.g. 0.15)
func WithVATRate(rate decimal.Decimal) PipelineOption {
	return func(p *Pipeline) {
		p.vatRate = rate
	}
}

// WithDefaultSellerName sets the QR seller name used when the invoice has none
func WithDefaultSellerName(name string) PipelineOption {
	return func(p *Pipeline) {
		if name != "" {
			p.defaultSeller = name
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates a new processing pipeline
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		clock:         clockwork.NewRealClock(),
		newID:         clearance.NewUUID,
		renderer:      canonical.NewRenderer(canonical.ModeRaw),
		vatRate:       moneydec.DefaultVATRate,
		defaultSeller: model.DefaultSellerName,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.responder == nil {
		p.responder = clearance.NewSandboxResponder(
			clearance.WithClock(p.clock),
			clearance.WithIDGenerator(p.newID),
		)
	}
	return p
}

// ProcessJSON decodes a request body and runs the pipeline.
// Malformed bodies fail with *model.ParseError before any step runs.
func (p *Pipeline) ProcessJSON(ctx context.Context, body []byte) (*Result, error) {
	payload, err := DecodePayload(body)
	if err != nil {
		return nil, err
	}
	return p.Process(ctx, payload)
}

// Process runs every step in order and stops at the first failure.
// Failures are *model.ValidationError, *model.EncodingPreconditionError or a
// responder error.
func (p *Pipeline) Process(ctx context.Context, payload map[string]interface{}) (*Result, error) {
	inv, err := validator.Decode(payload)
	if err != nil {
		p.logger.Debug("invoice rejected", zap.Error(err))
		return nil, err
	}
	return p.ProcessInvoice(ctx, inv)
}

// ProcessInvoice runs the pipeline for an already validated invoice record
func (p *Pipeline) ProcessInvoice(ctx context.Context, inv *model.Invoice) (*Result, error) {
	vat := moneydec.CalculateVAT(inv.TotalAmount, p.vatRate)

	document := p.renderer.Render(inv, inv.PreviousInvoiceHash)
	encoded, hash := signature.HashDocument(document)
	sig := signature.Simulate(hash)

	qrPayload, err := qr.EncodeDisplay(qr.Display{
		SellerName: inv.Seller(p.defaultSeller),
		VATNumber:  inv.VATNumber,
		Timestamp:  clearance.FormatTimestamp(p.clock.Now()),
		Total:      inv.TotalAmount,
		VATAmount:  vat,
	})
	if err != nil {
		p.logger.Debug("qr encoding failed", zap.String("invoice", inv.InvoiceNumber), zap.Error(err))
		return nil, err
	}

	sub := &model.Submission{
		InvoiceHash: hash,
		UUID:        p.newID(),
		Invoice:     encoded,
		Signature:   sig,
	}

	resp, err := p.responder.Submit(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("clearance submission failed: %w", err)
	}

	p.logger.Debug("invoice cleared",
		zap.String("invoice", inv.InvoiceNumber),
		zap.String("hash", hash),
		zap.Bool("first_in_chain", inv.IsFirstInChain()),
		zap.String("reference_id", resp.ReferenceID),
	)

	return &Result{
		SubmissionResult: model.SubmissionResult{
			Status:      model.StatusSubmitted,
			InvoiceHash: hash,
			Signature:   sig,
			QRBase64:    qrPayload,
			Request:     sub,
			Response:    resp,
		},
		Invoice:   inv,
		Document:  document,
		VATAmount: vat,
	}, nil
}

// DecodePayload parses a request body into a JSON object, keeping numbers exact
func DecodePayload(body []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, model.NewParseError("", MsgInvalidJSON, err)
	}
	// Trailing content after the first value is not JSON
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, model.NewParseError("", MsgInvalidJSON, err)
	}

	payload, ok := v.(map[string]interface{})
	if !ok {
		return nil, model.NewParseError("", MsgNotAnObject, nil)
	}
	return payload, nil
}

// Messages converts a pipeline error into caller-facing messages
func Messages(err error) []string {
	var (
		verr *model.ValidationError
		perr *model.ParseError
	)
	switch {
	case errors.As(err, &verr):
		return verr.Messages()
	case errors.As(err, &perr):
		return []string{perr.Message}
	default:
		return []string{err.Error()}
	}
}
