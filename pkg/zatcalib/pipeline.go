package zatcalib

import (
	"context"
	"io"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	moneydec "github.com/rezonia/zatca-middleware/internal/decimal"
	"github.com/rezonia/zatca-middleware/internal/model"
)

// Pipeline submits invoices through the clearance chain
type Pipeline interface {
	// Submit processes one JSON invoice payload
	Submit(ctx context.Context, r io.Reader) (*Result, error)

	// SubmitBatch processes independent payloads concurrently
	SubmitBatch(ctx context.Context, inputs []io.Reader) ([]*Result, error)

	// SubmitChain processes payloads in order, linking each to its predecessor
	SubmitChain(ctx context.Context, inputs []io.Reader) ([]*Result, error)
}

// Verifier checks submissions produced by a Pipeline
type Verifier interface {
	// Verify checks the digests of one submission
	Verify(ctx context.Context, sub *Submission) (*VerificationResult, error)

	// VerifyChain checks digests and previous-hash links of an ordered sequence
	VerifyChain(ctx context.Context, subs []*Submission) ([]*VerificationResult, error)
}

// PipelineOptions configures pipeline behavior
type PipelineOptions struct {
	// Invoice settings
	VATRate           decimal.Decimal // VAT fraction; zero uses 0.15
	DefaultSellerName string          // QR seller name when the payload has none
	CanonicalMode     CanonicalMode   // Document interpolation (default: raw)

	// Injected capabilities; nil uses the real clock and random UUIDs
	Clock       clockwork.Clock
	IDGenerator func() string

	Logger *zap.Logger
}

// DefaultPipelineOptions returns default pipeline options
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		VATRate:           moneydec.DefaultVATRate,
		DefaultSellerName: model.DefaultSellerName,
		CanonicalMode:     CanonicalRaw,
	}
}
