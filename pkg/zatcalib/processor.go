package zatcalib

import (
	"context"
	"fmt"
	"io"

	"github.com/rezonia/zatca-middleware/internal/model"
	"github.com/rezonia/zatca-middleware/internal/processor"
	"github.com/rezonia/zatca-middleware/internal/signature"
	"github.com/rezonia/zatca-middleware/internal/validator"
)

// Processor implements Pipeline and Verifier using the internal pipeline
type Processor struct {
	pipeline *processor.Pipeline
	verifier *signature.Verifier
	options  PipelineOptions
}

// NewProcessor creates a new invoice processor with the given options
func NewProcessor(opts PipelineOptions) *Processor {
	pipelineOpts := []processor.PipelineOption{
		processor.WithDefaultSellerName(opts.DefaultSellerName),
		processor.WithCanonicalMode(opts.CanonicalMode),
		processor.WithLogger(opts.Logger),
	}
	if !opts.VATRate.IsZero() {
		pipelineOpts = append(pipelineOpts, processor.WithVATRate(opts.VATRate))
	}
	if opts.Clock != nil {
		pipelineOpts = append(pipelineOpts, processor.WithClock(opts.Clock))
	}
	if opts.IDGenerator != nil {
		pipelineOpts = append(pipelineOpts, processor.WithIDGenerator(opts.IDGenerator))
	}

	return &Processor{
		pipeline: processor.NewPipeline(pipelineOpts...),
		verifier: signature.NewVerifier(),
		options:  opts,
	}
}

// NewDefaultProcessor creates a processor with default options
func NewDefaultProcessor() *Processor {
	return NewProcessor(DefaultPipelineOptions())
}

// Submit processes one JSON invoice payload
func (p *Processor) Submit(ctx context.Context, r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewParseError("", "failed to read input", err)
	}
	return p.pipeline.ProcessJSON(ctx, data)
}

// Validate returns the validation messages for one JSON invoice payload.
// An empty slice means the payload would be accepted.
func (p *Processor) Validate(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewParseError("", "failed to read input", err)
	}
	payload, err := processor.DecodePayload(data)
	if err != nil {
		return nil, err
	}
	return validator.Messages(payload), nil
}

// SubmitBatch processes multiple independent inputs concurrently.
// Results keep input order; failed inputs leave a nil entry and the first error is returned.
func (p *Processor) SubmitBatch(ctx context.Context, inputs []io.Reader) ([]*Result, error) {
	results := make([]*Result, len(inputs))
	errCh := make(chan error, len(inputs))

	for i, input := range inputs {
		go func(idx int, r io.Reader) {
			result, err := p.Submit(ctx, r)
			if err != nil {
				errCh <- fmt.Errorf("input %d: %w", idx, err)
				return
			}
			results[idx] = result
			errCh <- nil
		}(i, input)
	}

	// Wait for all goroutines
	var firstErr error
	for range inputs {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return results, firstErr
}

// SubmitChain processes inputs in order. Every input after the first has its
// previousInvoiceHash set to the digest of the one before it; the first keeps
// whatever reference it carries. Processing stops at the first failure and the
// results produced so far are returned.
func (p *Processor) SubmitChain(ctx context.Context, inputs []io.Reader) ([]*Result, error) {
	return p.SubmitChainFrom(ctx, "", inputs)
}

// SubmitChainFrom is SubmitChain continuing an existing chain: a non-empty
// previousHash replaces the first input's reference.
func (p *Processor) SubmitChainFrom(ctx context.Context, previousHash string, inputs []io.Reader) ([]*Result, error) {
	results := make([]*Result, 0, len(inputs))
	previous := previousHash

	for i, r := range inputs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		data, err := io.ReadAll(r)
		if err != nil {
			return results, fmt.Errorf("input %d: %w", i, model.NewParseError("", "failed to read input", err))
		}
		payload, err := processor.DecodePayload(data)
		if err != nil {
			return results, fmt.Errorf("input %d: %w", i, err)
		}
		if i > 0 || previous != "" {
			payload[validator.FieldPreviousInvoiceHash] = previous
		}

		result, err := p.pipeline.Process(ctx, payload)
		if err != nil {
			return results, fmt.Errorf("input %d: %w", i, err)
		}

		results = append(results, result)
		previous = result.InvoiceHash
	}

	return results, nil
}

// Verify checks the digests of one submission
func (p *Processor) Verify(ctx context.Context, sub *Submission) (*VerificationResult, error) {
	return p.verifier.Verify(ctx, sub)
}

// VerifyChain checks digests and previous-hash links of an ordered sequence
func (p *Processor) VerifyChain(ctx context.Context, subs []*Submission) ([]*VerificationResult, error) {
	return p.verifier.VerifyChain(ctx, subs)
}

// Options returns the options the processor was built with
func (p *Processor) Options() PipelineOptions {
	return p.options
}

var (
	_ Pipeline = (*Processor)(nil)
	_ Verifier = (*Processor)(nil)
)
