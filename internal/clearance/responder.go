// Package clearance answers invoice submissions on behalf of the tax authority.
//
// The only implementation is a local sandbox: it never contacts the authority and its
// responses carry no legal weight.
package clearance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/rezonia/zatca-middleware/internal/model"
)

// TimestampLayout renders UTC instants as ISO-8601 with millisecond precision
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp formats t in TimestampLayout
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// IDGenerator returns a fresh identifier in canonical UUID text form
type IDGenerator func() string

// NewUUID generates a random (version 4) UUID
func NewUUID() string {
	return uuid.NewString()
}

// Responder accepts a submission and returns the authority's answer
type Responder interface {
	Submit(ctx context.Context, sub *model.Submission) (*model.ClearanceResponse, error)
}

// SandboxResponder fabricates a "cleared" response locally.
// It ignores the submission content and performs no I/O.
type SandboxResponder struct {
	clock clockwork.Clock
	newID IDGenerator
}

// SandboxOption configures the sandbox responder
type SandboxOption func(*SandboxResponder)

// WithClock sets the clock used for response timestamps
func WithClock(clock clockwork.Clock) SandboxOption {
	return func(r *SandboxResponder) {
		r.clock = clock
	}
}

// WithIDGenerator sets the reference ID generator
func WithIDGenerator(gen IDGenerator) SandboxOption {
	return func(r *SandboxResponder) {
		r.newID = gen
	}
}

// NewSandboxResponder creates a sandbox responder
func NewSandboxResponder(opts ...SandboxOption) *SandboxResponder {
	r := &SandboxResponder{
		clock: clockwork.NewRealClock(),
		newID: NewUUID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit returns a CLEARED/REPORTED response with a fresh reference ID and the current time
func (r *SandboxResponder) Submit(ctx context.Context, sub *model.Submission) (*model.ClearanceResponse, error) {
	return &model.ClearanceResponse{
		ClearanceStatus: model.ClearanceStatusCleared,
		ReportingStatus: model.ReportingStatusReported,
		ReferenceID:     r.newID(),
		Timestamp:       FormatTimestamp(r.clock.Now()),
	}, nil
}
