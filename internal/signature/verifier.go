package signature

import (
	"context"

	"github.com/rezonia/zatca-middleware/internal/canonical"
	"github.com/rezonia/zatca-middleware/internal/model"
)

// Verifier recomputes the digests of a submission and checks its chain reference.
// It holds no state; the chain is whatever sequence the caller supplies.
type Verifier struct{}

// NewVerifier creates a new submission verifier
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify checks the hash and signature of a single submission without a chain check.
// The digests are recomputed from the encoded document before it is parsed, so an
// unreadable document still reports them. An error is returned only when the
// submission is missing or its document is not valid base64.
func (v *Verifier) Verify(ctx context.Context, sub *model.Submission) (*VerificationResult, error) {
	result := NewVerificationResult()
	if sub == nil {
		result.AddError("submission is empty")
		return result, ErrInvalidDocument(nil)
	}

	hash := Hash(sub.Invoice)
	result.InvoiceHash = hash
	if hash == sub.InvoiceHash {
		result.HashValid = true
	} else {
		result.AddError(ErrHashMismatch(hash, sub.InvoiceHash).Error())
	}

	// The signature is checked against the recomputed hash, not the submitted one
	if Simulate(hash) == sub.Signature {
		result.SignatureValid = true
	} else {
		result.AddError(ErrSignatureMismatch().Error())
	}

	data, err := canonical.Decode(sub.Invoice)
	if err != nil {
		result.AddError(err.Error())
		result.ComputeValidity()
		return result, ErrInvalidDocument(err)
	}

	doc, err := canonical.Read(data)
	if err != nil {
		// Digests stand; only the chain reference is unknown
		result.AddError(ErrInvalidDocument(err).Error())
		result.ComputeValidity()
		return result, nil
	}
	result.DocumentDecoded = true
	result.InvoiceNumber = doc.InvoiceNumber
	result.PreviousInvoiceHash = doc.PreviousInvoiceHash
	result.FirstInvoice = doc.IsFirstInvoice()

	if !result.FirstInvoice && !IsDigest(doc.PreviousInvoiceHash) {
		result.AddWarning("previous invoice reference is not a SHA-256 digest")
	}

	result.ComputeValidity()
	return result, nil
}

// VerifyLink verifies a submission and checks that it references previousHash.
// An empty previousHash means the submission must be the first of its chain.
func (v *Verifier) VerifyLink(ctx context.Context, sub *model.Submission, previousHash string) (*VerificationResult, error) {
	result, err := v.Verify(ctx, sub)
	if err != nil {
		return result, err
	}

	if !result.DocumentDecoded {
		result.AddWarning("chain link cannot be determined")
		return result, nil
	}

	expected := previousHash
	if expected == "" {
		expected = canonical.FirstInvoice
	}

	result.ChainChecked = true
	if result.PreviousInvoiceHash == expected {
		result.ChainLinked = true
	} else {
		result.AddError(ErrChainBroken(expected, result.PreviousInvoiceHash).Error())
	}

	result.ComputeValidity()
	return result, nil
}

// VerifyChain verifies an ordered sequence of submissions.
// The first submission may reference any earlier invoice; a warning is added when it
// is not the start of a chain. Every later submission must reference its predecessor.
func (v *Verifier) VerifyChain(ctx context.Context, subs []*model.Submission) ([]*VerificationResult, error) {
	if len(subs) == 0 {
		return nil, ErrEmptyChain()
	}

	results := make([]*VerificationResult, 0, len(subs))
	previous := ""
	for i, sub := range subs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		var (
			result *VerificationResult
			err    error
		)
		if i == 0 {
			result, err = v.Verify(ctx, sub)
			if err == nil && result.DocumentDecoded && !result.FirstInvoice {
				result.AddWarning("chain does not start at the first invoice")
			}
		} else {
			result, err = v.VerifyLink(ctx, sub, previous)
		}
		if err != nil {
			return append(results, result), err
		}

		results = append(results, result)
		previous = result.InvoiceHash
	}

	return results, nil
}
