package processor_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"

	"github.com/rezonia/zatca-middleware/internal/canonical"
	"github.com/rezonia/zatca-middleware/internal/model"
	"github.com/rezonia/zatca-middleware/internal/processor"
	"github.com/rezonia/zatca-middleware/internal/qr"
	"github.com/rezonia/zatca-middleware/internal/signature"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

var fixedTime = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
	}
}

func newTestPipeline(opts ...processor.PipelineOption) *processor.Pipeline {
	base := []processor.PipelineOption{
		processor.WithClock(clockwork.NewFakeClockAt(fixedTime)),
		processor.WithIDGenerator(sequentialIDs()),
	}
	return processor.NewPipeline(append(base, opts...)...)
}

const inv1 = `{"invoiceNumber":"INV-1","vatNumber":"300123456700003","issueDate":"2024-01-01","totalAmount":115}`

func TestNewPipeline(t *testing.T) {
	p := processor.NewPipeline()
	require.NotNil(t, p)
}

func TestProcessJSON_EndToEnd(t *testing.T) {
	p := newTestPipeline()

	result, err := p.ProcessJSON(context.Background(), []byte(inv1))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, model.StatusSubmitted, result.Status)
	assert.Regexp(t, hexDigest, result.InvoiceHash)
	assert.Regexp(t, hexDigest, result.Signature)
	assert.NotEmpty(t, result.QRBase64)
	require.NotNil(t, result.Response)
	assert.Equal(t, "CLEARED", result.Response.ClearanceStatus)
	assert.Equal(t, "REPORTED", result.Response.ReportingStatus)
	assert.Equal(t, "2024-01-01T10:00:00.000Z", result.Response.Timestamp)

	// Digests derive from the canonical document
	assert.Equal(t, signature.Encode(result.Document), result.Request.Invoice)
	assert.Equal(t, signature.Hash(result.Request.Invoice), result.InvoiceHash)
	assert.Equal(t, signature.Simulate(result.InvoiceHash), result.Signature)
	assert.Contains(t, result.Document, "<cbc:UUID>FIRST_INVOICE</cbc:UUID>")
}

func TestProcessJSON_VAT(t *testing.T) {
	p := newTestPipeline()

	result, err := p.ProcessJSON(context.Background(), []byte(inv1))
	require.NoError(t, err)
	assert.Equal(t, "17.25", result.VATAmount.String())

	decoded, err := qr.DecodeDisplay(result.QRBase64)
	require.NoError(t, err)
	assert.Equal(t, "DEMO SELLER", decoded.SellerName)
	assert.Equal(t, "300123456700003", decoded.VATNumber)
	assert.Equal(t, "2024-01-01T10:00:00.000Z", decoded.Timestamp)
	assert.Equal(t, "115", decoded.Total)
	assert.Equal(t, "17.25", decoded.VATAmount)
}

func TestProcessJSON_Deterministic(t *testing.T) {
	a, err := newTestPipeline().ProcessJSON(context.Background(), []byte(inv1))
	require.NoError(t, err)
	b, err := newTestPipeline().ProcessJSON(context.Background(), []byte(inv1))
	require.NoError(t, err)

	assert.Equal(t, a.SubmissionResult, b.SubmissionResult)
}

func TestProcessJSON_IDs(t *testing.T) {
	result, err := newTestPipeline().ProcessJSON(context.Background(), []byte(inv1))
	require.NoError(t, err)

	assert.Equal(t, "00000000-0000-4000-8000-000000000001", result.Request.UUID)
	assert.Equal(t, "00000000-0000-4000-8000-000000000002", result.Response.ReferenceID)
}

func TestProcessJSON_ChainLinkage(t *testing.T) {
	p := newTestPipeline()

	first, err := p.ProcessJSON(context.Background(), []byte(inv1))
	require.NoError(t, err)

	body := fmt.Sprintf(`{"invoiceNumber":"INV-2","vatNumber":"300123456700003","issueDate":"2024-01-02","totalAmount":50,"previousInvoiceHash":%q}`, first.InvoiceHash)
	second, err := p.ProcessJSON(context.Background(), []byte(body))
	require.NoError(t, err)

	assert.Contains(t, second.Document, "<cbc:UUID>"+first.InvoiceHash+"</cbc:UUID>")
	assert.NotContains(t, second.Document, canonical.FirstInvoice)
	assert.NotEqual(t, first.InvoiceHash, second.InvoiceHash)

	results, err := signature.NewVerifier().VerifyChain(context.Background(), []*model.Submission{first.Request, second.Request})
	require.NoError(t, err)
	assert.True(t, results[0].Valid)
	assert.True(t, results[1].Valid)
	assert.True(t, results[1].ChainLinked)
}

func TestProcessJSON_ZeroTotal(t *testing.T) {
	body := `{"invoiceNumber":"INV-0","vatNumber":"300","issueDate":"2024-01-01","totalAmount":0}`

	result, err := newTestPipeline().ProcessJSON(context.Background(), []byte(body))
	require.NoError(t, err)
	assert.True(t, result.VATAmount.IsZero())
}

func TestProcessJSON_SellerName(t *testing.T) {
	body := `{"invoiceNumber":"INV-1","vatNumber":"300","issueDate":"2024-01-01","totalAmount":10,"sellerName":"مؤسسة النخبة"}`

	result, err := newTestPipeline().ProcessJSON(context.Background(), []byte(body))
	require.NoError(t, err)

	decoded, err := qr.DecodeDisplay(result.QRBase64)
	require.NoError(t, err)
	assert.Equal(t, "مؤسسة النخبة", decoded.SellerName)
	assert.Equal(t, "1.5", decoded.VATAmount)
}

func TestProcessJSON_DefaultSellerOption(t *testing.T) {
	p := newTestPipeline(processor.WithDefaultSellerName("Branch 7"))

	result, err := p.ProcessJSON(context.Background(), []byte(inv1))
	require.NoError(t, err)

	decoded, err := qr.DecodeDisplay(result.QRBase64)
	require.NoError(t, err)
	assert.Equal(t, "Branch 7", decoded.SellerName)
}

func TestProcessJSON_VATRateOption(t *testing.T) {
	p := newTestPipeline(processor.WithVATRate(decimal.RequireFromString("0.05")))

	result, err := p.ProcessJSON(context.Background(), []byte(inv1))
	require.NoError(t, err)
	assert.Equal(t, "5.75", result.VATAmount.String())
}

func TestProcessJSON_CanonicalModeOption(t *testing.T) {
	body := `{"invoiceNumber":"A&B","vatNumber":"300","issueDate":"2024-01-01","totalAmount":1}`

	raw, err := newTestPipeline().ProcessJSON(context.Background(), []byte(body))
	require.NoError(t, err)
	escaped, err := newTestPipeline(processor.WithCanonicalMode(canonical.ModeEscaped)).ProcessJSON(context.Background(), []byte(body))
	require.NoError(t, err)

	assert.Contains(t, raw.Document, "<cbc:ID>A&B</cbc:ID>")
	assert.Contains(t, escaped.Document, "<cbc:ID>A&amp;B</cbc:ID>")
	assert.NotEqual(t, raw.InvoiceHash, escaped.InvoiceHash)
}

func TestProcessJSON_ValidationError(t *testing.T) {
	body := `{"invoiceNumber":"INV-1","totalAmount":"115"}`

	result, err := newTestPipeline().ProcessJSON(context.Background(), []byte(body))
	require.Error(t, err)
	assert.Nil(t, result)

	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{
		"vatNumber is required",
		"issueDate is required",
		"totalAmount must be a number",
	}, verr.Messages())
	assert.Equal(t, verr.Messages(), processor.Messages(err))
}

func TestProcessJSON_ValidationHaltsBeforeClearance(t *testing.T) {
	responder := &countingResponder{}
	p := newTestPipeline(processor.WithResponder(responder))

	_, err := p.ProcessJSON(context.Background(), []byte(`{}`))
	require.Error(t, err)
	assert.Equal(t, 0, responder.calls)
}

func TestProcessJSON_ParseError(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"not json", "not json", processor.MsgInvalidJSON},
		{"empty", "", processor.MsgInvalidJSON},
		{"trailing data", `{"a":1} x`, processor.MsgInvalidJSON},
		{"two objects", `{} {}`, processor.MsgInvalidJSON},
		{"array", `[1,2]`, processor.MsgNotAnObject},
		{"null", `null`, processor.MsgNotAnObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestPipeline().ProcessJSON(context.Background(), []byte(tt.body))
			require.Error(t, err)

			var perr *model.ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.message, perr.Message)
			assert.Equal(t, []string{tt.message}, processor.Messages(err))
		})
	}
}

func TestProcessJSON_EncodingPrecondition(t *testing.T) {
	body := fmt.Sprintf(`{"invoiceNumber":"INV-1","vatNumber":"300","issueDate":"2024-01-01","totalAmount":1,"sellerName":%q}`, strings.Repeat("x", 256))

	responder := &countingResponder{}
	_, err := newTestPipeline(processor.WithResponder(responder)).ProcessJSON(context.Background(), []byte(body))
	require.Error(t, err)

	var eerr *model.EncodingPreconditionError
	require.True(t, errors.As(err, &eerr))
	assert.Equal(t, qr.TagSellerName, eerr.Tag)
	assert.Equal(t, 0, responder.calls)
}

func TestProcess_ResponderError(t *testing.T) {
	p := newTestPipeline(processor.WithResponder(&countingResponder{err: assert.AnError}))

	_, err := p.ProcessJSON(context.Background(), []byte(inv1))
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "clearance submission failed")
}

func TestProcess_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := newTestPipeline(processor.WithLogger(zap.New(core)))

	_, err := p.ProcessJSON(context.Background(), []byte(inv1))
	require.NoError(t, err)

	entries := logs.FilterMessage("invoice cleared").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "INV-1", entries[0].ContextMap()["invoice"])
}

func TestResult_JSONShape(t *testing.T) {
	result, err := newTestPipeline().ProcessJSON(context.Background(), []byte(inv1))
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))

	for _, key := range []string{"status", "invoiceHash", "signature", "qrBase64", "request", "response"} {
		assert.Contains(t, m, key)
	}
	assert.NotContains(t, m, "Invoice")
	assert.NotContains(t, m, "Document")

	resp := m["response"].(map[string]interface{})
	for _, key := range []string{"clearanceStatus", "reportingStatus", "referenceId", "timestamp"} {
		assert.Contains(t, resp, key)
	}
}

func TestDecodePayload(t *testing.T) {
	payload, err := processor.DecodePayload([]byte(`{"totalAmount":115.50}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("115.50"), payload["totalAmount"])
}

func TestProcess_Concurrent(t *testing.T) {
	p := processor.NewPipeline()

	var wg sync.WaitGroup
	hashes := make([]string, 8)
	for i := range hashes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := p.ProcessJSON(context.Background(), []byte(inv1))
			if err == nil {
				hashes[i] = res.InvoiceHash
			}
		}(i)
	}
	wg.Wait()

	for _, h := range hashes {
		assert.Equal(t, hashes[0], h)
		assert.Regexp(t, hexDigest, h)
	}
}

func TestResult_DocumentIsEncodedInRequest(t *testing.T) {
	result, err := newTestPipeline().ProcessJSON(context.Background(), []byte(inv1))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(result.Request.Invoice)
	require.NoError(t, err)
	assert.Equal(t, result.Document, string(raw))
}

func TestProcessJSON_RawMarkupCharactersVerify(t *testing.T) {
	body := `{"invoiceNumber":"A&B","vatNumber":"300123456700003","issueDate":"2024-01-01","totalAmount":115}`

	result, err := newTestPipeline().ProcessJSON(context.Background(), []byte(body))
	require.NoError(t, err)
	assert.Contains(t, result.Document, "<cbc:ID>A&B</cbc:ID>")

	verified, err := signature.NewVerifier().Verify(context.Background(), result.Request)
	require.NoError(t, err)
	assert.True(t, verified.HashValid)
	assert.True(t, verified.SignatureValid)
	assert.True(t, verified.DocumentDecoded)
	assert.True(t, verified.Valid, "errors: %v", verified.Errors)
	assert.Equal(t, "A&B", verified.InvoiceNumber)
	assert.Equal(t, result.InvoiceHash, verified.InvoiceHash)
}

type countingResponder struct {
	calls int
	err   error
}

func (r *countingResponder) Submit(ctx context.Context, sub *model.Submission) (*model.ClearanceResponse, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &model.ClearanceResponse{ClearanceStatus: model.ClearanceStatusCleared}, nil
}

// Benchmark tests

func BenchmarkProcessJSON(b *testing.B) {
	ctx := context.Background()
	p := processor.NewPipeline()
	body := []byte(inv1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.ProcessJSON(ctx, body)
	}
}
