package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with flags reset to their defaults
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	outputFile, previousHash, chainFiles, verifyIndependent = "", "", false, false
	outputFormat, configFile, verbose = "json", "", false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeInvoice(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestSubmitAndVerifyChain(t *testing.T) {
	dir := t.TempDir()
	first := writeInvoice(t, dir, "inv-1.json",
		`{"invoiceNumber":"INV-1","vatNumber":"300123456700003","issueDate":"2024-01-01","totalAmount":115}`)
	second := writeInvoice(t, dir, "inv-2.json",
		`{"invoiceNumber":"INV-2","vatNumber":"300123456700003","issueDate":"2024-01-02","totalAmount":50}`)
	chain := filepath.Join(dir, "chain.json")

	_, err := run(t, "submit", "--chain", first, second, "-o", chain)
	require.NoError(t, err)

	data, err := os.ReadFile(chain)
	require.NoError(t, err)

	var records []struct {
		File   string `json:"file"`
		Result struct {
			Status      string `json:"status"`
			InvoiceHash string `json:"invoiceHash"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "SUBMITTED_TO_SANDBOX", records[0].Result.Status)
	assert.Len(t, records[1].Result.InvoiceHash, 64)

	out, err := run(t, "verify", chain)
	require.NoError(t, err)

	var verified []VerifyRecord
	require.NoError(t, json.Unmarshal([]byte(out), &verified))
	require.Len(t, verified, 2)
	assert.True(t, verified[0].Result.FirstInvoice)
	assert.True(t, verified[1].Result.ChainLinked)
	assert.Equal(t, records[0].Result.InvoiceHash, verified[1].Result.PreviousInvoiceHash)
}

func TestVerify_UnchainedFilesFail(t *testing.T) {
	dir := t.TempDir()
	first := writeInvoice(t, dir, "inv-1.json",
		`{"invoiceNumber":"INV-1","vatNumber":"300123456700003","issueDate":"2024-01-01","totalAmount":115}`)
	second := writeInvoice(t, dir, "inv-2.json",
		`{"invoiceNumber":"INV-2","vatNumber":"300123456700003","issueDate":"2024-01-02","totalAmount":50}`)
	out := filepath.Join(dir, "out.json")

	_, err := run(t, "submit", first, second, "-o", out)
	require.NoError(t, err)

	_, err = run(t, "verify", out)
	require.Error(t, err)

	_, err = run(t, "verify", "--independent", out)
	require.NoError(t, err)
}

func TestSubmit_PreviousHashNeedsChain(t *testing.T) {
	dir := t.TempDir()
	first := writeInvoice(t, dir, "a.json", `{}`)
	second := writeInvoice(t, dir, "b.json", `{}`)

	_, err := run(t, "submit", "--previous-hash", "abc", first, second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires --chain")
}

func TestSubmit_InvalidInvoice(t *testing.T) {
	dir := t.TempDir()
	path := writeInvoice(t, dir, "bad.json", `{"invoiceNumber":"INV-1"}`)

	out, err := run(t, "submit", path)
	require.Error(t, err)

	var records []SubmitRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, []string{"vatNumber is required", "issueDate is required", "totalAmount is required"}, records[0].Errors)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeInvoice(t, dir, "good.json",
		`{"invoiceNumber":"INV-1","vatNumber":"300123456700003","issueDate":"2024-01-01","totalAmount":0}`)
	bad := writeInvoice(t, dir, "bad.json", `not json`)

	out, err := run(t, "validate", good)
	require.NoError(t, err)

	var results []ValidationResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.True(t, results[0].Valid)

	out, err = run(t, "validate", bad)
	require.Error(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.Equal(t, []string{"Invalid JSON"}, results[0].Errors)
}

func TestQRDecode(t *testing.T) {
	out, err := run(t, "qr", "decode", "AQtERU1PIFNFTExFUg==")
	require.NoError(t, err)

	var fields []QRField
	require.NoError(t, json.Unmarshal([]byte(out), &fields))
	require.Len(t, fields, 1)
	assert.Equal(t, QRField{Tag: 1, Name: "sellerName", Length: 11, Value: "DEMO SELLER"}, fields[0])

	_, err = run(t, "qr", "decode", "AQ==")
	require.Error(t, err)
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := run(t, "qr", "decode", "AQtERU1PIFNFTExFUg==", "-f", "csv")
	require.Error(t, err)
}
