package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/zatca-middleware/internal/model"
	"github.com/rezonia/zatca-middleware/pkg/zatcalib"
)

var verifyIndependent bool

var verifyCmd = &cobra.Command{
	Use:   "verify [files...]",
	Short: "Verify submitted invoices and their hash chain",
	Long: `Verify the output of "submit".

Each file holds either the JSON written by "submit" (a list of records) or a
single submission result. Submissions are checked in file order:
  - the invoice hash matches the base64 document
  - the simulated signature matches the hash
  - each document references the hash of the one before it

Examples:
  zatca-middleware verify chain.json
  zatca-middleware verify --independent a.json b.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().BoolVar(&verifyIndependent, "independent", false, "Skip the previous-hash chain check")
}

// VerifyRecord holds the verification outcome of one submission
type VerifyRecord struct {
	File   string                       `json:"file"`
	Result *zatcalib.VerificationResult `json:"result"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	var (
		subs    []*model.Submission
		sources []string
	)
	for _, file := range files {
		printVerbose("Reading: %s\n", file)

		found, err := readSubmissions(file)
		if err != nil {
			return err
		}
		for _, sub := range found {
			subs = append(subs, sub)
			sources = append(sources, file)
		}
	}
	if len(subs) == 0 {
		return fmt.Errorf("no submissions found to verify")
	}

	proc, err := newProcessor()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var (
		results   []*zatcalib.VerificationResult
		verifyErr error
	)
	if verifyIndependent {
		for _, sub := range subs {
			result, err := proc.Verify(ctx, sub)
			results = append(results, result)
			if err != nil && verifyErr == nil {
				verifyErr = err
			}
		}
	} else {
		results, verifyErr = proc.VerifyChain(ctx, subs)
	}

	records := make([]*VerifyRecord, 0, len(results))
	allValid := verifyErr == nil
	for i, r := range results {
		records = append(records, &VerifyRecord{File: sources[i], Result: r})
		if !r.Valid {
			allValid = false
		}
	}

	w := cmd.OutOrStdout()
	if outputFormat == "json" {
		if err := writeJSON(w, records); err != nil {
			return err
		}
	} else {
		for _, rec := range records {
			r := rec.Result
			statusIcon, statusText := "✓", "VALID"
			if !r.Valid {
				statusIcon, statusText = "✗", "INVALID"
			}
			fmt.Fprintf(w, "%s %s %s: %s\n", statusIcon, rec.File, r.InvoiceNumber, statusText)
			fmt.Fprintf(w, "  Hash:      %s\n", mark(r.HashValid))
			fmt.Fprintf(w, "  Signature: %s\n", mark(r.SignatureValid))
			if r.ChainChecked {
				fmt.Fprintf(w, "  Chain:     %s\n", mark(r.ChainLinked))
			}
			for _, e := range r.Errors {
				fmt.Fprintf(w, "  ✗ %s\n", e)
			}
			for _, warn := range r.Warnings {
				fmt.Fprintf(w, "  ⚠ %s\n", warn)
			}
		}
	}

	if !allValid {
		return fmt.Errorf("verification failed")
	}
	return nil
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

// readSubmissions reads submission requests from submit output or a single result
func readSubmissions(path string) ([]*model.Submission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '[' {
		var records []struct {
			Result *model.SubmissionResult `json:"result"`
		}
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		subs := make([]*model.Submission, 0, len(records))
		for _, r := range records {
			if r.Result != nil && r.Result.Request != nil {
				subs = append(subs, r.Result.Request)
			}
		}
		return subs, nil
	}

	var result model.SubmissionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if result.Request == nil {
		return nil, fmt.Errorf("%s: no submission request found", path)
	}
	return []*model.Submission{result.Request}, nil
}
