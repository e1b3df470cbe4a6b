package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rezonia/zatca-middleware/internal/processor"
	"github.com/rezonia/zatca-middleware/pkg/zatcalib"
)

var (
	outputFile   string
	previousHash string
	chainFiles   bool
	timeout      time.Duration
)

var submitCmd = &cobra.Command{
	Use:   "submit [files...]",
	Short: "Submit invoice files to the sandbox",
	Long: `Submit one or more JSON invoice files and print the clearance artifacts.

Each file holds one invoice:
  {"invoiceNumber": "INV-1", "vatNumber": "300123456700003",
   "issueDate": "2024-01-01", "totalAmount": 115}

With --chain the files are linked in the given order: each invoice's
previousInvoiceHash becomes the hash of the invoice before it. Without
--chain every file is submitted on its own.

Examples:
  zatca-middleware submit invoice.json
  zatca-middleware submit --chain inv-1.json inv-2.json -o chain.json
  zatca-middleware submit --previous-hash <hash> inv-3.json
  zatca-middleware submit invoices/ -f table`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	submitCmd.Flags().StringVar(&previousHash, "previous-hash", "", "Hash of the invoice preceding the first file")
	submitCmd.Flags().BoolVar(&chainFiles, "chain", false, "Link the files into one hash chain")
	submitCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Processing timeout")
}

// SubmitRecord holds the outcome of submitting a single file
type SubmitRecord struct {
	File   string           `json:"file"`
	Result *zatcalib.Result `json:"result,omitempty"`
	Errors []string         `json:"errors,omitempty"`
}

func runSubmit(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to submit")
	}
	if previousHash != "" && len(files) > 1 && !chainFiles {
		return fmt.Errorf("--previous-hash with several files requires --chain")
	}

	printVerbose("Found %d files to submit\n", len(files))

	proc, err := newProcessor()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var records []*SubmitRecord
	if chainFiles || previousHash != "" {
		records, err = submitChain(ctx, proc, files)
		if err != nil {
			return err
		}
	} else {
		records = submitEach(ctx, proc, files)
	}

	if err := outputRecords(cmd.OutOrStdout(), records); err != nil {
		return err
	}

	for _, r := range records {
		if len(r.Errors) > 0 {
			return fmt.Errorf("submission failed for some files")
		}
	}
	return nil
}

func submitEach(ctx context.Context, proc *zatcalib.Processor, files []string) []*SubmitRecord {
	records := make([]*SubmitRecord, 0, len(files))
	for _, file := range files {
		printVerbose("Submitting: %s\n", file)

		record := &SubmitRecord{File: file}
		f, err := os.Open(file)
		if err != nil {
			record.Errors = []string{fmt.Sprintf("failed to read file: %v", err)}
			records = append(records, record)
			continue
		}

		result, err := proc.Submit(ctx, f)
		_ = f.Close()
		if err != nil {
			logger.Warn("submission failed", zap.String("file", file), zap.Error(err))
			record.Errors = processor.Messages(err)
		} else {
			record.Result = result
		}
		records = append(records, record)
	}
	return records
}

// submitChain links the files in order; files after the first failure are not submitted
func submitChain(ctx context.Context, proc *zatcalib.Processor, files []string) ([]*SubmitRecord, error) {
	inputs := make([]io.Reader, 0, len(files))
	for _, file := range files {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		defer f.Close()
		inputs = append(inputs, f)
	}

	results, err := proc.SubmitChainFrom(ctx, previousHash, inputs)

	records := make([]*SubmitRecord, 0, len(files))
	for i, result := range results {
		records = append(records, &SubmitRecord{File: files[i], Result: result})
	}
	if err != nil {
		logger.Warn("chain submission stopped", zap.Int("submitted", len(results)), zap.Error(err))
		if len(results) < len(files) {
			records = append(records, &SubmitRecord{
				File:   files[len(results)],
				Errors: processor.Messages(err),
			})
		}
	}
	return records, nil
}

func outputRecords(out io.Writer, records []*SubmitRecord) error {
	w, err := openOutput(outputFile, out)
	if err != nil {
		return err
	}
	defer w.Close()

	if outputFormat == "json" {
		return writeJSON(w, records)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tINVOICE\tTOTAL\tVAT\tHASH\tSTATUS")
	fmt.Fprintln(tw, "----\t-------\t-----\t---\t----\t------")

	for _, r := range records {
		if len(r.Errors) > 0 {
			fmt.Fprintf(tw, "%s\tERROR: %s\t\t\t\t\n", r.File, r.Errors[0])
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.File,
			r.Result.Invoice.InvoiceNumber,
			r.Result.Invoice.TotalAmount.String(),
			r.Result.VATAmount.String(),
			r.Result.InvoiceHash,
			r.Result.Response.ClearanceStatus,
		)
	}

	return tw.Flush()
}
