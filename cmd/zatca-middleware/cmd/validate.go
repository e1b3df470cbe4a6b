package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/zatca-middleware/internal/processor"
	"github.com/rezonia/zatca-middleware/pkg/zatcalib"
)

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate invoice files",
	Long: `Validate one or more JSON invoice files without submitting them.

Checks performed, all reported together:
  - invoiceNumber, vatNumber and issueDate present and non-empty
  - totalAmount present and a JSON number (zero is allowed)

Examples:
  zatca-middleware validate invoice.json
  zatca-middleware validate invoices/ -f table`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// ValidationResult holds the validation outcome of a single file
type ValidationResult struct {
	File   string   `json:"file"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no files found to validate")
	}

	proc, err := newProcessor()
	if err != nil {
		return err
	}

	results := make([]*ValidationResult, 0, len(files))
	allValid := true

	for _, file := range files {
		result := validateFile(proc, file)
		results = append(results, result)

		if !result.Valid {
			allValid = false
		}
	}

	w := cmd.OutOrStdout()
	if outputFormat == "json" {
		if err := writeJSON(w, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Fprintf(w, "✓ %s: VALID\n", r.File)
				continue
			}
			fmt.Fprintf(w, "✗ %s: INVALID\n", r.File)
			for _, e := range r.Errors {
				fmt.Fprintf(w, "  - %s\n", e)
			}
		}
	}

	if !allValid {
		return fmt.Errorf("validation failed for some files")
	}
	return nil
}

func validateFile(proc *zatcalib.Processor, filePath string) *ValidationResult {
	result := &ValidationResult{File: filePath}

	f, err := os.Open(filePath)
	if err != nil {
		result.Errors = []string{fmt.Sprintf("failed to read file: %v", err)}
		return result
	}
	defer f.Close()

	msgs, err := proc.Validate(f)
	if err != nil {
		result.Errors = processor.Messages(err)
		return result
	}

	result.Valid = len(msgs) == 0
	result.Errors = msgs
	return result
}
