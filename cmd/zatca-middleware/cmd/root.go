package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rezonia/zatca-middleware/internal/config"
	"github.com/rezonia/zatca-middleware/internal/logging"
	"github.com/rezonia/zatca-middleware/pkg/zatcalib"
)

var (
	version = "1.0.0"

	// Global flags
	configFile   string
	verbose      bool
	outputFormat string

	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "zatca-middleware",
	Short: "Prepare point-of-sale invoices for ZATCA-style clearance",
	Long: `ZATCA middleware turns point-of-sale invoice JSON into clearance artifacts.

For every invoice it produces:
  - a canonical UBL-style XML document
  - a SHA-256 hash chained to the previous invoice
  - a simulated signature (not a real cryptographic signature)
  - a base64 TLV QR payload
  - a mock clearance response

Examples:
  # Start the HTTP middleware
  zatca-middleware serve

  # Submit invoices as one chain and keep the output
  zatca-middleware submit --chain inv-1.json inv-2.json -o chain.json

  # Verify a saved chain
  zatca-middleware verify chain.json

  # Decode a QR payload
  zatca-middleware qr decode AQtERU1PIFNFTExFUg==`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, table)")
}

// initConfig loads configuration and builds the logger before any subcommand runs
func initConfig(cmd *cobra.Command, args []string) error {
	switch outputFormat {
	case "json", "table":
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}

	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}
	cfg = loaded

	logCfg := cfg.Logger.Logging()
	if cmd.Name() != serveCmd.Name() {
		// Keep stdout for command output
		logCfg.OutputPath = "stderr"
		logCfg.Format = "console"
	}
	if verbose {
		logCfg.Level = "debug"
	}

	l, err := logging.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger = l
	return nil
}

// newProcessor builds a processor from the loaded configuration
func newProcessor() (*zatcalib.Processor, error) {
	opts := zatcalib.DefaultPipelineOptions()
	opts.Logger = logger
	opts.DefaultSellerName = cfg.Invoice.DefaultSellerName

	rate, err := cfg.Invoice.Rate()
	if err != nil {
		return nil, err
	}
	opts.VATRate = rate

	mode, err := cfg.Invoice.Mode()
	if err != nil {
		return nil, err
	}
	opts.CanonicalMode = mode

	return zatcalib.NewProcessor(opts), nil
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
