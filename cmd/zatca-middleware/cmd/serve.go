package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rezonia/zatca-middleware/internal/processor"
	"github.com/rezonia/zatca-middleware/internal/server"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP middleware",
	Long: `Start the HTTP middleware that accepts point-of-sale invoices.

Endpoints:
  - POST /invoice               - Submit an invoice (JSON)
  - POST /webhook               - Acknowledge a POS webhook
  - POST /api/v1/invoices       - Submit an invoice (JSON)
  - POST /api/v1/validate       - Validate an invoice without submitting
  - POST /api/v1/verify         - Verify submissions and their chain
  - POST /api/v1/qr/decode      - Decode a QR payload
  - GET  /health                - Health check

The listen address comes from server.address, ZATCA_SERVER_ADDRESS or PORT
(default :3000); --address overrides all of them.

Examples:
  # Start server on the configured port
  zatca-middleware serve

  # Start on a custom port in debug mode
  zatca-middleware serve --address :8080 --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", "", "Server listen address (overrides config)")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 0, "HTTP read timeout (overrides config)")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 0, "HTTP write timeout (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	defer func() { _ = logger.Sync() }()

	config := &server.Config{
		Address:      cfg.Server.Address,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Debug:        cfg.Server.Debug || serverDebug,
	}
	if serverAddr != "" {
		config.Address = serverAddr
	}
	if readTimeout > 0 {
		config.ReadTimeout = readTimeout
	}
	if writeTimeout > 0 {
		config.WriteTimeout = writeTimeout
	}

	rate, err := cfg.Invoice.Rate()
	if err != nil {
		return err
	}
	mode, err := cfg.Invoice.Mode()
	if err != nil {
		return err
	}

	pipeline := processor.NewPipeline(
		processor.WithVATRate(rate),
		processor.WithCanonicalMode(mode),
		processor.WithDefaultSellerName(cfg.Invoice.DefaultSellerName),
		processor.WithLogger(logger),
	)

	srv := server.NewServer(config,
		server.WithPipeline(pipeline),
		server.WithLogger(logger),
	)

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("starting server",
		zap.String("address", config.Address),
		zap.String("canonical_mode", mode.String()),
		zap.String("vat_rate", rate.String()),
	)

	return srv.Run()
}
