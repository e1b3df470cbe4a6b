package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/zatca-middleware/internal/canonical"
	"github.com/rezonia/zatca-middleware/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT",
		"ZATCA_SERVER_ADDRESS",
		"ZATCA_LOGGER_LEVEL",
		"ZATCA_INVOICE_VAT_RATE",
		"ZATCA_INVOICE_CANONICAL_MODE",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Server.Address)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.False(t, cfg.Server.Debug)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, "DEMO SELLER", cfg.Invoice.DefaultSellerName)

	rate, err := cfg.Invoice.Rate()
	require.NoError(t, err)
	assert.Equal(t, "0.15", rate.String())

	mode, err := cfg.Invoice.Mode()
	require.NoError(t, err)
	assert.Equal(t, canonical.ModeRaw, mode)
}

func TestLoad_PortEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestLoad_PrefixedEnvWinsOverPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("ZATCA_SERVER_ADDRESS", "127.0.0.1:9000")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  address: ":4000"
  read_timeout: 5s
  write_timeout: 10s
  debug: true
logger:
  level: debug
  format: console
invoice:
  default_seller_name: "ACME TRADING"
  vat_rate: "0.05"
  canonical_mode: escaped
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "ACME TRADING", cfg.Invoice.DefaultSellerName)

	mode, err := cfg.Invoice.Mode()
	require.NoError(t, err)
	assert.Equal(t, canonical.ModeEscaped, mode)

	logCfg := cfg.Logger.Logging()
	assert.Equal(t, "debug", logCfg.Level)
	assert.Equal(t, "console", logCfg.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ZATCA_LOGGER_LEVEL", "warn")
	path := writeConfig(t, "logger:\n  level: debug\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logger.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad canonical mode", "invoice:\n  canonical_mode: pretty\n", "invoice.canonical_mode"},
		{"bad vat rate", "invoice:\n  vat_rate: lots\n", "invoice.vat_rate"},
		{"negative vat rate", "invoice:\n  vat_rate: \"-0.1\"\n", "must not be negative"},
		{"bad log format", "logger:\n  format: xml\n", "logger.format"},
		{"zero timeout", "server:\n  read_timeout: 0s\n", "server.read_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			_, err := config.Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
