package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/rezonia/zatca-middleware/internal/canonical"
	moneydec "github.com/rezonia/zatca-middleware/internal/decimal"
	"github.com/rezonia/zatca-middleware/internal/logging"
	"github.com/rezonia/zatca-middleware/internal/model"
)

// EnvPrefix prefixes environment overrides, e.g. ZATCA_SERVER_ADDRESS
const EnvPrefix = "ZATCA"

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logger  LoggerConfig  `mapstructure:"logger"`
	Invoice InvoiceConfig `mapstructure:"invoice"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Debug        bool          `mapstructure:"debug"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// InvoiceConfig holds pipeline settings
type InvoiceConfig struct {
	DefaultSellerName string `mapstructure:"default_seller_name"`
	VATRate           string `mapstructure:"vat_rate"`
	CanonicalMode     string `mapstructure:"canonical_mode"`
}

// Logging returns the logger settings in the form the logging package expects
func (c LoggerConfig) Logging() logging.Config {
	return logging.Config{
		Level:      c.Level,
		OutputPath: c.OutputPath,
		Format:     c.Format,
	}
}

// Rate parses the configured VAT rate
func (c InvoiceConfig) Rate() (decimal.Decimal, error) {
	return moneydec.FromString(c.VATRate)
}

// Mode parses the configured canonical mode
func (c InvoiceConfig) Mode() (canonical.Mode, error) {
	return canonical.ParseMode(c.CanonicalMode)
}

// Load loads configuration from defaults, an optional YAML file, a .env file and
// environment variables, in increasing order of precedence.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The bare PORT variable is honored when no address was configured explicitly
	if port := v.GetString("port"); port != "" && cfg.Server.Address == "" {
		cfg.Server.Address = ":" + port
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults; an empty address resolves to PORT or DefaultAddress
	v.SetDefault("server.address", "")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.debug", false)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// Invoice defaults
	v.SetDefault("invoice.default_seller_name", model.DefaultSellerName)
	v.SetDefault("invoice.vat_rate", "0.15")
	v.SetDefault("invoice.canonical_mode", canonical.ModeRaw.String())

	// PORT is read without the prefix
	_ = v.BindEnv("port", "PORT")
}

// DefaultAddress is used when neither server.address nor PORT is set
const DefaultAddress = ":3000"

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	rate, err := c.Invoice.Rate()
	if err != nil {
		return fmt.Errorf("invoice.vat_rate: %w", err)
	}
	if !moneydec.IsNonNegative(rate) {
		return fmt.Errorf("invoice.vat_rate must not be negative")
	}

	if _, err := c.Invoice.Mode(); err != nil {
		return fmt.Errorf("invoice.canonical_mode: %w", err)
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console")
	}

	return nil
}
