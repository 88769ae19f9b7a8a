// Package config defines all configuration for the arbitrage bot.
// Config is loaded from a TOML file (default: configs/config.toml) with
// credentials overridable via ARB_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the TOML file
// structure. Money-valued options are TOML strings so they survive the
// trip into decimals without passing through binary floats.
type Config struct {
	SendOrders             bool  `mapstructure:"send_orders"`
	MarketDepthLimit       int   `mapstructure:"market_depth_limit"`
	WSMaxConnections       int   `mapstructure:"ws_max_connections"`
	APIWeightLimit         int   `mapstructure:"api_weight_limit"`
	ProcessChainIntervalMS int64 `mapstructure:"process_chain_interval_ms"`
	OrderPollTimeoutMS     int64 `mapstructure:"order_poll_timeout_ms"`

	FeePercent          string `mapstructure:"fee_percent"`
	ReferenceAsset      string `mapstructure:"reference_asset"`
	DefaultMinProfitQty string `mapstructure:"default_min_profit_qty"`
	DefaultMaxOrderQty  string `mapstructure:"default_max_order_qty"`
	MinRefVolume24h     string `mapstructure:"min_ref_volume_24h"`

	BaseAssets  []AssetConfig `mapstructure:"base_assets"`
	SkipAssets  []string      `mapstructure:"skip_assets"`
	SkipSymbols []string      `mapstructure:"skip_symbols"`

	Venue      VenueConfig      `mapstructure:"venue"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`

	// Limits holds the parsed decimal forms of the string options above,
	// populated by Load.
	Limits Limits `mapstructure:"-"`
}

// AssetConfig is one configured base asset.
type AssetConfig struct {
	Asset     string `mapstructure:"asset"`
	Precision int32  `mapstructure:"precision"`
	RefSymbol string `mapstructure:"ref_symbol"`
}

// VenueConfig holds exchange endpoints and credentials. Credentials may
// be left empty in the file and supplied via ARB_API_KEY,
// ARB_API_SECRET and ARB_API_PASSPHRASE.
type VenueConfig struct {
	APIURL        string `mapstructure:"api_url"`
	WSPublicURL   string `mapstructure:"ws_public_url"`
	WSPrivateURL  string `mapstructure:"ws_private_url"`
	APIKey        string `mapstructure:"api_key"`
	APISecret     string `mapstructure:"api_secret"`
	APIPassphrase string `mapstructure:"api_passphrase"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MonitoringConfig controls the health/metrics HTTP server.
type MonitoringConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Limits are the decimal-valued options.
type Limits struct {
	FeePercent          decimal.Decimal
	DefaultMinProfitQty decimal.Decimal
	DefaultMaxOrderQty  decimal.Decimal
	MinRefVolume24h     decimal.Decimal
}

// Load reads config from a TOML file with env var overrides for
// credentials.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("market_depth_limit", 1)
	v.SetDefault("ws_max_connections", 100)
	v.SetDefault("process_chain_interval_ms", 5000)
	v.SetDefault("order_poll_timeout_ms", 30000)
	v.SetDefault("reference_asset", "USDT")
	v.SetDefault("min_ref_volume_24h", "0")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Override credentials from env
	if key := os.Getenv("ARB_API_KEY"); key != "" {
		cfg.Venue.APIKey = key
	}
	if secret := os.Getenv("ARB_API_SECRET"); secret != "" {
		cfg.Venue.APISecret = secret
	}
	if pass := os.Getenv("ARB_API_PASSPHRASE"); pass != "" {
		cfg.Venue.APIPassphrase = pass
	}

	if err := cfg.parseLimits(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) parseLimits() error {
	parse := func(name, raw string) (decimal.Decimal, error) {
		if raw == "" {
			return decimal.Zero, fmt.Errorf("%s is required", name)
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%s: %w", name, err)
		}
		return d, nil
	}

	var err error
	if c.Limits.FeePercent, err = parse("fee_percent", c.FeePercent); err != nil {
		return err
	}
	if c.Limits.DefaultMinProfitQty, err = parse("default_min_profit_qty", c.DefaultMinProfitQty); err != nil {
		return err
	}
	if c.Limits.DefaultMaxOrderQty, err = parse("default_max_order_qty", c.DefaultMaxOrderQty); err != nil {
		return err
	}
	if c.Limits.MinRefVolume24h, err = parse("min_ref_volume_24h", c.MinRefVolume24h); err != nil {
		return err
	}
	return nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if len(c.BaseAssets) == 0 {
		return fmt.Errorf("base_assets must not be empty")
	}
	for _, a := range c.BaseAssets {
		if a.Asset == "" {
			return fmt.Errorf("base_assets: asset code is required")
		}
		if a.Precision < 0 {
			return fmt.Errorf("base_assets: %s: precision must be >= 0", a.Asset)
		}
		if a.Asset != c.ReferenceAsset && a.RefSymbol == "" {
			return fmt.Errorf("base_assets: %s: ref_symbol is required for non-reference assets", a.Asset)
		}
	}
	if c.MarketDepthLimit < 1 {
		return fmt.Errorf("market_depth_limit must be >= 1")
	}
	if c.WSMaxConnections < 1 {
		return fmt.Errorf("ws_max_connections must be >= 1")
	}
	if c.APIWeightLimit < 1 {
		return fmt.Errorf("api_weight_limit must be >= 1")
	}
	if c.ProcessChainIntervalMS < 0 {
		return fmt.Errorf("process_chain_interval_ms must be >= 0")
	}
	if c.OrderPollTimeoutMS <= 0 {
		return fmt.Errorf("order_poll_timeout_ms must be > 0")
	}
	if c.Limits.FeePercent.IsNegative() {
		return fmt.Errorf("fee_percent must be >= 0")
	}
	if !c.Limits.DefaultMaxOrderQty.IsPositive() {
		return fmt.Errorf("default_max_order_qty must be > 0")
	}
	if c.Limits.DefaultMinProfitQty.IsNegative() {
		return fmt.Errorf("default_min_profit_qty must be >= 0")
	}
	if c.Venue.APIURL == "" {
		return fmt.Errorf("venue.api_url is required")
	}
	if c.Venue.WSPublicURL == "" {
		return fmt.Errorf("venue.ws_public_url is required")
	}
	if c.SendOrders {
		if c.Venue.WSPrivateURL == "" {
			return fmt.Errorf("venue.ws_private_url is required when send_orders is true")
		}
		if c.Venue.APIKey == "" || c.Venue.APISecret == "" || c.Venue.APIPassphrase == "" {
			return fmt.Errorf("venue credentials are required when send_orders is true (set ARB_API_KEY, ARB_API_SECRET, ARB_API_PASSPHRASE)")
		}
	}
	return nil
}
