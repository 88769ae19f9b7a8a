package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

const sampleConfig = `
send_orders = false
ws_max_connections = 50
api_weight_limit = 4000

fee_percent = "0.075"
default_min_profit_qty = "3.0"
default_max_order_qty = "30.0"

skip_assets = ["TRY"]
skip_symbols = ["BTC-TRY"]

[[base_assets]]
asset = "USDT"
precision = 8

[[base_assets]]
asset = "BTC"
precision = 8
ref_symbol = "BTC-USDT"

[venue]
api_url = "https://api.example.com"
ws_public_url = "wss://stream.example.com/public"
ws_private_url = "wss://stream.example.com/private"

[logging]
level = "debug"
format = "json"

[monitoring]
enabled = true
port = 9090
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.SendOrders {
		t.Error("SendOrders = true, want false")
	}
	if cfg.MarketDepthLimit != 1 {
		t.Errorf("MarketDepthLimit = %d, want default 1", cfg.MarketDepthLimit)
	}
	if cfg.WSMaxConnections != 50 {
		t.Errorf("WSMaxConnections = %d, want 50", cfg.WSMaxConnections)
	}
	if cfg.ReferenceAsset != "USDT" {
		t.Errorf("ReferenceAsset = %s, want default USDT", cfg.ReferenceAsset)
	}
	if !cfg.Limits.FeePercent.Equal(decimal.RequireFromString("0.075")) {
		t.Errorf("FeePercent = %s, want 0.075", cfg.Limits.FeePercent)
	}
	if !cfg.Limits.DefaultMaxOrderQty.Equal(decimal.RequireFromString("30.0")) {
		t.Errorf("DefaultMaxOrderQty = %s, want 30.0", cfg.Limits.DefaultMaxOrderQty)
	}
	if len(cfg.BaseAssets) != 2 || cfg.BaseAssets[1].RefSymbol != "BTC-USDT" {
		t.Errorf("BaseAssets = %+v", cfg.BaseAssets)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadEnvOverridesCredentials(t *testing.T) {
	t.Setenv("ARB_API_KEY", "k")
	t.Setenv("ARB_API_SECRET", "s")
	t.Setenv("ARB_API_PASSPHRASE", "p")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Venue.APIKey != "k" || cfg.Venue.APISecret != "s" || cfg.Venue.APIPassphrase != "p" {
		t.Errorf("credentials not overridden from env: %+v", cfg.Venue)
	}
}

func TestLoadRejectsBadDecimal(t *testing.T) {
	body := sampleConfig + "\n"
	cfg, err := Load(writeConfig(t, body))
	if err != nil || cfg == nil {
		t.Fatalf("Load: %v", err)
	}

	bad := `
send_orders = false
ws_max_connections = 50
api_weight_limit = 4000
fee_percent = "not-a-number"
default_min_profit_qty = "3.0"
default_max_order_qty = "30.0"

[[base_assets]]
asset = "USDT"
precision = 8

[venue]
api_url = "https://api.example.com"
ws_public_url = "wss://stream.example.com/public"
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Error("Load accepted a malformed fee_percent")
	}
}

func TestValidateFailures(t *testing.T) {
	load := func() *Config {
		cfg, err := Load(writeConfig(t, sampleConfig))
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		return cfg
	}

	cfg := load()
	cfg.BaseAssets = nil
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted empty base_assets")
	}

	cfg = load()
	cfg.BaseAssets[1].RefSymbol = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted a non-reference asset without ref_symbol")
	}

	cfg = load()
	cfg.Venue.APIURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted empty venue.api_url")
	}

	cfg = load()
	cfg.SendOrders = true // no credentials configured
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted send_orders without credentials")
	}

	cfg = load()
	cfg.APIWeightLimit = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted zero api_weight_limit")
	}
}
