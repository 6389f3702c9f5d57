// Package config loads the trading core's YAML configuration file into
// typed structs, validating it the way the teacher's provider config
// loader does.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete trading core configuration.
type Config struct {
	Venues     VenuesConfig     `yaml:"venues"`
	Arbitrage  ArbitrageConfig  `yaml:"arbitrage"`
	MarketMaker MarketMakerConfig `yaml:"market_maker"`
	Risk       RiskConfig       `yaml:"risk"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// VenuesConfig holds one entry per enabled venue, keyed by venue name
// (binance, kraken, okx, bybit).
type VenuesConfig struct {
	Binance *VenueCredentials `yaml:"binance"`
	Kraken  *VenueCredentials `yaml:"kraken"`
	OKX     *VenueCredentials `yaml:"okx"`
	Bybit   *VenueCredentials `yaml:"bybit"`
}

// VenueCredentials is one venue's connection and auth settings.
type VenueCredentials struct {
	Enabled    bool   `yaml:"enabled"`
	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
	Passphrase string `yaml:"passphrase"` // OKX only
	Testnet    bool   `yaml:"testnet"`
	RecvWindow int    `yaml:"recv_window"`
	Symbols    []string `yaml:"symbols"`
}

// ArbitrageConfig mirrors arbitrage.Config, loaded from YAML.
type ArbitrageConfig struct {
	Enabled             bool    `yaml:"enabled"`
	MinProfitBps        float64 `yaml:"min_profit_bps"`
	MaxPositionUSD      float64 `yaml:"max_position_usd"`
	MinQuantity         float64 `yaml:"min_quantity"`
	ExecutionTimeoutMS  int     `yaml:"execution_timeout_ms"`
	FeeBps              float64 `yaml:"fee_bps"`
}

// MarketMakerConfig mirrors strategy.Params plus the strategy selector
// and Avellaneda-Stoikov tuning knobs.
type MarketMakerConfig struct {
	Enabled          bool    `yaml:"enabled"`
	Strategy         string  `yaml:"strategy"` // "basic" or "avellaneda_stoikov"
	MinSpreadBps     float64 `yaml:"min_spread_bps"`
	MaxSpreadBps     float64 `yaml:"max_spread_bps"`
	TargetSpreadBps  float64 `yaml:"target_spread_bps"`
	MaxPosition      float64 `yaml:"max_position"`
	InventorySkew    float64 `yaml:"inventory_skew"`
	DefaultOrderSize float64 `yaml:"default_order_size"`
	MinOrderSize     float64 `yaml:"min_order_size"`
	MaxOrderSize     float64 `yaml:"max_order_size"`
	QuoteRefreshUS   int64   `yaml:"quote_refresh_us"`
	MinQuoteLifeUS   int64   `yaml:"min_quote_life_us"`
	HedgeOnFill      bool    `yaml:"hedge_on_fill"`
	HedgeVenue       string  `yaml:"hedge_venue"`
	Gamma            float64 `yaml:"gamma"`
	Sigma            float64 `yaml:"sigma"`
	K                float64 `yaml:"k"`
	THorizonSeconds  float64 `yaml:"t_horizon_seconds"`
}

// RiskConfig mirrors risk.Limits, loaded from YAML.
type RiskConfig struct {
	Profile              string  `yaml:"profile"` // "default" or "conservative"
	MaxPositionPerVenue   float64 `yaml:"max_position_per_venue"`
	MaxTotalPosition      float64 `yaml:"max_total_position"`
	MaxOrderSize          float64 `yaml:"max_order_size"`
	MaxOrderValue         float64 `yaml:"max_order_value"`
	MaxOrdersPerSecond    int     `yaml:"max_orders_per_second"`
	MaxOpenOrders         int     `yaml:"max_open_orders"`
	MaxLossPerTrade       float64 `yaml:"max_loss_per_trade"`
	MaxDailyLoss          float64 `yaml:"max_daily_loss"`
	MaxDrawdown           float64 `yaml:"max_drawdown"`
	MaxPriceDeviationBps  float64 `yaml:"max_price_deviation_bps"`
	KillSwitchEnabled     bool    `yaml:"kill_switch_enabled"`
}

// MetricsConfig configures the /metrics and /healthz HTTP server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Load reads and validates the YAML configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks cross-field invariants the YAML schema alone can't
// express.
func (c *Config) Validate() error {
	if c.Venues.Binance == nil && c.Venues.Kraken == nil && c.Venues.OKX == nil && c.Venues.Bybit == nil {
		return fmt.Errorf("at least one venue must be configured")
	}

	enabledCount := 0
	for name, vc := range c.venueMap() {
		if vc == nil || !vc.Enabled {
			continue
		}
		enabledCount++
		if err := vc.Validate(); err != nil {
			return fmt.Errorf("venue %s: %w", name, err)
		}
	}
	if enabledCount == 0 {
		return fmt.Errorf("at least one venue must have enabled: true")
	}

	if c.Arbitrage.Enabled {
		if c.Arbitrage.MinProfitBps <= 0 {
			return fmt.Errorf("arbitrage.min_profit_bps must be positive")
		}
		if c.Arbitrage.ExecutionTimeoutMS <= 0 {
			return fmt.Errorf("arbitrage.execution_timeout_ms must be positive")
		}
	}

	if c.MarketMaker.Enabled {
		if c.MarketMaker.MinSpreadBps <= 0 || c.MarketMaker.MaxSpreadBps < c.MarketMaker.MinSpreadBps {
			return fmt.Errorf("market_maker spread bounds are invalid")
		}
		switch c.MarketMaker.Strategy {
		case "", "basic", "avellaneda_stoikov":
		default:
			return fmt.Errorf("market_maker.strategy must be 'basic' or 'avellaneda_stoikov', got %q", c.MarketMaker.Strategy)
		}
	}

	switch c.Risk.Profile {
	case "", "default", "conservative":
	default:
		return fmt.Errorf("risk.profile must be 'default' or 'conservative', got %q", c.Risk.Profile)
	}

	return nil
}

func (c *Config) venueMap() map[string]*VenueCredentials {
	return map[string]*VenueCredentials{
		"binance": c.Venues.Binance,
		"kraken":  c.Venues.Kraken,
		"okx":     c.Venues.OKX,
		"bybit":   c.Venues.Bybit,
	}
}

// Validate checks a single venue's credentials are complete.
func (v *VenueCredentials) Validate() error {
	if v.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}
	if v.APISecret == "" {
		return fmt.Errorf("api_secret cannot be empty")
	}
	if len(v.Symbols) == 0 {
		return fmt.Errorf("at least one symbol must be configured")
	}
	return nil
}
