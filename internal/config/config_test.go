package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
venues:
  binance:
    enabled: true
    api_key: "key"
    api_secret: "secret"
    symbols: ["BTCUSDT"]
arbitrage:
  enabled: true
  min_profit_bps: 5.0
  execution_timeout_ms: 500
market_maker:
  enabled: true
  strategy: basic
  min_spread_bps: 5
  max_spread_bps: 50
risk:
  profile: conservative
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTempConfig(t, validYAML)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Venues.Binance.Enabled)
	assert.Equal(t, "conservative", cfg.Risk.Profile)
}

func TestLoadRejectsNoEnabledVenues(t *testing.T) {
	path := writeTempConfig(t, `
venues:
  binance:
    enabled: false
    api_key: "key"
    api_secret: "secret"
    symbols: ["BTCUSDT"]
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsIncompleteVenueCredentials(t *testing.T) {
	path := writeTempConfig(t, `
venues:
  binance:
    enabled: true
    api_key: ""
    api_secret: "secret"
    symbols: ["BTCUSDT"]
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownStrategy(t *testing.T) {
	path := writeTempConfig(t, `
venues:
  binance:
    enabled: true
    api_key: "key"
    api_secret: "secret"
    symbols: ["BTCUSDT"]
market_maker:
  enabled: true
  strategy: unknown_strategy
  min_spread_bps: 5
  max_spread_bps: 50
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}
