// Package arbitrage detects and executes cross-venue arbitrage on a
// consolidated order book.
package arbitrage

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/consolidated"
)

// Config tunes the detector and executor.
type Config struct {
	MinProfitBps      float64
	MaxPositionUSD    float64
	MinQuantity       float64
	ExecutionTimeoutMS int
	FeeBps            float64
}

// DefaultConfig matches the original system's defaults.
func DefaultConfig() Config {
	return Config{
		MinProfitBps:       2.0,
		MaxPositionUSD:     10000.0,
		MinQuantity:        0.001,
		ExecutionTimeoutMS: 1000,
		FeeBps:             0.2,
	}
}

// Stats tracks detector/executor lifetime counters.
type Stats struct {
	OpportunitiesDetected int64
	OpportunitiesExecuted int64
	TotalProfitBps        float64
	TotalVolume           float64
	FailedExecutions      int64
}

// Detector wraps a consolidated.Book's Detect with a fee-adjusted
// threshold and opportunity bookkeeping.
type Detector struct {
	cfg Config

	mu              sync.Mutex
	stats           Stats
	lastOpportunity *consolidated.Opportunity
	onOpportunity   func(consolidated.Opportunity)
}

// NewDetector builds a Detector with cfg.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// SetOpportunityCallback installs a callback invoked whenever Check finds
// an opportunity.
func (d *Detector) SetOpportunityCallback(cb func(consolidated.Opportunity)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onOpportunity = cb
}

// Stats returns a snapshot of the detector's lifetime counters.
func (d *Detector) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Check runs detection on book with the configured fee-adjusted minimum
// profit threshold (min_profit_bps + 2*fee_bps, since each leg pays a fee),
// recording the opportunity and invoking the callback when one is found.
func (d *Detector) Check(book *consolidated.Book) (consolidated.Opportunity, bool) {
	minProfit := d.cfg.MinProfitBps + 2*d.cfg.FeeBps

	opp, ok := book.Detect(minProfit)
	if !ok {
		return consolidated.Opportunity{}, false
	}

	d.mu.Lock()
	d.stats.OpportunitiesDetected++
	d.lastOpportunity = &opp
	cb := d.onOpportunity
	d.mu.Unlock()

	log.Info().
		Str("symbol", opp.Symbol.String()).
		Str("buy_venue", opp.BuyVenue.String()).
		Str("sell_venue", opp.SellVenue.String()).
		Float64("profit_bps", opp.ExpectedProfitBps).
		Msg("arbitrage opportunity detected")

	if cb != nil {
		cb(opp)
	}
	return opp, true
}
