package arbitrage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/consolidated"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
)

func sym() core.Symbol { return core.Symbol{Base: "BTC", Quote: "USDT"} }

func buildBook(t *testing.T, buyPrice, sellPrice float64) *consolidated.Book {
	t.Helper()
	b := consolidated.New(sym())
	b.Update(core.VenueBinance, core.Tick{
		Symbol: sym(), BestBid: core.ToPrice(buyPrice - 0.01), BestBidQty: core.ToQuantity(1),
		BestAsk: core.ToPrice(buyPrice), BestAskQty: core.ToQuantity(1),
	})
	b.Update(core.VenueKraken, core.Tick{
		Symbol: sym(), BestBid: core.ToPrice(sellPrice), BestBidQty: core.ToQuantity(1),
		BestAsk: core.ToPrice(sellPrice + 0.01), BestAskQty: core.ToQuantity(1),
	})
	return b
}

func TestDetectorCheckFeeAdjustedThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinProfitBps = 2.0
	cfg.FeeBps = 0.2 // effective threshold = 2.4bps
	d := NewDetector(cfg)

	// ~30bps spread clears the fee-adjusted threshold easily.
	book := buildBook(t, 100.0, 100.3)

	var captured consolidated.Opportunity
	d.SetOpportunityCallback(func(o consolidated.Opportunity) { captured = o })

	opp, ok := d.Check(book)
	require.True(t, ok)
	assert.Equal(t, core.VenueBinance, opp.BuyVenue)
	assert.Equal(t, core.VenueKraken, opp.SellVenue)
	assert.Equal(t, opp, captured)
	assert.Equal(t, int64(1), d.Stats().OpportunitiesDetected)
}

func TestDetectorCheckRejectsBelowThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinProfitBps = 10.0
	d := NewDetector(cfg)

	book := buildBook(t, 100.0, 100.01)
	_, ok := d.Check(book)
	assert.False(t, ok)
	assert.Equal(t, int64(0), d.Stats().OpportunitiesDetected)
}
