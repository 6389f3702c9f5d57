package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/consolidated"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
)

type fakeVenues struct {
	venue     core.Venue
	ok        bool
	connected []core.Venue
}

func (f fakeVenues) FastestVenue() (core.Venue, bool) { return f.venue, f.ok }

func (f fakeVenues) ConnectedVenues() []core.Venue { return f.connected }

func testSymbol() core.Symbol { return core.Symbol{Base: "BTC", Quote: "USDT"} }

func testBook(t *testing.T, bid, ask float64) *consolidated.Book {
	t.Helper()
	b := consolidated.New(testSymbol())
	b.Update(core.VenueBinance, core.Tick{
		Symbol: testSymbol(), BestBid: core.ToPrice(bid), BestBidQty: core.ToQuantity(1),
		BestAsk: core.ToPrice(ask), BestAskQty: core.ToQuantity(1),
	})
	return b
}

func TestBasicMarketMakerDisabled(t *testing.T) {
	m := NewBasicMarketMaker(DefaultParams())
	book := testBook(t, 99.99, 100.01)

	decisions := m.ComputeQuotes(book, 0, Signal{}, fakeVenues{venue: core.VenueBinance, ok: true})
	require.Len(t, decisions, 1)
	assert.False(t, decisions[0].ShouldQuote)
	assert.Equal(t, "strategy disabled", decisions[0].Reason)
}

func TestBasicMarketMakerNoVenueAvailable(t *testing.T) {
	m := NewBasicMarketMaker(DefaultParams())
	m.Enable()
	book := testBook(t, 99.99, 100.01)

	decisions := m.ComputeQuotes(book, 0, Signal{}, fakeVenues{ok: false})
	require.Len(t, decisions, 1)
	assert.False(t, decisions[0].ShouldQuote)
	assert.Equal(t, "no venue available", decisions[0].Reason)
}

func TestBasicMarketMakerEmitsSymmetricQuote(t *testing.T) {
	m := NewBasicMarketMaker(DefaultParams())
	m.Enable()
	book := testBook(t, 99.99, 100.01)

	decisions := m.ComputeQuotes(book, 0, Signal{}, fakeVenues{venue: core.VenueBinance, ok: true})
	require.Len(t, decisions, 1)
	decision := decisions[0]
	require.True(t, decision.ShouldQuote)
	assert.Equal(t, core.VenueBinance, decision.Venue)
	assert.Less(t, decision.BidPrice, decision.AskPrice)

	mid, _ := book.MidPrice()
	midToBid := mid - decision.BidPrice
	askToMid := decision.AskPrice - mid
	assert.InDelta(t, float64(midToBid), float64(askToMid), 1.0)
	assert.Equal(t, int64(1), m.QuotesSent())
}

func TestBasicMarketMakerQuotesOnEveryConnectedVenueWhenConfigured(t *testing.T) {
	params := DefaultParams()
	params.QuoteOnAll = true
	m := NewBasicMarketMaker(params)
	m.Enable()
	book := testBook(t, 99.99, 100.01)

	venues := fakeVenues{connected: []core.Venue{core.VenueBinance, core.VenueKraken, core.VenueOKX}}
	decisions := m.ComputeQuotes(book, 0, Signal{}, venues)
	require.Len(t, decisions, 3)
	for _, d := range decisions {
		assert.True(t, d.ShouldQuote)
	}
	assert.Equal(t, int64(3), m.QuotesSent())
}

func TestBasicMarketMakerFallsBackToNBBOBidVenue(t *testing.T) {
	params := DefaultParams()
	params.PreferLowestLatency = false
	m := NewBasicMarketMaker(params)
	m.Enable()
	book := testBook(t, 99.99, 100.01)

	decisions := m.ComputeQuotes(book, 0, Signal{}, fakeVenues{ok: false})
	require.Len(t, decisions, 1)
	require.True(t, decisions[0].ShouldQuote)
	assert.Equal(t, core.VenueBinance, decisions[0].Venue)
}

func TestBasicMarketMakerInventorySkewShiftsQuotesDown(t *testing.T) {
	params := DefaultParams()
	m := NewBasicMarketMaker(params)
	m.Enable()
	book := testBook(t, 99.99, 100.01)

	flat := m.ComputeQuotes(book, 0, Signal{}, fakeVenues{venue: core.VenueBinance, ok: true})
	require.Len(t, flat, 1)
	require.True(t, flat[0].ShouldQuote)

	m2 := NewBasicMarketMaker(params)
	m2.Enable()
	longPosition := params.MaxPosition
	skewed := m2.ComputeQuotes(book, longPosition, Signal{}, fakeVenues{venue: core.VenueBinance, ok: true})
	require.Len(t, skewed, 1)
	require.True(t, skewed[0].ShouldQuote)

	assert.Less(t, skewed[0].BidPrice, flat[0].BidPrice)
	assert.Less(t, skewed[0].AskPrice, flat[0].AskPrice)
}

func TestBasicMarketMakerMinQuoteLifeGating(t *testing.T) {
	params := DefaultParams()
	params.MinQuoteLifeUS = 1_000_000_000 // effectively never expires within the test
	m := NewBasicMarketMaker(params)
	m.Enable()
	book := testBook(t, 99.99, 100.01)

	first := m.ComputeQuotes(book, 0, Signal{}, fakeVenues{venue: core.VenueBinance, ok: true})
	require.Len(t, first, 1)
	require.True(t, first[0].ShouldQuote)

	second := m.ComputeQuotes(book, 0, Signal{}, fakeVenues{venue: core.VenueBinance, ok: true})
	require.Len(t, second, 1)
	assert.False(t, second[0].ShouldQuote)
	assert.Equal(t, "prices unchanged", second[0].Reason)
	assert.Equal(t, int64(1), m.QuotesSent())
}

func TestBasicMarketMakerVolatilityWidensSpread(t *testing.T) {
	params := DefaultParams()
	m := NewBasicMarketMaker(params)
	m.Enable()
	book := testBook(t, 99.99, 100.01)

	calm := m.ComputeQuotes(book, 0, Signal{Volatility: 0}, fakeVenues{venue: core.VenueBinance, ok: true})
	require.Len(t, calm, 1)
	require.True(t, calm[0].ShouldQuote)
	calmSpread := calm[0].AskPrice - calm[0].BidPrice

	m2 := NewBasicMarketMaker(params)
	m2.Enable()
	volatile := m2.ComputeQuotes(book, 0, Signal{Volatility: 2.0}, fakeVenues{venue: core.VenueBinance, ok: true})
	require.Len(t, volatile, 1)
	require.True(t, volatile[0].ShouldQuote)
	volatileSpread := volatile[0].AskPrice - volatile[0].BidPrice

	assert.Greater(t, volatileSpread, calmSpread)
}
