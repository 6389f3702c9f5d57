package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
)

func TestAvellanedaStoikovDisabled(t *testing.T) {
	m := NewAvellanedaStoikovMM(DefaultParams(), 0, 0, 0, 0)
	book := testBook(t, 99.99, 100.01)

	decisions := m.ComputeQuotes(book, 0, Signal{Timestamp: core.Timestamp(1)}, fakeVenues{venue: core.VenueBinance, ok: true})
	require.Len(t, decisions, 1)
	assert.False(t, decisions[0].ShouldQuote)
}

func TestAvellanedaStoikovEmitsQuoteCenteredNearMid(t *testing.T) {
	m := NewAvellanedaStoikovMM(DefaultParams(), 0.1, 0.01, 1.5, 600)
	m.Enable()
	book := testBook(t, 99.99, 100.01)

	decisions := m.ComputeQuotes(book, 0, Signal{Timestamp: core.Timestamp(1)}, fakeVenues{venue: core.VenueBinance, ok: true})
	require.Len(t, decisions, 1)
	decision := decisions[0]
	require.True(t, decision.ShouldQuote)
	assert.Less(t, decision.BidPrice, decision.AskPrice)

	mid, _ := book.MidPrice()
	// zero inventory -> reservation price equals mid, so the quote is symmetric.
	midToBid := mid - decision.BidPrice
	askToMid := decision.AskPrice - mid
	assert.InDelta(t, float64(midToBid), float64(askToMid), 1.0)
}

func TestAvellanedaStoikovLongInventorySkewsReservationDown(t *testing.T) {
	params := DefaultParams()
	book := testBook(t, 99.99, 100.01)
	mid, _ := book.MidPrice()

	m := NewAvellanedaStoikovMM(params, 0.1, 0.01, 1.5, 600)
	flat := m.reservationPrice(mid, 0, 1.0)

	m2 := NewAvellanedaStoikovMM(params, 0.1, 0.01, 1.5, 600)
	longPos := core.ToQuantity(1.0)
	skewed := m2.reservationPrice(mid, longPos, 1.0)

	assert.Less(t, skewed, flat)
}

// TestAvellanedaStoikovReservationPriceStaysNearMidForRealisticInventory
// guards against the unit-conversion bug where inventory entered the
// formula at its raw fixed-point scale: a 1 BTC position at realistic
// gamma/sigma should skew the reservation price by a small fraction of
// mid, not drive it negative or off by orders of magnitude.
func TestAvellanedaStoikovReservationPriceStaysNearMidForRealisticInventory(t *testing.T) {
	params := DefaultParams()
	book := testBook(t, 99.99, 100.01)
	mid, _ := book.MidPrice()

	m := NewAvellanedaStoikovMM(params, 0.1, 0.01, 1.5, 600)
	longPos := core.ToQuantity(1.0)
	reservation := m.reservationPrice(mid, longPos, 1.0)

	require.Greater(t, reservation, core.Price(0))
	deviation := core.FromPrice(mid - reservation)
	assert.Less(t, deviation, core.FromPrice(mid)*0.01)
}

func TestAvellanedaStoikovOptimalSpreadPositive(t *testing.T) {
	m := NewAvellanedaStoikovMM(DefaultParams(), 0.1, 0.01, 1.5, 600)
	spread := m.optimalSpread(1.0)
	assert.Greater(t, spread, 0.0)
}

func TestAvellanedaStoikovNoVenueAvailable(t *testing.T) {
	m := NewAvellanedaStoikovMM(DefaultParams(), 0, 0, 0, 0)
	m.Enable()
	book := testBook(t, 99.99, 100.01)

	decisions := m.ComputeQuotes(book, 0, Signal{Timestamp: core.Timestamp(1)}, fakeVenues{ok: false})
	require.Len(t, decisions, 1)
	assert.False(t, decisions[0].ShouldQuote)
	assert.Equal(t, "no venue available", decisions[0].Reason)
}
