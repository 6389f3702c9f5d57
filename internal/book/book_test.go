package book

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
)

func TestVenueBookUpdate(t *testing.T) {
	var b VenueBook
	b.Update(core.Tick{
		BestBid: 10000, BestBidQty: 100,
		BestAsk: 10020, BestAskQty: 50,
	})
	mid, ok := b.MidPrice()
	assert.True(t, ok)
	assert.Equal(t, core.Price(10010), mid)

	spread, ok := b.SpreadBps()
	assert.True(t, ok)
	assert.InDelta(t, 19.98, spread, 0.01)
	assert.True(t, b.IsValid())
}

func TestVenueBookOneSidedUndefined(t *testing.T) {
	var b VenueBook
	b.Update(core.Tick{BestBid: 10000, BestBidQty: 1})
	_, ok := b.MidPrice()
	assert.False(t, ok)
}

func TestVenueBookCrossedInvalid(t *testing.T) {
	var b VenueBook
	b.Update(core.Tick{BestBid: 100, BestAsk: 99})
	assert.False(t, b.IsValid())
}

func TestL2BookLevelsAndVWAP(t *testing.T) {
	sym := core.Symbol{Base: "BTC", Quote: "USDT"}
	b := NewL2Book(sym)
	b.UpdateBid(100, 10)
	b.UpdateBid(99, 20)
	b.UpdateBid(101, 5)
	b.UpdateAsk(102, 8)
	b.UpdateAsk(103, 12)

	bid, ok := b.BestBid()
	assert.True(t, ok)
	assert.Equal(t, core.Price(101), bid.Price)

	ask, ok := b.BestAsk()
	assert.True(t, ok)
	assert.Equal(t, core.Price(102), ask.Price)

	assert.Equal(t, 3, b.BidDepth())
	assert.Equal(t, 2, b.AskDepth())

	vwap, ok := b.VWAPAsk(10)
	assert.True(t, ok)
	// 8 @ 102 + 2 @ 103 = (816+206)/10 = 102 (integer division)
	assert.Equal(t, core.Price(102), vwap)

	assert.True(t, b.IsValid())
}

func TestL2BookLevelDeletionAtZero(t *testing.T) {
	b := NewL2Book(core.Symbol{})
	b.UpdateBid(100, 10)
	assert.Equal(t, 1, b.BidDepth())
	b.UpdateBid(100, 0)
	assert.Equal(t, 0, b.BidDepth())
}

func TestL2BookImbalance(t *testing.T) {
	b := NewL2Book(core.Symbol{})
	b.UpdateBid(100, 30)
	b.UpdateAsk(101, 10)
	imb := b.Imbalance(5)
	assert.InDelta(t, 0.5, imb, 1e-9)
}

func TestL2BookEmptyIsValid(t *testing.T) {
	b := NewL2Book(core.Symbol{})
	assert.True(t, b.IsValid())
}
