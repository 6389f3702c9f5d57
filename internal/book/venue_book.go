// Package book maintains top-of-book state derived from venue ticks: a
// lightweight per-venue top-of-book (VenueBook) and a richer single-venue
// L2 book (L2Book) with ordered price levels.
package book

import (
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
)

// VenueBook is the per-venue top-of-book state fed by ticks from exactly
// one venue. Invariant: if both sides are present, BestBid < BestAsk —
// a crossed single-venue book is invalid and the arbitrage path never
// consults it directly (only consolidated.Book does, across venues).
type VenueBook struct {
	BestBid      core.Price
	BestBidQty   core.Quantity
	BestAsk      core.Price
	BestAskQty   core.Quantity
	LastUpdateTs core.Timestamp
}

// Update overwrites the top-of-book fields from tick and stamps the local
// receive time.
func (b *VenueBook) Update(tick core.Tick) {
	b.BestBid = tick.BestBid
	b.BestBidQty = tick.BestBidQty
	b.BestAsk = tick.BestAsk
	b.BestAskQty = tick.BestAskQty
	b.LastUpdateTs = core.NowNS()
}

// MidPrice returns the integer mid price, or (0, false) when either side
// is absent.
func (b *VenueBook) MidPrice() (core.Price, bool) {
	if b.BestBid <= 0 || b.BestAsk <= 0 {
		return 0, false
	}
	return (b.BestBid + b.BestAsk) / 2, true
}

// SpreadBps returns the spread in basis points, or (0, false) when the mid
// price is undefined or non-positive.
func (b *VenueBook) SpreadBps() (float64, bool) {
	mid, ok := b.MidPrice()
	if !ok || mid <= 0 {
		return 0, false
	}
	return float64(b.BestAsk-b.BestBid) * 10000 / float64(mid), true
}

// IsValid reports whether the book is uncrossed. An empty book (either
// side absent) is considered valid.
func (b *VenueBook) IsValid() bool {
	if b.BestBid <= 0 || b.BestAsk <= 0 {
		return true
	}
	return b.BestBid < b.BestAsk
}
