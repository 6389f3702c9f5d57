package book

import (
	"sort"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
)

// Level is a single aggregated price level: total resting quantity and
// order count at that price, plus the timestamp of its last update.
type Level struct {
	Price       core.Price
	Quantity    core.Quantity
	OrderCount  int
	LastUpdated core.Timestamp
}

// L2Book is a single-venue L2 order book keyed by price: bids ordered
// descending, asks ordered ascending. Level deletion occurs iff quantity
// drops to zero or below.
type L2Book struct {
	Symbol core.Symbol
	bids   []Level // descending by Price
	asks   []Level // ascending by Price
}

// NewL2Book creates an empty L2 book for symbol.
func NewL2Book(symbol core.Symbol) *L2Book {
	return &L2Book{Symbol: symbol}
}

// UpdateBid sets (or removes, if qty <= 0) the bid level at price.
func (b *L2Book) UpdateBid(price core.Price, qty core.Quantity) {
	b.bids = upsertLevel(b.bids, price, qty, true)
}

// UpdateAsk sets (or removes, if qty <= 0) the ask level at price.
func (b *L2Book) UpdateAsk(price core.Price, qty core.Quantity) {
	b.asks = upsertLevel(b.asks, price, qty, false)
}

// upsertLevel inserts, updates, or removes a level in a slice kept sorted
// by price (descending for bids, ascending for asks).
func upsertLevel(levels []Level, price core.Price, qty core.Quantity, descending bool) []Level {
	idx := sort.Search(len(levels), func(i int) bool {
		if descending {
			return levels[i].Price <= price
		}
		return levels[i].Price >= price
	})
	found := idx < len(levels) && levels[idx].Price == price

	if qty <= 0 {
		if found {
			levels = append(levels[:idx], levels[idx+1:]...)
		}
		return levels
	}

	lvl := Level{Price: price, Quantity: qty, OrderCount: 1, LastUpdated: core.NowNS()}
	if found {
		levels[idx] = lvl
		return levels
	}
	levels = append(levels, Level{})
	copy(levels[idx+1:], levels[idx:])
	levels[idx] = lvl
	return levels
}

// Clear removes all levels.
func (b *L2Book) Clear() {
	b.bids = nil
	b.asks = nil
}

// ApplySnapshot replaces the book with a full snapshot of levels.
func (b *L2Book) ApplySnapshot(bids, asks []Level) {
	b.bids = append([]Level(nil), bids...)
	b.asks = append([]Level(nil), asks...)
	sort.Slice(b.bids, func(i, j int) bool { return b.bids[i].Price > b.bids[j].Price })
	sort.Slice(b.asks, func(i, j int) bool { return b.asks[i].Price < b.asks[j].Price })
}

// BestBid returns the best (highest) bid level, if any.
func (b *L2Book) BestBid() (Level, bool) {
	if len(b.bids) == 0 {
		return Level{}, false
	}
	return b.bids[0], true
}

// BestAsk returns the best (lowest) ask level, if any.
func (b *L2Book) BestAsk() (Level, bool) {
	if len(b.asks) == 0 {
		return Level{}, false
	}
	return b.asks[0], true
}

// BidDepth returns the number of distinct bid levels.
func (b *L2Book) BidDepth() int { return len(b.bids) }

// AskDepth returns the number of distinct ask levels.
func (b *L2Book) AskDepth() int { return len(b.asks) }

// BidLevel returns the bid level at the given depth (0 = best).
func (b *L2Book) BidLevel(depth int) (Level, bool) {
	if depth < 0 || depth >= len(b.bids) {
		return Level{}, false
	}
	return b.bids[depth], true
}

// AskLevel returns the ask level at the given depth (0 = best).
func (b *L2Book) AskLevel(depth int) (Level, bool) {
	if depth < 0 || depth >= len(b.asks) {
		return Level{}, false
	}
	return b.asks[depth], true
}

// MidPrice returns the integer mid of best bid/ask, or (0, false) if the
// book is one-sided or empty.
func (b *L2Book) MidPrice() (core.Price, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	return (bid.Price + ask.Price) / 2, true
}

// SpreadBps returns the spread in basis points, or (0, false) if undefined.
func (b *L2Book) SpreadBps() (float64, bool) {
	mid, ok := b.MidPrice()
	if !ok || mid <= 0 {
		return 0, false
	}
	bid, _ := b.BestBid()
	ask, _ := b.BestAsk()
	return float64(ask.Price-bid.Price) * 10000 / float64(mid), true
}

// VWAPBid walks bid levels best-first to compute the volume-weighted
// average price for selling (hitting bids) targetQty. Returns (0, false)
// if no quantity is available.
func (b *L2Book) VWAPBid(targetQty core.Quantity) (core.Price, bool) {
	return vwapWalk(b.bids, targetQty)
}

// VWAPAsk walks ask levels best-first to compute the volume-weighted
// average price for buying (lifting asks) targetQty.
func (b *L2Book) VWAPAsk(targetQty core.Quantity) (core.Price, bool) {
	return vwapWalk(b.asks, targetQty)
}

func vwapWalk(levels []Level, targetQty core.Quantity) (core.Price, bool) {
	remaining := targetQty
	var totalValue int64
	var totalQty core.Quantity
	for _, lvl := range levels {
		if remaining <= 0 {
			break
		}
		fill := lvl.Quantity
		if fill > remaining {
			fill = remaining
		}
		totalValue += int64(lvl.Price) * int64(fill)
		totalQty += fill
		remaining -= fill
	}
	if totalQty == 0 {
		return 0, false
	}
	return core.Price(totalValue / int64(totalQty)), true
}

// Imbalance computes multi-level order-book imbalance over the first n
// levels (default 5): (sum bid qty - sum ask qty) / (sum bid qty + sum ask qty).
func (b *L2Book) Imbalance(n int) float64 {
	if n <= 0 {
		n = 5
	}
	var bidVol, askVol core.Quantity
	for i := 0; i < n && i < len(b.bids); i++ {
		bidVol += b.bids[i].Quantity
	}
	for i := 0; i < n && i < len(b.asks); i++ {
		askVol += b.asks[i].Quantity
	}
	total := bidVol + askVol
	if total == 0 {
		return 0
	}
	return float64(bidVol-askVol) / float64(total)
}

// IsValid reports whether the book is empty or uncrossed (best bid < best ask).
func (b *L2Book) IsValid() bool {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return true
	}
	return bid.Price < ask.Price
}
