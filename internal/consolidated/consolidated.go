// Package consolidated aggregates per-venue top-of-book state into a
// single National Best Bid and Offer (NBBO) view and detects cross-venue
// arbitrage opportunities.
package consolidated

import (
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/book"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
)

// NBBO is the cross-venue National Best Bid and Offer: the best bid and
// offer observed across all registered venues, with the venue that
// produced each side.
type NBBO struct {
	Symbol        core.Symbol
	BestBid       core.Price
	BestBidQty    core.Quantity
	BestBidVenue  core.Venue
	BestAsk       core.Price
	BestAskQty    core.Quantity
	BestAskVenue  core.Venue
	Ts            core.Timestamp
}

// MidPrice returns the integer mid of the NBBO, or (0, false) if either
// side is absent.
func (n NBBO) MidPrice() (core.Price, bool) {
	if n.BestBid <= 0 || n.BestAsk <= 0 {
		return 0, false
	}
	return (n.BestBid + n.BestAsk) / 2, true
}

// SpreadBps returns the NBBO spread in basis points, or (0, false) if the
// mid is undefined or non-positive.
func (n NBBO) SpreadBps() (float64, bool) {
	mid, ok := n.MidPrice()
	if !ok || mid <= 0 {
		return 0, false
	}
	return float64(n.BestAsk-n.BestBid) * 10000 / float64(mid), true
}

// IsCrossed reports whether the NBBO is crossed — a cross-venue arbitrage
// candidate — which holds iff BestBid >= BestAsk > 0 across two distinct
// venues. This is purely an observation used for logging; it is distinct
// from the executable opportunity returned by Detect.
func (n NBBO) IsCrossed() bool {
	return n.BestAsk > 0 && n.BestBid >= n.BestAsk && n.BestBidVenue != n.BestAskVenue
}

// Opportunity is a detected cross-venue arbitrage candidate: buy on
// BuyVenue at BuyPrice, sell on SellVenue at SellPrice. Invariant:
// SellPrice > BuyPrice and BuyVenue != SellVenue.
type Opportunity struct {
	Symbol            core.Symbol
	BuyVenue          core.Venue
	SellVenue         core.Venue
	BuyPrice          core.Price
	SellPrice         core.Price
	Quantity          core.Quantity
	ExpectedProfitBps float64
	Ts                core.Timestamp
}

// venueEntry pairs a venue's book with its registration order, used to
// break NBBO ties deterministically regardless of arrival order.
type venueEntry struct {
	venue core.Venue
	book  *book.VenueBook
	order int
}

// Book is the consolidated cross-venue order book for one symbol: one
// VenueBook per registered venue, plus the derived NBBO.
type Book struct {
	Symbol  core.Symbol
	venues  map[core.Venue]*venueEntry
	order   []*venueEntry // in registration order, for deterministic tie-break
	nbbo    NBBO
}

// New creates an empty consolidated book for symbol.
func New(symbol core.Symbol) *Book {
	return &Book{
		Symbol: symbol,
		venues: make(map[core.Venue]*venueEntry),
		nbbo:   NBBO{Symbol: symbol},
	}
}

// AddVenue registers a venue to track, in order. Idempotent.
func (b *Book) AddVenue(venue core.Venue) {
	if _, ok := b.venues[venue]; ok {
		return
	}
	e := &venueEntry{venue: venue, book: &book.VenueBook{}, order: len(b.order)}
	b.venues[venue] = e
	b.order = append(b.order, e)
}

// RemoveVenue unregisters a venue and recomputes the NBBO.
func (b *Book) RemoveVenue(venue core.Venue) {
	e, ok := b.venues[venue]
	if !ok {
		return
	}
	delete(b.venues, venue)
	for i, oe := range b.order {
		if oe == e {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.updateNBBO()
}

// Update applies tick from venue, registering the venue first if needed,
// then recomputes the NBBO.
func (b *Book) Update(venue core.Venue, tick core.Tick) {
	b.AddVenue(venue)
	b.venues[venue].book.Update(tick)
	b.updateNBBO()
}

// updateNBBO recomputes the NBBO by linear scan over registered venues in
// registration order, so ties are always broken the same way regardless
// of tick arrival order.
func (b *Book) updateNBBO() {
	n := NBBO{Symbol: b.Symbol, Ts: core.NowNS()}

	for _, e := range b.order {
		vb := e.book
		if vb.BestBid > n.BestBid {
			n.BestBid = vb.BestBid
			n.BestBidQty = vb.BestBidQty
			n.BestBidVenue = e.venue
		}
		if vb.BestAsk > 0 && (n.BestAsk == 0 || vb.BestAsk < n.BestAsk) {
			n.BestAsk = vb.BestAsk
			n.BestAskQty = vb.BestAskQty
			n.BestAskVenue = e.venue
		}
	}
	b.nbbo = n
}

// NBBO returns the current National Best Bid and Offer.
func (b *Book) NBBO() NBBO { return b.nbbo }

// MidPrice returns the NBBO mid price.
func (b *Book) MidPrice() (core.Price, bool) { return b.nbbo.MidPrice() }

// SpreadBps returns the NBBO spread in basis points.
func (b *Book) SpreadBps() (float64, bool) { return b.nbbo.SpreadBps() }

// VenueBook returns the per-venue top-of-book for venue, if registered.
func (b *Book) VenueBook(venue core.Venue) (*book.VenueBook, bool) {
	e, ok := b.venues[venue]
	if !ok {
		return nil, false
	}
	return e.book, true
}

// Venues returns all registered venues in registration order.
func (b *Book) Venues() []core.Venue {
	out := make([]core.Venue, len(b.order))
	for i, e := range b.order {
		out[i] = e.venue
	}
	return out
}

// Detect finds the venue with the lowest non-zero ask (buy leg) and the
// venue with the highest bid (sell leg), returning an Opportunity when
// profit_bps = (sell-buy)*10000/buy meets minProfitBps. Returns (zero,
// false) if fewer than two venues are present, the legs are on the same
// venue, sell <= buy, or the profit threshold is not met.
func (b *Book) Detect(minProfitBps float64) (Opportunity, bool) {
	if len(b.order) < 2 {
		return Opportunity{}, false
	}

	var buyVenue, sellVenue core.Venue
	var buyPrice, sellPrice core.Price
	var buyQty, sellQty core.Quantity
	haveBuy, haveSell := false, false

	for _, e := range b.order {
		vb := e.book
		if vb.BestAsk > 0 && (!haveBuy || vb.BestAsk < buyPrice) {
			buyVenue, buyPrice, buyQty = e.venue, vb.BestAsk, vb.BestAskQty
			haveBuy = true
		}
		if vb.BestBid > 0 && (!haveSell || vb.BestBid > sellPrice) {
			sellVenue, sellPrice, sellQty = e.venue, vb.BestBid, vb.BestBidQty
			haveSell = true
		}
	}

	if !haveBuy || !haveSell || buyVenue == sellVenue || sellPrice <= buyPrice {
		return Opportunity{}, false
	}

	profitBps := float64(sellPrice-buyPrice) * 10000 / float64(buyPrice)
	if profitBps < minProfitBps {
		return Opportunity{}, false
	}

	qty := buyQty
	if sellQty < qty {
		qty = sellQty
	}

	return Opportunity{
		Symbol:            b.Symbol,
		BuyVenue:          buyVenue,
		SellVenue:         sellVenue,
		BuyPrice:          buyPrice,
		SellPrice:         sellPrice,
		Quantity:          qty,
		ExpectedProfitBps: profitBps,
		Ts:                core.NowNS(),
	}, true
}

// VenuePrice is one entry in a venue ranking: the venue, its price on the
// relevant side, and the available quantity there.
type VenuePrice struct {
	Venue    core.Venue
	Price    core.Price
	Quantity core.Quantity
}

// VenuesByPrice ranks venues by price on the side relevant to isBuy:
// ascending by ask if isBuy, descending by bid otherwise. Venues with a
// zero price on the relevant side are omitted.
func (b *Book) VenuesByPrice(isBuy bool) []VenuePrice {
	var out []VenuePrice
	for _, e := range b.order {
		vb := e.book
		if isBuy && vb.BestAsk > 0 {
			out = append(out, VenuePrice{Venue: e.venue, Price: vb.BestAsk, Quantity: vb.BestAskQty})
		} else if !isBuy && vb.BestBid > 0 {
			out = append(out, VenuePrice{Venue: e.venue, Price: vb.BestBid, Quantity: vb.BestBidQty})
		}
	}
	sortVenuesByPrice(out, isBuy)
	return out
}

func sortVenuesByPrice(vs []VenuePrice, ascending bool) {
	// Simple insertion sort: venue lists are small (one entry per venue).
	for i := 1; i < len(vs); i++ {
		for j := i; j > 0; j-- {
			less := vs[j].Price < vs[j-1].Price
			if !ascending {
				less = vs[j].Price > vs[j-1].Price
			}
			if !less {
				break
			}
			vs[j], vs[j-1] = vs[j-1], vs[j]
		}
	}
}
