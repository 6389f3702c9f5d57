// Package strategy implements market-making quote generation and
// post-fill hedging across the consolidated cross-venue book.
package strategy

import (
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/consolidated"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
)

// Signal carries the market state a MarketMaker conditions its quotes on.
type Signal struct {
	FairValue         float64
	Volatility        float64
	Momentum          float64
	InventoryPressure float64
	Timestamp         core.Timestamp
}

// QuoteDecision is a strategy's quoting output for one venue. ComputeQuotes
// returns one QuoteDecision per venue selected by the venue-selection rule
// in effect (see selectVenues) — a single entry in the common case, or one
// per connected venue when quoting on all venues at once.
type QuoteDecision struct {
	ShouldQuote bool
	Venue       core.Venue
	BidPrice    core.Price
	AskPrice    core.Price
	BidSize     core.Quantity
	AskSize     core.Quantity
	Reason      string
}

// Params tunes spread, inventory skew, sizing, quote refresh, and venue
// selection behavior.
type Params struct {
	MinSpreadBps     float64
	MaxSpreadBps     float64
	TargetSpreadBps  float64
	MaxPosition      core.Quantity
	InventorySkew    float64
	DefaultOrderSize core.Quantity
	MinOrderSize     core.Quantity
	MaxOrderSize     core.Quantity
	QuoteRefreshUS   int64
	MinQuoteLifeUS   int64

	// QuoteOnAll, when true, quotes on every connected venue instead of
	// picking one. Takes precedence over PreferLowestLatency.
	QuoteOnAll bool
	// PreferLowestLatency picks fastest_venue() when true (and QuoteOnAll
	// is false); otherwise the NBBO bid-venue, falling back to the
	// ask-venue.
	PreferLowestLatency bool
}

// DefaultParams matches the original system's single-venue defaults.
func DefaultParams() Params {
	return Params{
		MinSpreadBps:        5.0,
		MaxSpreadBps:        50.0,
		TargetSpreadBps:     10.0,
		MaxPosition:         core.ToQuantity(1.0),
		InventorySkew:       0.5,
		DefaultOrderSize:    core.ToQuantity(0.001),
		MinOrderSize:        core.ToQuantity(0.0001),
		MaxOrderSize:        core.ToQuantity(0.1),
		QuoteRefreshUS:      100_000,
		MinQuoteLifeUS:      50_000,
		QuoteOnAll:          false,
		PreferLowestLatency: true,
	}
}

// venueSelector is the subset of *exchange.Manager a MarketMaker needs to
// pick which venue(s) to quote on.
type venueSelector interface {
	FastestVenue() (core.Venue, bool)
	ConnectedVenues() []core.Venue
}

// MarketMaker computes quotes against the consolidated book and tracks
// fills. BasicMarketMaker and AvellanedaStoikovMM are the two concrete
// implementations behind this interface.
type MarketMaker interface {
	Enable()
	Disable()
	IsEnabled() bool
	ComputeQuotes(book *consolidated.Book, position core.Quantity, signal Signal, venues venueSelector) []QuoteDecision
	OnFill(order core.Order, filledQty core.Quantity, fillPrice core.Price)
	QuotesSent() int64
	Fills() int64
}

// base holds the bookkeeping shared by every MarketMaker implementation.
type base struct {
	params Params
	enabled bool

	activeBidPrice core.Price
	activeAskPrice core.Price
	lastQuoteTime  core.Timestamp

	quotesSent int64
	fills      int64
}

func (b *base) Enable()        { b.enabled = true }
func (b *base) Disable()       { b.enabled = false }
func (b *base) IsEnabled() bool { return b.enabled }
func (b *base) QuotesSent() int64 { return b.quotesSent }
func (b *base) Fills() int64      { return b.fills }

func (b *base) OnFill(order core.Order, filledQty core.Quantity, fillPrice core.Price) {
	b.fills++
}

// selectVenues picks the venue(s) to quote on: every connected venue when
// QuoteOnAll is set; otherwise the fastest venue when PreferLowestLatency
// is set; otherwise the NBBO bid-venue, falling back to the ask-venue.
func selectVenues(book *consolidated.Book, venues venueSelector, params Params) []core.Venue {
	if params.QuoteOnAll {
		return venues.ConnectedVenues()
	}

	if params.PreferLowestLatency {
		if v, ok := venues.FastestVenue(); ok {
			return []core.Venue{v}
		}
		return nil
	}

	nbbo := book.NBBO()
	if nbbo.BestBidVenue != core.VenueUnknown {
		return []core.Venue{nbbo.BestBidVenue}
	}
	if nbbo.BestAskVenue != core.VenueUnknown {
		return []core.Venue{nbbo.BestAskVenue}
	}
	return nil
}
